package demuxfs

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsIndependentPerEngine(t *testing.T) {
	// Two engines in the same process must not collide registering the
	// same counter names, since NewEngine creates its own private registry.
	assert.NotPanics(t, func() {
		NewEngine()
		NewEngine()
	})
}

func TestMetricsParsedSectionsIncrementsOnSuccessfulDispatch(t *testing.T) {
	e := NewEngine()
	require.NoError(t, e.Feed(patPacket(0)))
	assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.parsedSections))
}

func TestMetricsCRCFailureIncrementsDroppedAndCRC(t *testing.T) {
	e := NewEngine()
	// Corrupt the CRC trailer itself (the last byte of testDataPat, copied at
	// offset 5 in the packet) so the section fails its checksum.
	p := patPacket(0)
	p[5+len(testDataPat)-1] ^= 0x01

	require.NoError(t, e.Feed(p))
	assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.droppedSections))
	assert.Equal(t, float64(1), testutil.ToFloat64(e.metrics.crcFailures))
}
