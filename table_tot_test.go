package demuxfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tdtPayload builds a minimal TDT/TOT payload: 16-bit MJD followed by a
// 3-byte BCD hour/minute/second. MJD 58849 (0xE5E1) is 2020-01-01; 12:30:00
// is BCD 0x12 0x30 0x00.
func tdtPayload() []byte {
	return []byte{0xE5, 0xE1, 0x12, 0x30, 0x00}
}

func TestParseTOTBuildsCurrentDirectlyWithNoVersionDir(t *testing.T) {
	e := NewEngine()
	hdr := &psiHeader{TableID: tdtTableID}

	require.NoError(t, parseTOT(e, totPID, hdr, tdtPayload(), nil))

	cur, err := e.root.Resolve("TOT/Current")
	require.NoError(t, err)
	assert.Equal(t, ModeDir, cur.Mode())

	// No Vnn directory exists for a table with no version_number.
	_, err = e.root.Resolve("TOT/V00")
	assert.Error(t, err)
}

func TestParseTOTRepeatedDeliveryReplacesRatherThanDeletesItself(t *testing.T) {
	e := NewEngine()
	hdr := &psiHeader{TableID: tdtTableID}

	require.NoError(t, parseTOT(e, totPID, hdr, tdtPayload(), nil))
	first, err := e.root.Resolve("TOT/Current")
	require.NoError(t, err)
	assert.Equal(t, int32(1), first.RefCount())

	require.NoError(t, parseTOT(e, totPID, hdr, tdtPayload(), nil))
	second, err := e.root.Resolve("TOT/Current")
	require.NoError(t, err)

	assert.NotSame(t, first, second, "each delivery installs a fresh directory")
	assert.Equal(t, int32(0), first.RefCount(), "the superseded directory is released, not left dangling")
	assert.Equal(t, int32(1), second.RefCount())

	utc, err := second.Resolve("utc_time")
	require.NoError(t, err)
	assert.Equal(t, "2020-01-01T12:30:00", string(utc.Content()))
}

func TestParseTOTTDTPayloadHasNoDescriptors(t *testing.T) {
	e := NewEngine()
	tdtHdr := &psiHeader{TableID: tdtTableID}
	require.NoError(t, parseTOT(e, totPID, tdtHdr, tdtPayload(), nil))

	cur, err := e.root.Resolve("TOT/Current")
	require.NoError(t, err)
	assert.Len(t, cur.Children(), 2, "a TDT payload has no descriptor loop to decode, just table_id and utc_time")
}
