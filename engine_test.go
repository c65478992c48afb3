package demuxfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// patPacket builds one 188-byte TS packet carrying testDataPat on PID 0x00,
// PUSI set, pointer_field 0, padded out with stuffing bytes.
func patPacket(cc uint8) []byte {
	p := make([]byte, MpegTsPacketSize)
	p[0] = syncByte
	p[1] = 0x40 // PUSI, PID high bits 0
	p[2] = 0x00 // PID low byte 0
	p[3] = (0b01 << 4) | (cc & 0x0F)
	p[4] = 0x00 // pointer_field
	copy(p[5:], testDataPat)
	for i := 5 + len(testDataPat); i < len(p); i++ {
		p[i] = 0xFF
	}
	return p
}

func TestEngineFeedPATEndToEnd(t *testing.T) {
	e := NewEngine()
	require.NoError(t, e.Feed(patPacket(0)))

	pmtLink, err := e.root.Resolve("PAT/Current")
	require.NoError(t, err)
	assert.Equal(t, "V10", pmtLink.SymlinkTarget())
	assert.True(t, e.registry.HasParser(0x1000))
}

func TestEngineFeedRejectsWrongSize(t *testing.T) {
	e := NewEngine()
	assert.ErrorIs(t, e.Feed(make([]byte, 42)), ErrInvalidPacketSize)
}

func TestEngineFeedDropsScrambledPayload(t *testing.T) {
	e := NewEngine()
	p := patPacket(0)
	p[3] |= ScramblingControlScrambledWithOddKey << 6
	require.NoError(t, e.Feed(p))

	_, err := e.root.Resolve("PAT")
	assert.Error(t, err, "a scrambled PID's payload is dropped before reassembly")
}

func TestEngineFeedIgnoresNullPID(t *testing.T) {
	e := NewEngine()
	p := make([]byte, MpegTsPacketSize)
	p[0] = syncByte
	p[1] = 0x1F // PID high bits -> PID 0x1FFF (null) once combined below
	p[2] = 0xFF
	p[3] = 0b01 << 4
	assert.NoError(t, e.Feed(p))
}

func TestEngineNewEnginePreregistersReservedPIDs(t *testing.T) {
	e := NewEngine()
	assert.True(t, e.registry.HasParser(patPID))
	assert.True(t, e.registry.HasParser(nitPID))
	assert.True(t, e.registry.HasParser(sdtPID))
	assert.True(t, e.registry.HasParser(eitPID))
}

func TestEngineCloseDisposesTree(t *testing.T) {
	e := NewEngine()
	require.NoError(t, e.Feed(patPacket(0)))
	patDir, err := e.root.Resolve("PAT")
	require.NoError(t, err)

	e.Close()
	assert.Equal(t, int32(0), patDir.RefCount())
}
