package demuxfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePacketHeader(t *testing.T) {
	// sync(1) | E=1 U=1 P=1 PID_hi(5)=0x15 | PID_lo=0x61 | scrambling(2)=10 AFC(2)=11 CC(4)=1010
	b := []byte{syncByte, 0xF5, 0x61, 0xBA}
	h := parsePacketHeader(b)

	assert.True(t, h.TransportErrorIndicator)
	assert.True(t, h.PayloadUnitStartIndicator)
	assert.True(t, h.TransportPriority)
	assert.Equal(t, uint16(0x1561), h.PID)
	assert.Equal(t, uint8(ScramblingControlScrambledWithEvenKey), h.TransportScramblingControl)
	assert.True(t, h.HasAdaptationField())
	assert.True(t, h.HasPayload())
	assert.Equal(t, uint8(0xA), h.ContinuityCounter)
}

func TestParsePacketRejectsBadSync(t *testing.T) {
	b := make([]byte, MpegTsPacketSize)
	b[0] = 0x00
	_, err := parsePacket(b)
	assert.ErrorIs(t, err, ErrPacketMustStartWithASyncByte)
}

func TestParsePacketPayloadOnly(t *testing.T) {
	b := make([]byte, MpegTsPacketSize)
	b[0] = syncByte
	b[1] = 0x40       // PUSI set
	b[3] = 0x01 << 4 // adaptation_field_control = 0b01, payload only
	copy(b[4:], []byte{0xAA, 0xBB, 0xCC})

	p, err := parsePacket(b)
	require.NoError(t, err)
	assert.True(t, p.Header.PayloadUnitStartIndicator)
	assert.Nil(t, p.AdaptationField)
	require.NotNil(t, p.Payload)
	assert.Equal(t, byte(0xAA), p.Payload[0])
}

func TestParsePacketWithAdaptationField(t *testing.T) {
	b := make([]byte, MpegTsPacketSize)
	b[0] = syncByte
	b[3] = 0x03 << 4 // adaptation field + payload
	b[4] = 5         // adaptation_field_length
	b[5] = 0x80      // discontinuity_indicator
	copy(b[4+1+5:], []byte{0x11, 0x22})

	p, err := parsePacket(b)
	require.NoError(t, err)
	require.NotNil(t, p.AdaptationField)
	assert.Equal(t, 5, p.AdaptationField.Length)
	assert.True(t, p.AdaptationField.DiscontinuityIndicator)
	require.NotNil(t, p.Payload)
	assert.Equal(t, byte(0x11), p.Payload[0])
}

func TestParsePacketRejectsOversizedAdaptationFieldLength(t *testing.T) {
	b := make([]byte, MpegTsPacketSize)
	b[0] = syncByte
	b[3] = 0x03 << 4 // adaptation field + payload
	b[4] = 0xFF      // adaptation_field_length (255) leaves no room in a 188-byte packet

	_, err := parsePacket(b)
	assert.ErrorIs(t, err, ErrAdaptationFieldTooLong)
}

func TestParsePacketAdaptationFieldOnlyNoPayloadRoom(t *testing.T) {
	// adaptation_field_control signals adaptation-field-only (no payload),
	// and the field fills the rest of the packet exactly: legal, no panic.
	b := make([]byte, MpegTsPacketSize)
	b[0] = syncByte
	b[3] = 0x02 << 4 // adaptation field only
	b[4] = byte(MpegTsPacketSize - 5)

	p, err := parsePacket(b)
	require.NoError(t, err)
	require.NotNil(t, p.AdaptationField)
	assert.Nil(t, p.Payload)
}

func TestHasAdaptationFieldAndPayload(t *testing.T) {
	assert.True(t, PacketHeader{AdaptationFieldControl: 0b10}.HasAdaptationField())
	assert.False(t, PacketHeader{AdaptationFieldControl: 0b01}.HasAdaptationField())
	assert.True(t, PacketHeader{AdaptationFieldControl: 0b01}.HasPayload())
	assert.False(t, PacketHeader{AdaptationFieldControl: 0b10}.HasPayload())
}
