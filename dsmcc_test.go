package demuxfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// diiPayload builds a minimal DII message: 12-byte header (adaptation_length
// 0, no adaptation payload) followed by an empty compatibility descriptor
// (compatibility_descriptor_length = 0).
func diiPayload() []byte {
	return []byte{
		0x11,       // protocol_discriminator
		0x01,       // dsmcc_type
		0x10, 0x06, // message_id
		0x00, 0x00, 0x00, 0x01, // transaction_id
		0x00,       // reserved
		0x00,       // adaptation_length
		0x00, 0x20, // message_length
		0x00, 0x00, // compatibility_descriptor_length = 0
	}
}

func TestParseDSMCCDIIBuildsCurrentDirectory(t *testing.T) {
	e := NewEngine()
	hdr := &psiHeader{TableID: diiTableID}

	require.NoError(t, parseDSMCC(e, dsmccPID, hdr, diiPayload(), nil))

	cur, err := e.root.Resolve("DSM-CC/DII/Current")
	require.NoError(t, err)

	txID, err := cur.Resolve("transaction_id")
	require.NoError(t, err)
	assert.Equal(t, "1", string(txID.Content()))

	msgID, err := cur.Resolve("message_id")
	require.NoError(t, err)
	assert.Equal(t, "4102", string(msgID.Content())) // 0x1006
}

func TestParseDSMCCDDBUsesDownloadIDName(t *testing.T) {
	e := NewEngine()
	payload := diiPayload()
	hdr := &psiHeader{TableID: ddbTableID}

	require.NoError(t, parseDSMCC(e, dsmccPID, hdr, payload, nil))

	cur, err := e.root.Resolve("DSM-CC/DDB/Current")
	require.NoError(t, err)
	_, err = cur.Resolve("download_id")
	require.NoError(t, err)
	_, err = cur.Resolve("transaction_id")
	assert.Error(t, err, "DDB names the same field download_id, not transaction_id")
}

func TestParseDSMCCRepeatedDeliveryReplacesInPlace(t *testing.T) {
	e := NewEngine()
	hdr := &psiHeader{TableID: diiTableID}

	require.NoError(t, parseDSMCC(e, dsmccPID, hdr, diiPayload(), nil))
	first, err := e.root.Resolve("DSM-CC/DII/Current")
	require.NoError(t, err)

	require.NoError(t, parseDSMCC(e, dsmccPID, hdr, diiPayload(), nil))
	second, err := e.root.Resolve("DSM-CC/DII/Current")
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, int32(0), first.RefCount())
}

func TestParseCompatibilityDescriptorEmpty(t *testing.T) {
	root := NewRoot()
	c := newByteCursor([]byte{0x00, 0x00})
	require.NoError(t, parseCompatibilityDescriptor(c, root))
	assert.Empty(t, root.Children())
}
