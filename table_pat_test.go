package demuxfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePATInstallsVersionDirAndRegistersPMT(t *testing.T) {
	e := NewEngine()
	hdr, payload, err := parseSection(testDataPat)
	require.NoError(t, err)

	require.NoError(t, parsePAT(e, patPID, hdr, payload, nil))

	versionDir, err := e.root.Resolve("PAT/V10")
	require.NoError(t, err, "version_number 16 decimal renders as V10 hex")
	tsID, err := versionDir.Resolve("transport_stream_id")
	require.NoError(t, err)
	assert.Equal(t, "1", string(tsID.Content()))

	program, err := versionDir.Resolve("Programs/0x0001")
	require.NoError(t, err)
	assert.Equal(t, ModeSymlink, program.Mode())
	assert.Equal(t, "../../../PMT/0x1000/Current", program.SymlinkTarget())

	cur, err := e.root.Resolve("PAT/Current")
	require.NoError(t, err)
	assert.Equal(t, "V10", cur.SymlinkTarget())

	assert.True(t, e.registry.HasParser(0x1000), "the announced PMT PID is registered with the dispatcher")
}

func TestParsePATIdempotentOnRepeatedVersion(t *testing.T) {
	e := NewEngine()
	hdr, payload, err := parseSection(testDataPat)
	require.NoError(t, err)

	require.NoError(t, parsePAT(e, patPID, hdr, payload, nil))
	before, err := e.root.Resolve("PAT/V10")
	require.NoError(t, err)

	require.NoError(t, parsePAT(e, patPID, hdr, payload, nil))
	after, err := e.root.Resolve("PAT/V10")
	require.NoError(t, err)
	assert.Same(t, before, after, "redelivering the same version_number must not reinstall a fresh directory")
}

func TestParsePATIgnoredWhenCurrentNextIndicatorClear(t *testing.T) {
	e := NewEngine()
	hdr, payload, err := parseSection(testDataPat)
	require.NoError(t, err)
	hdr.CurrentNextIndicator = false

	require.NoError(t, parsePAT(e, patPID, hdr, payload, nil))
	_, err = e.root.Resolve("PAT")
	assert.Error(t, err, "a not-yet-current PAT section installs nothing")
}

func TestParsePATRejectsMisalignedPayload(t *testing.T) {
	e := NewEngine()
	hdr := &psiHeader{CurrentNextIndicator: true}
	assert.Error(t, parsePAT(e, patPID, hdr, []byte{0x00, 0x01, 0x02}, nil))
}

func TestParsePATVersionBumpRetargetsCurrentAndDropsOldPrograms(t *testing.T) {
	e := NewEngine()

	// v0: program 1 on PMT PID 0x1000.
	v0Hdr := &psiHeader{TableID: patTableID, TableIDExtension: 1, CurrentNextIndicator: true, VersionNumber: 0}
	v0Payload := []byte{0x00, 0x01, 0xF0, 0x00}
	require.NoError(t, parsePAT(e, patPID, v0Hdr, v0Payload, nil))

	v0Dir, err := e.root.Resolve("PAT/V00")
	require.NoError(t, err)
	assert.Equal(t, int32(1), v0Dir.RefCount())

	// v1: program 1 removed, program 2 added on PMT PID 0x1200.
	v1Hdr := &psiHeader{TableID: patTableID, TableIDExtension: 1, CurrentNextIndicator: true, VersionNumber: 1}
	v1Payload := []byte{0x00, 0x02, 0xF2, 0x00}
	require.NoError(t, parsePAT(e, patPID, v1Hdr, v1Payload, nil))

	cur, err := e.root.Resolve("PAT/Current")
	require.NoError(t, err)
	assert.Equal(t, "V01", cur.SymlinkTarget())

	program, err := e.root.Resolve("PAT/V01/Programs/0x0002")
	require.NoError(t, err)
	assert.Equal(t, "../../../PMT/0x1200/Current", program.SymlinkTarget())

	_, err = e.root.Resolve("PAT/V01/Programs/0x0001")
	assert.Error(t, err, "program 1 didn't carry over into the new version")

	_, err = e.root.Resolve("PAT/V00")
	assert.Error(t, err, "the superseded version directory is disposed, not left behind")
	assert.Equal(t, int32(0), v0Dir.RefCount(), "nothing held a reference across the supersession, so it tears all the way down")

	assert.True(t, e.registry.HasParser(0x1000), "PMT PIDs announced by a superseded version stay registered")
	assert.True(t, e.registry.HasParser(0x1200))
}
