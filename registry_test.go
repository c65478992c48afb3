package demuxfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableKeyCombinesPIDAndTableID(t *testing.T) {
	assert.Equal(t, uint32(0x1000)<<8|0x02, tableKey(0x1000, 0x02))
}

func TestRegistryRegisterAndLookupParser(t *testing.T) {
	r := newRegistry()
	_, ok := r.Parser(0x00)
	assert.False(t, ok)

	r.RegisterParser(0x00, func(id uint8) bool { return id == patTableID }, parsePAT, nil)
	e, ok := r.Parser(0x00)
	require.True(t, ok)
	assert.Equal(t, uint16(0x00), e.PID)
	assert.True(t, r.HasParser(0x00))
}

func TestRegistryInstallTableReturnsPrevious(t *testing.T) {
	r := newRegistry()
	key := tableKey(0x10, 0x42)

	old := r.InstallTable(key, &tableEntry{Version: 0})
	assert.Nil(t, old)

	old = r.InstallTable(key, &tableEntry{Version: 1})
	require.NotNil(t, old)
	assert.Equal(t, uint8(0), old.Version)

	cur, ok := r.Table(key)
	require.True(t, ok)
	assert.Equal(t, uint8(1), cur.Version)
}

func TestRegistryDisposeAllRunsEveryDisposer(t *testing.T) {
	r := newRegistry()
	disposed := 0
	for _, pid := range []uint16{0x10, 0x11, 0x12} {
		r.InstallTable(tableKey(pid, 0x40), &tableEntry{Dispose: func() { disposed++ }})
	}
	r.DisposeAll()
	assert.Equal(t, 3, disposed)
	_, ok := r.Table(tableKey(0x10, 0x40))
	assert.False(t, ok)
}

func TestRegistryParserPIDsSnapshot(t *testing.T) {
	r := newRegistry()
	r.RegisterParser(0x00, nil, parsePAT, nil)
	r.RegisterParser(0x11, nil, parsePAT, nil)

	pids := r.ParserPIDs()
	assert.ElementsMatch(t, []uint16{0x00, 0x11}, pids)
}
