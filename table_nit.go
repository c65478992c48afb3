package demuxfs

import "fmt"

// Reserved NIT PID (spec §6) and the two table_id variants a NIT section
// can carry: 0x40 (actual network) and 0x41 (other network).
const (
	nitPID          = 0x10
	nitTableIDSelf  = 0x40
	nitTableIDOther = 0x41
)

// registerNIT installs the NIT parser on pid. Called once for the
// well-known NIT PID at startup, and again whenever a PAT announces a
// program_number of 0 pointing at a (possibly different) PID — replacement
// is idempotent (spec §4.4).
func registerNIT(e *Engine, pid uint16) {
	e.registry.RegisterParser(pid, func(tableID uint8) bool {
		return tableID == nitTableIDSelf || tableID == nitTableIDOther
	}, parseNIT, nil)
}

// nitTransportStream is one entry in a NIT's transport stream loop.
type nitTransportStream struct {
	TransportStreamID uint16
	OriginalNetworkID uint16
}

// parseNIT implements the NIT table parser, following the PAT's shape
// (spec §4.4 "other table parsers follow the same shape"): network
// descriptors, then a transport stream loop each with its own descriptors.
func parseNIT(e *Engine, pid uint16, hdr *psiHeader, payload []byte, _ interface{}) error {
	if !hdr.CurrentNextIndicator {
		return nil
	}

	key := tableKey(pid, hdr.TableID)
	if existing, ok := e.registry.Table(key); ok && existing.Version == hdr.VersionNumber {
		return nil
	}

	if len(payload) < 2 {
		return fmt.Errorf("demuxfs: NIT payload too short (%d bytes)", len(payload))
	}

	nitDir := e.root.MkdirChild("NIT")
	versionDir := createVersionDir(nitDir, hdr.VersionNumber)
	addPSIHeaderLeaves(versionDir, hdr)
	versionDir.AddNumericFile("network_id", uint64(hdr.TableIDExtension), 2)

	offset := 0
	networkDescEnd := offset + read12BitLength(payload, &offset)
	if networkDescEnd > len(payload) {
		return fmt.Errorf("demuxfs: NIT network_descriptors_length exceeds payload")
	}
	parseDescriptors(payload, &offset, networkDescEnd, versionDir)
	offset = networkDescEnd

	if offset+2 > len(payload) {
		return fmt.Errorf("demuxfs: NIT missing transport_stream_loop_length")
	}
	loopLen := read12BitLength(payload, &offset)
	loopEnd := offset + loopLen
	if loopEnd > len(payload) {
		return fmt.Errorf("demuxfs: NIT transport_stream_loop_length exceeds payload")
	}

	streamsDir := versionDir.MkdirChild("TransportStreams")
	var streams []nitTransportStream
	for offset+4 <= loopEnd {
		ts := nitTransportStream{
			TransportStreamID: beUint16(payload[offset : offset+2]),
			OriginalNetworkID: beUint16(payload[offset+2 : offset+4]),
		}
		offset += 4
		streams = append(streams, ts)

		tsDir := streamsDir.MkdirChild(fmt.Sprintf("0x%04X", ts.TransportStreamID))
		tsDir.AddNumericFile("original_network_id", uint64(ts.OriginalNetworkID), 2)

		descEnd := offset + read12BitLength(payload, &offset)
		if descEnd > loopEnd {
			return fmt.Errorf("demuxfs: NIT transport_descriptors_length exceeds loop")
		}
		parseDescriptors(payload, &offset, descEnd, tsDir)
		offset = descEnd
	}

	old, _ := e.registry.Table(key)
	e.registry.InstallTable(key, &tableEntry{
		Version: hdr.VersionNumber,
		Dentry:  versionDir,
		Table:   streams,
		Dispose: func() { versionDir.Release() },
	})

	var oldDir *Dentry
	if old != nil {
		oldDir = old.Dentry
	}
	supersede(nitDir, hdr.VersionNumber, oldDir, versionDir)
	e.metrics.tablesInstalled.Inc()
	return nil
}
