package demuxfs

import "fmt"

// pmtElementaryStream is one ES entry in a PMT's stream list.
type pmtElementaryStream struct {
	StreamType    uint8
	ElementaryPID uint16
}

// pmtTable is the parsed payload of one PMT version.
type pmtTable struct {
	ProgramNumber     uint16
	PCRPID            uint16
	ElementaryStreams []pmtElementaryStream
}

// registerPMT installs (or re-installs, idempotently) the PMT parser on
// pid, with programNumber as its user data and a predicate accepting only
// the PMT table_id, so a PID later reused for an unrelated table_id is
// rejected rather than mis-parsed (spec §8 Open Question resolution).
func registerPMT(e *Engine, pid uint16, programNumber uint16) {
	e.registry.RegisterParser(pid, func(tableID uint8) bool { return tableID == pmtTableID }, parsePMT, programNumber)
}

// parsePMT implements the PMT table parser (spec §4.4 "other table parsers
// follow the same shape"): decodes the elementary stream list and builds
// /PMT/0xPPPP/Vnn. ES PIDs are recorded under ElementaryStreams but are not
// registered with the dispatcher (no PES decode, per Non-goals).
func parsePMT(e *Engine, pid uint16, hdr *psiHeader, payload []byte, userData interface{}) error {
	if !hdr.CurrentNextIndicator {
		return nil
	}

	key := tableKey(pid, hdr.TableID)
	if existing, ok := e.registry.Table(key); ok && existing.Version == hdr.VersionNumber {
		return nil
	}

	if len(payload) < 4 {
		return fmt.Errorf("demuxfs: PMT payload too short (%d bytes)", len(payload))
	}

	t := &pmtTable{
		ProgramNumber: hdr.TableIDExtension,
		PCRPID:        uint16(payload[0]&0x1F)<<8 | uint16(payload[1]),
	}

	programLen := int(payload[2]&0x0F)<<8 | int(payload[3])
	offset := 4
	programDescEnd := offset + programLen
	if programDescEnd > len(payload) {
		return fmt.Errorf("demuxfs: PMT program_info_length %d exceeds payload", programLen)
	}

	pmtDir := e.root.MkdirChild("PMT")
	programDir := pmtDir.MkdirChild(fmt.Sprintf("0x%04X", t.ProgramNumber))
	versionDir := createVersionDir(programDir, hdr.VersionNumber)
	addPSIHeaderLeaves(versionDir, hdr)
	versionDir.AddNumericFile("program_number", uint64(t.ProgramNumber), 2)
	versionDir.AddNumericFile("pcr_pid", uint64(t.PCRPID), 2)

	parseDescriptors(payload, &offset, programDescEnd, versionDir)
	offset = programDescEnd

	streamsDir := versionDir.MkdirChild("ElementaryStreams")
	for offset+5 <= len(payload) {
		streamType := payload[offset]
		esPID := uint16(payload[offset+1]&0x1F)<<8 | uint16(payload[offset+2])
		esInfoLen := int(payload[offset+3]&0x0F)<<8 | int(payload[offset+4])
		offset += 5
		esDescEnd := offset + esInfoLen
		if esDescEnd > len(payload) {
			return fmt.Errorf("demuxfs: PMT ES_info_length %d exceeds payload", esInfoLen)
		}

		t.ElementaryStreams = append(t.ElementaryStreams, pmtElementaryStream{StreamType: streamType, ElementaryPID: esPID})

		esDir := streamsDir.MkdirChild(fmt.Sprintf("0x%04X", esPID))
		esDir.AddNumericFile("stream_type", uint64(streamType), 1)
		parseDescriptors(payload, &offset, esDescEnd, esDir)
		offset = esDescEnd
	}

	old, _ := e.registry.Table(key)
	e.registry.InstallTable(key, &tableEntry{
		Version: hdr.VersionNumber,
		Dentry:  versionDir,
		Table:   t,
		Dispose: func() { versionDir.Release() },
	})

	var oldDir *Dentry
	if old != nil {
		oldDir = old.Dentry
	}
	supersede(programDir, hdr.VersionNumber, oldDir, versionDir)
	e.metrics.tablesInstalled.Inc()
	return nil
}
