package demuxfs

import "fmt"

// Reserved H-EIT PID (spec §6) and the table_id range EIT sections span
// (0x4E present/following, 0x50-0x6F schedule, per ARIB/DVB-SI).
const (
	eitPID        = 0x12
	eitTableIDLow = 0x4E
	eitTableIDHi  = 0x6F
)

func registerEIT(e *Engine) {
	e.registry.RegisterParser(eitPID, func(tableID uint8) bool {
		return tableID >= eitTableIDLow && tableID <= eitTableIDHi
	}, parseEIT, nil)
}

// eitEvent is one event entry in an EIT section.
type eitEvent struct {
	EventID       uint16
	HasFreeCAMode bool
	RunningStatus uint8
}

// parseEIT implements the EIT table parser (spec §4.4 shape). Unlike PAT/
// PMT/NIT/SDT, EIT sections are keyed not just by table_id but by
// service_id (TableIDExtension) and section_number, since a service can
// have many EIT sections in flight (schedule tables) — the version
// directory is nested under the service ID accordingly.
func parseEIT(e *Engine, pid uint16, hdr *psiHeader, payload []byte, _ interface{}) error {
	if !hdr.CurrentNextIndicator {
		return nil
	}

	key := tableKey(pid, hdr.TableID) ^ uint32(hdr.TableIDExtension)<<16 ^ uint32(hdr.SectionNumber)
	if existing, ok := e.registry.Table(key); ok && existing.Version == hdr.VersionNumber {
		return nil
	}

	if len(payload) < 6 {
		return fmt.Errorf("demuxfs: EIT payload too short (%d bytes)", len(payload))
	}

	eitDir := e.root.MkdirChild("EIT")
	serviceDir := eitDir.MkdirChild(fmt.Sprintf("0x%04X", hdr.TableIDExtension))
	sectionDir := serviceDir.MkdirChild(fmt.Sprintf("%03d", hdr.SectionNumber))
	versionDir := createVersionDir(sectionDir, hdr.VersionNumber)
	addPSIHeaderLeaves(versionDir, hdr)
	versionDir.AddNumericFile("service_id", uint64(hdr.TableIDExtension), 2)
	versionDir.AddNumericFile("transport_stream_id", uint64(beUint16(payload[0:2])), 2)
	versionDir.AddNumericFile("original_network_id", uint64(beUint16(payload[2:4])), 2)
	versionDir.AddNumericFile("segment_last_section_number", uint64(payload[4]), 1)
	versionDir.AddNumericFile("last_table_id", uint64(payload[5]), 1)

	offset := 6
	eventsDir := versionDir.MkdirChild("Events")
	var events []eitEvent
	for offset+12 <= len(payload) {
		ev := eitEvent{EventID: beUint16(payload[offset : offset+2])}
		startTime := parseDVBTime(payload[offset+2 : offset+7])
		duration := parseDVBDurationSeconds(payload[offset+7 : offset+10])
		ev.RunningStatus = payload[offset+10] >> 5
		ev.HasFreeCAMode = payload[offset+10]&0x10 != 0

		descLen := int(payload[offset+10]&0x0F)<<8 | int(payload[offset+11])
		offset += 12
		descEnd := offset + descLen
		if descEnd > len(payload) {
			return fmt.Errorf("demuxfs: EIT descriptors_loop_length exceeds payload")
		}

		events = append(events, ev)
		evDir := eventsDir.MkdirChild(fmt.Sprintf("0x%04X", ev.EventID))
		evDir.AddDateTimeFile("start_time", startTime, beUint16(payload[offset-10:offset-8]))
		evDir.AddFile("duration", []byte(duration.String()))
		evDir.AddNumericFile("running_status", uint64(ev.RunningStatus), 1)
		evDir.AddBoolFile("free_ca_mode", ev.HasFreeCAMode)
		parseDescriptors(payload, &offset, descEnd, evDir)
		offset = descEnd
	}

	old, _ := e.registry.Table(key)
	e.registry.InstallTable(key, &tableEntry{
		Version: hdr.VersionNumber,
		Dentry:  versionDir,
		Table:   events,
		Dispose: func() { versionDir.Release() },
	})

	var oldDir *Dentry
	if old != nil {
		oldDir = old.Dentry
	}
	supersede(sectionDir, hdr.VersionNumber, oldDir, versionDir)
	e.metrics.tablesInstalled.Inc()
	return nil
}
