package demuxfs

import "fmt"

// Reserved TDT/TOT PID (spec §6). TOT doubles as the TDT shape: a TDT
// section (table_id 0x70) carries only the UTC time with no descriptors or
// CRC, while a TOT section (table_id 0x73) adds descriptors and a CRC32.
// Both are handled by the same parser, keyed on table_id via the registered
// predicate, per the spec's note that "TOT doubles as the TDT shape".
const (
	totPID     = 0x14
	tdtTableID = 0x70
	totTableID = 0x73
)

func registerTOT(e *Engine) {
	e.registry.RegisterParser(totPID, func(tableID uint8) bool {
		return tableID == tdtTableID || tableID == totTableID
	}, parseTOT, nil)
}

// parseTOT implements the TOT/TDT table parser. Neither table carries a
// version_number (both have section_syntax_indicator = 0), so there is no
// Vnn/Current scheme to run: each delivery builds a fresh "Current"
// directory off to the side and installs it with the same
// install-before-free swap versioning.go uses for symlinks, so a reader
// resolving /TOT/Current never observes a half-built directory.
func parseTOT(e *Engine, pid uint16, hdr *psiHeader, payload []byte, _ interface{}) error {
	if len(payload) < 5 {
		return fmt.Errorf("demuxfs: TOT/TDT payload too short (%d bytes)", len(payload))
	}

	totDir := e.root.MkdirChild("TOT")
	utcTime := parseDVBTime(payload[0:5])

	fresh := totDir.newChild("Current", ModeDir)
	fresh.AddNumericFile("table_id", uint64(hdr.TableID), 1)
	fresh.AddDateTimeFile("utc_time", utcTime, beUint16(payload[0:2]))
	if hdr.TableID == totTableID && len(payload) > 5 {
		offset := 5
		parseDescriptors(payload, &offset, len(payload), fresh)
	}

	if old := totDir.replaceChild(fresh); old != nil {
		old.Release()
	}

	key := tableKey(pid, hdr.TableID)
	e.registry.InstallTable(key, &tableEntry{Dentry: fresh, Table: utcTime})
	e.metrics.tablesInstalled.Inc()
	return nil
}
