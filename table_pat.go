package demuxfs

import "fmt"

// patTableID is the fixed table_id a PAT section always carries.
const patTableID = 0x00

// pmtTableID is the fixed table_id a PMT section always carries.
const pmtTableID = 0x02

// patProgram is one {program_number, PID} pair out of a PAT's program list
// (spec §4.4).
type patProgram struct {
	ProgramNumber uint16
	PID           uint16
}

// registerPAT installs the PAT parser on the well-known PAT PID. NewEngine
// seeds it together with the other reserved-PID parsers; every further PID
// the dispatcher knows about was announced by a PAT section.
func registerPAT(e *Engine) {
	e.registry.RegisterParser(patPID, func(tableID uint8) bool { return tableID == patTableID }, parsePAT, nil)
}

// parsePAT implements the PAT table parser (spec §4.4): decodes the
// program list, builds the /PAT/Vnn subtree, seeds the dispatcher with the
// PMT/NIT PIDs it announces, and supersedes any previous PAT version.
func parsePAT(e *Engine, pid uint16, hdr *psiHeader, payload []byte, _ interface{}) error {
	if !hdr.CurrentNextIndicator {
		return nil
	}

	key := tableKey(pid, hdr.TableID)
	if existing, ok := e.registry.Table(key); ok && existing.Version == hdr.VersionNumber {
		return nil
	}

	if len(payload)%4 != 0 {
		return fmt.Errorf("demuxfs: PAT payload length %d is not a multiple of 4", len(payload))
	}

	programs := make([]patProgram, 0, len(payload)/4)
	for off := 0; off+4 <= len(payload); off += 4 {
		programs = append(programs, patProgram{
			ProgramNumber: beUint16(payload[off : off+2]),
			PID:           uint16(payload[off+2]&0x1F)<<8 | uint16(payload[off+3]),
		})
	}

	patDir := e.root.MkdirChild("PAT")
	versionDir := createVersionDir(patDir, hdr.VersionNumber)
	addPSIHeaderLeaves(versionDir, hdr)
	versionDir.AddNumericFile("transport_stream_id", uint64(hdr.TableIDExtension), 2)

	programsDir := versionDir.MkdirChild("Programs")
	for _, p := range programs {
		name := fmt.Sprintf("0x%04X", p.ProgramNumber)
		if p.ProgramNumber == 0 {
			programsDir.Symlink(name, "../../../NIT/Current")
		} else {
			programsDir.Symlink(name, fmt.Sprintf("../../../PMT/0x%04X/Current", p.PID))
		}
	}

	old, _ := e.registry.Table(key)
	e.registry.InstallTable(key, &tableEntry{
		Version: hdr.VersionNumber,
		Dentry:  versionDir,
		Table:   programs,
		Dispose: func() { versionDir.Release() },
	})

	var oldDir *Dentry
	if old != nil {
		oldDir = old.Dentry
	}
	supersede(patDir, hdr.VersionNumber, oldDir, versionDir)
	e.metrics.tablesInstalled.Inc()

	for _, p := range programs {
		if p.ProgramNumber == 0 {
			registerNIT(e, p.PID)
		} else {
			registerPMT(e, p.PID, p.ProgramNumber)
		}
	}
	return nil
}

// addPSIHeaderLeaves populates the handful of common PSI header fields
// every table's version directory exposes (spec §3 Table object: "a PSI
// common header").
func addPSIHeaderLeaves(dir *Dentry, hdr *psiHeader) {
	dir.AddNumericFile("table_id", uint64(hdr.TableID), 1)
	dir.AddNumericFile("version_number", uint64(hdr.VersionNumber), 1)
	dir.AddBoolFile("current_next_indicator", hdr.CurrentNextIndicator)
	dir.AddNumericFile("section_number", uint64(hdr.SectionNumber), 1)
	dir.AddNumericFile("last_section_number", uint64(hdr.LastSectionNumber), 1)
}
