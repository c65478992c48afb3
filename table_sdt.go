package demuxfs

import "fmt"

// Reserved SDT PID (spec §6) and its two table_id variants: 0x42 (actual
// transport stream) and 0x46 (other transport stream).
const (
	sdtPID          = 0x11
	sdtTableIDSelf  = 0x42
	sdtTableIDOther = 0x46
)

func registerSDT(e *Engine) {
	e.registry.RegisterParser(sdtPID, func(tableID uint8) bool {
		return tableID == sdtTableIDSelf || tableID == sdtTableIDOther
	}, parseSDT, nil)
}

// sdtService is one service entry in an SDT section.
type sdtService struct {
	ServiceID              uint16
	HasEITSchedule         bool
	HasEITPresentFollowing bool
	RunningStatus          uint8
	HasFreeCAMode          bool
}

// parseSDT implements the SDT table parser (spec §4.4 shape).
func parseSDT(e *Engine, pid uint16, hdr *psiHeader, payload []byte, _ interface{}) error {
	if !hdr.CurrentNextIndicator {
		return nil
	}

	key := tableKey(pid, hdr.TableID)
	if existing, ok := e.registry.Table(key); ok && existing.Version == hdr.VersionNumber {
		return nil
	}

	if len(payload) < 3 {
		return fmt.Errorf("demuxfs: SDT payload too short (%d bytes)", len(payload))
	}

	sdtDir := e.root.MkdirChild("SDT")
	versionDir := createVersionDir(sdtDir, hdr.VersionNumber)
	addPSIHeaderLeaves(versionDir, hdr)
	versionDir.AddNumericFile("transport_stream_id", uint64(hdr.TableIDExtension), 2)

	originalNetworkID := beUint16(payload[0:2])
	versionDir.AddNumericFile("original_network_id", uint64(originalNetworkID), 2)
	offset := 3 // 2 bytes original_network_id + 1 reserved_future_use byte

	servicesDir := versionDir.MkdirChild("Services")
	var services []sdtService
	for offset+5 <= len(payload) {
		s := sdtService{
			ServiceID:              beUint16(payload[offset : offset+2]),
			HasEITSchedule:         payload[offset+2]&0x02 != 0,
			HasEITPresentFollowing: payload[offset+2]&0x01 != 0,
			RunningStatus:          payload[offset+3] >> 5,
			HasFreeCAMode:          payload[offset+3]&0x10 != 0,
		}
		offset += 4 // service_id(2) + flags(1) + running_status/free_ca/length-high-nibble(1)

		descLen := int(payload[offset-1]&0x0F)<<8 | int(payload[offset])
		offset += 1
		descEnd := offset + descLen
		if descEnd > len(payload) {
			return fmt.Errorf("demuxfs: SDT descriptors_loop_length exceeds payload")
		}

		services = append(services, s)
		svcDir := servicesDir.MkdirChild(fmt.Sprintf("0x%04X", s.ServiceID))
		svcDir.AddBoolFile("eit_schedule_flag", s.HasEITSchedule)
		svcDir.AddBoolFile("eit_present_following_flag", s.HasEITPresentFollowing)
		svcDir.AddNumericFile("running_status", uint64(s.RunningStatus), 1)
		svcDir.AddBoolFile("free_ca_mode", s.HasFreeCAMode)
		parseDescriptors(payload, &offset, descEnd, svcDir)
		offset = descEnd
	}

	old, _ := e.registry.Table(key)
	e.registry.InstallTable(key, &tableEntry{
		Version: hdr.VersionNumber,
		Dentry:  versionDir,
		Table:   services,
		Dispose: func() { versionDir.Release() },
	})

	var oldDir *Dentry
	if old != nil {
		oldDir = old.Dentry
	}
	supersede(sdtDir, hdr.VersionNumber, oldDir, versionDir)
	e.metrics.tablesInstalled.Inc()
	return nil
}
