package demuxfs

import "fmt"

// Reserved DSM-CC PID (spec §6, DCT — Data Carousel Table) and the two
// table_ids that carry message headers this core decodes: DII (Download
// Info Indication) and DDB (Download Data Block). table_id > 0xBF in
// general indicates DSM-CC's different header layout (spec §6); DII/DDB
// are the two concrete message types specified (spec §4.5).
const (
	dsmccPID   = 0x17
	diiTableID = 0x3B
	ddbTableID = 0x3C
)

func registerDSMCC(e *Engine) {
	e.registry.RegisterParser(dsmccPID, func(tableID uint8) bool {
		return tableID == diiTableID || tableID == ddbTableID
	}, parseDSMCC, nil)
}

// dsmccMessageHeader is the 12-byte header common to DII and DDB (spec
// §4.5): protocol_discriminator, dsmcc_type, message_id, a 4-byte
// transaction/download id, a reserved byte, adaptation_length, and
// message_length.
type dsmccMessageHeader struct {
	ProtocolDiscriminator uint8
	Type                  uint8
	MessageID             uint16
	TransactionOrDownload uint32
	AdaptationLength      uint8
	MessageLength         uint16
}

// parseDSMCCMessageHeader decodes the 12-byte common header starting at
// cursor's current position.
func parseDSMCCMessageHeader(c *byteCursor) (*dsmccMessageHeader, error) {
	h := &dsmccMessageHeader{}
	var err error
	if h.ProtocolDiscriminator, err = c.NextByte(); err != nil {
		return nil, err
	}
	if h.Type, err = c.NextByte(); err != nil {
		return nil, err
	}
	if h.MessageID, err = c.NextUint16(); err != nil {
		return nil, err
	}
	idBytes, err := c.NextBytesNoCopy(4)
	if err != nil {
		return nil, err
	}
	h.TransactionOrDownload = beUint32(idBytes)
	c.Skip(1) // reserved
	if h.AdaptationLength, err = c.NextByte(); err != nil {
		return nil, err
	}
	if h.MessageLength, err = c.NextUint16(); err != nil {
		return nil, err
	}
	return h, nil
}

// parseDSMCC implements the DSM-CC DII/DDB table parser (spec §4.5): DII
// and DDB (table_id 0x3B/0x3C, below the 0xBF cutoff spec §6 reserves for
// the separate high-table_id DSM-CC header variant) go through the normal
// PSI common header like any other section; payload is the bytes
// immediately following it, starting with the 12-byte message header.
// Neither message carries anything this tree can key a version off, so
// each delivery replaces the message directory in place, the same pattern
// as TOT.
func parseDSMCC(e *Engine, pid uint16, hdr *psiHeader, payload []byte, _ interface{}) error {
	c := newByteCursor(payload)
	h, err := parseDSMCCMessageHeader(c)
	if err != nil {
		return fmt.Errorf("demuxfs: DSM-CC message header: %w", err)
	}

	dsmccDir := e.root.MkdirChild("DSM-CC")
	msgName := "DII"
	if hdr.TableID == ddbTableID {
		msgName = "DDB"
	}
	msgDir := dsmccDir.MkdirChild(msgName)

	fresh := msgDir.newChild("Current", ModeDir)
	fresh.AddNumericFile("protocol_discriminator", uint64(h.ProtocolDiscriminator), 1)
	fresh.AddNumericFile("dsmcc_type", uint64(h.Type), 1)
	fresh.AddNumericFile("message_id", uint64(h.MessageID), 2)
	if hdr.TableID == ddbTableID {
		fresh.AddNumericFile("download_id", uint64(h.TransactionOrDownload), 4)
	} else {
		fresh.AddNumericFile("transaction_id", uint64(h.TransactionOrDownload), 4)
	}
	fresh.AddNumericFile("message_length", uint64(h.MessageLength), 2)

	if h.AdaptationLength > 0 {
		adaptation, err := c.NextBytes(int(h.AdaptationLength))
		if err != nil {
			return fmt.Errorf("demuxfs: DSM-CC adaptation payload: %w", err)
		}
		fresh.AddNumericFile("adaptation_type", uint64(adaptation[0]), 1)
		fresh.AddFile("adaptation_data", adaptation[1:])
	}

	if hdr.TableID == diiTableID {
		if err := parseCompatibilityDescriptor(c, fresh); err != nil {
			logger.Printf("demuxfs: DSM-CC DII compatibility descriptor: %v", err)
		}
	}

	if old := msgDir.replaceChild(fresh); old != nil {
		old.Release()
	}
	e.metrics.tablesInstalled.Inc()
	return nil
}

// parseCompatibilityDescriptor implements spec §4.5's compatibility
// descriptor: compatibility_descriptor_length (2), descriptor_count (2),
// then descriptor_count descriptors each carrying zero or more
// sub-descriptors, mirrored as nested descriptor_NN/sub_descriptor_MM
// directories.
func parseCompatibilityDescriptor(c *byteCursor, parent *Dentry) error {
	if !c.HasBytesLeft() {
		return nil
	}

	totalLength, err := c.NextUint16()
	if err != nil {
		return err
	}
	if totalLength == 0 {
		return nil
	}

	count, err := c.NextUint16()
	if err != nil {
		return err
	}

	compatDir := parent.MkdirChild("compatibility_descriptor")
	for i := 1; i <= int(count); i++ {
		descType, err := c.NextByte()
		if err != nil {
			return err
		}
		descLen, err := c.NextByte()
		if err != nil {
			return err
		}
		descEnd := c.Offset() + int(descLen)

		descDir := compatDir.MkdirChild(fmt.Sprintf("descriptor_%02d", i))
		descDir.AddNumericFile("descriptor_type", uint64(descType), 1)

		specifierType, err := c.NextByte()
		if err != nil {
			return err
		}
		specifierData, err := c.NextBytes(3)
		if err != nil {
			return err
		}
		model, err := c.NextUint16()
		if err != nil {
			return err
		}
		version, err := c.NextUint16()
		if err != nil {
			return err
		}
		subCount, err := c.NextByte()
		if err != nil {
			return err
		}

		descDir.AddNumericFile("specifier_type", uint64(specifierType), 1)
		descDir.AddFile("specifier_data", specifierData)
		descDir.AddNumericFile("model", uint64(model), 2)
		descDir.AddNumericFile("version", uint64(version), 2)

		for j := 1; j <= int(subCount); j++ {
			subType, err := c.NextByte()
			if err != nil {
				return err
			}
			subLen, err := c.NextByte()
			if err != nil {
				return err
			}
			info, err := c.NextBytes(int(subLen))
			if err != nil {
				return err
			}
			subDir := descDir.MkdirChild(fmt.Sprintf("sub_descriptor_%02d", j))
			subDir.AddNumericFile("sub_descriptor_type", uint64(subType), 1)
			subDir.AddFile("additional_information", info)
		}

		if c.Offset() < descEnd {
			c.Skip(descEnd - c.Offset())
		}
	}
	return nil
}
