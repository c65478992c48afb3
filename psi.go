package demuxfs

import "fmt"

// psiHeader is the common part of every PSI/private section: the 3-byte
// section header plus, when section_syntax_indicator is set, the 5-byte
// syntax header that carries versioning (spec §4.3, §4.4).
type psiHeader struct {
	TableID                uint8
	SectionSyntaxIndicator bool
	PrivateBit             bool
	SectionLength          uint16

	// The following are only meaningful when SectionSyntaxIndicator is
	// true; a section without a syntax section has no version to track
	// and is handed to its parser with VersionNumber and
	// CurrentNextIndicator left zero.
	TableIDExtension     uint16
	VersionNumber        uint8
	CurrentNextIndicator bool
	SectionNumber        uint8
	LastSectionNumber    uint8
}

// psiHeaderLen is the fixed 3-byte section header every section starts
// with.
const psiHeaderLen = 3

// psiSyntaxHeaderLen is the fixed 5-byte syntax header that follows when
// section_syntax_indicator is set.
const psiSyntaxHeaderLen = 5

// crc32Len is the trailing CRC32 every section with a syntax section
// carries (ISO/IEC 13818-1: section_syntax_indicator implies a CRC32
// trailer, the rule this implementation uses instead of the source's
// per-table-ID allow-list, since it holds for every table this system
// decodes, PSI and DSM-CC alike).
const crc32Len = 4

// parseSection runs the PSI common parser (spec §4.3) over one complete
// raw section (as produced by the reassembler): decodes the common header,
// verifies the CRC32 when a syntax section is present, and returns the
// header plus the table-specific payload bytes that follow it.
func parseSection(section []byte) (*psiHeader, []byte, error) {
	if len(section) < psiHeaderLen {
		return nil, nil, fmt.Errorf("demuxfs: section too short (%d bytes) for a header", len(section))
	}

	h := &psiHeader{
		TableID:                section[0],
		SectionSyntaxIndicator: section[1]&0x80 != 0,
		PrivateBit:             section[1]&0x40 != 0,
		SectionLength:          uint16(section[1]&0x0F)<<8 | uint16(section[2]),
	}

	total := psiHeaderLen + int(h.SectionLength)
	if total > len(section) {
		return nil, nil, fmt.Errorf("demuxfs: section_length %d exceeds %d available bytes", h.SectionLength, len(section)-psiHeaderLen)
	}
	section = section[:total]

	if !h.SectionSyntaxIndicator {
		return h, section[psiHeaderLen:], nil
	}

	if total < psiHeaderLen+psiSyntaxHeaderLen+crc32Len {
		return nil, nil, fmt.Errorf("demuxfs: section too short (%d bytes) for a syntax header and CRC", total)
	}

	syn := section[psiHeaderLen : psiHeaderLen+psiSyntaxHeaderLen]
	h.TableIDExtension = beUint16(syn[0:2])
	h.VersionNumber = (syn[2] >> 1) & 0x1F
	h.CurrentNextIndicator = syn[2]&0x01 != 0
	h.SectionNumber = syn[3]
	h.LastSectionNumber = syn[4]

	payloadStart := psiHeaderLen + psiSyntaxHeaderLen
	payloadEnd := total - crc32Len
	payload := section[payloadStart:payloadEnd]

	stated := beUint32(section[payloadEnd:total])
	computed := computeCRC32(section[:payloadEnd])
	if computed != stated {
		return nil, nil, fmt.Errorf("%w: computed 0x%08x, section says 0x%08x", ErrCRCMismatch, computed, stated)
	}

	return h, payload, nil
}
