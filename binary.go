package demuxfs

import (
	"fmt"
	"time"
)

// Byte primitives. All multi-byte fields on the wire are big-endian;
// sub-byte fields are MSB-first within each byte. We never rely on a
// compiler's bitfield layout: every extraction below is an explicit shift
// and mask, per spec §9.

// beUint16 reads a big-endian 16-bit field.
func beUint16(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}

// beUint32 reads a big-endian 32-bit field.
func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// bits extracts a sub-byte field: the width-bit field whose lowest bit sits
// shift bits above the LSB of b (bits(b, 6, 2) is the top two bits).
func bits(b byte, shift, width uint) uint8 {
	mask := byte(1<<width) - 1
	return uint8(b>>shift) & mask
}

// parsePackedBCDDate decodes the 16-bit Modified Julian Date used by DVB/ISDB
// start_time fields (Annex C of the DVB-SI spec, reused verbatim by ARIB
// STD-B10 / ISDB-Tb). mjd is the raw 16-bit field; the returned time has no
// time-of-day component set (callers add the BCD hour/minute/second
// separately, since not every MJD-bearing field is followed by one).
func parsePackedBCDDate(mjd uint16) time.Time {
	yt := int((float64(mjd) - 15078.2) / 365.25)
	mt := int((float64(mjd) - 14956.1 - float64(int(float64(yt)*365.25))) / 30.6001)
	d := int(mjd) - 14956 - int(float64(yt)*365.25) - int(float64(mt)*30.6001)
	k := 0
	if mt == 14 || mt == 15 {
		k = 1
	}
	y := yt + k + 1900
	m := time.Month(mt - 1 - k*12)
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// parseBCDByte decodes a single BCD-packed byte (two 4-bit decimal digits)
// into its integer value, as used by DVB/ISDB duration and time-of-day
// fields.
func parseBCDByte(b byte) int {
	return int(b>>4)*10 + int(b&0xf)
}

// iso8601Date renders t as the ISO-8601 date string a BCD-date leaf exposes
// as its file content.
func iso8601Date(t time.Time) string {
	return t.Format("2006-01-02")
}

// iso8601DateTime renders t (date plus BCD hour/minute/second) as an
// ISO-8601 timestamp.
func iso8601DateTime(t time.Time) string {
	return t.Format("2006-01-02T15:04:05")
}

// decimalContent renders a numeric leaf's primary file content: decimal
// ASCII, per spec §6.
func decimalContent(v uint64) []byte {
	return []byte(fmt.Sprintf("%d", v))
}

// hexXattr renders a numeric leaf's user.hex extended attribute:
// "0x%0Nx" where N is wide enough for the field's byte width.
func hexXattr(v uint64, widthBytes int) []byte {
	return []byte(fmt.Sprintf("0x%0*x", widthBytes*2, v))
}

// boolContent renders a boolean field the same way a 1-bit numeric leaf
// would be rendered: "0" or "1" decimal, with a matching hex xattr.
func boolContent(v bool) []byte {
	if v {
		return decimalContent(1)
	}
	return decimalContent(0)
}
