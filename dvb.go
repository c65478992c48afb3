package demuxfs

import "time"

// parseDVBTime decodes the 5-byte DVB/ISDB start_time field: 16-bit MJD
// followed by a 24-bit BCD hour/minute/second (spec §3 "packed-BCD dates",
// Annex C of the DVB-SI spec, reused verbatim by ARIB STD-B10).
func parseDVBTime(b []byte) time.Time {
	mjd := beUint16(b[0:2])
	date := parsePackedBCDDate(mjd)
	h, m, s := parseBCDByte(b[2]), parseBCDByte(b[3]), parseBCDByte(b[4])
	return time.Date(date.Year(), date.Month(), date.Day(), h, m, s, 0, time.UTC)
}

// parseDVBDurationSeconds decodes a 3-byte BCD hour/minute/second duration
// field (spec §4.3's EIT duration, §9 endianness note: no bitfield
// assumptions, explicit BCD digit extraction).
func parseDVBDurationSeconds(b []byte) time.Duration {
	h := parseBCDByte(b[0])
	m := parseBCDByte(b[1])
	s := parseBCDByte(b[2])
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second
}
