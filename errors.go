package demuxfs

import "github.com/pkg/errors"

// Sentinel errors surfaced across package boundaries. Internal parse
// failures (malformed wire data) are logged and swallowed per the error
// handling design (spec §7); these are the ones callers can usefully
// errors.Is/errors.Cause against.
var (
	// ErrPacketSync is returned by Engine.Feed when a packet doesn't start
	// with the sync byte. No state change happens before this is returned.
	ErrPacketSync = errors.New("demuxfs: packet must start with sync byte 0x47")

	// ErrInvalidPacketSize is returned when a fed packet isn't 188 or 192
	// bytes long.
	ErrInvalidPacketSize = errors.New("demuxfs: packet must be 188 or 192 bytes")

	// ErrAdaptationFieldTooLong is returned when a packet's declared
	// adaptation_field_length runs past the end of the packet.
	ErrAdaptationFieldTooLong = errors.New("demuxfs: adaptation_field_length exceeds packet bounds")

	// ErrSectionTooLarge is returned internally when a section_length would
	// exceed TS_MAX_SECTION_LENGTH; it never escapes to a Feed caller, it's
	// only used to drive the warning log.
	ErrSectionTooLarge = errors.New("demuxfs: section_length exceeds maximum")

	// ErrCRCMismatch signals a PSI section whose computed CRC32 doesn't
	// match its trailing CRC32 field.
	ErrCRCMismatch = errors.New("demuxfs: computed CRC32 doesn't match section CRC32")

	// ErrDentryExists is returned by Dentry.addChild when the name is
	// already taken by a sibling.
	ErrDentryExists = errors.New("demuxfs: a child with that name already exists")

	// ErrDentryNotFound is returned by Dentry.Lookup.
	ErrDentryNotFound = errors.New("demuxfs: dentry not found")

	// ErrNoMorePackets is returned by Ingestor.Run once the underlying
	// reader is exhausted; it is expected, not fatal.
	ErrNoMorePackets = errors.New("demuxfs: no more packets")
)
