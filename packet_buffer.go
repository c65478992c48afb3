package demuxfs

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// packetBuffer reads fixed-size packets off an io.Reader, auto-detecting
// whether the stream uses plain 188-byte TS packets or the ISDB-Tb
// 192-byte variant (a 4-byte timestamp prepended to each packet), per
// spec §6.
type packetBuffer struct {
	packetSize       int
	r                io.Reader
	packetReadBuffer []byte
}

// MpegTsPacketSize is the size of a bare TS packet, without any prepended
// timestamp.
const MpegTsPacketSize = 188

// isdbTimestampedPacketSize is MpegTsPacketSize plus the 4-byte ISDB
// timestamp some capture pipelines prepend ahead of each packet.
const isdbTimestampedPacketSize = MpegTsPacketSize + 4

// newPacketBuffer wraps r. A packetSize of 0 triggers autodetection.
func newPacketBuffer(r io.Reader, packetSize int) (pb *packetBuffer, err error) {
	pb = &packetBuffer{packetSize: packetSize, r: r}
	if pb.packetSize == 0 {
		if pb.packetSize, err = autoDetectPacketSize(r); err != nil {
			return nil, fmt.Errorf("demuxfs: auto detecting packet size failed: %w", err)
		}
	}
	return pb, nil
}

// ErrSingleSyncByte is returned when autodetection can't confirm a second
// sync byte at either the 188 or 192-byte period.
var ErrSingleSyncByte = errors.New("demuxfs: only one sync byte detected")

// autoDetectPacketSize looks at the first bytes of r for a sync byte
// recurring either 188 or 192 bytes later, distinguishing plain TS packets
// from the ISDB-timestamped variant. The stream must start either with a
// sync byte or with a 4-byte timestamp followed by one.
func autoDetectPacketSize(r io.Reader) (int, error) {
	const l = isdbTimestampedPacketSize + 4 + 1
	b := make([]byte, l)
	shouldRewind, err := peek(r, b)
	if err != nil {
		return 0, fmt.Errorf("reading first %d bytes failed: %w", l, err)
	}

	start := 0
	if b[0] != syncByte {
		if b[4] != syncByte {
			return 0, ErrPacketSync
		}
		start = 4
	}

	for idx, v := range b {
		if v != syncByte || idx < start+MpegTsPacketSize {
			continue
		}

		packetSize := idx - start
		if !shouldRewind {
			return packetSize, nil
		}

		n, err := rewind(r)
		if err != nil {
			return 0, fmt.Errorf("rewinding failed: %w", err)
		} else if n == -1 {
			ls := packetSize - (l - packetSize)
			if _, err := r.Read(make([]byte, ls)); err != nil {
				return 0, fmt.Errorf("reading %d bytes to resync reader failed: %w", ls, err)
			}
		}
		return packetSize, nil
	}
	return 0, fmt.Errorf("%w in first %d bytes", ErrSingleSyncByte, l)
}

// peek reads the probe bytes without consuming them when r is a
// *bufio.Reader; otherwise it consumes them and reports that the caller
// must rewind or resync.
func peek(r io.Reader, b []byte) (shouldRewind bool, err error) {
	if br, ok := r.(*bufio.Reader); ok {
		bs, err := br.Peek(len(b))
		if err != nil {
			return false, err
		}
		copy(b, bs)
		return false, nil
	}

	_, err = r.Read(b)
	return true, err
}

// rewind seeks r back to its start if possible, otherwise n is -1 and the
// caller resyncs by reading past the probed bytes instead.
func rewind(r io.Reader) (n int64, err error) {
	if s, ok := r.(io.Seeker); ok {
		if n, err = s.Seek(0, 0); err != nil {
			return 0, fmt.Errorf("seeking to 0 failed: %w", err)
		}
		return n, nil
	}
	return -1, nil
}

// next reads and returns the next packet's raw bytes, stripping any ISDB
// timestamp prefix. The returned slice aliases an internal buffer reused by
// the next call.
func (pb *packetBuffer) next() ([]byte, error) {
	if pb.packetReadBuffer == nil || len(pb.packetReadBuffer) != pb.packetSize {
		pb.packetReadBuffer = make([]byte, pb.packetSize)
	}

	if _, err := io.ReadFull(pb.r, pb.packetReadBuffer); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("demuxfs: reading %d bytes failed: %w", pb.packetSize, err)
	}

	if pb.packetSize == isdbTimestampedPacketSize {
		return pb.packetReadBuffer[4:], nil
	}
	return pb.packetReadBuffer, nil
}
