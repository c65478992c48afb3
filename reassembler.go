package demuxfs

// tsMaxSectionLength is the largest section_length a PSI/private section
// may declare (spec §4.2, §9): 12 bits wide but bounded to 0x3FD by the
// standard so a section plus its 3-byte header never exceeds 1024 bytes.
const tsMaxSectionLength = 0x3FD

// pidState is the per-PID state the ingestion goroutine threads packets
// through: the in-progress section buffer and continuity tracking. Touched
// only by the ingestion goroutine (spec §5), so it needs no lock of its
// own.
type pidState struct {
	buf    []byte
	haveCC bool
	lastCC uint8
}

// reassembler turns a PID's stream of TS packets into complete PSI/private
// sections, one per PID (spec §4.2). It owns continuity-counter tracking
// too, since a counter discontinuity is defined in terms of what it does to
// the in-progress section for that PID.
//
// Grounded on the teacher's packet_pool.go, whose isSameAsPrevious/
// hasDiscontinuity helpers this keeps the shape of, generalized from
// packet-level PES accumulation to section-level PSI accumulation.
type reassembler struct {
	pids map[uint16]*pidState
}

func newReassembler() *reassembler {
	return &reassembler{pids: make(map[uint16]*pidState)}
}

func (r *reassembler) state(pid uint16) *pidState {
	st, ok := r.pids[pid]
	if !ok {
		st = &pidState{}
		r.pids[pid] = st
	}
	return st
}

// feed processes one packet belonging to pid and returns zero or more
// complete sections extracted from it (a single packet can complete a
// trailing section and start — and sometimes even complete — a following
// one, when multiple short sections share a packet).
func (r *reassembler) feed(pid uint16, pkt *Packet) []*bytesPoolItem {
	st := r.state(pid)

	if !r.checkContinuity(pid, st, pkt) {
		return nil
	}
	if !pkt.Header.HasPayload() || len(pkt.Payload) == 0 {
		return nil
	}
	if pkt.Payload[0] == 0xFF {
		// Stuffing: spec §4.1, "payload starts with 0xFF are ignored".
		return nil
	}

	payload := pkt.Payload
	if pkt.Header.PayloadUnitStartIndicator {
		return r.feedPUSI(pid, st, payload)
	}

	if st.buf == nil {
		// A continuation packet with nothing in progress: this PID's
		// section boundary was lost (e.g. the packet that would have
		// started it was dropped). Nothing to do but wait for the next
		// PUSI packet.
		return nil
	}
	st.buf = append(st.buf, payload...)
	return r.drainComplete(pid, st)
}

// feedPUSI handles a packet with payload_unit_start_indicator set: its
// first payload byte is pointer_field, spec §4.2.
func (r *reassembler) feedPUSI(pid uint16, st *pidState, payload []byte) []*bytesPoolItem {
	ptr := int(payload[0])
	rest := payload[1:]
	if ptr > len(rest) {
		logger.Printf("demuxfs: PID 0x%04x pointer_field %d exceeds payload, dropping", pid, ptr)
		st.buf = nil
		return nil
	}

	var out []*bytesPoolItem
	if st.buf != nil {
		// rest[:ptr] are the remaining bytes of whatever section was
		// already in progress on this PID.
		st.buf = append(st.buf, rest[:ptr]...)
		out = append(out, r.drainComplete(pid, st)...)
	}
	// Whether or not a section was in progress, rest[ptr:] always starts a
	// fresh one; any leftover ptr bytes when nothing was in progress are
	// padding introduced by the previous packet's end and are discarded by
	// virtue of st.buf not existing to append them to.
	st.buf = append([]byte(nil), rest[ptr:]...)
	out = append(out, r.drainComplete(pid, st)...)
	return out
}

// drainComplete extracts every complete section currently sitting at the
// front of st.buf, leaving any trailing partial section buffered.
func (r *reassembler) drainComplete(pid uint16, st *pidState) []*bytesPoolItem {
	var out []*bytesPoolItem
	for {
		if len(st.buf) < 3 {
			return out
		}
		sectionLength := int(st.buf[1]&0x0F)<<8 | int(st.buf[2])
		if sectionLength > tsMaxSectionLength {
			logger.Printf("demuxfs: PID 0x%04x: %v (%d > %d), discarding", pid, ErrSectionTooLarge, sectionLength, tsMaxSectionLength)
			st.buf = nil
			return out
		}

		total := 3 + sectionLength
		if len(st.buf) < total {
			return out
		}

		item := sectionBytesPool.get(total)
		copy(item.s, st.buf[:total])
		out = append(out, item)
		st.buf = st.buf[total:]
		if len(st.buf) == 0 {
			st.buf = nil
		}
	}
}

// checkContinuity tracks the 4-bit continuity counter for pid, dropping any
// in-progress section on an unexplained discrepancy and deduplicating
// retransmitted packets (same counter value as the previous payload-bearing
// packet), per spec §4.1/§9. Returns false if the packet's payload should
// not be processed at all (duplicate retransmission).
func (r *reassembler) checkContinuity(pid uint16, st *pidState, pkt *Packet) bool {
	if !pkt.Header.HasPayload() {
		return true
	}

	if !st.haveCC {
		st.haveCC = true
		st.lastCC = pkt.Header.ContinuityCounter
		return true
	}

	if pkt.Header.ContinuityCounter == st.lastCC {
		// Retransmission of the same packet; ignore without disturbing
		// anything in progress.
		return false
	}

	expected := (st.lastCC + 1) & 0x0F
	if pkt.Header.ContinuityCounter != expected {
		discontinuitySignaled := pkt.AdaptationField != nil && pkt.AdaptationField.DiscontinuityIndicator
		if !discontinuitySignaled {
			logger.Printf("demuxfs: PID 0x%04x continuity discontinuity (expected %d, got %d), dropping in-progress section",
				pid, expected, pkt.Header.ContinuityCounter)
			st.buf = nil
		}
	}
	st.lastCC = pkt.Header.ContinuityCounter
	return true
}
