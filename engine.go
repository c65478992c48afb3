package demuxfs

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// nullPID is reserved for stuffing packets carrying no data of interest
// (spec §4.1).
const nullPID = 0x1FFF

// patPID is the fixed well-known PID the PAT is always delivered on
// (ISO/IEC 13818-1); NewEngine registers the PAT parser on it.
const patPID = 0x0000

// Engine is the demultiplexer: it owns the dentry tree, the PID dispatch
// registry, and the per-PID section reassembly state, and turns a stream of
// fed TS packets into a live, versioned filesystem tree (spec §3, §5).
//
// Engine itself does no I/O; Ingestor drives it from an io.Reader. Feed is
// meant to be called from a single goroutine (the "ingestion thread" spec
// §5 describes); every exported read of the resulting tree — Root,
// anything reachable from it — is safe to call concurrently from any
// number of other goroutines.
type Engine struct {
	root        *Dentry
	registry    *registry
	reassembler *reassembler
	metrics     *Metrics
}

// NewEngine creates an Engine with a fresh, empty dentry tree and registers
// every parser this core ships on its well-known reserved PID (spec §6):
// PAT on 0x00, NIT on 0x10, SDT on 0x11, EIT on 0x12, TDT/TOT on 0x14,
// DSM-CC DII/DDB on 0x17. Every other PID this engine ever looks at (a PMT,
// or a NIT announced on a different PID) is one a PAT section announced
// dynamically; elementary stream PIDs are never registered.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		root:        NewRoot(),
		registry:    newRegistry(),
		reassembler: newReassembler(),
		metrics:     NewMetrics(),
	}
	for _, opt := range opts {
		opt(e)
	}
	registerPAT(e)
	registerNIT(e, nitPID)
	registerSDT(e)
	registerEIT(e)
	registerTOT(e)
	registerDSMCC(e)
	createReservedPlaceholders(e)
	return e
}

// EngineOption configures an Engine at construction time.
type EngineOption func(*Engine)

// WithMetrics installs a caller-provided Metrics instance (e.g. one
// registered against a shared Prometheus registry), replacing the default
// one NewEngine creates.
func WithMetrics(m *Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// Root returns the tree's root directory. Safe for concurrent use with
// ongoing Feed calls; callers that hold onto the result across multiple
// operations should Acquire/Release it like any other Dentry, though the
// root itself is never superseded or torn down while the Engine is alive.
func (e *Engine) Root() *Dentry { return e.root }

// Feed processes one TS packet (188 or 192 bytes; a 192-byte packet is
// assumed to carry a leading 4-byte ISDB timestamp and is stripped before
// parsing, spec §6). It is the engine's single entry point for ingestion
// and must only be called from one goroutine at a time.
func (e *Engine) Feed(p []byte) error {
	raw := p
	switch len(p) {
	case MpegTsPacketSize:
	case isdbTimestampedPacketSize:
		raw = p[4:]
	default:
		return ErrInvalidPacketSize
	}

	pkt, err := parsePacket(raw)
	if err != nil {
		return err
	}

	if pkt.Header.TransportErrorIndicator {
		e.metrics.droppedPackets.Inc()
		return nil
	}
	if pkt.Header.PID == nullPID {
		return nil
	}
	if pkt.Header.TransportScramblingControl != ScramblingControlNotScrambled {
		logger.Printf("demuxfs: PID 0x%04x carries a scrambled PSI payload, dropping", pkt.Header.PID)
		e.metrics.droppedPackets.Inc()
		return nil
	}

	entry, ok := e.registry.Parser(pkt.Header.PID)
	if !ok {
		return nil
	}

	for _, item := range e.reassembler.feed(pkt.Header.PID, pkt) {
		e.dispatch(pkt.Header.PID, entry, item)
	}
	return nil
}

// dispatch runs the PSI common parser over section and, if the table_id
// matches the dispatch entry's predicate, hands it to the entry's parse
// function. The section's backing slice is returned to sectionBytesPool
// once the parser is done with it, regardless of outcome.
func (e *Engine) dispatch(pid uint16, entry *dispatchEntry, item *bytesPoolItem) {
	defer sectionBytesPool.put(item)

	hdr, payload, err := parseSection(item.s)
	if err != nil {
		logger.Printf("demuxfs: PID 0x%04x: %v", pid, err)
		e.metrics.droppedSections.Inc()
		if errors.Is(err, ErrCRCMismatch) {
			e.metrics.crcFailures.Inc()
		}
		return
	}

	if entry.Predicate != nil && !entry.Predicate(hdr.TableID) {
		logger.Printf("demuxfs: PID 0x%04x: table_id 0x%02x rejected by registered parser's predicate", pid, hdr.TableID)
		e.metrics.droppedSections.Inc()
		return
	}

	if err := entry.Parse(e, pid, hdr, payload, entry.UserData); err != nil {
		logger.Printf("demuxfs: PID 0x%04x table_id 0x%02x: %v", pid, hdr.TableID, err)
		e.metrics.droppedSections.Inc()
		return
	}
	e.metrics.parsedSections.Inc()
}

// Close disposes of every installed table, tearing down the whole dentry
// tree (besides the root itself) via the same refcounted release path
// supersession uses (spec §5, "shutdown drains the input, then walks the
// dentry root disposing the tree").
func (e *Engine) Close() {
	// Every installed Vnn directory is owned by its table directory, so
	// releasing the top-level directories reaches all of them; the table
	// entries are dropped without running their disposers, which would
	// release those same directories a second time.
	e.registry.mu.Lock()
	e.registry.tables = make(map[uint32]*tableEntry)
	e.registry.mu.Unlock()
	for _, c := range e.root.Children() {
		e.root.Dispose(c.Name())
	}
}

// Ingestor drives an Engine from an io.Reader, auto-detecting packet size
// and feeding packets to the engine one at a time until the reader is
// exhausted or ctx-like cancellation isn't needed since this is a pull
// loop the caller fully controls by how long it keeps calling Run.
type Ingestor struct {
	engine *Engine
	pb     *packetBuffer
}

// NewIngestor wraps r (buffering it if it isn't already a *bufio.Reader,
// since packet-size autodetection needs to peek ahead) and prepares to feed
// eng. packetSize may be 0 to autodetect between 188 and 192 bytes.
func NewIngestor(eng *Engine, r io.Reader, packetSize int) (*Ingestor, error) {
	if _, ok := r.(*bufio.Reader); !ok {
		r = bufio.NewReaderSize(r, 4*isdbTimestampedPacketSize)
	}
	pb, err := newPacketBuffer(r, packetSize)
	if err != nil {
		return nil, fmt.Errorf("demuxfs: creating ingestor: %w", err)
	}
	return &Ingestor{engine: eng, pb: pb}, nil
}

// Run feeds packets to the engine until the underlying reader is exhausted
// (returns ErrNoMorePackets) or a read fails.
func (in *Ingestor) Run() error {
	for {
		raw, err := in.pb.next()
		if err != nil {
			if err == io.EOF {
				return ErrNoMorePackets
			}
			return fmt.Errorf("demuxfs: reading next packet: %w", err)
		}
		if err := in.engine.Feed(raw); err != nil {
			logger.Printf("demuxfs: feed error: %v", err)
		}
	}
}
