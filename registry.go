package demuxfs

import (
	"sync"

	"golang.org/x/exp/maps"
)

// tableKey combines a PID and table_id into the 32-bit composite key spec §3
// defines for psi_tables: (pid<<8)|table_id. It "suffices to distinguish
// PAT/PMT/NIT sharing PIDs in practice" per the spec's own caveat.
func tableKey(pid uint16, tableID uint8) uint32 {
	return uint32(pid)<<8 | uint32(tableID)
}

// ParseFunc is the shape every table/section parser is dispatched through:
// a PID-keyed entry in psiParsers, bound at registration time to whichever
// concrete parser (parsePAT, parsePMT, ...) should handle sections on that
// PID, plus caller-opaque user data (spec §3, "Dispatcher entry").
type ParseFunc func(eng *Engine, pid uint16, hdr *psiHeader, payload []byte, userData interface{}) error

// dispatchEntry is one row of psi_parsers: a PID bound to a parse function,
// a table_id predicate, and opaque user data.
//
// spec §9 leaves the relationship between psi_parsers (keyed by PID) and
// psi_tables (keyed by (PID, table_id)) undefined when a PID's table_id
// changes mid-stream. This implementation's documented answer (SPEC_FULL.md
// §8): retain both maps, and guard psi_parsers with a predicate supplied at
// registration so a PID shared by an unexpected table_id is rejected rather
// than mis-parsed, instead of the source's PAT-path shortcut of keying
// solely on PID.
type dispatchEntry struct {
	PID       uint16
	Predicate func(tableID uint8) bool
	Parse     ParseFunc
	UserData  interface{}
}

// tableEntry is psi_tables' value: the parsed table object, its top-level
// Vnn dentry, and the disposer that frees it on supersession or shutdown.
type tableEntry struct {
	Version uint8
	Dentry  *Dentry
	Table   interface{}
	Dispose func()
}

// registry holds psi_parsers and psi_tables (spec §3 "Hash tables"). It is
// mutated only by the ingestion goroutine and read by both the ingestion
// goroutine and any number of VFS readers; a RWMutex gives readers a
// consistent snapshot without blocking each other, while writes replace
// entries atomically from a reader's viewpoint (install-before-free).
type registry struct {
	mu      sync.RWMutex
	parsers map[uint16]*dispatchEntry
	tables  map[uint32]*tableEntry
}

func newRegistry() *registry {
	return &registry{
		parsers: make(map[uint16]*dispatchEntry),
		tables:  make(map[uint32]*tableEntry),
	}
}

// RegisterParser installs or replaces the parser bound to pid. Replacement
// is idempotent: PAT/PMT re-announcing a PID it already registered is a
// no-op in effect (spec §4.4, "replacement is idempotent").
func (r *registry) RegisterParser(pid uint16, predicate func(uint8) bool, parse ParseFunc, userData interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers[pid] = &dispatchEntry{PID: pid, Predicate: predicate, Parse: parse, UserData: userData}
}

// Parser looks up the dispatch entry for pid.
func (r *registry) Parser(pid uint16) (*dispatchEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.parsers[pid]
	return e, ok
}

// HasParser reports whether pid has any registered parser, regardless of
// predicate.
func (r *registry) HasParser(pid uint16) bool {
	_, ok := r.Parser(pid)
	return ok
}

// ParserPIDs returns a snapshot of every PID currently carrying a
// registered parser, for introspection/tests (spec §8 invariant 6).
func (r *registry) ParserPIDs() []uint16 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Keys(r.parsers)
}

// Table looks up the current entry for a (pid, table_id) pair.
func (r *registry) Table(key uint32) (*tableEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tables[key]
	return e, ok
}

// InstallTable installs entry under key, returning whatever was previously
// installed there (nil if this is the first version). The caller disposes
// of the returned old entry (migrating children first) only after this
// call returns, so readers never see a gap — install-before-free.
func (r *registry) InstallTable(key uint32, entry *tableEntry) *tableEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.tables[key]
	r.tables[key] = entry
	return old
}

// DisposeAll walks every installed table, calls its disposer, and empties
// psi_tables.
func (r *registry) DisposeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, e := range r.tables {
		if e.Dispose != nil {
			e.Dispose()
		}
		delete(r.tables, key)
	}
}
