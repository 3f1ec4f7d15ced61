package set

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	nfterrors "github.com/tamirms/nfthash/errors"
)

// Map is an in-memory set with fixed key and value widths.
//
// Thread Safety:
//   - Lookup is lock-free and safe for concurrent use with everything else
//   - Insert, Delete and Commit are serialized by an internal mutex
//   - Staged changes are invisible to Lookup until Commit publishes them
type Map struct {
	name     string
	id       uint32
	keyLen   int
	valueLen int

	current atomic.Pointer[generation]

	mu     sync.Mutex
	staged map[string][]byte // nil when nothing is staged
}

// generation is an immutable published view of the map.
type generation struct {
	seq     uint64
	entries map[string][]byte
}

// NewMap creates an empty map set.
func NewMap(name string, id uint32, keyLen, valueLen int) (*Map, error) {
	if err := checkShape(name, keyLen, valueLen); err != nil {
		return nil, err
	}
	m := &Map{name: name, id: id, keyLen: keyLen, valueLen: valueLen}
	m.current.Store(&generation{entries: map[string][]byte{}})
	return m, nil
}

// Name returns the set name.
func (m *Map) Name() string { return m.name }

// ID returns the set ID.
func (m *Map) ID() uint32 { return m.id }

// KeyLen returns the key width in bytes.
func (m *Map) KeyLen() int { return m.keyLen }

// ValueLen returns the value width in bytes.
func (m *Map) ValueLen() int { return m.valueLen }

// Lookup returns the value stored for key in the current generation.
func (m *Map) Lookup(key []byte) ([]byte, bool) {
	v, ok := m.current.Load().entries[string(key)]
	return v, ok
}

// Len returns the number of entries in the current generation.
func (m *Map) Len() int {
	return len(m.current.Load().entries)
}

// Generation returns the sequence number of the current generation.
// It starts at 0 and increases by one per Commit.
func (m *Map) Generation() uint64 {
	return m.current.Load().seq
}

// stage returns the staged entries, cloning the current generation on first use.
// Caller must hold mu.
func (m *Map) stage() map[string][]byte {
	if m.staged == nil {
		m.staged = maps.Clone(m.current.Load().entries)
	}
	return m.staged
}

// Insert stages key -> value for the next generation. The slices are copied.
// Inserting a key that is already staged fails with ErrDuplicateKey.
func (m *Map) Insert(key, value []byte) error {
	if err := checkEntry(key, value, m.keyLen, m.valueLen); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	staged := m.stage()
	if _, ok := staged[string(key)]; ok {
		return fmt.Errorf("%w: %x", nfterrors.ErrDuplicateKey, key)
	}
	staged[string(key)] = bytes.Clone(value)
	return nil
}

// Delete stages the removal of key and reports whether it was present.
func (m *Map) Delete(key []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	staged := m.stage()
	if _, ok := staged[string(key)]; !ok {
		return false
	}
	delete(staged, string(key))
	return true
}

// Commit publishes staged changes as a new generation and returns its
// sequence number. With nothing staged the current generation is kept.
func (m *Map) Commit() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.current.Load()
	if m.staged == nil {
		return cur.seq
	}
	next := &generation{seq: cur.seq + 1, entries: m.staged}
	m.staged = nil
	m.current.Store(next)
	return next.seq
}

// Abort discards staged changes.
func (m *Map) Abort() {
	m.mu.Lock()
	m.staged = nil
	m.mu.Unlock()
}

// Entries returns the current generation sorted by key.
func (m *Map) Entries() []Entry {
	gen := m.current.Load()
	out := make([]Entry, 0, len(gen.entries))
	for k, v := range gen.entries {
		out = append(out, Entry{Key: []byte(k), Value: v})
	}
	slices.SortFunc(out, func(a, b Entry) int {
		return bytes.Compare(a.Key, b.Key)
	})
	return out
}
