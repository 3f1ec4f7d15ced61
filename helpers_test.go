package nfthash

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/fnv"
	"math/rand/v2"
	"testing"
)

// Named seeds for deterministic reproduction.
const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

// fakeSet is a map-backed Set.
type fakeSet struct {
	name     string
	id       uint32
	keyLen   int
	valueLen int
	entries  map[uint32][]byte
	lookups  int
}

func newFakeSet(name string, valueLen int) *fakeSet {
	return &fakeSet{name: name, keyLen: 4, valueLen: valueLen, entries: map[uint32][]byte{}}
}

func (s *fakeSet) Name() string  { return s.name }
func (s *fakeSet) ID() uint32    { return s.id }
func (s *fakeSet) KeyLen() int   { return s.keyLen }
func (s *fakeSet) ValueLen() int { return s.valueLen }

func (s *fakeSet) Lookup(key []byte) ([]byte, bool) {
	s.lookups++
	v, ok := s.entries[binary.LittleEndian.Uint32(key)]
	return v, ok
}

// fakeResolver resolves from a fixed list and counts bindings.
type fakeResolver struct {
	sets map[string]*fakeSet
	uses map[string]int
}

func newFakeResolver(sets ...*fakeSet) *fakeResolver {
	r := &fakeResolver{sets: map[string]*fakeSet{}, uses: map[string]int{}}
	for _, s := range sets {
		r.sets[s.name] = s
	}
	return r
}

var errNoSuchSet = errors.New("no such set")

func (r *fakeResolver) AcquireSet(name string, id uint32) (Set, error) {
	s, ok := r.sets[name]
	if !ok && id != 0 {
		for _, cand := range r.sets {
			if cand.id == id {
				s, ok = cand, true
			}
		}
	}
	if !ok {
		return nil, errNoSuchSet
	}
	r.uses[s.name]++
	return s, nil
}

func (r *fakeResolver) ReleaseSet(s Set) {
	r.uses[s.Name()]--
}

// fakePacket returns a fixed symmetric hash.
type fakePacket uint32

func (p fakePacket) SymmetricHash() uint32 { return uint32(p) }

// contentAttrs returns valid content attributes reading 4 bytes from Reg1
// into the first 4-byte slot of Reg2. Type is explicit so that adding a set
// name selects the map variant.
func contentAttrs() Attrs {
	return Attrs{
		Type:    Ptr(HashJenkins),
		SReg:    Ptr(Reg1),
		DReg:    Ptr(Reg2),
		Len:     Ptr(uint32(4)),
		Modulus: Ptr(uint32(16)),
		Seed:    Ptr(uint32(0)),
		Offset:  Ptr(uint32(100)),
	}
}

func symmetricAttrs() Attrs {
	return Attrs{
		DReg:    Ptr(Reg3),
		Modulus: Ptr(uint32(8)),
		Type:    Ptr(HashSymmetric),
	}
}

func mustNew(t *testing.T, a Attrs, opts ...Option) *Expr {
	t.Helper()
	e, err := New(a, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

// loadSource fills the source register of a content expression.
func loadSource(regs *RegisterSet, r Register, data []byte) {
	regs.Store(ParseRegister(r), data)
}

// copyingRegisters hands out copies from Load, so a result only lands if it
// goes through Store.
type copyingRegisters struct {
	RegisterSet
	stores int
}

func (c *copyingRegisters) Load(s Slot, n int) []byte {
	return bytes.Clone(c.RegisterSet.Load(s, n))
}

func (c *copyingRegisters) Store(s Slot, src []byte) {
	c.stores++
	c.RegisterSet.Store(s, src)
}
