package set

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"
	"testing"
)

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

func key32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

// randomEntries returns n entries with distinct 4-byte keys.
func randomEntries(rng *rand.Rand, n, valueLen int) []Entry {
	seen := make(map[uint32]bool, n)
	out := make([]Entry, 0, n)
	for len(out) < n {
		k := rng.Uint32()
		if seen[k] {
			continue
		}
		seen[k] = true
		v := make([]byte, valueLen)
		for i := range v {
			v[i] = byte(rng.Uint32())
		}
		out = append(out, Entry{Key: key32(k), Value: v})
	}
	return out
}
