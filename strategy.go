package nfthash

import (
	"fmt"

	"github.com/spaolacci/murmur3"
	"github.com/zeebo/xxh3"

	nfterrors "github.com/tamirms/nfthash/errors"
	"github.com/tamirms/nfthash/internal/jhash"
)

// HashType selects the hash strategy. Values match the wire encoding.
type HashType uint32

const (
	// HashJenkins hashes a span of register bytes with a seeded content hash.
	HashJenkins HashType = 0

	// HashSymmetric uses the host's symmetric flow hash of the packet.
	HashSymmetric HashType = 1
)

// String returns the hash type name.
func (t HashType) String() string {
	switch t {
	case HashJenkins:
		return "jhash"
	case HashSymmetric:
		return "symhash"
	default:
		return "unknown"
	}
}

// ContentFunc identifies the byte hash used by content strategies.
type ContentFunc uint32

const (
	// FuncJenkins is the lookup3 jhash. This is the default.
	FuncJenkins ContentFunc = 0

	// FuncMurmur3 is MurmurHash3 x86_32.
	FuncMurmur3 ContentFunc = 1

	// FuncXXH3 is XXH3-64 with the halves xor-folded to 32 bits.
	FuncXXH3 ContentFunc = 2
)

// String returns the function name.
func (f ContentFunc) String() string {
	switch f {
	case FuncJenkins:
		return "jenkins"
	case FuncMurmur3:
		return "murmur3"
	case FuncXXH3:
		return "xxh3"
	default:
		return "unknown"
	}
}

// hashFunc hashes data with a 32-bit seed.
type hashFunc func(data []byte, seed uint32) uint32

func hashMurmur3(data []byte, seed uint32) uint32 {
	return murmur3.Sum32WithSeed(data, seed)
}

func hashXXH3(data []byte, seed uint32) uint32 {
	h := xxh3.HashSeed(data, uint64(seed))
	return uint32(h) ^ uint32(h>>32)
}

// newHashFunc returns the implementation of f.
func newHashFunc(f ContentFunc) (hashFunc, error) {
	switch f {
	case FuncJenkins:
		return jhash.Hash, nil
	case FuncMurmur3:
		return hashMurmur3, nil
	case FuncXXH3:
		return hashXXH3, nil
	}
	return nil, fmt.Errorf("%w: content function %d", nfterrors.ErrUnsupportedVariant, f)
}

// ContentHash hashes data with the given function and seed, exactly as a
// content expression would before range reduction.
func ContentHash(f ContentFunc, data []byte, seed uint32) (uint32, error) {
	fn, err := newHashFunc(f)
	if err != nil {
		return 0, err
	}
	return fn(data, seed), nil
}

// Packet is the packet context supplied by the host pipeline.
//
// SymmetricHash must return the same value for both directions of a flow.
// The expression treats it as an opaque 32-bit input.
type Packet interface {
	SymmetricHash() uint32
}

// strategy produces the raw 32-bit hash for one evaluation.
//
// Implementations are immutable and safe for concurrent use. The set of
// implementations is closed: contentStrategy and symmetricStrategy.
type strategy interface {
	hash(regs Registers, pkt Packet) uint32
	hashType() HashType
}

// contentStrategy hashes length bytes read from the source register.
type contentStrategy struct {
	sreg   Slot
	length uint8
	seed   uint32
	fn     ContentFunc
	hashFn hashFunc
}

func (s *contentStrategy) hash(regs Registers, _ Packet) uint32 {
	return s.hashFn(regs.Load(s.sreg, int(s.length)), s.seed)
}

func (s *contentStrategy) hashType() HashType { return HashJenkins }

// symmetricStrategy reads the host's symmetric flow hash.
type symmetricStrategy struct{}

func (symmetricStrategy) hash(_ Registers, pkt Packet) uint32 {
	return pkt.SymmetricHash()
}

func (symmetricStrategy) hashType() HashType { return HashSymmetric }
