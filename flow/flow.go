// Package flow computes symmetric flow hashes for the host side of the
// hash expression.
//
// Endpoints are put in a canonical order before hashing, so both directions
// of a connection produce the same value.
package flow

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Tuple identifies a flow by its endpoints and transport protocol.
type Tuple struct {
	Src   netip.AddrPort
	Dst   netip.AddrPort
	Proto uint8
}

// Reverse returns the tuple of the opposite direction.
func (t Tuple) Reverse() Tuple {
	return Tuple{Src: t.Dst, Dst: t.Src, Proto: t.Proto}
}

// String formats the tuple as "src,dst,proto", the form ParseTuple reads.
func (t Tuple) String() string {
	return fmt.Sprintf("%s,%s,%d", t.Src, t.Dst, t.Proto)
}

// ParseTuple parses "src,dst,proto" where src and dst are ip:port pairs.
func ParseTuple(s string) (Tuple, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Tuple{}, fmt.Errorf("flow: tuple %q: want src,dst,proto", s)
	}
	src, err := netip.ParseAddrPort(strings.TrimSpace(parts[0]))
	if err != nil {
		return Tuple{}, fmt.Errorf("flow: source: %w", err)
	}
	dst, err := netip.ParseAddrPort(strings.TrimSpace(parts[1]))
	if err != nil {
		return Tuple{}, fmt.Errorf("flow: destination: %w", err)
	}
	proto, err := strconv.ParseUint(strings.TrimSpace(parts[2]), 10, 8)
	if err != nil {
		return Tuple{}, fmt.Errorf("flow: protocol: %w", err)
	}
	return Tuple{Src: src, Dst: dst, Proto: uint8(proto)}, nil
}

// endpointSize is a 16-byte address followed by a 2-byte port.
const endpointSize = 18

// Hasher computes seeded symmetric flow hashes.
// The zero value hashes with seed 0.
type Hasher struct {
	seed uint64
}

// NewHasher returns a Hasher using seed.
func NewHasher(seed uint64) Hasher {
	return Hasher{seed: seed}
}

// Hash returns the symmetric hash of t: Hash(t) == Hash(t.Reverse()).
func (h Hasher) Hash(t Tuple) uint32 {
	lo, hi := t.Src, t.Dst
	if lo.Compare(hi) > 0 {
		lo, hi = hi, lo
	}

	var buf [2*endpointSize + 1]byte
	putEndpoint(buf[0:endpointSize], lo)
	putEndpoint(buf[endpointSize:2*endpointSize], hi)
	buf[2*endpointSize] = t.Proto

	var d xxhash.Digest
	d.ResetWithSeed(h.seed)
	d.Write(buf[:])
	sum := d.Sum64()
	return uint32(sum) ^ uint32(sum>>32)
}

func putEndpoint(dst []byte, ap netip.AddrPort) {
	a := ap.Addr().As16()
	copy(dst[:16], a[:])
	binary.BigEndian.PutUint16(dst[16:18], ap.Port())
}

// Packet carries a flow's precomputed symmetric hash. It satisfies the
// nfthash.Packet interface.
type Packet struct {
	Tuple Tuple
	hash  uint32
}

// Packet hashes t once and returns it as a packet context.
func (h Hasher) Packet(t Tuple) *Packet {
	return &Packet{Tuple: t, hash: h.Hash(t)}
}

// SymmetricHash returns the hash computed when the packet was created.
func (p *Packet) SymmetricHash() uint32 {
	return p.hash
}
