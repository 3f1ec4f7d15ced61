package flow

import (
	"math/rand/v2"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamirms/nfthash"
)

var _ nfthash.Packet = (*Packet)(nil)

func randomTuple(rng *rand.Rand) Tuple {
	var a4, b4 [4]byte
	for i := range a4 {
		a4[i] = byte(rng.Uint32())
		b4[i] = byte(rng.Uint32())
	}
	return Tuple{
		Src:   netip.AddrPortFrom(netip.AddrFrom4(a4), uint16(rng.Uint32())),
		Dst:   netip.AddrPortFrom(netip.AddrFrom4(b4), uint16(rng.Uint32())),
		Proto: uint8(rng.Uint32()),
	}
}

func TestHashSymmetric(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	h := NewHasher(0xfeedface)

	for i := 0; i < 10000; i++ {
		tup := randomTuple(rng)
		require.Equal(t, h.Hash(tup), h.Hash(tup.Reverse()), "tuple %s", tup)
	}
}

func TestHashSymmetricIPv6(t *testing.T) {
	h := NewHasher(7)
	tup := Tuple{
		Src:   netip.MustParseAddrPort("[2001:db8::1]:443"),
		Dst:   netip.MustParseAddrPort("[2001:db8::2]:50000"),
		Proto: 6,
	}
	assert.Equal(t, h.Hash(tup), h.Hash(tup.Reverse()))
}

// TestHashSameAddressDifferentPorts covers flows between two sockets on one host,
// where only the ports decide the canonical order.
func TestHashSameAddressDifferentPorts(t *testing.T) {
	var h Hasher
	tup := Tuple{
		Src:   netip.MustParseAddrPort("127.0.0.1:9000"),
		Dst:   netip.MustParseAddrPort("127.0.0.1:80"),
		Proto: 17,
	}
	assert.Equal(t, h.Hash(tup), h.Hash(tup.Reverse()))
}

func TestHashDistinguishesFlows(t *testing.T) {
	var h Hasher
	base := Tuple{
		Src:   netip.MustParseAddrPort("10.0.0.1:1234"),
		Dst:   netip.MustParseAddrPort("10.0.0.2:80"),
		Proto: 6,
	}
	otherPort := base
	otherPort.Src = netip.AddrPortFrom(base.Src.Addr(), 1235)
	otherProto := base
	otherProto.Proto = 17

	assert.NotEqual(t, h.Hash(base), h.Hash(otherPort))
	assert.NotEqual(t, h.Hash(base), h.Hash(otherProto))
}

func TestHashSeeded(t *testing.T) {
	tup := Tuple{
		Src:   netip.MustParseAddrPort("192.0.2.1:53"),
		Dst:   netip.MustParseAddrPort("192.0.2.2:5353"),
		Proto: 17,
	}
	assert.NotEqual(t, NewHasher(1).Hash(tup), NewHasher(2).Hash(tup))
	assert.Equal(t, NewHasher(1).Hash(tup), NewHasher(1).Hash(tup))
}

func TestPacket(t *testing.T) {
	h := NewHasher(99)
	tup := Tuple{
		Src:   netip.MustParseAddrPort("10.1.1.1:4000"),
		Dst:   netip.MustParseAddrPort("10.2.2.2:22"),
		Proto: 6,
	}
	p := h.Packet(tup)
	assert.Equal(t, tup, p.Tuple)
	assert.Equal(t, h.Hash(tup), p.SymmetricHash())
	assert.Equal(t, p.SymmetricHash(), h.Packet(tup.Reverse()).SymmetricHash())
}

func TestParseTuple(t *testing.T) {
	tup, err := ParseTuple("10.0.0.1:1234, 10.0.0.2:80, 6")
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddrPort("10.0.0.1:1234"), tup.Src)
	assert.Equal(t, netip.MustParseAddrPort("10.0.0.2:80"), tup.Dst)
	assert.Equal(t, uint8(6), tup.Proto)

	again, err := ParseTuple(tup.String())
	require.NoError(t, err)
	assert.Equal(t, tup, again)

	for _, bad := range []string{
		"",
		"10.0.0.1:1,10.0.0.2:2",
		"10.0.0.1,10.0.0.2:2,6",
		"10.0.0.1:1,bogus,6",
		"10.0.0.1:1,10.0.0.2:2,256",
	} {
		_, err := ParseTuple(bad)
		assert.Error(t, err, "input %q", bad)
	}
}
