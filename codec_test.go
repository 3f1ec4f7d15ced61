package nfthash

import (
	"bytes"
	"errors"
	"testing"

	nfterrors "github.com/tamirms/nfthash/errors"
)

func TestDumpContent(t *testing.T) {
	a := contentAttrs()
	a.Func = Ptr(FuncMurmur3)
	d := mustNew(t, a).Dump()

	switch {
	case d.SReg == nil || *d.SReg != Reg1:
		t.Errorf("SReg = %v", d.SReg)
	case d.DReg == nil || *d.DReg != Reg2:
		t.Errorf("DReg = %v", d.DReg)
	case d.Len == nil || *d.Len != 4:
		t.Errorf("Len = %v", d.Len)
	case d.Modulus == nil || *d.Modulus != 16:
		t.Errorf("Modulus = %v", d.Modulus)
	case d.Seed == nil || *d.Seed != 0:
		t.Errorf("Seed = %v", d.Seed)
	case d.Offset == nil || *d.Offset != 100:
		t.Errorf("Offset = %v", d.Offset)
	case d.Type == nil || *d.Type != HashJenkins:
		t.Errorf("Type = %v", d.Type)
	case d.Func == nil || *d.Func != FuncMurmur3:
		t.Errorf("Func = %v", d.Func)
	case d.SetName != nil:
		t.Errorf("SetName = %q", *d.SetName)
	}
}

func TestDumpOmitsDefaults(t *testing.T) {
	a := contentAttrs()
	a.Offset = nil
	d := mustNew(t, a).Dump()
	if d.Offset != nil {
		t.Errorf("zero offset exported as %d", *d.Offset)
	}
	if d.Func != nil {
		t.Errorf("default function exported as %s", *d.Func)
	}

	d = mustNew(t, symmetricAttrs()).Dump()
	if d.SReg != nil || d.Len != nil || d.Seed != nil {
		t.Error("symmetric dump carries content attributes")
	}
	if d.Type == nil || *d.Type != HashSymmetric {
		t.Errorf("Type = %v", d.Type)
	}
}

func TestDumpNarrowRegister(t *testing.T) {
	a := contentAttrs()
	a.SReg = Ptr(Reg32(1))
	a.DReg = Ptr(Reg32(7))
	d := mustNew(t, a).Dump()
	if *d.SReg != Reg32(1) || *d.DReg != Reg32(7) {
		t.Errorf("got sreg %d dreg %d", *d.SReg, *d.DReg)
	}

	// Reg32(4) aliases the start of Reg2 and is reported as Reg2.
	a.DReg = Ptr(Reg32(4))
	if d := mustNew(t, a).Dump(); *d.DReg != Reg2 {
		t.Errorf("aligned dreg dumped as %d", *d.DReg)
	}
}

// TestCodecRecreate dumps, encodes, decodes and rebuilds an expression, and
// checks the copy classifies identically and dumps to the same bytes.
func TestCodecRecreate(t *testing.T) {
	res := newFakeResolver(newFakeSet("s", 4))
	attrs := []Attrs{
		contentAttrs(),
		symmetricAttrs(),
		func() Attrs { a := contentAttrs(); a.Func = Ptr(FuncXXH3); a.SetName = Ptr("s"); return a }(),
		func() Attrs { a := symmetricAttrs(); a.SetName = Ptr("s"); a.Offset = Ptr(uint32(3)); return a }(),
	}

	rng := newTestRNG(t)
	for i, a := range attrs {
		orig := mustNew(t, a, WithSetResolver(res))
		wire, err := MarshalAttrs(orig.Dump())
		if err != nil {
			t.Fatalf("%d: marshal: %v", i, err)
		}
		back, err := UnmarshalAttrs(wire)
		if err != nil {
			t.Fatalf("%d: unmarshal: %v", i, err)
		}
		clone := mustNew(t, back, WithSetResolver(res))

		again, err := MarshalAttrs(clone.Dump())
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(wire, again) {
			t.Errorf("%d: re-dump differs:\n%x\n%x", i, wire, again)
		}

		for j := 0; j < 50; j++ {
			var regs RegisterSet
			regs.SetUint32(ParseRegister(Reg1), rng.Uint32())
			pkt := fakePacket(rng.Uint32())
			if orig.Key(&regs, pkt) != clone.Key(&regs, pkt) {
				t.Fatalf("%d: clone classifies differently", i)
			}
		}
		orig.Destroy()
		clone.Destroy()
	}
}

func TestCodecAutogenSeedNotExported(t *testing.T) {
	a := contentAttrs()
	a.Seed = nil
	e := mustNew(t, a, WithSeedSource(bytes.NewReader([]byte{1, 1, 1, 1})))
	wire, err := MarshalAttrs(e.Dump())
	if err != nil {
		t.Fatal(err)
	}
	back, err := UnmarshalAttrs(wire)
	if err != nil {
		t.Fatal(err)
	}
	if back.Seed != nil {
		t.Fatalf("seed %d crossed the wire", *back.Seed)
	}
}

func TestCodecDeterministic(t *testing.T) {
	a := contentAttrs()
	a.SetName = Ptr("s")
	a.Func = Ptr(FuncXXH3)
	x, err := MarshalAttrs(a)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		y, err := MarshalAttrs(a)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(x, y) {
			t.Fatalf("encodings differ:\n%x\n%x", x, y)
		}
	}
	// Canonical CBOR sorts integer keys, so SReg (1) comes first.
	if len(x) < 2 || x[1] != AttrSReg {
		t.Errorf("first key byte %x, want %x", x[1], AttrSReg)
	}

	empty, err := MarshalAttrs(Attrs{})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(empty, []byte{0xa0}) {
		t.Errorf("empty attrs encoded as %x", empty)
	}
}

func TestUnmarshalAttrsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"Empty", nil},
		{"Truncated", []byte{0xa1, 0x01}},
		{"NotAMap", []byte{0x83, 0x01, 0x02, 0x03}},
		{"WrongFieldType", []byte{0xa1, 0x08, 0x01}}, // set name as an integer
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := UnmarshalAttrs(tt.data); !errors.Is(err, nfterrors.ErrInvalidAttrs) {
				t.Fatalf("got %v, want ErrInvalidAttrs", err)
			}
		})
	}
}

func TestUnmarshalAttrsIgnoresUnknown(t *testing.T) {
	// {4: 16, 99: 1}
	a, err := UnmarshalAttrs([]byte{0xa2, 0x04, 0x10, 0x18, 0x63, 0x01})
	if err != nil {
		t.Fatal(err)
	}
	if a.Modulus == nil || *a.Modulus != 16 {
		t.Fatalf("Modulus = %v", a.Modulus)
	}
}

func TestStringers(t *testing.T) {
	for _, tc := range []struct {
		got, want string
	}{
		{HashJenkins.String(), "jhash"},
		{HashSymmetric.String(), "symhash"},
		{HashType(9).String(), "unknown"},
		{FuncJenkins.String(), "jenkins"},
		{FuncMurmur3.String(), "murmur3"},
		{FuncXXH3.String(), "xxh3"},
		{ContentFunc(9).String(), "unknown"},
	} {
		if tc.got != tc.want {
			t.Errorf("got %q, want %q", tc.got, tc.want)
		}
	}
}
