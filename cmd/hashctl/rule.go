package main

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/tamirms/nfthash"
	"github.com/tamirms/nfthash/set"
)

// rule is the TOML form of a hash expression. Registers are wire numbers:
// 1..4 for the 16-byte registers and 8..23 for the 4-byte ones.
type rule struct {
	Type    string  `toml:"type,omitempty"`
	Func    string  `toml:"func,omitempty"`
	SReg    *uint32 `toml:"sreg"`
	DReg    *uint32 `toml:"dreg"`
	Len     *uint32 `toml:"len"`
	Modulus *uint32 `toml:"modulus"`
	Seed    *uint32 `toml:"seed"`
	Offset  *uint32 `toml:"offset"`
	Set     string  `toml:"set,omitempty"`
	SetID   *uint32 `toml:"set_id"`
}

// loadRule parses a rule file. Unknown keys are rejected so that typos do
// not silently fall back to defaults.
func loadRule(path string) (nfthash.Attrs, error) {
	var r rule
	md, err := toml.DecodeFile(path, &r)
	if err != nil {
		return nfthash.Attrs{}, fmt.Errorf("parse rule %s: %w", path, err)
	}
	if err := checkUndecoded(md); err != nil {
		return nfthash.Attrs{}, fmt.Errorf("rule %s: %w", path, err)
	}
	a, err := r.attrs()
	if err != nil {
		return nfthash.Attrs{}, fmt.Errorf("rule %s: %w", path, err)
	}
	return a, nil
}

func checkUndecoded(md toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}
	keys := make([]string, len(undecoded))
	for i, k := range undecoded {
		keys[i] = k.String()
	}
	return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
}

func (r *rule) attrs() (nfthash.Attrs, error) {
	a := nfthash.Attrs{
		SReg:    regPtr(r.SReg),
		DReg:    regPtr(r.DReg),
		Len:     r.Len,
		Modulus: r.Modulus,
		Seed:    r.Seed,
		Offset:  r.Offset,
		SetID:   r.SetID,
	}
	if r.Type != "" {
		t, err := parseHashType(r.Type)
		if err != nil {
			return nfthash.Attrs{}, err
		}
		a.Type = &t
	}
	if r.Func != "" {
		f, err := parseContentFunc(r.Func)
		if err != nil {
			return nfthash.Attrs{}, err
		}
		a.Func = &f
	}
	if r.Set != "" {
		a.SetName = nfthash.Ptr(r.Set)
	}
	return a, nil
}

// ruleFromAttrs is the inverse of rule.attrs.
func ruleFromAttrs(a nfthash.Attrs) rule {
	r := rule{
		SReg:    u32Ptr(a.SReg),
		DReg:    u32Ptr(a.DReg),
		Len:     a.Len,
		Modulus: a.Modulus,
		Seed:    a.Seed,
		Offset:  a.Offset,
		SetID:   a.SetID,
	}
	if a.Type != nil {
		r.Type = a.Type.String()
	}
	if a.Func != nil {
		r.Func = a.Func.String()
	}
	if a.SetName != nil {
		r.Set = *a.SetName
	}
	return r
}

func regPtr(v *uint32) *nfthash.Register {
	if v == nil {
		return nil
	}
	return nfthash.Ptr(nfthash.Register(*v))
}

func u32Ptr(r *nfthash.Register) *uint32 {
	if r == nil {
		return nil
	}
	return nfthash.Ptr(uint32(*r))
}

func parseHashType(s string) (nfthash.HashType, error) {
	for _, t := range []nfthash.HashType{nfthash.HashJenkins, nfthash.HashSymmetric} {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown hash type %q", s)
}

func parseContentFunc(s string) (nfthash.ContentFunc, error) {
	for _, f := range contentFuncs {
		if f.String() == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown content function %q", s)
}

var contentFuncs = []nfthash.ContentFunc{nfthash.FuncJenkins, nfthash.FuncMurmur3, nfthash.FuncXXH3}

// setDef is the TOML form of a set. Keys are expression results, stored as
// little-endian 32-bit words; values are hex strings of exactly value_len
// bytes.
type setDef struct {
	Name     string     `toml:"name"`
	ID       uint32     `toml:"id"`
	ValueLen int        `toml:"value_len"`
	Entries  []setEntry `toml:"entry"`
}

type setEntry struct {
	Key   uint32 `toml:"key"`
	Value string `toml:"value"`
}

func loadSetDef(path string) (set.Snapshot, error) {
	var d setDef
	md, err := toml.DecodeFile(path, &d)
	if err != nil {
		return set.Snapshot{}, fmt.Errorf("parse set %s: %w", path, err)
	}
	if err := checkUndecoded(md); err != nil {
		return set.Snapshot{}, fmt.Errorf("set %s: %w", path, err)
	}

	snap := set.Snapshot{
		Name:     d.Name,
		ID:       d.ID,
		KeyLen:   4,
		ValueLen: d.ValueLen,
		Entries:  make([]set.Entry, len(d.Entries)),
	}
	for i, e := range d.Entries {
		val, err := hex.DecodeString(e.Value)
		if err != nil {
			return set.Snapshot{}, fmt.Errorf("set %s: entry %d: %w", path, i, err)
		}
		key := make([]byte, 4)
		binary.LittleEndian.PutUint32(key, e.Key)
		snap.Entries[i] = set.Entry{Key: key, Value: val}
	}
	return snap, nil
}
