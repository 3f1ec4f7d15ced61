package nfthash

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync/atomic"

	"go.uber.org/zap"

	nfterrors "github.com/tamirms/nfthash/errors"
	intbits "github.com/tamirms/nfthash/internal/bits"
)

// variant is one of the four concrete expression shapes.
type variant uint8

const (
	variantContent variant = iota
	variantSymmetric
	variantContentMap
	variantSymmetricMap
)

func (v variant) String() string {
	switch v {
	case variantContent:
		return "jhash"
	case variantSymmetric:
		return "symhash"
	case variantContentMap:
		return "jhash_map"
	case variantSymmetricMap:
		return "symhash_map"
	default:
		return "unknown"
	}
}

func (v variant) content() bool {
	return v == variantContent || v == variantContentMap
}

func (v variant) isMap() bool {
	return v == variantContentMap || v == variantSymmetricMap
}

// Expr is a hash classification expression.
//
// An Expr is immutable once constructed. Eval is safe for concurrent use as
// long as every call gets its own Registers. Destroy must only be called
// after all evaluations have completed.
type Expr struct {
	variant  variant
	strategy strategy
	dreg     Slot
	modulus  uint32
	offset   uint32

	// autogenSeed is set when the seed was generated rather than supplied.
	// Dump leaves such seeds out.
	autogenSeed bool

	lookup   *mapLookup // nil unless variant.isMap()
	resolver SetResolver
	logger   *zap.Logger

	destroyed atomic.Bool
}

// mapLookup resolves an expression result through a set.
type mapLookup struct {
	set      Set
	valueLen int // the set's declared value width
}

// eval writes the value mapped to key into dreg. A miss writes nothing.
func (m *mapLookup) eval(regs Registers, dreg Slot, key uint32) {
	var k [keyLen]byte
	binary.LittleEndian.PutUint32(k[:], key)
	val, ok := m.set.Lookup(k[:])
	if !ok {
		return
	}
	regs.Store(dreg, val[:m.valueLen])
}

// New builds an expression from attrs, choosing the variant the way the
// wire protocol does: an absent Type always builds a plain content
// expression, and a set name turns an explicit HashJenkins or HashSymmetric
// into its map variant. Unknown types fail with ErrUnsupportedVariant.
func New(attrs Attrs, opts ...Option) (*Expr, error) {
	if attrs.Type == nil {
		return NewContent(attrs, opts...)
	}
	switch typ := *attrs.Type; typ {
	case HashJenkins:
		if attrs.isMap() {
			return NewContentMap(attrs, opts...)
		}
		return NewContent(attrs, opts...)
	case HashSymmetric:
		if attrs.isMap() {
			return NewSymmetricMap(attrs, opts...)
		}
		return NewSymmetric(attrs, opts...)
	default:
		return nil, fmt.Errorf("%w: hash type %d", nfterrors.ErrUnsupportedVariant, typ)
	}
}

// NewContent builds a content-hash expression. SReg, DReg, Len and Modulus
// are required; Seed, Offset and Func are optional. Type and set
// attributes are ignored.
func NewContent(attrs Attrs, opts ...Option) (*Expr, error) {
	return build(&attrs, variantContent, opts)
}

// NewSymmetric builds a symmetric flow-hash expression. DReg and Modulus are
// required and Offset is optional. Content attributes are ignored.
func NewSymmetric(attrs Attrs, opts ...Option) (*Expr, error) {
	return build(&attrs, variantSymmetric, opts)
}

// NewContentMap builds a content-hash expression whose result is looked up
// in the set named by SetName. It needs a resolver (WithSetResolver).
func NewContentMap(attrs Attrs, opts ...Option) (*Expr, error) {
	return build(&attrs, variantContentMap, opts)
}

// NewSymmetricMap builds a symmetric flow-hash expression whose result is
// looked up in the set named by SetName. It needs a resolver
// (WithSetResolver).
func NewSymmetricMap(attrs Attrs, opts ...Option) (*Expr, error) {
	return build(&attrs, variantSymmetricMap, opts)
}

func build(a *Attrs, v variant, opts []Option) (*Expr, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	e, err := construct(a, v, cfg)
	if err != nil {
		cfg.logger.Debug("hash expression rejected",
			zap.Stringer("variant", v),
			zap.Error(err))
		return nil, err
	}
	cfg.logger.Debug("hash expression created",
		zap.Stringer("variant", v),
		zap.Uint32("modulus", e.modulus),
		zap.Uint32("offset", e.offset),
		zap.Bool("autogen_seed", e.autogenSeed))
	return e, nil
}

// construct validates a in a fixed order; the first failing check decides
// the error. Nothing is returned on failure and any acquired set is
// released.
func construct(a *Attrs, v variant, cfg *config) (*Expr, error) {
	fn := valueOr(a.Func, FuncJenkins)
	var hashFn hashFunc
	if v.content() {
		var err error
		if hashFn, err = newHashFunc(fn); err != nil {
			return nil, err
		}
	}

	if err := checkRequired(a, v); err != nil {
		return nil, err
	}

	e := &Expr{
		variant: v,
		dreg:    ParseRegister(*a.DReg),
		modulus: *a.Modulus,
		offset:  valueOr(a.Offset, 0),
		logger:  cfg.logger,
	}

	var cs *contentStrategy
	if v.content() {
		length := *a.Len
		if length == 0 || length > maxLen {
			return nil, fmt.Errorf("%w: got %d", nfterrors.ErrLengthOutOfRange, length)
		}
		sreg := ParseRegister(*a.SReg)
		if err := ValidateLoad(sreg, int(length)); err != nil {
			return nil, fmt.Errorf("source: %w", err)
		}
		cs = &contentStrategy{
			sreg:   sreg,
			length: uint8(length),
			fn:     fn,
			hashFn: hashFn,
		}
	}

	if e.modulus < 1 {
		return nil, nfterrors.ErrModulusInvalid
	}
	if e.offset+e.modulus-1 < e.offset {
		return nil, fmt.Errorf("%w: offset %d, modulus %d", nfterrors.ErrRangeOverflow, e.offset, e.modulus)
	}

	if cs != nil {
		if a.Seed != nil {
			cs.seed = *a.Seed
		} else {
			seed, err := randomSeed(cfg.seedSource)
			if err != nil {
				return nil, err
			}
			cs.seed = seed
			e.autogenSeed = true
		}
		e.strategy = cs
	} else {
		e.strategy = symmetricStrategy{}
	}

	if err := ValidateStore(e.dreg, reg32Size); err != nil {
		return nil, fmt.Errorf("destination: %w", err)
	}

	if v.isMap() {
		if err := e.bindSet(a, cfg.resolver); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func checkRequired(a *Attrs, v variant) error {
	switch {
	case a.DReg == nil:
		return fmt.Errorf("%w: dreg", nfterrors.ErrMissingField)
	case a.Modulus == nil:
		return fmt.Errorf("%w: modulus", nfterrors.ErrMissingField)
	case v.content() && a.SReg == nil:
		return fmt.Errorf("%w: sreg", nfterrors.ErrMissingField)
	case v.content() && a.Len == nil:
		return fmt.Errorf("%w: len", nfterrors.ErrMissingField)
	case v.isMap() && a.SetName == nil:
		return fmt.Errorf("%w: set name", nfterrors.ErrMissingField)
	}
	return nil
}

func randomSeed(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("generate seed: %w", err)
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// bindSet resolves the set for a map variant and checks its widths.
func (e *Expr) bindSet(a *Attrs, resolver SetResolver) error {
	name := *a.SetName
	if resolver == nil {
		return fmt.Errorf("%w: no resolver for set %q", nfterrors.ErrSetResolutionFailed, name)
	}
	if name == "" || len(name) > maxSetNameLen {
		return fmt.Errorf("%w: set name length %d", nfterrors.ErrSetResolutionFailed, len(name))
	}

	s, err := resolver.AcquireSet(name, valueOr(a.SetID, 0))
	if err != nil {
		return fmt.Errorf("%w: %q: %w", nfterrors.ErrSetResolutionFailed, name, err)
	}
	if s.KeyLen() != keyLen || s.ValueLen() <= 0 || s.ValueLen() > MaxDataLen {
		resolver.ReleaseSet(s)
		return fmt.Errorf("%w: set %q has key width %d and value width %d",
			nfterrors.ErrSetResolutionFailed, name, s.KeyLen(), s.ValueLen())
	}
	if err := ValidateStore(e.dreg, s.ValueLen()); err != nil {
		resolver.ReleaseSet(s)
		return fmt.Errorf("destination: %w", err)
	}

	e.lookup = &mapLookup{set: s, valueLen: s.ValueLen()}
	e.resolver = resolver
	return nil
}

// Key computes the range-reduced, offset hash for one packet without
// touching the destination register. For map variants this is the lookup key.
func (e *Expr) Key(regs Registers, pkt Packet) uint32 {
	return intbits.ReciprocalScale(e.strategy.hash(regs, pkt), e.modulus) + e.offset
}

// Eval runs the expression for one packet.
//
// Plain variants store the 32-bit result in the destination register. Map
// variants look the result up and, on a hit, copy the set's value into the
// destination; on a miss the destination keeps its previous contents.
// Content variants read regs and ignore pkt; symmetric variants need pkt.
func (e *Expr) Eval(regs Registers, pkt Packet) {
	key := e.Key(regs, pkt)
	if e.lookup != nil {
		e.lookup.eval(regs, e.dreg, key)
		return
	}
	if rs, ok := regs.(*RegisterSet); ok {
		rs.SetUint32(e.dreg, key)
		return
	}
	var buf [reg32Size]byte
	binary.LittleEndian.PutUint32(buf[:], key)
	regs.Store(e.dreg, buf[:])
}

// Type returns the hash strategy.
func (e *Expr) Type() HashType {
	return e.strategy.hashType()
}

// IsMap reports whether the result is looked up in a set.
func (e *Expr) IsMap() bool {
	return e.lookup != nil
}

// Dest returns the destination slot.
func (e *Expr) Dest() Slot {
	return e.dreg
}

// Dump exports the expression's attributes. Seeds are exported only when
// they were supplied, and Offset only when non-zero.
func (e *Expr) Dump() Attrs {
	a := Attrs{
		DReg:    Ptr(e.dreg.Register()),
		Modulus: Ptr(e.modulus),
		Type:    Ptr(e.strategy.hashType()),
	}
	if cs, ok := e.strategy.(*contentStrategy); ok {
		a.SReg = Ptr(cs.sreg.Register())
		a.Len = Ptr(uint32(cs.length))
		if !e.autogenSeed {
			a.Seed = Ptr(cs.seed)
		}
		if cs.fn != FuncJenkins {
			a.Func = Ptr(cs.fn)
		}
	}
	if e.offset != 0 {
		a.Offset = Ptr(e.offset)
	}
	if e.lookup != nil {
		a.SetName = Ptr(e.lookup.set.Name())
	}
	return a
}

// Destroy releases the set held by a map variant. It is idempotent.
func (e *Expr) Destroy() {
	if e.destroyed.Swap(true) {
		return
	}
	if e.lookup != nil {
		e.resolver.ReleaseSet(e.lookup.set)
		e.logger.Debug("hash expression destroyed",
			zap.Stringer("variant", e.variant),
			zap.String("set", e.lookup.set.Name()))
	}
}
