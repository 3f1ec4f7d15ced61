package nfthash

import (
	"encoding/binary"
	"fmt"

	nfterrors "github.com/tamirms/nfthash/errors"
)

// Register identifies a register by its wire number.
//
// Numbering follows netfilter: 0 is the verdict register, 1..4 are the
// 16-byte data registers and 8..23 are the 4-byte registers that alias
// the same storage (see Reg32).
type Register uint32

const (
	RegVerdict Register = 0
	Reg1       Register = 1
	Reg2       Register = 2
	Reg3       Register = 3
	Reg4       Register = 4

	reg32Base Register = 8
)

const (
	regSize   = 16 // bytes per wide register
	reg32Size = 4  // bytes per narrow register

	// wordsPerReg is the number of 32-bit words in a wide register.
	wordsPerReg = regSize / reg32Size

	// registerFileSize covers the verdict area plus four data registers.
	registerFileSize = 5 * regSize

	// MaxDataLen is the widest value that fits the data area of the register file.
	MaxDataLen = registerFileSize - regSize
)

// Reg32 returns the wire number of 4-byte register n (0..15).
func Reg32(n int) Register {
	return reg32Base + Register(n)
}

// Slot is a 32-bit word index into the register file. Slots 0..3 are the
// verdict area and never hold data.
type Slot uint8

// ParseRegister converts a wire register number into a slot.
// The result is not validated; use ValidateLoad or ValidateStore.
func ParseRegister(r Register) Slot {
	var idx uint64
	if r <= Reg4 {
		idx = uint64(r) * wordsPerReg
	} else {
		idx = uint64(r) + wordsPerReg - uint64(reg32Base)
	}
	if idx > 0xff {
		// Anything past the file fails validation; clamp so the cast cannot wrap.
		return 0xff
	}
	return Slot(idx)
}

// Register converts a slot back to a wire register number. Slots aligned to a
// wide register report the wide register.
func (s Slot) Register() Register {
	if s%wordsPerReg == 0 {
		return Register(s / wordsPerReg)
	}
	return Register(s) - wordsPerReg + reg32Base
}

func validateSpan(s Slot, n int) error {
	if s < wordsPerReg {
		return fmt.Errorf("%w: register %d is the verdict register", nfterrors.ErrRegisterRangeInvalid, s.Register())
	}
	if n <= 0 {
		return fmt.Errorf("%w: zero-length span", nfterrors.ErrRegisterRangeInvalid)
	}
	if int(s)*reg32Size+n > registerFileSize {
		return fmt.Errorf("%w: register %d cannot hold %d bytes", nfterrors.ErrRegisterRangeInvalid, s.Register(), n)
	}
	return nil
}

// ValidateLoad checks that n bytes can be read starting at s.
func ValidateLoad(s Slot, n int) error {
	return validateSpan(s, n)
}

// ValidateStore checks that n bytes can be written starting at s.
func ValidateStore(s Slot, n int) error {
	return validateSpan(s, n)
}

// Registers is the per-packet register file supplied by the host pipeline.
//
// Load returns n bytes at slot s; callers must not retain or modify the
// result past the current evaluation. Store copies src into the file
// starting at s and is the only way results are written.
// Both are called only with spans that passed validation at construction.
type Registers interface {
	Load(s Slot, n int) []byte
	Store(s Slot, src []byte)
}

// RegisterSet is a fixed-size register file laid out like the netfilter one.
// The zero value is ready to use. A RegisterSet must not be shared between
// concurrent evaluations.
type RegisterSet struct {
	data [registerFileSize]byte
}

// Load implements Registers.
func (rs *RegisterSet) Load(s Slot, n int) []byte {
	off := int(s) * reg32Size
	return rs.data[off : off+n]
}

// Store implements Registers. Widths that are not a multiple of four
// zero-fill the remainder of the last word.
func (rs *RegisterSet) Store(s Slot, src []byte) {
	off := int(s) * reg32Size
	n := copy(rs.data[off:], src)
	if rem := n % reg32Size; rem != 0 {
		clear(rs.data[off+n : off+n+reg32Size-rem])
	}
}

// Uint32 returns the 4-byte register at s.
func (rs *RegisterSet) Uint32(s Slot) uint32 {
	return binary.LittleEndian.Uint32(rs.Load(s, reg32Size))
}

// SetUint32 writes v into the 4-byte register at s.
func (rs *RegisterSet) SetUint32(s Slot, v uint32) {
	binary.LittleEndian.PutUint32(rs.data[int(s)*reg32Size:], v)
}

// Reset zeroes every register.
func (rs *RegisterSet) Reset() {
	clear(rs.data[:])
}
