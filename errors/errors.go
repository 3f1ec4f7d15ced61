// Package errors defines all exported error sentinels for the nfthash module.
//
// This is the single source of truth for error values. The root nfthash
// package, the set package and the hashctl tool all wrap these sentinels,
// so errors.Is checks work across package boundaries.
package errors

import "errors"

// Construction errors. Every rejected expression maps to exactly one of these.
var (
	ErrMissingField         = errors.New("nfthash: required attribute missing")
	ErrLengthOutOfRange     = errors.New("nfthash: hash length out of range [1, 255]")
	ErrRegisterRangeInvalid = errors.New("nfthash: register span out of range")
	ErrModulusInvalid       = errors.New("nfthash: modulus must be at least 1")
	ErrRangeOverflow        = errors.New("nfthash: offset + modulus - 1 overflows 32 bits")
	ErrSetResolutionFailed  = errors.New("nfthash: set resolution failed")
	ErrUnsupportedVariant   = errors.New("nfthash: unsupported hash type")
)

// Codec errors
var (
	ErrInvalidAttrs = errors.New("nfthash: malformed attribute encoding")
)

// Set errors
var (
	ErrSetNotFound    = errors.New("nfthash: set not found")
	ErrSetExists      = errors.New("nfthash: set already registered")
	ErrSetInUse       = errors.New("nfthash: set is bound to an expression")
	ErrSetClosed      = errors.New("nfthash: set is closed")
	ErrKeyWidth       = errors.New("nfthash: key width does not match set")
	ErrValueWidth     = errors.New("nfthash: value width does not match set")
	ErrInvalidWidth   = errors.New("nfthash: invalid set key or value width")
	ErrDuplicateKey   = errors.New("nfthash: duplicate key detected")
	ErrInvalidSetName = errors.New("nfthash: invalid set name")
)

// Set file errors
var (
	ErrInvalidMagic   = errors.New("nfthash: invalid magic number")
	ErrInvalidVersion = errors.New("nfthash: unsupported version")
	ErrChecksumFailed = errors.New("nfthash: file checksum verification failed")
	ErrTruncatedFile  = errors.New("nfthash: set file is truncated")
	ErrCorruptedSet   = errors.New("nfthash: set file is corrupted")
)
