// Package set provides associative sets for map-variant hash expressions.
//
// Map is an in-memory set whose readers never block: lookups run against an
// immutable generation while writers stage the next one. File is a read-only
// snapshot memory-mapped from disk. Registry resolves sets by name or ID and
// tracks how many expressions are bound to each.
package set

import (
	"fmt"

	nfterrors "github.com/tamirms/nfthash/errors"
)

// Entry is one key/value pair.
type Entry struct {
	Key   []byte
	Value []byte
}

func checkShape(name string, keyLen, valueLen int) error {
	if name == "" || len(name) > maxNameLen {
		return fmt.Errorf("%w: %q", nfterrors.ErrInvalidSetName, name)
	}
	if keyLen <= 0 || keyLen > maxWidth || valueLen <= 0 || valueLen > maxWidth {
		return fmt.Errorf("%w: key %d, value %d", nfterrors.ErrInvalidWidth, keyLen, valueLen)
	}
	return nil
}

func checkEntry(key, value []byte, keyLen, valueLen int) error {
	if len(key) != keyLen {
		return fmt.Errorf("%w: got %d bytes, want %d", nfterrors.ErrKeyWidth, len(key), keyLen)
	}
	if len(value) != valueLen {
		return fmt.Errorf("%w: got %d bytes, want %d", nfterrors.ErrValueWidth, len(value), valueLen)
	}
	return nil
}
