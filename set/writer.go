package set

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"

	nfterrors "github.com/tamirms/nfthash/errors"
)

// Snapshot describes the contents of a set file.
type Snapshot struct {
	Name     string
	ID       uint32
	KeyLen   int
	ValueLen int
	Entries  []Entry
}

// SnapshotOf captures the current generation of m.
func SnapshotOf(m *Map) Snapshot {
	return Snapshot{
		Name:     m.Name(),
		ID:       m.ID(),
		KeyLen:   m.KeyLen(),
		ValueLen: m.ValueLen(),
		Entries:  m.Entries(),
	}
}

// sortedEntries validates s and returns its entries in key order.
func (s *Snapshot) sortedEntries() ([]Entry, error) {
	if err := checkShape(s.Name, s.KeyLen, s.ValueLen); err != nil {
		return nil, err
	}
	entries := slices.Clone(s.Entries)
	for _, e := range entries {
		if err := checkEntry(e.Key, e.Value, s.KeyLen, s.ValueLen); err != nil {
			return nil, err
		}
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		return bytes.Compare(a.Key, b.Key)
	})
	for i := 1; i < len(entries); i++ {
		if bytes.Equal(entries[i-1].Key, entries[i].Key) {
			return nil, fmt.Errorf("%w: %x", nfterrors.ErrDuplicateKey, entries[i].Key)
		}
	}
	return entries, nil
}

func (s *Snapshot) size() uint64 {
	return fileSize(len(s.Name), uint64(len(s.Entries)), s.KeyLen+s.ValueLen)
}

// encodeInto writes the snapshot into buf, which must be exactly s.size() bytes.
func (s *Snapshot) encodeInto(buf []byte, entries []Entry) {
	hdr := header{
		Magic:    magic,
		Version:  version,
		KeyLen:   uint16(s.KeyLen),
		ValueLen: uint16(s.ValueLen),
		Count:    uint64(len(entries)),
		SetID:    s.ID,
		NameLen:  uint8(len(s.Name)),
	}
	hdr.encodeTo(buf[:headerSize])

	off := headerSize
	off += copy(buf[off:], s.Name)

	regionStart := off
	for _, e := range entries {
		off += copy(buf[off:], e.Key)
		off += copy(buf[off:], e.Value)
	}

	ftr := footer{
		EntryRegionHash: xxhash.Sum64(buf[regionStart:off]),
		NameHash:        xxhash.Sum64String(s.Name),
	}
	ftr.encodeTo(buf[off : off+footerSize])
}

// Marshal encodes the snapshot in file format.
func (s Snapshot) Marshal() ([]byte, error) {
	entries, err := s.sortedEntries()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, s.size())
	s.encodeInto(buf, entries)
	return buf, nil
}

// reserveFile is swapped out by tests to force allocation failures.
var reserveFile = reserve

// WriteFile writes the snapshot to path through a writable mapping. The
// data goes to a temporary file in the same directory that is sized and
// reserved up front, then renamed over path. On failure path is untouched
// and the temporary file is removed.
func WriteFile(path string, s Snapshot) (err error) {
	entries, err := s.sortedEntries()
	if err != nil {
		return err
	}
	size := s.size()

	file, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create set file: %w", err)
	}
	tmp := file.Name()
	defer func() {
		if err != nil {
			err = errors.Join(err, os.Remove(tmp))
		}
	}()

	if err := file.Chmod(0o644); err != nil {
		return errors.Join(fmt.Errorf("failed to chmod set file: %w", err), file.Close())
	}
	if err := reserveFile(file, int64(size)); err != nil {
		primaryErr := fmt.Errorf("failed to allocate disk space: %w", err)
		return errors.Join(primaryErr, file.Close())
	}

	mm, err := mmap.MapRegion(file, int(size), mmap.RDWR, 0, 0)
	if err != nil {
		primaryErr := fmt.Errorf("failed to mmap file: %w", err)
		return errors.Join(primaryErr, file.Close())
	}

	prefault(mm)
	s.encodeInto(mm, entries)

	if err := mm.Flush(); err != nil {
		primaryErr := fmt.Errorf("failed to flush set file: %w", err)
		return errors.Join(primaryErr, mm.Unmap(), file.Close())
	}
	if err := mm.Unmap(); err != nil {
		return errors.Join(fmt.Errorf("failed to unmap set file: %w", err), file.Close())
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close set file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to rename set file: %w", err)
	}
	return nil
}
