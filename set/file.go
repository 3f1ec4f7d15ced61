package set

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"

	nfterrors "github.com/tamirms/nfthash/errors"
)

// minFileSize is the size of a snapshot with a one-byte name and no entries.
const minFileSize = headerSize + 1 + footerSize

// File is a read-only set snapshot backed by a file.
//
// Thread Safety:
//   - Lookup and the accessors are safe for concurrent use
//   - Close must only be called after all lookups have completed; lookups
//     after Close report a miss
type File struct {
	mmap mmap.MMap // nil for OpenBytes
	data []byte

	header  *header
	name    string
	entries []byte // sorted entry region

	closed atomic.Bool
}

// Open opens a set snapshot file.
// It opens the file, memory-maps it, and closes the file descriptor.
func Open(path string) (*File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open set file: %w", err)
	}
	defer file.Close()
	return OpenFile(file)
}

// OpenFile opens a set snapshot by memory-mapping f.
// The caller is responsible for closing f; it may do so as soon as
// OpenFile returns.
func OpenFile(f *os.File) (*File, error) {
	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat set file: %w", err)
	}
	if stat.Size() < int64(minFileSize) {
		return nil, nfterrors.ErrTruncatedFile
	}
	adviseRandom(f, stat.Size())

	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("mmap set file: %w", err)
	}

	sf := &File{
		mmap: mm,
		data: []byte(mm),
	}
	if err := sf.initFromData(); err != nil {
		return nil, errors.Join(err, sf.Close())
	}
	return sf, nil
}

// OpenBytes reads a set snapshot from memory. Close is a no-op.
// The caller must not modify data while the File is in use.
func OpenBytes(data []byte) (*File, error) {
	if len(data) < minFileSize {
		return nil, nfterrors.ErrTruncatedFile
	}
	sf := &File{data: data}
	if err := sf.initFromData(); err != nil {
		return nil, err
	}
	return sf, nil
}

// initFromData parses the header and locates the name and entry regions.
// Checksums are left to Verify.
func (sf *File) initFromData() error {
	hdr, err := decodeHeader(sf.data[:headerSize])
	if err != nil {
		return err
	}
	sf.header = hdr

	size := uint64(len(sf.data))
	entrySize := hdr.entrySize()
	if hdr.Count > (size-minFileSize)/uint64(entrySize) {
		return nfterrors.ErrTruncatedFile
	}
	want := fileSize(int(hdr.NameLen), hdr.Count, entrySize)
	if size < want {
		return nfterrors.ErrTruncatedFile
	}
	if size > want {
		return fmt.Errorf("%w: %d trailing bytes", nfterrors.ErrCorruptedSet, size-want)
	}

	nameEnd := uint64(headerSize) + uint64(hdr.NameLen)
	sf.name = string(sf.data[headerSize:nameEnd])
	sf.entries = sf.data[nameEnd : nameEnd+hdr.Count*uint64(entrySize)]
	return nil
}

// Close unmaps the file.
func (sf *File) Close() error {
	if sf.closed.Swap(true) {
		return nil
	}
	if sf.mmap != nil {
		return sf.mmap.Unmap()
	}
	return nil
}

// Name returns the set name stored in the file.
func (sf *File) Name() string { return sf.name }

// ID returns the set ID stored in the file.
func (sf *File) ID() uint32 { return sf.header.SetID }

// KeyLen returns the key width in bytes.
func (sf *File) KeyLen() int { return int(sf.header.KeyLen) }

// ValueLen returns the value width in bytes.
func (sf *File) ValueLen() int { return int(sf.header.ValueLen) }

// Len returns the number of entries.
func (sf *File) Len() int { return int(sf.header.Count) }

// Lookup binary-searches the sorted entry region for key.
// The returned value aliases the mapping and is valid until Close.
func (sf *File) Lookup(key []byte) ([]byte, bool) {
	if sf.closed.Load() || len(key) != int(sf.header.KeyLen) {
		return nil, false
	}
	keyLen := int(sf.header.KeyLen)
	entrySize := sf.header.entrySize()

	lo, hi := 0, int(sf.header.Count)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		off := mid * entrySize
		switch c := bytes.Compare(sf.entries[off:off+keyLen], key); {
		case c < 0:
			lo = mid + 1
		case c > 0:
			hi = mid
		default:
			return sf.entries[off+keyLen : off+entrySize], true
		}
	}
	return nil, false
}

// Entries returns copies of all entries in key order.
func (sf *File) Entries() []Entry {
	keyLen := int(sf.header.KeyLen)
	entrySize := sf.header.entrySize()
	out := make([]Entry, sf.header.Count)
	for i := range out {
		e := sf.entries[i*entrySize : (i+1)*entrySize]
		out[i] = Entry{
			Key:   bytes.Clone(e[:keyLen]),
			Value: bytes.Clone(e[keyLen:]),
		}
	}
	return out
}

// Verify checks the footer checksums and that keys are strictly increasing.
func (sf *File) Verify() error {
	if sf.closed.Load() {
		return nfterrors.ErrSetClosed
	}
	ftr, err := decodeFooter(sf.data[len(sf.data)-footerSize:])
	if err != nil {
		return err
	}
	if xxhash.Sum64(sf.entries) != ftr.EntryRegionHash {
		return fmt.Errorf("%w: entry region", nfterrors.ErrChecksumFailed)
	}
	if xxhash.Sum64String(sf.name) != ftr.NameHash {
		return fmt.Errorf("%w: name", nfterrors.ErrChecksumFailed)
	}

	keyLen := int(sf.header.KeyLen)
	entrySize := sf.header.entrySize()
	for i := 1; i < int(sf.header.Count); i++ {
		prev := sf.entries[(i-1)*entrySize : (i-1)*entrySize+keyLen]
		cur := sf.entries[i*entrySize : i*entrySize+keyLen]
		if bytes.Compare(prev, cur) >= 0 {
			return fmt.Errorf("%w: entry %d out of order", nfterrors.ErrCorruptedSet, i)
		}
	}
	return nil
}
