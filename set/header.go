package set

import (
	"encoding/binary"

	nfterrors "github.com/tamirms/nfthash/errors"
)

const (
	// magic number for set snapshot files
	// "NFHS" in little-endian
	magic = uint32(0x5348464E)

	// version is the current format version
	version = uint16(0x0001)

	// headerSize is the exact size of the serialized header (64 bytes)
	headerSize = 64

	// footerSize is the exact size of the serialized footer (32 bytes)
	footerSize = 32

	// maxWidth bounds both key and value widths.
	maxWidth = 64

	// maxNameLen bounds set names.
	maxNameLen = 255
)

// header is the 64-byte file header.
//
// Layout:
//
//	Offset  Size  Field     Type
//	0       4     Magic     0x5348464E ("NFHS")
//	4       2     Version   0x0001
//	6       2     KeyLen    uint16_le
//	8       2     ValueLen  uint16_le
//	10      8     Count     uint64_le (number of entries)
//	18      4     SetID     uint32_le
//	22      1     NameLen   uint8
//	23      41    Reserved  [41]byte (zero)
//
// The name follows the header, then Count sorted entries of
// KeyLen+ValueLen bytes each, then the footer.
type header struct {
	Magic    uint32
	Version  uint16
	KeyLen   uint16
	ValueLen uint16
	Count    uint64
	SetID    uint32
	NameLen  uint8
	Reserved [41]byte
}

// encodeTo serializes the header to an existing buffer.
func (h *header) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	binary.LittleEndian.PutUint16(buf[6:8], h.KeyLen)
	binary.LittleEndian.PutUint16(buf[8:10], h.ValueLen)
	binary.LittleEndian.PutUint64(buf[10:18], h.Count)
	binary.LittleEndian.PutUint32(buf[18:22], h.SetID)
	buf[22] = h.NameLen
	copy(buf[23:64], h.Reserved[:])
}

// decodeHeader parses a 64-byte header.
func decodeHeader(buf []byte) (*header, error) {
	if len(buf) < headerSize {
		return nil, nfterrors.ErrTruncatedFile
	}

	h := &header{
		Magic:    binary.LittleEndian.Uint32(buf[0:4]),
		Version:  binary.LittleEndian.Uint16(buf[4:6]),
		KeyLen:   binary.LittleEndian.Uint16(buf[6:8]),
		ValueLen: binary.LittleEndian.Uint16(buf[8:10]),
		Count:    binary.LittleEndian.Uint64(buf[10:18]),
		SetID:    binary.LittleEndian.Uint32(buf[18:22]),
		NameLen:  buf[22],
	}
	copy(h.Reserved[:], buf[23:64])

	if h.Magic != magic {
		return nil, nfterrors.ErrInvalidMagic
	}
	if h.Version != version {
		return nil, nfterrors.ErrInvalidVersion
	}
	if h.KeyLen == 0 || h.KeyLen > maxWidth || h.ValueLen == 0 || h.ValueLen > maxWidth {
		return nil, nfterrors.ErrCorruptedSet
	}
	if h.NameLen == 0 {
		return nil, nfterrors.ErrCorruptedSet
	}

	return h, nil
}

// entrySize returns bytes stored per entry (key + value).
func (h *header) entrySize() int {
	return int(h.KeyLen) + int(h.ValueLen)
}

// footer is the 32-byte file footer.
//
// Layout:
//
//	Offset  Size  Field            Type
//	0       8     EntryRegionHash  uint64_le (xxHash64 of the entry region)
//	8       8     NameHash         uint64_le (xxHash64 of the name)
//	16      16    Reserved         [16]byte (zero)
type footer struct {
	EntryRegionHash uint64
	NameHash        uint64
	Reserved        [16]byte
}

// encodeTo serializes the footer into an existing buffer.
func (f *footer) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], f.EntryRegionHash)
	binary.LittleEndian.PutUint64(buf[8:16], f.NameHash)
	copy(buf[16:32], f.Reserved[:])
}

// decodeFooter parses a 32-byte footer.
func decodeFooter(buf []byte) (*footer, error) {
	if len(buf) < footerSize {
		return nil, nfterrors.ErrTruncatedFile
	}

	f := &footer{
		EntryRegionHash: binary.LittleEndian.Uint64(buf[0:8]),
		NameHash:        binary.LittleEndian.Uint64(buf[8:16]),
	}
	copy(f.Reserved[:], buf[16:32])

	return f, nil
}

// fileSize returns the exact encoded size for the given shape.
func fileSize(nameLen int, count uint64, entrySize int) uint64 {
	return uint64(headerSize) + uint64(nameLen) + count*uint64(entrySize) + uint64(footerSize)
}
