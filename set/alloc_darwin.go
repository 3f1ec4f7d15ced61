//go:build darwin

package set

import (
	"os"

	"golang.org/x/sys/unix"
)

// reserve sizes a new snapshot file, preallocating with F_PREALLOCATE when
// the filesystem supports it.
func reserve(file *os.File, size int64) error {
	fst := unix.Fstore_t{
		Flags:   unix.F_ALLOCATEALL,
		Posmode: unix.F_PEOFPOSMODE,
		Length:  size,
	}
	// F_PREALLOCATE only reserves space; the size is set below either way.
	_ = unix.FcntlFstore(file.Fd(), unix.F_PREALLOCATE, &fst)
	return unix.Ftruncate(int(file.Fd()), size)
}

func prefault([]byte) {}

// adviseRandom turns off readahead for a snapshot about to be mapped.
func adviseRandom(file *os.File, _ int64) {
	_, _ = unix.FcntlInt(file.Fd(), unix.F_RDAHEAD, 0)
}
