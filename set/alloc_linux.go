//go:build linux

package set

import (
	"os"

	"golang.org/x/sys/unix"
)

// madvPopulateWrite is MADV_POPULATE_WRITE (Linux 5.14+).
const madvPopulateWrite = 23

// reserve sizes a new snapshot file and reserves its blocks so that writes
// through the mapping cannot SIGBUS on a full disk.
func reserve(file *os.File, size int64) error {
	fd := int(file.Fd())
	if err := unix.Fallocate(fd, 0, 0, size); err != nil {
		// Filesystems without fallocate (NFS, some FUSE) still get the size.
		return unix.Ftruncate(fd, size)
	}
	return unix.Ftruncate(fd, size)
}

// prefault populates the pages of a writable mapping ahead of the copy.
// Older kernels reject the advice with EINVAL; that is ignored.
func prefault(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = unix.Madvise(data, madvPopulateWrite)
}

// adviseRandom turns off readahead for a snapshot about to be mapped;
// lookups binary-search the entry region. Errors are ignored.
func adviseRandom(file *os.File, size int64) {
	_ = unix.Fadvise(int(file.Fd()), 0, size, unix.FADV_RANDOM)
}
