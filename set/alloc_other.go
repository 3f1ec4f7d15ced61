//go:build !linux && !darwin

package set

import "os"

// reserve sizes a new snapshot file. Blocks may be allocated lazily here.
func reserve(file *os.File, size int64) error {
	return file.Truncate(size)
}

func prefault([]byte) {}

func adviseRandom(*os.File, int64) {}
