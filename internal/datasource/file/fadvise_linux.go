//go:build linux

package file

import (
	"os"

	"golang.org/x/sys/unix"
)

// adviseSequential is a best-effort kernel hint for large sequential scans.
func adviseSequential(f *os.File, off, length int64) {
	_ = unix.Fadvise(int(f.Fd()), off, length, unix.FADV_SEQUENTIAL)
	_ = unix.Fadvise(int(f.Fd()), off, length, unix.FADV_WILLNEED)
}
