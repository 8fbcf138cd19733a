package fsutil

import (
	"os"

	"golang.org/x/sys/unix"
)

// fsync on macOS only flushes to the drive's cache; F_FULLFSYNC asks the
// drive to flush it too.
func fdatasync(f *os.File) error {
	_, err := unix.FcntlInt(f.Fd(), unix.F_FULLFSYNC, 0)
	if err != nil {
		return f.Sync()
	}
	return nil
}
