//go:build unix
// +build unix

package fileio

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// lockExclusive acquires a non-blocking exclusive flock on the file.
func lockExclusive(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
}

// isWouldBlock reports whether the lock failed because another process
// holds it.
func isWouldBlock(err error) bool {
	return errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EAGAIN)
}
