//go:build !unix
// +build !unix

package fileio

import "os"

// Advisory locking is a no-op on platforms without flock. Exclusion falls
// back to the engine's single-owner contract.
func lockExclusive(f *os.File) error {
	return nil
}

func isWouldBlock(err error) bool {
	return false
}
