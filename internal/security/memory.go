package security

import "runtime"

// Wipe overwrites the slice with zeros so key material does not linger in
// memory after use. The KeepAlive prevents the compiler from eliding the
// writes on a slice that is about to become unreachable.
func Wipe(data []byte) {
	for i := range data {
		data[i] = 0
	}
	runtime.KeepAlive(data)
}
