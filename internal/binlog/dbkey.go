package binlog

// DBKey is the password material for binlog encryption. A password key is
// stretched with the slow KDF iteration count; a raw key is
// caller-declared high-entropy bytes and uses the fast count.
type DBKey struct {
	data []byte
	raw  bool
}

// EmptyKey returns a key that disables encryption.
func EmptyKey() DBKey {
	return DBKey{}
}

// PasswordKey wraps a user password.
func PasswordKey(password string) DBKey {
	return DBKey{data: []byte(password)}
}

// RawKey wraps caller-provided key bytes that need no stretching.
func RawKey(key []byte) DBKey {
	data := make([]byte, len(key))
	copy(data, key)
	return DBKey{data: data, raw: true}
}

// IsEmpty reports whether the key carries no material.
func (k DBKey) IsEmpty() bool {
	return len(k.data) == 0
}

// IsRaw reports whether the key is raw bytes rather than a password.
func (k DBKey) IsRaw() bool {
	return k.raw
}

func (k DBKey) bytes() []byte {
	return k.data
}
