// Package security provides the cryptographic utilities shared by the
// binlog engine:
//   - Cryptographically secure random bytes
//   - PBKDF2-HMAC-SHA256 key derivation
//   - Key verification hashes and constant-time comparison
//   - Secure memory wiping for key material
package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// Cryptographic errors
var (
	ErrInsufficientEntropy = errors.New("security: insufficient entropy")
	ErrInvalidKeySize      = errors.New("security: invalid key size")
)

// MinKeySize is the minimum allowed key size in bytes.
const MinKeySize = 16 // 128 bits

// RecommendedKeySize is the recommended key size in bytes.
const RecommendedKeySize = 32 // 256 bits

// SecureRandom fills the given slice with cryptographically secure random bytes.
func SecureRandom(data []byte) error {
	n, err := rand.Read(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInsufficientEntropy, err)
	}
	if n != len(data) {
		return fmt.Errorf("%w: only got %d of %d bytes", ErrInsufficientEntropy, n, len(data))
	}
	return nil
}

// RandomBytes returns a freshly allocated slice of secure random bytes.
func RandomBytes(size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: negative size", ErrInvalidKeySize)
	}
	b := make([]byte, size)
	if err := SecureRandom(b); err != nil {
		return nil, err
	}
	return b, nil
}

// DerivePBKDF2 derives a key from a password and salt using
// PBKDF2-HMAC-SHA256 with the given iteration count.
func DerivePBKDF2(password, salt []byte, iterations, keySize int) []byte {
	return pbkdf2.Key(password, salt, iterations, keySize, sha256.New)
}

// HMACSHA256 computes HMAC-SHA256 of the message under the given key.
func HMACSHA256(key, message []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(message)
	return h.Sum(nil)
}

// SecureCompare performs a constant-time comparison of two byte slices.
// Returns true if they are equal.
func SecureCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
