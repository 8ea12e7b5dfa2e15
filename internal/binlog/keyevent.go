package binlog

import (
	"encoding/binary"
	"fmt"

	"binlogd/internal/security"
)

// Encryption bootstrap parameters.
const (
	minSaltSize     = 16
	defaultSaltSize = 32
	keySize         = 32
	ivSize          = 16
	hashSize        = 32

	kdfIterationCount     = 60002
	kdfFastIterationCount = 2
)

// keyHashMessage is the fixed message whose HMAC under the derived key is
// stored in the bootstrap record for password verification.
var keyHashMessage = []byte("cucumbers everywhere")

// keyEvent is the payload of a TypeAesCtrEncryption service record: the
// salt the key was derived with, the CTR IV, and an HMAC for detecting a
// wrong password before any ciphertext is touched.
type keyEvent struct {
	keySalt []byte
	iv      []byte
	keyHash []byte
}

// serialize encodes the record payload: a zero flags word followed by the
// three length-prefixed byte strings.
func (k *keyEvent) serialize() []byte {
	out := make([]byte, 4, 4+len(k.keySalt)+len(k.iv)+len(k.keyHash)+12)
	binary.LittleEndian.PutUint32(out[0:4], 0)
	out = AppendTLBytes(out, k.keySalt)
	out = AppendTLBytes(out, k.iv)
	out = AppendTLBytes(out, k.keyHash)
	return out
}

// parseKeyEvent decodes a TypeAesCtrEncryption payload.
func parseKeyEvent(data []byte) (*keyEvent, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("binlog: truncated key event")
	}
	data = data[4:] // flags word, always zero

	var k keyEvent
	var err error
	if k.keySalt, data, err = ReadTLBytes(data); err != nil {
		return nil, fmt.Errorf("binlog: key event salt: %w", err)
	}
	if k.iv, data, err = ReadTLBytes(data); err != nil {
		return nil, fmt.Errorf("binlog: key event iv: %w", err)
	}
	if k.keyHash, _, err = ReadTLBytes(data); err != nil {
		return nil, fmt.Errorf("binlog: key event hash: %w", err)
	}
	if len(k.keySalt) < minSaltSize {
		return nil, fmt.Errorf("binlog: key event salt too short: %d bytes", len(k.keySalt))
	}
	if len(k.iv) != ivSize {
		return nil, fmt.Errorf("binlog: key event iv must be %d bytes, got %d", ivSize, len(k.iv))
	}
	if len(k.keyHash) != hashSize {
		return nil, fmt.Errorf("binlog: key event hash must be %d bytes, got %d", hashSize, len(k.keyHash))
	}
	return &k, nil
}

// generateKey stretches the db key with the record's salt. Raw keys use
// the fast iteration count; passwords get the full stretch.
func (k *keyEvent) generateKey(dbKey DBKey) []byte {
	iterations := kdfIterationCount
	if dbKey.IsRaw() {
		iterations = kdfFastIterationCount
	}
	return security.DerivePBKDF2(dbKey.bytes(), k.keySalt, iterations, keySize)
}

// generateKeyHash computes the verification hash for a candidate key.
func generateKeyHash(key []byte) []byte {
	return security.HMACSHA256(key, keyHashMessage)
}

// verifyKey checks a candidate key against the stored hash in constant
// time.
func (k *keyEvent) verifyKey(key []byte) bool {
	return security.SecureCompare(generateKeyHash(key), k.keyHash)
}
