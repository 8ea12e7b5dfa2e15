package byteflow

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// AES-CTR parameter sizes.
const (
	KeySize = 32
	IVSize  = 16
)

// AesCtrState is a streaming AES-256-CTR transform whose counter survives
// pipeline rebuilds: the engine extracts the state when it rewires from
// the load path to the write path so the on-disk keystream stays
// continuous across records.
//
// The keystream position is tracked explicitly (counter block + intra-block
// offset) because the stdlib cipher.Stream is opaque and cannot be resumed.
type AesCtrState struct {
	block   cipher.Block
	counter [IVSize]byte
	stream  [IVSize]byte // keystream block for counter-1
	pos     int          // consumed bytes of stream; IVSize means exhausted
}

// NewAesCtrState initializes a transform with a 32-byte key and a 16-byte
// IV (the initial counter block).
func NewAesCtrState(key, iv []byte) (*AesCtrState, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("byteflow: aes key must be %d bytes, got %d", KeySize, len(key))
	}
	if len(iv) != IVSize {
		return nil, fmt.Errorf("byteflow: aes iv must be %d bytes, got %d", IVSize, len(iv))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	s := &AesCtrState{block: block, pos: IVSize}
	copy(s.counter[:], iv)
	return s, nil
}

// XORKeyStream transforms src into dst. dst and src may be the same slice.
// CTR is an involution, so the same call encrypts and decrypts.
func (s *AesCtrState) XORKeyStream(dst, src []byte) {
	for i := range src {
		if s.pos == IVSize {
			s.block.Encrypt(s.stream[:], s.counter[:])
			s.incCounter()
			s.pos = 0
		}
		dst[i] = src[i] ^ s.stream[s.pos]
		s.pos++
	}
}

// incCounter advances the 128-bit big-endian counter by one.
func (s *AesCtrState) incCounter() {
	for i := IVSize - 1; i >= 0; i-- {
		s.counter[i]++
		if s.counter[i] != 0 {
			break
		}
	}
}
