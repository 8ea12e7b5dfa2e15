package binlog

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_EncodeDecode(t *testing.T) {
	tests := []struct {
		name    string
		id      uint64
		typ     int32
		flags   uint32
		payload []byte
	}{
		{name: "empty payload", id: 1, typ: 7},
		{name: "aligned payload", id: 2, typ: 7, payload: []byte("abcd")},
		{name: "rewrite flag", id: 3, typ: 7, flags: FlagRewrite, payload: []byte("12345678")},
		{name: "service type", id: 0, typ: TypeAesCtrEncryption, payload: bytes.Repeat([]byte{0xAB}, 64)},
		{name: "large payload", id: 1 << 40, typ: 1000, payload: bytes.Repeat([]byte("wxyz"), 1024)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := NewEvent(tt.id, tt.typ, tt.flags, tt.payload)
			require.Equal(t, int64(len(ev.Raw)), ev.Size())
			require.Zero(t, len(ev.Raw)%4)

			decoded, err := DecodeEvent(ev.Raw)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded.ID)
			assert.Equal(t, tt.typ, decoded.Type)
			assert.Equal(t, tt.flags, decoded.Flags)
			assert.Equal(t, uint64(0), decoded.Extra)
			assert.Equal(t, ev.Payload, decoded.Payload)
		})
	}
}

func TestEvent_PayloadPadding(t *testing.T) {
	// unaligned payloads are zero-padded to keep the frame a multiple of 4
	ev := NewEvent(1, 7, 0, []byte("a"))
	require.Equal(t, int64(MinEventSize+4), ev.Size())
	assert.Equal(t, []byte{'a', 0, 0, 0}, ev.Payload)

	decoded, err := DecodeEvent(ev.Raw)
	require.NoError(t, err)
	assert.Equal(t, []byte{'a', 0, 0, 0}, decoded.Payload)
}

func TestEvent_MinSize(t *testing.T) {
	ev := NewEvent(1, 7, 0, nil)
	require.Equal(t, int64(MinEventSize), ev.Size())

	decoded, err := DecodeEvent(ev.Raw)
	require.NoError(t, err)
	assert.Empty(t, decoded.Payload)
}

func TestEvent_DecodeErrors(t *testing.T) {
	valid := NewEvent(1, 7, 0, []byte("abcd")).Raw

	t.Run("too small", func(t *testing.T) {
		_, err := DecodeEvent(valid[:16])
		assert.ErrorIs(t, err, ErrTooSmall)
	})

	t.Run("size mismatch", func(t *testing.T) {
		raw := append([]byte(nil), valid...)
		binary.LittleEndian.PutUint32(raw[0:4], uint32(len(raw))+4)
		_, err := DecodeEvent(raw)
		assert.ErrorIs(t, err, ErrBadSize)
	})

	t.Run("crc mismatch", func(t *testing.T) {
		raw := append([]byte(nil), valid...)
		raw[len(raw)-1] ^= 0xFF
		_, err := DecodeEvent(raw)
		assert.ErrorIs(t, err, ErrBadCrc)
	})

	t.Run("payload corruption", func(t *testing.T) {
		raw := append([]byte(nil), valid...)
		raw[headerSize] ^= 0x01
		_, err := DecodeEvent(raw)
		assert.ErrorIs(t, err, ErrBadCrc)
	})
}
