package binlog

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTLBytes_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "short", data: []byte("hi")},
		{name: "exactly aligned", data: []byte("abc")},
		{name: "boundary 253", data: bytes.Repeat([]byte{0x7F}, 253)},
		{name: "boundary 254", data: bytes.Repeat([]byte{0x7F}, 254)},
		{name: "long", data: bytes.Repeat([]byte{0x01}, 100_000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := AppendTLBytes(nil, tt.data)
			require.Zero(t, len(out)%4, "serialized form must be 4-byte aligned")

			val, rest, err := ReadTLBytes(out)
			require.NoError(t, err)
			assert.Empty(t, rest)
			if len(tt.data) == 0 {
				assert.Empty(t, val)
			} else {
				assert.Equal(t, tt.data, val)
			}
		})
	}
}

func TestTLBytes_Sequence(t *testing.T) {
	out := AppendTLBytes(nil, []byte("key"))
	out = AppendTLBytes(out, []byte("value bytes"))

	first, rest, err := ReadTLBytes(out)
	require.NoError(t, err)
	assert.Equal(t, []byte("key"), first)

	second, rest, err := ReadTLBytes(rest)
	require.NoError(t, err)
	assert.Equal(t, []byte("value bytes"), second)
	assert.Empty(t, rest)
}

func TestTLBytes_Truncated(t *testing.T) {
	out := AppendTLBytes(nil, []byte("some payload"))

	_, _, err := ReadTLBytes(out[:2])
	assert.Error(t, err)

	_, _, err = ReadTLBytes(out[:len(out)-4])
	assert.Error(t, err)
}
