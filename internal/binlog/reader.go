package binlog

import (
	"encoding/binary"
	"fmt"

	"binlogd/internal/byteflow"
)

type readerState int

const (
	readLength readerState = iota
	readEvent
)

// Reader is a pull parser over a chain buffer. It alternates between
// reading a 4-byte length and reading the full record, and never consumes
// a partial record.
type Reader struct {
	input  *byteflow.ChainBufferReader
	state  readerState
	size   uint32
	offset int64
}

// NewReader creates a reader pulling from input.
func NewReader(input *byteflow.ChainBufferReader) *Reader {
	return &Reader{input: input}
}

// SetInput redirects the reader to a different buffer, preserving parser
// state. Used when the load pipeline is rewired for decryption.
func (r *Reader) SetInput(input *byteflow.ChainBufferReader) {
	r.input = input
}

// Offset returns the byte offset just past the last record produced.
func (r *Reader) Offset() int64 {
	return r.offset
}

// ReadNext tries to parse the next record into ev. It returns 0 when an
// event was produced, or the number of bytes required to make progress
// when the buffer holds too few.
func (r *Reader) ReadNext(ev *Event) (int, error) {
	if r.state == readLength {
		var lenBuf [4]byte
		if r.input.Peek(lenBuf[:]) < 4 {
			return 4, nil
		}
		r.size = binary.LittleEndian.Uint32(lenBuf[:])
		if r.size > MaxEventSize {
			return 0, fmt.Errorf("%w: %d bytes", ErrTooBig, r.size)
		}
		if r.size < MinEventSize {
			return 0, fmt.Errorf("%w: %d bytes", ErrTooSmall, r.size)
		}
		r.state = readEvent
	}

	if r.input.Size() < int64(r.size) {
		return int(r.size), nil
	}

	raw := r.input.CutHead(int(r.size))
	decoded, err := DecodeEvent(raw)
	if err != nil {
		return 0, err
	}
	r.offset += int64(r.size)
	*ev = *decoded
	ev.Offset = r.offset
	r.state = readLength
	return 0, nil
}
