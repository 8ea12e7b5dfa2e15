// Package binlog implements an append-only, optionally encrypted binary
// event log used as a durable write-ahead store. Clients append framed
// events; on reopen the engine replays the live event set in order to
// rebuild application state. Rewrite and Erase records collapse in memory,
// and the file is periodically compacted by replaying the live set into a
// fresh file that atomically replaces the old one.
package binlog

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// Framed record layout (little-endian):
//
//	offset  size  field
//	     0     4  size (total record bytes, header and crc included)
//	     4     8  id
//	    12     4  type
//	    16     4  flags
//	    20     8  extra (reserved, zero)
//	    28   ...  payload (zero-padded to 4-byte alignment)
//	  size-4   4  crc32 of bytes [0, size-4)
const (
	headerSize = 28
	crcSize    = 4

	// MinEventSize is the size of a record with an empty payload.
	MinEventSize = headerSize + crcSize

	// MaxEventSize bounds a single record.
	MaxEventSize = 1 << 24
)

// Event flags.
const (
	// FlagRewrite marks the event as replacing any prior event with the
	// same id. Combined with TypeEmpty it erases the id.
	FlagRewrite uint32 = 1 << 0

	// FlagPartial marks a non-committing fragment of a multi-record
	// logical operation; the batch applies atomically when the next
	// non-partial event arrives.
	FlagPartial uint32 = 1 << 1
)

// Service event types. Negative type values are reserved for the engine.
const (
	// TypeEmpty together with FlagRewrite erases an id.
	TypeEmpty int32 = -1

	// TypeAesCtrEncryption is the encryption bootstrap record.
	TypeAesCtrEncryption int32 = -2
)

// Event is a single framed record. Payload aliases Raw; both stay alive
// until the event is superseded or the engine closes.
type Event struct {
	ID    uint64
	Type  int32
	Flags uint32
	Extra uint64

	// Payload is the record body, including any alignment padding.
	Payload []byte

	// Offset is the byte offset just past this record, assigned by the
	// reader during load. Zero for events created in memory.
	Offset int64

	// Raw is the framed on-disk form, retained for re-emission during
	// reindex.
	Raw []byte
}

// NewEvent builds a framed event from its logical fields. The payload is
// zero-padded to keep the record size a multiple of 4.
func NewEvent(id uint64, typ int32, flags uint32, payload []byte) *Event {
	padded := len(payload)
	if rem := padded % 4; rem != 0 {
		padded += 4 - rem
	}
	size := headerSize + padded + crcSize
	raw := make([]byte, size)
	binary.LittleEndian.PutUint32(raw[0:4], uint32(size))
	binary.LittleEndian.PutUint64(raw[4:12], id)
	binary.LittleEndian.PutUint32(raw[12:16], uint32(typ))
	binary.LittleEndian.PutUint32(raw[16:20], flags)
	// extra stays zero
	copy(raw[headerSize:], payload)
	crc := crc32.ChecksumIEEE(raw[:size-crcSize])
	binary.LittleEndian.PutUint32(raw[size-crcSize:], crc)

	return &Event{
		ID:      id,
		Type:    typ,
		Flags:   flags,
		Payload: raw[headerSize : size-crcSize],
		Raw:     raw,
	}
}

// DecodeEvent parses and verifies a framed record. The returned event
// aliases raw.
func DecodeEvent(raw []byte) (*Event, error) {
	if len(raw) < MinEventSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooSmall, len(raw))
	}
	size := binary.LittleEndian.Uint32(raw[0:4])
	if int(size) != len(raw) {
		return nil, fmt.Errorf("%w: header says %d, frame is %d", ErrBadSize, size, len(raw))
	}
	if size > MaxEventSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooBig, size)
	}
	if size%4 != 0 {
		return nil, fmt.Errorf("%w: size %d", ErrBadAlignment, size)
	}
	wantCrc := binary.LittleEndian.Uint32(raw[size-crcSize:])
	gotCrc := crc32.ChecksumIEEE(raw[:size-crcSize])
	if wantCrc != gotCrc {
		return nil, fmt.Errorf("%w: want %08x, got %08x", ErrBadCrc, wantCrc, gotCrc)
	}

	return &Event{
		ID:      binary.LittleEndian.Uint64(raw[4:12]),
		Type:    int32(binary.LittleEndian.Uint32(raw[12:16])),
		Flags:   binary.LittleEndian.Uint32(raw[16:20]),
		Extra:   binary.LittleEndian.Uint64(raw[20:28]),
		Payload: raw[headerSize : size-crcSize],
		Raw:     raw,
	}, nil
}

// Size returns the framed size of the event in bytes.
func (e *Event) Size() int64 {
	return int64(len(e.Raw))
}

// IsService reports whether the event carries a reserved service type.
func (e *Event) IsService() bool {
	return e.Type < 0
}
