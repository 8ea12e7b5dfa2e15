// Package fileio provides the buffered, advisory-locked file underneath
// the binlog engine. Reads are pumped into a chain-buffer writer
// (FlushRead), writes are drained from a chain-buffer reader
// (FlushWrite); the engine decides what sits between the two.
package fileio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"binlogd/internal/byteflow"
)

// Errors
var (
	ErrLocked = errors.New("fileio: file is locked by another process")
	ErrClosed = errors.New("fileio: file is closed")
)

const (
	// readChunk is the unit FlushRead pulls from the OS.
	readChunk = 4096

	// lockRetryInterval is the pause between lock attempts.
	lockRetryInterval = 10 * time.Millisecond
)

// File is a buffered file descriptor with an exclusive advisory lock.
type File struct {
	f    *os.File
	path string

	input  *byteflow.ChainBufferWriter // FlushRead destination
	output *byteflow.ChainBufferReader // FlushWrite source
}

// OpenLocked opens path read+write (creating it if missing) and acquires
// an exclusive advisory lock, retrying for up to lockTimeout before
// returning ErrLocked.
func OpenLocked(path string, lockTimeout time.Duration) (*File, error) {
	return open(path, os.O_RDWR|os.O_CREATE, lockTimeout)
}

// CreateLocked opens path with truncation, for rewriting a file from
// scratch. The same lock protocol applies.
func CreateLocked(path string, lockTimeout time.Duration) (*File, error) {
	return open(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, lockTimeout)
}

func open(path string, flags int, lockTimeout time.Duration) (*File, error) {
	f, err := os.OpenFile(path, flags, 0600)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := lockWithTimeout(f, lockTimeout); err != nil {
		f.Close()
		return nil, err
	}
	return &File{f: f, path: path}, nil
}

// lockWithTimeout retries a non-blocking exclusive flock until it succeeds
// or the budget runs out.
func lockWithTimeout(f *os.File, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		err := lockExclusive(f)
		if err == nil {
			return nil
		}
		if !isWouldBlock(err) {
			return fmt.Errorf("lock %s: %w", f.Name(), err)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s", ErrLocked, f.Name())
		}
		time.Sleep(lockRetryInterval)
	}
}

// SetInputWriter installs the chain buffer that FlushRead appends file
// bytes into.
func (f *File) SetInputWriter(w *byteflow.ChainBufferWriter) {
	f.input = w
}

// SetOutputReader installs the chain buffer that FlushWrite drains into
// the file.
func (f *File) SetOutputReader(r *byteflow.ChainBufferReader) {
	f.output = r
}

// FlushRead reads at least minBytes from the file into the input writer,
// stopping early at EOF. Returns the number of bytes read.
func (f *File) FlushRead(minBytes int) (int, error) {
	if f.f == nil {
		return 0, ErrClosed
	}
	total := 0
	buf := make([]byte, readChunk)
	for total < minBytes {
		n, err := f.f.Read(buf)
		if n > 0 {
			f.input.Append(buf[:n])
			total += n
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return total, fmt.Errorf("read %s: %w", f.path, err)
		}
	}
	return total, nil
}

// FlushWrite drains every byte visible in the output reader into the file.
// Returns the number of bytes written.
func (f *File) FlushWrite() (int, error) {
	if f.f == nil {
		return 0, ErrClosed
	}
	f.output.SyncWithWriter()
	total := 0
	for f.output.Size() > 0 {
		n := f.output.Size()
		if n > readChunk {
			n = readChunk
		}
		buf := make([]byte, n)
		f.output.ReadFull(buf)
		if _, err := f.f.Write(buf); err != nil {
			return total, fmt.Errorf("write %s: %w", f.path, err)
		}
		total += int(n)
	}
	return total, nil
}

// Sync flushes the OS write buffer to stable storage.
func (f *File) Sync() error {
	if f.f == nil {
		return ErrClosed
	}
	if err := f.f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", f.path, err)
	}
	return nil
}

// Seek positions the file cursor at the given absolute offset.
func (f *File) Seek(off int64) error {
	if f.f == nil {
		return ErrClosed
	}
	if _, err := f.f.Seek(off, io.SeekStart); err != nil {
		return fmt.Errorf("seek %s: %w", f.path, err)
	}
	return nil
}

// TruncateToCurrentPosition truncates the file to the given offset. The
// caller is expected to have sought there first.
func (f *File) TruncateToCurrentPosition(off int64) error {
	if f.f == nil {
		return ErrClosed
	}
	if err := f.f.Truncate(off); err != nil {
		return fmt.Errorf("truncate %s: %w", f.path, err)
	}
	return nil
}

// GetSize returns the current size of the file on disk.
func (f *File) GetSize() (int64, error) {
	if f.f == nil {
		return 0, ErrClosed
	}
	st, err := f.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", f.path, err)
	}
	return st.Size(), nil
}

// Path returns the path the file was opened with.
func (f *File) Path() string {
	return f.path
}

// Close releases the lock and closes the descriptor. Idempotent.
func (f *File) Close() error {
	if f.f == nil {
		return nil
	}
	err := f.f.Close() // closing releases the flock
	f.f = nil
	return err
}
