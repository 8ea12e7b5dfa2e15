// Package byteflow provides the byte plumbing between the binlog engine
// and its file descriptor: a single-producer single-consumer chained
// buffer, and a source -> transform -> sink pipeline that applies a
// streaming AES-CTR transform to the bytes flowing through.
package byteflow

// chunkSize is the allocation unit for the chain. Appends larger than a
// chunk get their own node.
const chunkSize = 4096

// chain is the shared backing store of a writer/reader pair. The writer
// appends, the reader consumes up to its synced limit.
type chain struct {
	bufs  [][]byte
	total int64 // bytes ever appended
	base  int64 // bytes trimmed from the head
}

// ChainBufferWriter is the producing end of a chain buffer.
type ChainBufferWriter struct {
	c *chain
}

// NewChainBufferWriter creates an empty chain buffer writer.
func NewChainBufferWriter() *ChainBufferWriter {
	return &ChainBufferWriter{c: &chain{}}
}

// Append adds bytes to the chain. The data is copied; callers may reuse
// the slice.
func (w *ChainBufferWriter) Append(data []byte) {
	for len(data) > 0 {
		n := len(w.c.bufs)
		if n > 0 && len(w.c.bufs[n-1]) < cap(w.c.bufs[n-1]) {
			last := w.c.bufs[n-1]
			room := cap(last) - len(last)
			take := min(room, len(data))
			w.c.bufs[n-1] = append(last, data[:take]...)
			w.c.total += int64(take)
			data = data[take:]
			continue
		}
		alloc := max(len(data), chunkSize)
		buf := make([]byte, 0, alloc)
		take := min(len(data), alloc)
		buf = append(buf, data[:take]...)
		w.c.bufs = append(w.c.bufs, buf)
		w.c.total += int64(take)
		data = data[take:]
	}
}

// Size returns the total number of bytes appended so far, including bytes
// already consumed by the reader.
func (w *ChainBufferWriter) Size() int64 {
	return w.c.total
}

// ExtractReader returns the consuming end of this chain buffer. The reader
// starts with a visible limit of zero; call SyncWithWriter to observe
// appended bytes.
func (w *ChainBufferWriter) ExtractReader() *ChainBufferReader {
	return &ChainBufferReader{c: w.c}
}

// ChainBufferReader is the consuming end of a chain buffer. It sees bytes
// only up to its synced limit, so the producer can append concurrently
// with parsing without exposing torn writes.
type ChainBufferReader struct {
	c       *chain
	pos     int64 // absolute consumed position
	limit   int64 // absolute visible position
	isClone bool  // clones never trim the shared chain
}

// SyncWithWriter makes all bytes appended so far visible to the reader.
func (r *ChainBufferReader) SyncWithWriter() {
	r.limit = r.c.total
}

// Size returns the number of visible, unconsumed bytes.
func (r *ChainBufferReader) Size() int64 {
	return r.limit - r.pos
}

// Clone returns a reader at the same position and limit. Advancing the
// clone does not affect the original.
func (r *ChainBufferReader) Clone() *ChainBufferReader {
	cp := *r
	cp.isClone = true
	return &cp
}

// Peek copies up to len(p) visible bytes into p without consuming them.
// Returns the number of bytes copied.
func (r *ChainBufferReader) Peek(p []byte) int {
	return r.copyOut(p, r.pos)
}

// ReadFull consumes exactly len(p) bytes into p. Returns false without
// consuming anything if fewer bytes are visible.
func (r *ChainBufferReader) ReadFull(p []byte) bool {
	if int64(len(p)) > r.Size() {
		return false
	}
	r.copyOut(p, r.pos)
	r.pos += int64(len(p))
	r.trim()
	return true
}

// CutHead consumes exactly n bytes and returns them as a single contiguous
// buffer. Returns nil if fewer than n bytes are visible.
func (r *ChainBufferReader) CutHead(n int) []byte {
	if int64(n) > r.Size() {
		return nil
	}
	out := make([]byte, n)
	if !r.ReadFull(out) {
		return nil
	}
	return out
}

// Advance discards n visible bytes. Returns false if fewer are visible.
func (r *ChainBufferReader) Advance(n int64) bool {
	if n > r.Size() {
		return false
	}
	r.pos += n
	r.trim()
	return true
}

// copyOut copies visible bytes starting at absolute position from into p.
func (r *ChainBufferReader) copyOut(p []byte, from int64) int {
	avail := r.limit - from
	if avail <= 0 {
		return 0
	}
	want := int64(len(p))
	if want > avail {
		want = avail
	}
	copied := 0
	off := from - r.c.base
	for _, buf := range r.c.bufs {
		if copied == int(want) {
			break
		}
		if off >= int64(len(buf)) {
			off -= int64(len(buf))
			continue
		}
		n := copy(p[copied:want], buf[off:])
		copied += n
		off = 0
	}
	return copied
}

// trim drops fully consumed chunks from the head of the chain. Clones
// never trim: the owning reader's position is authoritative.
func (r *ChainBufferReader) trim() {
	if r.isClone {
		return
	}
	for len(r.c.bufs) > 0 {
		head := int64(len(r.c.bufs[0]))
		if r.pos-r.c.base < head {
			break
		}
		// Keep the final partially-filled chunk so the writer can
		// continue appending into its spare capacity.
		if len(r.c.bufs) == 1 && len(r.c.bufs[0]) < cap(r.c.bufs[0]) {
			break
		}
		r.c.base += head
		r.c.bufs = r.c.bufs[1:]
	}
}
