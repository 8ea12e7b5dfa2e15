package binlog

import "time"

// EventsBuffer coalesces appended events for a short horizon before they
// reach the engine. Disabled by default; the engine routes appends
// straight to the processor unless Options.UseEventsBuffer is set.
type EventsBuffer struct {
	events    []*Event
	size      int64
	maxCount  int
	maxSize   int64
	firstAt   time.Time
	maxAge    time.Duration
}

// NewEventsBuffer creates a buffer that asks to be flushed once it holds
// maxCount events, maxSize bytes, or an event older than maxAge.
func NewEventsBuffer(maxCount int, maxSize int64, maxAge time.Duration) *EventsBuffer {
	return &EventsBuffer{maxCount: maxCount, maxSize: maxSize, maxAge: maxAge}
}

// AddEvent holds an event in the buffer.
func (b *EventsBuffer) AddEvent(e *Event) {
	if len(b.events) == 0 {
		b.firstAt = time.Now()
	}
	b.events = append(b.events, e)
	b.size += e.Size()
}

// Size returns the framed bytes currently held.
func (b *EventsBuffer) Size() int64 {
	return b.size
}

// NeedFlush reports whether a threshold has been crossed.
func (b *EventsBuffer) NeedFlush() bool {
	if len(b.events) == 0 {
		return false
	}
	return len(b.events) >= b.maxCount ||
		b.size >= b.maxSize ||
		time.Since(b.firstAt) >= b.maxAge
}

// Flush emits the held events in arrival order into sink and empties the
// buffer.
func (b *EventsBuffer) Flush(sink func(*Event)) {
	for _, e := range b.events {
		sink(e)
	}
	b.events = b.events[:0]
	b.size = 0
}
