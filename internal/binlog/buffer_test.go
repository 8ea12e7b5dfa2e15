package binlog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventsBuffer_FlushInArrivalOrder(t *testing.T) {
	b := NewEventsBuffer(10, 1<<16, time.Minute)

	for id := uint64(1); id <= 5; id++ {
		b.AddEvent(NewEvent(id, 7, 0, []byte("aaaa")))
	}
	require.Equal(t, int64(5*MinEventSize+5*4), b.Size())

	var ids []uint64
	b.Flush(func(e *Event) { ids = append(ids, e.ID) })
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, ids)
	assert.Zero(t, b.Size())
}

func TestEventsBuffer_NeedFlush(t *testing.T) {
	t.Run("by count", func(t *testing.T) {
		b := NewEventsBuffer(2, 1<<16, time.Minute)
		b.AddEvent(NewEvent(1, 7, 0, nil))
		assert.False(t, b.NeedFlush())
		b.AddEvent(NewEvent(2, 7, 0, nil))
		assert.True(t, b.NeedFlush())
	})

	t.Run("by size", func(t *testing.T) {
		b := NewEventsBuffer(100, 64, time.Minute)
		b.AddEvent(NewEvent(1, 7, 0, nil))
		assert.False(t, b.NeedFlush())
		b.AddEvent(NewEvent(2, 7, 0, make([]byte, 64)))
		assert.True(t, b.NeedFlush())
	})

	t.Run("by age", func(t *testing.T) {
		b := NewEventsBuffer(100, 1<<16, time.Millisecond)
		b.AddEvent(NewEvent(1, 7, 0, nil))
		time.Sleep(5 * time.Millisecond)
		assert.True(t, b.NeedFlush())
	})

	t.Run("empty", func(t *testing.T) {
		b := NewEventsBuffer(1, 1, time.Nanosecond)
		assert.False(t, b.NeedFlush())
	})
}
