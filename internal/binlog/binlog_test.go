package binlog

import (
	"bytes"
	"encoding/binary"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helpers

type replayed struct {
	id      uint64
	typ     int32
	flags   uint32
	payload []byte
}

func testOptions() Options {
	return Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func testPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "events.binlog")
}

// replayLog opens path and returns the callback replay in order.
func replayLog(t *testing.T, path string, key, oldKey DBKey) ([]replayed, *Binlog) {
	t.Helper()
	var seen []replayed
	b := New(testOptions())
	err := b.Init(path, func(e *Event) {
		seen = append(seen, replayed{
			id:      e.ID,
			typ:     e.Type,
			flags:   e.Flags,
			payload: append([]byte(nil), e.Payload...),
		})
	}, key, oldKey)
	require.NoError(t, err)
	return seen, b
}

func addEvent(t *testing.T, b *Binlog, id uint64, typ int32, flags uint32, payload []byte) {
	t.Helper()
	require.NoError(t, b.AddEvent(NewEvent(id, typ, flags, payload)))
}

func TestBinlog_AppendSyncReplay(t *testing.T) {
	path := testPath(t)

	b := New(testOptions())
	require.NoError(t, b.Init(path, nil, EmptyKey(), EmptyKey()))
	assert.True(t, b.Info().WasCreated)

	addEvent(t, b, 1, 7, 0, []byte("aaaa"))
	addEvent(t, b, 2, 7, 0, []byte("bbbb"))
	require.NoError(t, b.Sync())

	expectSize := NewEvent(1, 7, 0, []byte("aaaa")).Size() + NewEvent(2, 7, 0, []byte("bbbb")).Size()
	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, expectSize, st.Size(), "after sync the file holds exactly the appended frames")
	require.NoError(t, b.Close(true))

	seen, b2 := replayLog(t, path, EmptyKey(), EmptyKey())
	defer b2.Close(false)

	require.Len(t, seen, 2)
	assert.Equal(t, uint64(1), seen[0].id)
	assert.Equal(t, []byte("aaaa"), seen[0].payload)
	assert.Equal(t, uint64(2), seen[1].id)
	assert.Equal(t, []byte("bbbb"), seen[1].payload)
	assert.Equal(t, uint64(2), b2.Info().LastID)
	assert.False(t, b2.Info().WasCreated)
}

func TestBinlog_RewriteCollapses(t *testing.T) {
	path := testPath(t)

	b := New(testOptions())
	require.NoError(t, b.Init(path, nil, EmptyKey(), EmptyKey()))
	addEvent(t, b, 1, 7, 0, []byte("aaaa"))
	addEvent(t, b, 1, 7, FlagRewrite, []byte("AAAAAAAA"))
	require.NoError(t, b.Close(true))

	seen, b2 := replayLog(t, path, EmptyKey(), EmptyKey())
	defer b2.Close(false)

	require.Len(t, seen, 1)
	assert.Equal(t, []byte("AAAAAAAA"), seen[0].payload)

	rewriteSize := NewEvent(1, 7, FlagRewrite, []byte("AAAAAAAA")).Size()
	assert.Equal(t, rewriteSize, b2.processor.TotalRawEventsSize())
}

func TestBinlog_Erase(t *testing.T) {
	path := testPath(t)

	b := New(testOptions())
	require.NoError(t, b.Init(path, nil, EmptyKey(), EmptyKey()))
	addEvent(t, b, 1, 7, 0, []byte("aaaa"))
	addEvent(t, b, 2, 7, 0, []byte("bbbb"))
	addEvent(t, b, 1, TypeEmpty, FlagRewrite, nil)
	require.NoError(t, b.Close(true))

	seen, b2 := replayLog(t, path, EmptyKey(), EmptyKey())
	defer b2.Close(false)

	require.Len(t, seen, 1)
	assert.Equal(t, uint64(2), seen[0].id)
	assert.Equal(t, []byte("bbbb"), seen[0].payload)
}

func TestBinlog_SkipEraseKeepsErased(t *testing.T) {
	path := testPath(t)

	b := New(testOptions())
	require.NoError(t, b.Init(path, nil, EmptyKey(), EmptyKey()))
	addEvent(t, b, 1, 7, 0, []byte("aaaa"))
	addEvent(t, b, 2, 7, 0, []byte("bbbb"))
	addEvent(t, b, 1, TypeEmpty, FlagRewrite, nil)
	require.NoError(t, b.Close(true))

	opts := testOptions()
	opts.SkipErase = true
	var seen []uint64
	b2 := New(opts)
	require.NoError(t, b2.Init(path, func(e *Event) { seen = append(seen, e.ID) }, EmptyKey(), EmptyKey()))
	defer b2.Close(false)

	assert.Equal(t, []uint64{1, 2}, seen, "forensic replay keeps erased events")
}

func TestBinlog_PartialCommit(t *testing.T) {
	path := testPath(t)

	b := New(testOptions())
	require.NoError(t, b.Init(path, nil, EmptyKey(), EmptyKey()))
	addEvent(t, b, 3, 7, FlagPartial, []byte("xxxx"))
	addEvent(t, b, 3, 7, 0, []byte("yyyy"))
	require.NoError(t, b.Close(true))

	seen, b2 := replayLog(t, path, EmptyKey(), EmptyKey())
	defer b2.Close(false)

	require.Len(t, seen, 1)
	assert.Equal(t, uint64(3), seen[0].id)
	assert.Equal(t, []byte("yyyy"), seen[0].payload)
}

func TestBinlog_PartialWithoutCommitDiscarded(t *testing.T) {
	path := testPath(t)

	b := New(testOptions())
	require.NoError(t, b.Init(path, nil, EmptyKey(), EmptyKey()))
	addEvent(t, b, 1, 7, 0, []byte("aaaa"))
	addEvent(t, b, 2, 7, FlagPartial, []byte("zzzz"))
	require.NoError(t, b.Close(true))

	seen, b2 := replayLog(t, path, EmptyKey(), EmptyKey())
	defer b2.Close(false)

	require.Len(t, seen, 1, "uncommitted partial never becomes visible")
	assert.Equal(t, uint64(1), seen[0].id)
}

func TestBinlog_NonMonotonicRejected(t *testing.T) {
	path := testPath(t)

	b := New(testOptions())
	require.NoError(t, b.Init(path, nil, EmptyKey(), EmptyKey()))
	defer b.Close(false)

	addEvent(t, b, 5, 7, 0, []byte("aaaa"))
	err := b.AddEvent(NewEvent(3, 7, 0, []byte("bbbb")))
	assert.ErrorIs(t, err, ErrNonMonotonicId)

	// the rejected event left nothing on disk
	require.NoError(t, b.Sync())
	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, NewEvent(5, 7, 0, []byte("aaaa")).Size(), st.Size())
}

func TestBinlog_TornTailTruncated(t *testing.T) {
	path := testPath(t)

	b := New(testOptions())
	require.NoError(t, b.Init(path, nil, EmptyKey(), EmptyKey()))
	var offsets []int64
	var total int64
	for id := uint64(1); id <= 5; id++ {
		ev := NewEvent(id, 7, 0, []byte("aaaa"))
		total += ev.Size()
		offsets = append(offsets, total)
		require.NoError(t, b.AddEvent(ev))
	}
	require.NoError(t, b.Close(true))

	// corrupt the last 3 bytes of event 5
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	for i := len(raw) - 3; i < len(raw); i++ {
		raw[i] ^= 0xFF
	}
	require.NoError(t, os.WriteFile(path, raw, 0600))

	seen, b2 := replayLog(t, path, EmptyKey(), EmptyKey())
	defer b2.Close(false)

	require.Len(t, seen, 4, "the torn record and everything past it is discarded")
	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, offsets[3], st.Size(), "file truncated to the end of event 4")
}

func TestBinlog_InterruptedReindexAdopted(t *testing.T) {
	path := testPath(t)

	b := New(testOptions())
	require.NoError(t, b.Init(path, nil, EmptyKey(), EmptyKey()))
	addEvent(t, b, 1, 7, 0, []byte("aaaa"))
	addEvent(t, b, 2, 7, 0, []byte("bbbb"))
	require.NoError(t, b.Close(true))

	// crash between unlink and rename leaves only the .new file
	require.NoError(t, os.Rename(path, path+".new"))

	seen, b2 := replayLog(t, path, EmptyKey(), EmptyKey())
	defer b2.Close(false)

	require.Len(t, seen, 2)
	_, err := os.Stat(path)
	assert.NoError(t, err, "the .new file was adopted")
	_, err = os.Stat(path + ".new")
	assert.True(t, os.IsNotExist(err))
}

func TestBinlog_ReindexCompacts(t *testing.T) {
	path := testPath(t)

	b := New(testOptions())
	require.NoError(t, b.Init(path, nil, EmptyKey(), EmptyKey()))
	addEvent(t, b, 1, 7, 0, []byte("aaaa"))
	for range 10 {
		addEvent(t, b, 1, 7, FlagRewrite, []byte("bbbbbbbb"))
	}
	addEvent(t, b, 2, 7, 0, []byte("cccc"))
	require.NoError(t, b.Sync())

	before := fileSize(path)
	b.Reindex()
	after := fileSize(path)
	assert.Less(t, after, before)

	liveSize := NewEvent(1, 7, FlagRewrite, []byte("bbbbbbbb")).Size() +
		NewEvent(2, 7, 0, []byte("cccc")).Size()
	assert.Equal(t, liveSize, after)
	require.NoError(t, b.Close(true))

	seen, b2 := replayLog(t, path, EmptyKey(), EmptyKey())
	defer b2.Close(false)
	require.Len(t, seen, 2)
	assert.Equal(t, []byte("bbbbbbbb"), seen[0].payload)
	assert.Equal(t, []byte("cccc"), seen[1].payload)
}

func TestBinlog_ReindexIdempotent(t *testing.T) {
	path := testPath(t)

	b := New(testOptions())
	require.NoError(t, b.Init(path, nil, EmptyKey(), EmptyKey()))
	addEvent(t, b, 1, 7, 0, []byte("aaaa"))
	addEvent(t, b, 2, 7, 0, []byte("bbbb"))
	addEvent(t, b, 1, 7, FlagRewrite, []byte("cccc"))

	b.Reindex()
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	b.Reindex()
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, first, second, "without a key, reindex output is byte-identical")
	require.NoError(t, b.Close(true))
}

func TestBinlog_ReindexHeuristic(t *testing.T) {
	opts := testOptions()
	opts.ReindexSmallSize = 1000
	opts.ReindexSmallRate = 5
	path := testPath(t)

	b := New(opts)
	require.NoError(t, b.Init(path, nil, EmptyKey(), EmptyKey()))
	payload := bytes.Repeat([]byte("p"), 256)
	addEvent(t, b, 1, 7, 0, payload)
	for range 20 {
		addEvent(t, b, 1, 7, FlagRewrite, payload)
	}
	require.NoError(t, b.Sync())

	// dead rewrites dominated the file, so the heuristic kept compacting;
	// without it the file would hold all 21 frames (~6KB)
	eventSize := NewEvent(1, 7, FlagRewrite, payload).Size()
	assert.Less(t, fileSize(path), 6*eventSize)
	assert.GreaterOrEqual(t, fileSize(path), eventSize)
	require.NoError(t, b.Close(true))
}

func TestBinlog_EventsBuffer(t *testing.T) {
	opts := testOptions()
	opts.UseEventsBuffer = true
	opts.BufferMaxCount = 100
	path := testPath(t)

	b := New(opts)
	require.NoError(t, b.Init(path, nil, EmptyKey(), EmptyKey()))
	addEvent(t, b, 1, 7, 0, []byte("aaaa"))
	addEvent(t, b, 2, 7, 0, []byte("bbbb"))
	require.NoError(t, b.Flush())
	require.NoError(t, b.Close(true))

	seen, b2 := replayLog(t, path, EmptyKey(), EmptyKey())
	defer b2.Close(false)
	require.Len(t, seen, 2)
}

func TestBinlog_LockContention(t *testing.T) {
	path := testPath(t)

	b := New(testOptions())
	require.NoError(t, b.Init(path, nil, EmptyKey(), EmptyKey()))
	defer b.Close(false)

	b2 := New(testOptions())
	err := b2.Init(path, nil, EmptyKey(), EmptyKey())
	assert.ErrorIs(t, err, ErrLockContention)
}

func TestBinlog_CloseAndDestroy(t *testing.T) {
	path := testPath(t)

	b := New(testOptions())
	require.NoError(t, b.Init(path, nil, EmptyKey(), EmptyKey()))
	addEvent(t, b, 1, 7, 0, []byte("aaaa"))
	require.NoError(t, b.CloseAndDestroy())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	require.NoError(t, b.Close(false), "close is idempotent")
}

// Encryption

var (
	testKey    = RawKey(bytes.Repeat([]byte{0x42}, 32))
	testKeyTwo = RawKey(bytes.Repeat([]byte{0x17}, 32))
)

func TestBinlog_EncryptedRoundTrip(t *testing.T) {
	path := testPath(t)

	b := New(testOptions())
	require.NoError(t, b.Init(path, nil, testKey, EmptyKey()))

	secret := []byte("very secret payload!!!!!0123")
	addEvent(t, b, 1, 7, 0, secret)
	addEvent(t, b, 2, 7, 0, []byte("bbbb"))
	require.NoError(t, b.Close(true))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	// the first record is a plaintext bootstrap frame
	size := binary.LittleEndian.Uint32(raw[0:4])
	require.LessOrEqual(t, int(size), len(raw))
	first, err := DecodeEvent(raw[:size])
	require.NoError(t, err)
	assert.Equal(t, TypeAesCtrEncryption, first.Type)

	// everything after it is ciphertext
	assert.False(t, bytes.Contains(raw, secret))

	seen, b2 := replayLog(t, path, testKey, EmptyKey())
	defer b2.Close(false)
	require.Len(t, seen, 2)
	assert.Equal(t, secret, seen[0].payload)
	assert.Equal(t, []byte("bbbb"), seen[1].payload)
}

func TestBinlog_EncryptedAppendAfterReopen(t *testing.T) {
	path := testPath(t)

	b := New(testOptions())
	require.NoError(t, b.Init(path, nil, testKey, EmptyKey()))
	addEvent(t, b, 1, 7, 0, []byte("aaaa"))
	require.NoError(t, b.Close(true))

	// the keystream continues where load left off
	_, b2 := replayLog(t, path, testKey, EmptyKey())
	addEvent(t, b2, 2, 7, 0, []byte("bbbb"))
	addEvent(t, b2, 3, 7, 0, []byte("cccc"))
	require.NoError(t, b2.Close(true))

	seen, b3 := replayLog(t, path, testKey, EmptyKey())
	defer b3.Close(false)
	require.Len(t, seen, 3)
	assert.Equal(t, []byte("cccc"), seen[2].payload)
}

func TestBinlog_WrongPassword(t *testing.T) {
	path := testPath(t)

	b := New(testOptions())
	require.NoError(t, b.Init(path, nil, testKey, EmptyKey()))
	addEvent(t, b, 1, 7, 0, []byte("aaaa"))
	require.NoError(t, b.Close(true))

	b2 := New(testOptions())
	err := b2.Init(path, nil, testKeyTwo, EmptyKey())
	assert.ErrorIs(t, err, ErrWrongPassword)

	b3 := New(testOptions())
	err = b3.Init(path, nil, EmptyKey(), EmptyKey())
	assert.ErrorIs(t, err, ErrWrongPassword, "an encrypted file needs a key")
}

func TestBinlog_OldKeyUnlocksAndRotates(t *testing.T) {
	path := testPath(t)

	b := New(testOptions())
	require.NoError(t, b.Init(path, nil, testKey, EmptyKey()))
	addEvent(t, b, 1, 7, 0, []byte("aaaa"))
	require.NoError(t, b.Close(true))

	// unlock with the old key; the reindex rewrites under the new key
	seen, b2 := replayLog(t, path, testKeyTwo, testKey)
	require.Len(t, seen, 1)
	require.NoError(t, b2.Close(true))

	seen, b3 := replayLog(t, path, testKeyTwo, EmptyKey())
	require.Len(t, seen, 1)
	assert.Equal(t, []byte("aaaa"), seen[0].payload)
	require.NoError(t, b3.Close(false))

	b4 := New(testOptions())
	err := b4.Init(path, nil, testKey, EmptyKey())
	assert.ErrorIs(t, err, ErrWrongPassword, "the old key no longer opens the file")
}

func TestBinlog_OldKeyStripsEncryption(t *testing.T) {
	path := testPath(t)

	b := New(testOptions())
	require.NoError(t, b.Init(path, nil, testKey, EmptyKey()))
	addEvent(t, b, 1, 7, 0, []byte("aaaa"))
	require.NoError(t, b.Close(true))

	// empty new key + valid old key strips the encryption envelope
	seen, b2 := replayLog(t, path, EmptyKey(), testKey)
	require.Len(t, seen, 1)
	require.NoError(t, b2.Close(true))

	seen, b3 := replayLog(t, path, EmptyKey(), EmptyKey())
	defer b3.Close(false)
	require.Len(t, seen, 1)
	assert.Equal(t, []byte("aaaa"), seen[0].payload)
}

func TestBinlog_ChangeKey(t *testing.T) {
	path := testPath(t)

	b := New(testOptions())
	require.NoError(t, b.Init(path, nil, testKey, EmptyKey()))
	addEvent(t, b, 1, 7, 0, []byte("aaaa"))
	b.ChangeKey(testKeyTwo)
	addEvent(t, b, 2, 7, 0, []byte("bbbb"))
	require.NoError(t, b.Close(true))

	seen, b2 := replayLog(t, path, testKeyTwo, EmptyKey())
	require.Len(t, seen, 2)
	require.NoError(t, b2.Close(false))

	b3 := New(testOptions())
	err := b3.Init(path, nil, testKey, EmptyKey())
	assert.ErrorIs(t, err, ErrWrongPassword)
}

func TestBinlog_EncryptionOnlyFileReplaysEmpty(t *testing.T) {
	path := testPath(t)

	b := New(testOptions())
	require.NoError(t, b.Init(path, nil, testKey, EmptyKey()))
	require.NoError(t, b.Close(true))

	seen, b2 := replayLog(t, path, testKey, EmptyKey())
	defer b2.Close(false)
	assert.Empty(t, seen, "a bootstrap-only file has an empty live set")
}

func TestBinlog_PasswordKey(t *testing.T) {
	path := testPath(t)

	b := New(testOptions())
	require.NoError(t, b.Init(path, nil, PasswordKey("hunter2"), EmptyKey()))
	addEvent(t, b, 1, 7, 0, []byte("aaaa"))
	require.NoError(t, b.Close(true))

	seen, b2 := replayLog(t, path, PasswordKey("hunter2"), EmptyKey())
	require.Len(t, seen, 1)
	require.NoError(t, b2.Close(false))

	b3 := New(testOptions())
	err := b3.Init(path, nil, PasswordKey("wrong"), EmptyKey())
	assert.ErrorIs(t, err, ErrWrongPassword)
}
