package binlog

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"binlogd/internal/byteflow"
	"binlogd/internal/fileio"
	"binlogd/internal/security"
)

// State is the engine lifecycle state.
type State int

const (
	StateLoad State = iota
	StateRun
	StateReindex
)

// EncryptionType selects the byte transform between the chain buffers and
// the file.
type EncryptionType int

const (
	EncryptionNone EncryptionType = iota
	EncryptionAesCtr
)

// Callback materializes one live event into application state. It is
// invoked during load replay exactly once per live event in insertion
// order and must not call back into the engine until load completes.
type Callback func(*Event)

// Options tunes an engine instance. The zero value gets sensible defaults
// from DefaultOptions.
type Options struct {
	// Logger receives structured engine logs. Defaults to slog.Default().
	Logger *slog.Logger

	// UseEventsBuffer enables the short-horizon coalescing buffer in
	// front of the processor. Off by default.
	UseEventsBuffer bool
	BufferMaxCount  int
	BufferMaxSize   int64
	BufferMaxAge    time.Duration

	// LazyFlushThreshold is the pending-byte count beyond which AddEvent
	// flushes immediately instead of arming the flush timer.
	LazyFlushThreshold int64

	// MaxFlushAge bounds how long buffered events may wait before the
	// owner should call Flush; see NeedFlushSince.
	MaxFlushAge time.Duration

	// Reindex heuristic: compact when the file exceeds SmallSize and live
	// data is under 1/SmallRate of it, or exceeds LargeSize with live
	// data under 1/LargeRate.
	ReindexSmallSize int64
	ReindexSmallRate int64
	ReindexLargeSize int64
	ReindexLargeRate int64

	// LockTimeout bounds the advisory-lock retry during open.
	LockTimeout time.Duration

	// SkipErase ignores Rewrite+Empty records during load. Erased events
	// stay visible, which is what a forensic replay wants.
	SkipErase bool
}

// DefaultOptions returns the reference tuning.
func DefaultOptions() Options {
	return Options{
		BufferMaxCount:     100,
		BufferMaxSize:      1 << 16,
		BufferMaxAge:       50 * time.Millisecond,
		LazyFlushThreshold: 1 << 14,
		MaxFlushAge:        time.Second,
		ReindexSmallSize:   100_000,
		ReindexSmallRate:   5,
		ReindexLargeSize:   500_000,
		ReindexLargeRate:   2,
		LockTimeout:        100 * time.Millisecond,
	}
}

// Info describes the outcome of Init.
type Info struct {
	WasCreated    bool
	IsOpened      bool
	LastID        uint64
	WrongPassword bool
}

// abortFn terminates the process on conditions where continuing would
// silently break durability (failed sync, failed reindex swap). Package
// variable so tests of unrelated paths never trip it accidentally.
var abortFn = func(log *slog.Logger, msg string, args ...any) {
	log.Error(msg, args...)
	os.Exit(1)
}

// Binlog is the append-only event log engine. Single-owner: all methods
// assume exclusive access by one logical actor.
type Binlog struct {
	opts Options
	log  *slog.Logger

	path string
	fd   *fileio.File

	state     State
	processor *EventsProcessor

	eventsBuffer        *EventsBuffer
	inFlushEventsBuffer bool
	pendingEvents       []*Event

	bufferWriter *byteflow.ChainBufferWriter
	bufferReader *byteflow.ChainBufferReader
	pipeline     *byteflow.Pipeline
	reader       *Reader

	encryptionType EncryptionType
	aesCtrKey      [keySize]byte
	aesCtrKeySalt  []byte
	aesState       *byteflow.AesCtrState

	dbKey     DBKey
	oldDBKey  DBKey
	dbKeyUsed bool

	wrongPassword bool

	fdSize   int64
	fdEvents int64

	needSync       bool
	needFlushSince time.Time

	info Info
}

// New creates an engine with the given options. Call Init to open a file.
func New(opts Options) *Binlog {
	def := DefaultOptions()
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.BufferMaxCount == 0 {
		opts.BufferMaxCount = def.BufferMaxCount
	}
	if opts.BufferMaxSize == 0 {
		opts.BufferMaxSize = def.BufferMaxSize
	}
	if opts.BufferMaxAge == 0 {
		opts.BufferMaxAge = def.BufferMaxAge
	}
	if opts.LazyFlushThreshold == 0 {
		opts.LazyFlushThreshold = def.LazyFlushThreshold
	}
	if opts.MaxFlushAge == 0 {
		opts.MaxFlushAge = def.MaxFlushAge
	}
	if opts.ReindexSmallSize == 0 {
		opts.ReindexSmallSize = def.ReindexSmallSize
	}
	if opts.ReindexSmallRate == 0 {
		opts.ReindexSmallRate = def.ReindexSmallRate
	}
	if opts.ReindexLargeSize == 0 {
		opts.ReindexLargeSize = def.ReindexLargeSize
	}
	if opts.ReindexLargeRate == 0 {
		opts.ReindexLargeRate = def.ReindexLargeRate
	}
	if opts.LockTimeout == 0 {
		opts.LockTimeout = def.LockTimeout
	}
	return &Binlog{opts: opts, log: opts.Logger}
}

// Init opens (or creates) the binlog at path, replays live events through
// callback, and leaves the engine accepting appends. dbKey encrypts new
// data; oldDBKey unlocks a file whose key is being rotated.
func (b *Binlog) Init(path string, callback Callback, dbKey, oldDBKey DBKey) error {
	return b.InitWithDebug(path, callback, dbKey, oldDBKey, nil)
}

// InitWithDebug is Init with an extra callback invoked for every record
// encountered during load, live or not. With Options.SkipErase, the
// skipped erase records are not passed to it.
func (b *Binlog) InitWithDebug(path string, callback Callback, dbKey, oldDBKey DBKey, debugCallback Callback) error {
	b.Close(true)

	b.dbKey = dbKey
	b.oldDBKey = oldDBKey
	b.processor = NewEventsProcessor(b.log)
	b.pendingEvents = nil
	b.eventsBuffer = nil
	if b.opts.UseEventsBuffer {
		b.eventsBuffer = NewEventsBuffer(b.opts.BufferMaxCount, b.opts.BufferMaxSize, b.opts.BufferMaxAge)
	}

	// Recover from a reindex interrupted between unlink and rename.
	newPath := path + ".new"
	if _, err := os.Stat(path); err != nil {
		if _, err := os.Stat(newPath); err == nil {
			if err := os.Rename(newPath, path); err != nil {
				return fmt.Errorf("binlog: adopt %s: %w", newPath, err)
			}
			b.log.Info("adopted interrupted reindex", "path", path)
		}
	}

	b.info = Info{}
	_, statErr := os.Stat(path)
	b.info.WasCreated = statErr != nil

	fd, err := fileio.OpenLocked(path, b.opts.LockTimeout)
	if err != nil {
		if errors.Is(err, fileio.ErrLocked) {
			return fmt.Errorf("%w: %s", ErrLockContention, path)
		}
		return err
	}
	b.fd = fd
	b.path = path
	b.fdSize = 0
	b.fdEvents = 0

	if err := b.loadBinlog(callback, debugCallback); err != nil {
		b.Close(false)
		return err
	}
	b.info.LastID = b.processor.LastID()
	if b.wrongPassword {
		b.info.WrongPassword = true
		b.Close(false)
		return ErrWrongPassword
	}

	// A fresh key that no on-disk record consumed needs an encryption
	// envelope; an encrypted file opened with an empty key (unlocked via
	// the old key) needs it stripped. Both rewrite the file.
	if (!b.dbKey.IsEmpty() && !b.dbKeyUsed) || (b.dbKey.IsEmpty() && b.encryptionType != EncryptionNone) {
		b.aesCtrKeySalt = nil
		b.doReindex()
	}

	b.info.IsOpened = true
	return nil
}

// Info returns the open-time info of the current session.
func (b *Binlog) Info() Info {
	info := b.info
	if b.processor != nil {
		info.LastID = b.processor.LastID()
	}
	return info
}

// LastID returns the largest event id the live set has held. An erase does
// not lower it, so an erased id can still be the value returned.
func (b *Binlog) LastID() uint64 {
	if b.processor == nil {
		return 0
	}
	return b.processor.LastID()
}

// NextID returns the smallest id a new event may use.
func (b *Binlog) NextID() uint64 {
	return b.LastID() + 1
}

// ForEachLive visits the live event set in insertion order. Inspection
// only; the events belong to the engine.
func (b *Binlog) ForEachLive(visit func(*Event)) {
	if b.processor != nil {
		b.processor.ForEach(visit)
	}
}

// loadBinlog replays the file into the processor, truncates a torn tail,
// and rewires the engine for writing.
func (b *Binlog) loadBinlog(callback, debugCallback Callback) error {
	b.state = StateLoad
	b.wrongPassword = false
	b.dbKeyUsed = false
	b.encryptionType = EncryptionNone
	b.pipeline = nil

	b.bufferWriter = byteflow.NewChainBufferWriter()
	b.bufferReader = b.bufferWriter.ExtractReader()
	b.fd.SetInputWriter(b.bufferWriter)
	b.reader = NewReader(b.bufferReader)
	b.updateReadEncryption()

	readyFlag := false
	for {
		var ev Event
		need, err := b.reader.ReadNext(&ev)
		if err != nil {
			// A framing error means this record and everything past it
			// is a torn or abandoned write; the tail is truncated below.
			b.log.Error("binlog read error, discarding tail", "path", b.path, "err", err)
			break
		}
		if need == 0 {
			if b.opts.SkipErase && ev.Type == TypeEmpty && ev.Flags&FlagRewrite != 0 {
				// forensic replay keeps erased events visible
			} else {
				if debugCallback != nil {
					debugCallback(&ev)
				}
				if err := b.doAddEvent(&ev); err != nil {
					b.log.Error("binlog event rejected, discarding tail", "path", b.path, "err", err)
					break
				}
				if b.wrongPassword {
					return nil
				}
			}
			readyFlag = false
		} else {
			// Two consecutive starved reads with no event in between
			// mean the file is exhausted.
			if readyFlag {
				break
			}
			if _, err := b.fd.FlushRead(max(need, 4096)); err != nil {
				return err
			}
			b.bufferReader.SyncWithWriter()
			if b.pipeline != nil {
				b.pipeline.Wakeup()
			}
			readyFlag = true
		}
	}

	if err := b.processor.FinishLoad(); err != nil {
		return err
	}
	// Uncommitted partial fragments at the tail are discarded; their bytes
	// sit past the processor offset and get truncated below.
	b.pendingEvents = b.pendingEvents[:0]

	offset := b.processor.Offset()
	b.processor.ForEach(func(e *Event) {
		if callback != nil {
			callback(e)
		}
	})

	fdSize, err := b.fd.GetSize()
	if err != nil {
		return err
	}
	if offset != fdSize {
		b.log.Error("truncating binlog",
			"path", b.path, "old_size", fdSize, "new_size", offset)
		if err := b.fd.Seek(offset); err != nil {
			return err
		}
		if err := b.fd.TruncateToCurrentPosition(offset); err != nil {
			return err
		}
		b.dbKeyUsed = false // Init then reindexes if a key is set
	}
	if !b.opts.SkipErase && b.fdSize != offset {
		b.log.Warn("loaded size mismatch", "fd_size", b.fdSize, "offset", offset)
	}

	b.reader = nil
	b.state = StateRun

	b.bufferWriter = byteflow.NewChainBufferWriter()
	b.bufferReader = b.bufferWriter.ExtractReader()
	if b.encryptionType == EncryptionAesCtr && b.pipeline != nil {
		// keystream continues where load left off
		b.aesState = b.pipeline.ExtractState()
	}
	b.pipeline = nil
	b.updateWriteEncryption()
	return nil
}

// AddEvent appends one event. The event becomes durable after Sync; Flush
// only guarantees it reached the OS write buffer.
func (b *Binlog) AddEvent(e *Event) error {
	if b.fd == nil {
		return ErrClosed
	}
	var err error
	if b.eventsBuffer != nil {
		b.eventsBuffer.AddEvent(e)
	} else {
		err = b.doAddEvent(e)
	}
	b.lazyFlush()

	if b.state == StateRun {
		fdSize := b.fdSize
		if b.eventsBuffer != nil {
			fdSize += b.eventsBuffer.Size()
		}
		needReindex := func(minSize, rate int64) bool {
			return fdSize > minSize && fdSize/rate > b.processor.TotalRawEventsSize()
		}
		if needReindex(b.opts.ReindexSmallSize, b.opts.ReindexSmallRate) ||
			needReindex(b.opts.ReindexLargeSize, b.opts.ReindexLargeRate) {
			b.log.Info("reindex triggered",
				"fd_size", fdSize, "total_events_size", b.processor.TotalRawEventsSize())
			b.doReindex()
		}
	}
	return err
}

// flushEventsBuffer drains the events buffer into the engine. Returns the
// bytes still held when a non-forced flush decides to wait.
func (b *Binlog) flushEventsBuffer(force bool) int64 {
	if b.eventsBuffer == nil {
		return 0
	}
	if !force && !b.eventsBuffer.NeedFlush() {
		return b.eventsBuffer.Size()
	}
	if b.inFlushEventsBuffer {
		panic(ErrInFlush)
	}
	b.inFlushEventsBuffer = true
	b.eventsBuffer.Flush(func(e *Event) {
		if err := b.doAddEvent(e); err != nil {
			b.log.Error("buffered event rejected", "id", e.ID, "err", err)
		}
	})
	b.inFlushEventsBuffer = false
	return 0
}

// doAddEvent collects Partial fragments and commits the pending batch
// together with the next non-partial event, giving multi-record logical
// operations all-or-nothing visibility.
func (b *Binlog) doAddEvent(e *Event) error {
	if e.Flags&FlagPartial != 0 {
		pending := *e
		pending.Flags &^= FlagPartial
		b.pendingEvents = append(b.pendingEvents, &pending)
		return nil
	}
	var firstErr error
	for _, p := range b.pendingEvents {
		if err := b.doEvent(p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	b.pendingEvents = b.pendingEvents[:0]
	if err := b.doEvent(e); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// doEvent writes one event to the current file wiring and applies it to
// the processor (except during reindex, where the processor is the source
// being replayed).
func (b *Binlog) doEvent(e *Event) error {
	// Validate monotonicity before any bytes are staged so a rejected
	// append leaves no trace on disk.
	if b.state == StateRun && !e.IsService() && e.Flags&FlagRewrite == 0 {
		if err := b.processor.checkAppend(e); err != nil {
			return err
		}
	}

	b.fdEvents++
	b.fdSize += e.Size()

	if b.state == StateRun || b.state == StateReindex {
		b.bufferWriter.Append(e.Raw)
	}

	if e.Type == TypeAesCtrEncryption {
		if err := b.applyKeyEvent(e); err != nil {
			return err
		}
		if b.wrongPassword {
			return nil
		}
	}

	if b.state != StateReindex {
		return b.processor.AddEvent(e, b.state == StateLoad)
	}
	return nil
}

// applyKeyEvent installs the encryption announced by a bootstrap record
// and rewires the active pipeline.
func (b *Binlog) applyKeyEvent(e *Event) error {
	ke, err := parseKeyEvent(e.Payload)
	if err != nil {
		return err
	}

	var key []byte
	switch {
	case b.aesCtrKeySalt != nil && bytes.Equal(b.aesCtrKeySalt, ke.keySalt):
		key = b.aesCtrKey[:]
	case !b.dbKey.IsEmpty():
		key = ke.generateKey(b.dbKey)
	}

	if !ke.verifyKey(key) {
		if b.state != StateLoad {
			return fmt.Errorf("binlog: key verification failed outside load")
		}
		if !b.oldDBKey.IsEmpty() {
			key = ke.generateKey(b.oldDBKey)
			if !ke.verifyKey(key) {
				b.wrongPassword = true
				return nil
			}
		} else {
			b.wrongPassword = true
			return nil
		}
	} else {
		b.dbKeyUsed = true
	}

	b.encryptionType = EncryptionAesCtr
	b.aesCtrKeySalt = append([]byte(nil), ke.keySalt...)
	if err := b.updateEncryption(key, ke.iv); err != nil {
		return err
	}

	switch b.state {
	case StateLoad:
		// ciphertext starts at the next stream byte
		b.updateReadEncryption()
		b.log.Info("load: encryption enabled")
	case StateReindex:
		// the bootstrap record itself goes out in plaintext
		if err := b.flush(); err != nil {
			return err
		}
		b.updateWriteEncryption()
	default:
		return fmt.Errorf("binlog: key event in state %d", b.state)
	}
	return nil
}

// updateEncryption installs fresh CTR state from key material.
func (b *Binlog) updateEncryption(key, iv []byte) error {
	copy(b.aesCtrKey[:], key)
	state, err := byteflow.NewAesCtrState(b.aesCtrKey[:], iv)
	if err != nil {
		return err
	}
	b.aesState = state
	return nil
}

// updateReadEncryption rewires the load path for the current encryption
// type. Bytes already buffered flow through the new wiring.
func (b *Binlog) updateReadEncryption() {
	switch b.encryptionType {
	case EncryptionNone:
		b.pipeline = nil
		b.reader.SetInput(b.bufferReader)
	case EncryptionAesCtr:
		b.pipeline = byteflow.NewPipeline(b.bufferReader, b.aesState)
		b.pipeline.Wakeup()
		b.reader.SetInput(b.pipeline.Output())
	}
}

// updateWriteEncryption rewires the write path for the current encryption
// type.
func (b *Binlog) updateWriteEncryption() {
	switch b.encryptionType {
	case EncryptionNone:
		b.pipeline = nil
		b.fd.SetOutputReader(b.bufferReader)
	case EncryptionAesCtr:
		b.pipeline = byteflow.NewPipeline(b.bufferReader, b.aesState)
		b.fd.SetOutputReader(b.pipeline.Output())
	}
}

// Flush pushes all appended events into the OS write buffer.
func (b *Binlog) Flush() error {
	return b.flush()
}

func (b *Binlog) flush() error {
	if b.fd == nil {
		return ErrClosed
	}
	if b.state == StateLoad {
		return nil
	}
	b.flushEventsBuffer(true)
	// encryption happens here: the pipeline pulls pending plaintext
	// through the transform before the file drains it
	if b.pipeline != nil {
		b.pipeline.Wakeup()
	}
	written, err := b.fd.FlushWrite()
	if err != nil {
		return err
	}
	if written > 0 {
		b.needSync = true
	}
	b.needFlushSince = time.Time{}
	return nil
}

// Sync makes all appended events durable. A failed sync is fatal: the log
// cannot silently lose its durability guarantee.
func (b *Binlog) Sync() error {
	return b.sync()
}

func (b *Binlog) sync() error {
	if b.fd == nil {
		return ErrClosed
	}
	if err := b.flush(); err != nil {
		return err
	}
	if b.needSync {
		if err := b.fd.Sync(); err != nil {
			abortFn(b.log, "failed to sync binlog", "path", b.path, "err", err)
		}
		b.needSync = false
	}
	return nil
}

// lazyFlush flushes immediately past the pending-byte threshold, else
// records when unflushed data first appeared so the owner can bound its
// age.
func (b *Binlog) lazyFlush() {
	bufferedEvents := b.flushEventsBuffer(false)
	b.bufferReader.SyncWithWriter()
	size := b.bufferReader.Size() + bufferedEvents
	if size > b.opts.LazyFlushThreshold {
		if err := b.flush(); err != nil {
			b.log.Error("lazy flush failed", "err", err)
		}
	} else if size > 0 && b.needFlushSince.IsZero() {
		b.needFlushSince = time.Now()
	}
}

// NeedFlushSince returns when unflushed data first appeared, or the zero
// time if nothing is pending. The outer scheduler polls this against
// Options.MaxFlushAge.
func (b *Binlog) NeedFlushSince() time.Time {
	return b.needFlushSince
}

// FlushIfStale flushes when pending data has waited at least MaxFlushAge.
func (b *Binlog) FlushIfStale() error {
	if b.needFlushSince.IsZero() || time.Since(b.needFlushSince) < b.opts.MaxFlushAge {
		return nil
	}
	return b.flush()
}

// resetEncryption emits a fresh encryption bootstrap record for the
// current key, or disables encryption when the key is empty. Reindex
// only.
func (b *Binlog) resetEncryption() {
	if b.dbKey.IsEmpty() {
		b.encryptionType = EncryptionNone
		return
	}

	ke := &keyEvent{}
	if len(b.aesCtrKeySalt) == 0 {
		salt := make([]byte, defaultSaltSize)
		if err := security.SecureRandom(salt); err != nil {
			abortFn(b.log, "failed to generate key salt", "err", err)
		}
		ke.keySalt = salt
	} else {
		ke.keySalt = append([]byte(nil), b.aesCtrKeySalt...)
	}
	iv := make([]byte, ivSize)
	if err := security.SecureRandom(iv); err != nil {
		abortFn(b.log, "failed to generate iv", "err", err)
	}
	ke.iv = iv

	var key []byte
	if b.aesCtrKeySalt != nil && bytes.Equal(b.aesCtrKeySalt, ke.keySalt) {
		key = b.aesCtrKey[:]
	} else {
		key = ke.generateKey(b.dbKey)
	}
	ke.keyHash = generateKeyHash(key)

	ev := NewEvent(0, TypeAesCtrEncryption, 0, ke.serialize())
	if err := b.doEvent(ev); err != nil {
		abortFn(b.log, "failed to write encryption event", "err", err)
	}
}

// Reindex rewrites the file to contain exactly the live event set and
// atomically swaps it in. Also the mechanism behind key changes.
func (b *Binlog) Reindex() {
	if b.fd == nil || b.state != StateRun {
		return
	}
	b.doReindex()
}

func (b *Binlog) doReindex() {
	b.flushEventsBuffer(true)
	if b.state != StateRun {
		return
	}
	b.state = StateReindex
	defer func() { b.state = StateRun }()

	startTime := time.Now()
	startSize := fileSize(b.path)
	startEvents := b.fdEvents

	newPath := b.path + ".new"
	newFd, err := fileio.CreateLocked(newPath, b.opts.LockTimeout)
	if err != nil {
		b.log.Error("cannot open new binlog for reindex", "path", newPath, "err", err)
		return
	}
	b.fd.Close()
	b.fd = newFd

	b.bufferWriter = byteflow.NewChainBufferWriter()
	b.bufferReader = b.bufferWriter.ExtractReader()
	b.encryptionType = EncryptionNone
	b.pipeline = nil
	b.updateWriteEncryption()

	b.fdSize = 0
	b.fdEvents = 0
	b.resetEncryption()
	b.processor.ForEach(func(e *Event) {
		if err := b.doEvent(e); err != nil {
			abortFn(b.log, "reindex replay failed", "id", e.ID, "err", err)
		}
	})
	b.needSync = true // the new file must reach disk before the swap
	if err := b.sync(); err != nil {
		abortFn(b.log, "reindex sync failed", "err", err)
	}

	if err := os.Remove(b.path); err != nil {
		abortFn(b.log, "failed to unlink old binlog", "path", b.path, "err", err)
	}
	if err := os.Rename(newPath, b.path); err != nil {
		abortFn(b.log, "failed to rename binlog", "from", newPath, "to", b.path, "err", err)
	}
	if size := fileSize(b.path); size != b.fdSize {
		abortFn(b.log, "reindex size mismatch", "fd_size", b.fdSize, "file_size", size)
	}

	b.log.Info("binlog reindexed",
		"path", b.path,
		"duration", time.Since(startTime),
		"before_size", startSize,
		"after_size", b.fdSize,
		"before_events", startEvents,
		"after_events", b.fdEvents)

	b.bufferWriter = byteflow.NewChainBufferWriter()
	b.bufferReader = b.bufferWriter.ExtractReader()
	if b.encryptionType == EncryptionAesCtr && b.pipeline != nil {
		b.aesState = b.pipeline.ExtractState()
	}
	b.pipeline = nil
	b.updateWriteEncryption()
}

// ChangeKey rotates the on-disk encryption to newDBKey by rewriting the
// whole file under a fresh salt.
func (b *Binlog) ChangeKey(newDBKey DBKey) {
	b.dbKey = newDBKey
	b.aesCtrKeySalt = nil
	b.doReindex()
}

// Close flushes (and optionally syncs) the log and releases the file.
// Idempotent.
func (b *Binlog) Close(needSync bool) error {
	if b.fd == nil {
		return nil
	}
	if needSync {
		b.sync()
	} else {
		b.flush()
	}
	err := b.fd.Close()
	b.fd = nil
	b.path = ""
	b.info.IsOpened = false
	b.needSync = false
	return err
}

// CloseAndDestroy closes the log and removes its files.
func (b *Binlog) CloseAndDestroy() error {
	path := b.path
	err := b.Close(false)
	Destroy(path)
	return err
}

// Destroy removes the binlog files at path. Missing files are fine.
func Destroy(path string) {
	if path == "" {
		return
	}
	os.Remove(path)
	os.Remove(path + ".new")
}

func fileSize(path string) int64 {
	st, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return st.Size()
}
