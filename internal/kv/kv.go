// Package kv implements a persistent key-value map on top of the binlog
// engine. Every mutation is one framed event: first writes get a fresh
// id, updates rewrite that id, deletes erase it. On open the map is
// rebuilt from the live event replay.
package kv

import (
	"fmt"

	"binlogd/internal/binlog"
	"binlogd/internal/logging"
)

// entryType is the event type used for map entries.
const entryType int32 = 1

// Errors
var (
	// ErrNotFound is returned by Get for a missing key.
	ErrNotFound = fmt.Errorf("kv: key not found")
)

type entry struct {
	id    uint64
	value []byte
}

// Map is a binlog-backed persistent string-keyed map. Single-owner, like
// the engine underneath it.
type Map struct {
	engine  *binlog.Binlog
	entries map[string]entry
	keys    map[uint64]string
	nextID  uint64
}

// Open loads (or creates) the map at path. A non-empty dbKey encrypts the
// file.
func Open(path string, dbKey binlog.DBKey) (*Map, error) {
	return OpenWithOptions(path, dbKey, binlog.EmptyKey(), binlog.Options{})
}

// OpenWithOptions is Open with an old key for unlock-and-rotate and
// explicit engine options.
func OpenWithOptions(path string, dbKey, oldDBKey binlog.DBKey, opts binlog.Options) (*Map, error) {
	if opts.Logger == nil {
		opts.Logger = logging.Component("kv")
	}
	m := &Map{
		entries: make(map[string]entry),
		keys:    make(map[uint64]string),
	}
	m.engine = binlog.New(opts)
	if err := m.engine.Init(path, m.apply, dbKey, oldDBKey); err != nil {
		return nil, err
	}
	m.nextID = m.engine.NextID()
	return m, nil
}

// apply rebuilds one live event into the map during load replay.
func (m *Map) apply(e *binlog.Event) {
	if e.Type != entryType {
		return
	}
	key, rest, err := binlog.ReadTLBytes(e.Payload)
	if err != nil {
		return
	}
	value, _, err := binlog.ReadTLBytes(rest)
	if err != nil {
		return
	}
	m.entries[string(key)] = entry{id: e.ID, value: append([]byte(nil), value...)}
	m.keys[e.ID] = string(key)
}

// Get returns the value for key, or ErrNotFound.
func (m *Map) Get(key string) ([]byte, error) {
	ent, ok := m.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return ent.value, nil
}

// Set writes key to value. The change reaches the OS buffer on the
// engine's flush schedule; call Sync for durability.
func (m *Map) Set(key string, value []byte) error {
	var id uint64
	var flags uint32
	if ent, ok := m.entries[key]; ok {
		id = ent.id
		flags = binlog.FlagRewrite
	} else {
		id = m.nextID
	}

	payload := binlog.AppendTLBytes(nil, []byte(key))
	payload = binlog.AppendTLBytes(payload, value)
	ev := binlog.NewEvent(id, entryType, flags, payload)
	if err := m.engine.AddEvent(ev); err != nil {
		return err
	}

	if flags == 0 {
		m.nextID++
	}
	m.entries[key] = entry{id: id, value: append([]byte(nil), value...)}
	m.keys[id] = key
	return nil
}

// Delete removes key. Missing keys are fine.
func (m *Map) Delete(key string) error {
	ent, ok := m.entries[key]
	if !ok {
		return nil
	}
	ev := binlog.NewEvent(ent.id, binlog.TypeEmpty, binlog.FlagRewrite, nil)
	if err := m.engine.AddEvent(ev); err != nil {
		return err
	}
	delete(m.entries, key)
	delete(m.keys, ent.id)
	return nil
}

// ForEach visits every key/value pair. Iteration order is unspecified.
func (m *Map) ForEach(visit func(key string, value []byte)) {
	for k, ent := range m.entries {
		visit(k, ent.value)
	}
}

// Len returns the number of keys.
func (m *Map) Len() int {
	return len(m.entries)
}

// Sync makes all prior mutations durable.
func (m *Map) Sync() error {
	return m.engine.Sync()
}

// Reindex compacts the underlying binlog.
func (m *Map) Reindex() {
	m.engine.Reindex()
}

// ChangeKey rotates the encryption key, rewriting the file.
func (m *Map) ChangeKey(newDBKey binlog.DBKey) {
	m.engine.ChangeKey(newDBKey)
}

// Close flushes and closes the underlying binlog.
func (m *Map) Close() error {
	return m.engine.Close(true)
}
