// Package config handles configuration loading and validation for
// binlogd.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the complete configuration.
type Config struct {
	// Binlog tunes the engine.
	Binlog BinlogConfig `toml:"binlog"`

	// Logging configures structured log output.
	Logging LoggingConfig `toml:"logging"`
}

// BinlogConfig holds the engine knobs.
type BinlogConfig struct {
	// LazyFlushThresholdBytes is the pending-byte count beyond which an
	// append flushes immediately.
	LazyFlushThresholdBytes int64 `toml:"lazy_flush_threshold_bytes"`

	// MaxFlushAgeMs bounds how long buffered events may wait before the
	// owner should flush.
	MaxFlushAgeMs int `toml:"max_flush_age_ms"`

	// Reindex fires when the file exceeds small_size_bytes and live data
	// is under 1/small_rate of it, or the large pair likewise.
	ReindexSmallSizeBytes int64 `toml:"reindex_small_size_bytes"`
	ReindexSmallRate      int64 `toml:"reindex_small_rate"`
	ReindexLargeSizeBytes int64 `toml:"reindex_large_size_bytes"`
	ReindexLargeRate      int64 `toml:"reindex_large_rate"`

	// EventsBuffer enables the coalescing buffer in front of the engine.
	EventsBuffer bool `toml:"events_buffer"`

	// EventsBufferMaxCount and EventsBufferMaxBytes bound the buffer.
	EventsBufferMaxCount int   `toml:"events_buffer_max_count"`
	EventsBufferMaxBytes int64 `toml:"events_buffer_max_bytes"`

	// LockTimeoutMs bounds the advisory-lock retry during open.
	LockTimeoutMs int `toml:"lock_timeout_ms"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// LockTimeout returns the lock timeout as a duration.
func (c *BinlogConfig) LockTimeout() time.Duration {
	return time.Duration(c.LockTimeoutMs) * time.Millisecond
}

// MaxFlushAge returns the flush age bound as a duration.
func (c *BinlogConfig) MaxFlushAge() time.Duration {
	return time.Duration(c.MaxFlushAgeMs) * time.Millisecond
}

// Load reads a TOML config file, applies defaults for unset fields, and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config: %s does not exist", path)
		}
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config: unknown keys in %s: %v", path, undecoded)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
