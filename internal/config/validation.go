package config

import (
	"errors"
	"fmt"
)

// Validation errors.
var (
	ErrInvalidThreshold = errors.New("config: invalid threshold")
	ErrInvalidRate      = errors.New("config: invalid rate")
)

// Validate checks the configuration for inconsistent values.
func (c *Config) Validate() error {
	b := &c.Binlog
	if b.LazyFlushThresholdBytes <= 0 {
		return fmt.Errorf("%w: lazy_flush_threshold_bytes must be positive", ErrInvalidThreshold)
	}
	if b.MaxFlushAgeMs <= 0 {
		return fmt.Errorf("%w: max_flush_age_ms must be positive", ErrInvalidThreshold)
	}
	if b.ReindexSmallRate <= 1 || b.ReindexLargeRate <= 1 {
		return fmt.Errorf("%w: reindex rates must be greater than 1", ErrInvalidRate)
	}
	if b.ReindexSmallSizeBytes <= 0 || b.ReindexLargeSizeBytes <= 0 {
		return fmt.Errorf("%w: reindex sizes must be positive", ErrInvalidThreshold)
	}
	if b.ReindexLargeSizeBytes < b.ReindexSmallSizeBytes {
		return fmt.Errorf("%w: reindex_large_size_bytes below reindex_small_size_bytes", ErrInvalidThreshold)
	}
	if b.EventsBuffer {
		if b.EventsBufferMaxCount <= 0 || b.EventsBufferMaxBytes <= 0 {
			return fmt.Errorf("%w: events buffer limits must be positive", ErrInvalidThreshold)
		}
	}
	if b.LockTimeoutMs <= 0 {
		return fmt.Errorf("%w: lock_timeout_ms must be positive", ErrInvalidThreshold)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("config: unknown logging level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: unknown logging format %q", c.Logging.Format)
	}
	return nil
}
