package config

// Default returns the reference configuration.
func Default() *Config {
	return &Config{
		Binlog: BinlogConfig{
			LazyFlushThresholdBytes: 1 << 14,
			MaxFlushAgeMs:           1000,
			ReindexSmallSizeBytes:   100_000,
			ReindexSmallRate:        5,
			ReindexLargeSizeBytes:   500_000,
			ReindexLargeRate:        2,
			EventsBuffer:            false,
			EventsBufferMaxCount:    100,
			EventsBufferMaxBytes:    1 << 16,
			LockTimeoutMs:           100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}
