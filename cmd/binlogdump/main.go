// Command binlogdump replays a binlog file and prints its live events.
//
// Usage:
//
//	binlogdump -path events.binlog [-key PASSWORD] [-stats] [-skip-erase] [-follow]
//
// -skip-erase keeps erased events visible, which is what a forensic
// replay wants. -follow keeps watching the file and, after each change,
// replays it again and prints events with ids above the last one shown.
//
// The tool opens the file read-write through the regular engine, so it
// takes the exclusive advisory lock; it cannot run against a log that is
// open in a live process, and under -follow a re-read fails while a writer
// holds the lock and is retried on the next change.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/fsnotify/fsnotify"

	"binlogd/internal/binlog"
	"binlogd/internal/config"
	"binlogd/internal/logging"
)

func main() {
	var (
		path       = flag.String("path", "", "binlog file to dump")
		configPath = flag.String("config", "", "optional TOML config file")
		key        = flag.String("key", "", "password for an encrypted binlog")
		oldKey     = flag.String("old-key", "", "previous password, for a log caught mid-rotation")
		rawKey     = flag.String("raw-key", "", "hex-encoded raw key instead of a password")
		skipErase  = flag.Bool("skip-erase", false, "keep erased events visible (forensic replay)")
		stats      = flag.Bool("stats", false, "print summary statistics only")
		follow     = flag.Bool("follow", false, "keep watching the file for appended events")
	)
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "binlogdump: -path is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if _, err := logging.Init(&logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	dbKey, err := makeKey(*key, *rawKey)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	oldDBKey := binlog.EmptyKey()
	if *oldKey != "" {
		oldDBKey = binlog.PasswordKey(*oldKey)
	}

	opts := binlog.Options{
		Logger:      logging.Component("binlogdump"),
		SkipErase:   *skipErase,
		LockTimeout: cfg.Binlog.LockTimeout(),
	}

	lastID, err := dump(*path, dbKey, oldDBKey, opts, *stats, 0)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if !*follow {
		return
	}

	if err := followFile(*path, dbKey, oldDBKey, opts, lastID); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// makeKey builds the db key from the mutually exclusive flag pair.
func makeKey(password, rawHex string) (binlog.DBKey, error) {
	if password != "" && rawHex != "" {
		return binlog.EmptyKey(), fmt.Errorf("binlogdump: -key and -raw-key are mutually exclusive")
	}
	if rawHex != "" {
		raw, err := hex.DecodeString(rawHex)
		if err != nil {
			return binlog.EmptyKey(), fmt.Errorf("binlogdump: bad -raw-key: %w", err)
		}
		return binlog.RawKey(raw), nil
	}
	if password != "" {
		return binlog.PasswordKey(password), nil
	}
	return binlog.EmptyKey(), nil
}

// dump replays the file and prints events with id greater than afterID.
// Returns the largest id seen.
func dump(path string, dbKey, oldDBKey binlog.DBKey, opts binlog.Options, statsOnly bool, afterID uint64) (uint64, error) {
	engine := binlog.New(opts)

	var count int
	var totalSize int64
	lastID := afterID
	callback := func(e *binlog.Event) {
		count++
		totalSize += e.Size()
		if e.ID > lastID {
			lastID = e.ID
		}
		if statsOnly || e.ID <= afterID {
			return
		}
		printEvent(e)
	}

	if err := engine.Init(path, callback, dbKey, oldDBKey); err != nil {
		return lastID, fmt.Errorf("binlogdump: %w", err)
	}
	defer engine.Close(false)

	if statsOnly {
		info := engine.Info()
		fmt.Printf("events: %d\nlive bytes: %d\nlast id: %d\ncreated: %v\n",
			count, totalSize, info.LastID, info.WasCreated)
	}
	return lastID, nil
}

func printEvent(e *binlog.Event) {
	preview := e.Payload
	const maxPreview = 48
	truncated := ""
	if len(preview) > maxPreview {
		preview = preview[:maxPreview]
		truncated = "..."
	}
	fmt.Printf("id=%d type=%d flags=%#x size=%d offset=%d payload=%q%s\n",
		e.ID, e.Type, e.Flags, e.Size(), e.Offset, preview, truncated)
}

// followFile watches path and re-dumps newly appended events whenever the
// writer touches the file.
func followFile(path string, dbKey, oldDBKey binlog.DBKey, opts binlog.Options, lastID uint64) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("binlogdump: watch: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("binlogdump: watch %s: %w", path, err)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			id, err := dump(path, dbKey, oldDBKey, opts, false, lastID)
			if err != nil {
				// the writer likely holds the lock; try again on the
				// next change
				continue
			}
			lastID = id
			// a reindex swaps in a fresh inode; re-arm the watch
			watcher.Remove(path)
			if err := watcher.Add(path); err != nil {
				return fmt.Errorf("binlogdump: rewatch %s: %w", path, err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("binlogdump: watch: %w", err)
		case <-interrupt:
			return nil
		}
	}
}
