package migration

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// SnapshotWatcher reloads the flag store when the JSON snapshot file is
// edited externally. Edits are debounced so editor write bursts trigger
// a single reload.
type SnapshotWatcher struct {
	store    *Store
	path     string
	debounce time.Duration
	logger   *slog.Logger

	watcher *fsnotify.Watcher
}

// NewSnapshotWatcher creates a watcher on the store's snapshot file. The
// parent directory is watched so atomic rename-style saves are seen.
func NewSnapshotWatcher(store *Store, logger *slog.Logger) (*SnapshotWatcher, error) {
	if store.cfg.SnapshotPath == "" {
		return nil, fmt.Errorf("snapshot path not configured")
	}
	if logger == nil {
		logger = slog.Default()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	dir := filepath.Dir(store.cfg.SnapshotPath)
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	return &SnapshotWatcher{
		store:    store,
		path:     store.cfg.SnapshotPath,
		debounce: 100 * time.Millisecond,
		logger:   logger.With("component", "flag_watcher"),
		watcher:  w,
	}, nil
}

// Watch blocks until the context is cancelled, reloading the snapshot
// on debounced write events.
func (sw *SnapshotWatcher) Watch(ctx context.Context) error {
	defer sw.watcher.Close()

	var pending *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case ev, ok := <-sw.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(sw.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(sw.debounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			if err := sw.reload(); err != nil {
				sw.logger.Warn("snapshot reload rejected", "error", err)
			}

		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return nil
			}
			sw.logger.Warn("watcher error", "error", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// reload parses and applies the snapshot file through the store's
// validation path.
func (sw *SnapshotWatcher) reload() error {
	data, err := os.ReadFile(sw.path)
	if err != nil {
		return err
	}

	flags := DefaultFlags()
	if err := json.Unmarshal(data, &flags); err != nil {
		return fmt.Errorf("invalid snapshot json: %w", err)
	}

	if err := sw.store.Replace(flags); err != nil {
		return err
	}
	sw.logger.Info("feature flags reloaded from snapshot",
		"rollout_percentage", flags.RolloutPercentage,
		"phase", string(flags.MigrationPhase))
	return nil
}
