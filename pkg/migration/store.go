package migration

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"os"
	"sync"

	"mercator-hq/ganymede/pkg/config"
)

// Store is the authoritative holder of the process-wide FeatureFlags
// value. One instance exists per process, injected into the Router and
// the health monitor.
//
// Thread safety: safe for concurrent use.
type Store struct {
	cfg    config.MigrationConfig
	logger *slog.Logger

	mu    sync.RWMutex
	flags FeatureFlags

	db    *flagDB
	cache *decisionCache
}

// NewStore opens the flag database, restores the persisted flags value
// (falling back to defaults on first start), and builds the decision
// cache.
func NewStore(cfg config.MigrationConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "migration")

	db, err := openFlagDB(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	flags, err := db.load()
	switch {
	case err == nil:
		logger.Info("feature flags restored",
			"phase", string(flags.MigrationPhase),
			"rollout_percentage", flags.RolloutPercentage)
	case err == errNoPersistedFlags:
		flags = DefaultFlags()
		if err := db.save(flags); err != nil {
			db.close()
			return nil, err
		}
		logger.Info("feature flags initialized with defaults")
	default:
		db.close()
		return nil, err
	}

	if verr := validate(flags); verr != nil {
		db.close()
		return nil, fmt.Errorf("persisted flags invalid: %w", verr)
	}

	s := &Store{
		cfg:    cfg,
		logger: logger,
		flags:  flags,
		db:     db,
		cache:  newDecisionCache(cfg.DecisionCacheTTL, cfg.DecisionCacheMaxEntries),
	}

	if cfg.SnapshotPath != "" {
		if err := s.writeSnapshot(); err != nil {
			logger.Warn("failed to write flag snapshot", "error", err)
		}
	}

	return s, nil
}

// Flags returns a copy of the current flags value.
func (s *Store) Flags() FeatureFlags {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags.clone()
}

// Update validates and applies a partial mutation atomically, persists
// the new value, and invalidates cached routing decisions. An invalid
// update is rejected with every violated constraint and leaves the
// current value untouched.
func (s *Store) Update(u Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := u.apply(s.flags)
	if err := validate(next); err != nil {
		return err
	}

	if err := s.db.save(next); err != nil {
		return err
	}

	s.flags = next
	s.cache.clear()

	if s.cfg.SnapshotPath != "" {
		if err := s.writeSnapshotLocked(); err != nil {
			s.logger.Warn("failed to write flag snapshot", "error", err)
		}
	}

	s.logger.Info("feature flags updated",
		"phase", string(next.MigrationPhase),
		"rollout_percentage", next.RolloutPercentage,
		"reqllm_enabled", next.ReqllmEnabled)
	return nil
}

// Replace swaps in a complete flags value. Used by the snapshot watcher.
func (s *Store) Replace(flags FeatureFlags) error {
	if err := validate(flags); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.save(flags); err != nil {
		return err
	}
	s.flags = flags.clone()
	s.cache.clear()
	return nil
}

// ShouldUseReqllm computes the routing decision for one call. The
// rollout membership of a session identifier is deterministic and
// cached; force flags short-circuit everything else.
func (s *Store) ShouldUseReqllm(sessionID, provider string, op Operation) bool {
	s.mu.RLock()
	flags := s.flags
	s.mu.RUnlock()

	if flags.ForceLegacy {
		return false
	}
	if flags.ForceReqllm {
		return true
	}
	if !flags.ReqllmEnabled {
		return false
	}

	inRollout, ok := s.cache.get(sessionID)
	if !ok {
		inRollout = rolloutBucket(sessionID) < flags.RolloutPercentage
		s.cache.set(sessionID, inRollout)
	}
	if !inRollout {
		return false
	}

	return flags.ProviderEnabled[provider] && flags.operationEnabled(op)
}

// Rollback steps the migration phase back one step and zeroes the
// rollout so every session returns to the legacy path.
func (s *Store) Rollback() error {
	current := s.Flags()
	prev := current.MigrationPhase.Previous()
	zero := 0
	disabled := false
	err := s.Update(Update{
		MigrationPhase:    &prev,
		RolloutPercentage: &zero,
		ReqllmEnabled:     &disabled,
	})
	if err == nil {
		s.logger.Warn("migration rolled back",
			"from_phase", string(current.MigrationPhase),
			"to_phase", string(prev))
	}
	return err
}

// ForceLegacy pins all routing to the legacy path. Emergency fallback
// when a rollback itself fails.
func (s *Store) ForceLegacy() error {
	on := true
	off := false
	return s.Update(Update{ForceLegacy: &on, ForceReqllm: &off})
}

// CacheSize returns the number of cached rollout decisions.
func (s *Store) CacheSize() int {
	return s.cache.size()
}

// Close releases the cache cleanup goroutine and the database.
func (s *Store) Close() error {
	s.cache.close()
	return s.db.close()
}

// writeSnapshot mirrors the current flags value to the JSON snapshot
// file for external inspection and editing.
func (s *Store) writeSnapshot() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writeSnapshotLocked()
}

func (s *Store) writeSnapshotLocked() error {
	data, err := json.MarshalIndent(s.flags, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.cfg.SnapshotPath, append(data, '\n'), 0o644)
}

// rolloutBucket maps a session identifier to a stable bucket in [0, 100).
func rolloutBucket(sessionID string) int {
	h := fnv.New64a()
	h.Write([]byte(sessionID))
	return int(h.Sum64() % 100)
}
