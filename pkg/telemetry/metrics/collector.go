package metrics

import (
	"time"

	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/migration"
	"mercator-hq/ganymede/pkg/resilience/breaker"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns the Prometheus registry and all metric families for
// the process. Every recording method is a no-op when metrics are
// disabled in configuration, so callers never need to guard.
type Collector struct {
	cfg      config.MetricsConfig
	registry *prometheus.Registry

	sessions   *SessionMetrics
	providers  *ProviderMetrics
	migrations *MigrationMetrics
	health     *HealthMetrics
}

// NewCollector creates a Collector registered against registry. A nil
// registry gets a fresh private one, which keeps tests isolated.
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "mercator"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "ganymede"
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		cfg.RequestDurationBuckets = []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 90.0}
	}
	if len(cfg.ChunkSizeBuckets) == 0 {
		cfg.ChunkSizeBuckets = []float64{64, 256, 1024, 4096, 16384, 65536, 262144}
	}

	return &Collector{
		cfg:        cfg,
		registry:   registry,
		sessions:   newSessionMetrics(cfg, registry),
		providers:  newProviderMetrics(cfg, registry),
		migrations: newMigrationMetrics(cfg, registry),
		health:     newHealthMetrics(cfg, registry),
	}
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// SessionStarted records a new active session for a provider.
func (c *Collector) SessionStarted(provider string) {
	if !c.cfg.Enabled {
		return
	}
	c.sessions.started(provider)
}

// SessionFinished records a session leaving the active set with its
// terminal outcome ("completed", "error", "timed_out", "cancelled")
// and total duration.
func (c *Collector) SessionFinished(provider, outcome string, duration time.Duration) {
	if !c.cfg.Enabled {
		return
	}
	c.sessions.finished(provider, outcome, duration)
}

// ChunkProcessed records one chunk outcome ("emitted", "delayed",
// "dropped", "rejected") and its size in bytes.
func (c *Collector) ChunkProcessed(provider, result string, size int) {
	if !c.cfg.Enabled {
		return
	}
	c.sessions.chunk(provider, result, size)
}

// ProviderRequest records a provider call with its latency.
func (c *Collector) ProviderRequest(provider, operation string, duration time.Duration) {
	if !c.cfg.Enabled {
		return
	}
	c.providers.request(provider, operation, duration)
}

// ProviderFailure records a classified provider failure.
func (c *Collector) ProviderFailure(provider, errorType string) {
	if !c.cfg.Enabled {
		return
	}
	c.providers.failure(provider, errorType)
}

// BreakerState publishes the current breaker state for a provider.
func (c *Collector) BreakerState(provider string, state breaker.State) {
	if !c.cfg.Enabled {
		return
	}
	c.providers.breakerState(provider, state)
}

// RecordRoute implements migration.Recorder, feeding routing outcomes
// into the migration metric family.
func (c *Collector) RecordRoute(o migration.Outcome) {
	if !c.cfg.Enabled {
		return
	}
	c.migrations.route(o)
}

// RolloutPercentage publishes the currently configured rollout.
func (c *Collector) RolloutPercentage(pct int) {
	if !c.cfg.Enabled {
		return
	}
	c.migrations.rollout.Set(float64(pct))
}

// HealthCheck records one health evaluation result ("healthy",
// "warning", "critical") along with the consecutive counters.
func (c *Collector) HealthCheck(status string, consecutiveWarnings, consecutiveCritical int) {
	if !c.cfg.Enabled {
		return
	}
	c.health.check(status, consecutiveWarnings, consecutiveCritical)
}

// RollbackTriggered counts an automatic migration rollback.
func (c *Collector) RollbackTriggered() {
	if !c.cfg.Enabled {
		return
	}
	c.health.rollbacks.Inc()
}
