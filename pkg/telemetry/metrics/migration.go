package metrics

import (
	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/migration"

	"github.com/prometheus/client_golang/prometheus"
)

// MigrationMetrics tracks routing between the legacy and reqllm paths.
//
// Metrics:
//   - route_decisions_total: invocations by path, operation, and status
//   - route_fallbacks_total: reqllm failures retried on the legacy path
//   - rollout_percentage: currently configured rollout
type MigrationMetrics struct {
	decisions *prometheus.CounterVec
	fallbacks *prometheus.CounterVec
	rollout   prometheus.Gauge
}

func newMigrationMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *MigrationMetrics {
	mm := &MigrationMetrics{
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "route_decisions_total",
				Help:      "Routing invocations by path, operation, and status",
			},
			[]string{"path", "operation", "status"},
		),
		fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "route_fallbacks_total",
				Help:      "Reqllm failures retried on the legacy path",
			},
			[]string{"operation"},
		),
		rollout: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rollout_percentage",
				Help:      "Configured reqllm rollout percentage",
			},
		),
	}

	registry.MustRegister(mm.decisions, mm.fallbacks, mm.rollout)
	return mm
}

func (mm *MigrationMetrics) route(o migration.Outcome) {
	status := "success"
	if o.Err != nil {
		status = "error"
	}
	mm.decisions.WithLabelValues(o.Path, string(o.Operation), status).Inc()
	if o.Fallback {
		mm.fallbacks.WithLabelValues(string(o.Operation)).Inc()
	}
}
