package metrics

import (
	"mercator-hq/ganymede/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// HealthMetrics tracks the periodic health classification.
//
// Metrics:
//   - health_status: 0=healthy, 1=warning, 2=critical
//   - health_checks_total: evaluations by resulting status
//   - health_consecutive_warnings / _critical: current streak lengths
//   - migration_rollbacks_total: automatic rollbacks triggered
type HealthMetrics struct {
	status              prometheus.Gauge
	checks              *prometheus.CounterVec
	consecutiveWarnings prometheus.Gauge
	consecutiveCritical prometheus.Gauge
	rollbacks           prometheus.Counter
}

func newHealthMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *HealthMetrics {
	hm := &HealthMetrics{
		status: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "health_status",
				Help:      "Overall health status (0=healthy, 1=warning, 2=critical)",
			},
		),
		checks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "health_checks_total",
				Help:      "Health evaluations by resulting status",
			},
			[]string{"status"},
		),
		consecutiveWarnings: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "health_consecutive_warnings",
				Help:      "Current consecutive warning streak",
			},
		),
		consecutiveCritical: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "health_consecutive_critical",
				Help:      "Current consecutive critical streak",
			},
		),
		rollbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "migration_rollbacks_total",
				Help:      "Automatic migration rollbacks triggered by health checks",
			},
		),
	}

	registry.MustRegister(hm.status, hm.checks, hm.consecutiveWarnings, hm.consecutiveCritical, hm.rollbacks)
	return hm
}

func (hm *HealthMetrics) check(status string, warnings, critical int) {
	var v float64
	switch status {
	case "warning":
		v = 1
	case "critical":
		v = 2
	}
	hm.status.Set(v)
	hm.checks.WithLabelValues(status).Inc()
	hm.consecutiveWarnings.Set(float64(warnings))
	hm.consecutiveCritical.Set(float64(critical))
}
