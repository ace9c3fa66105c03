package metrics

import (
	"time"

	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/resilience/breaker"

	"github.com/prometheus/client_golang/prometheus"
)

// ProviderMetrics tracks upstream provider calls, failures, and
// circuit breaker state.
//
// Metrics:
//   - provider_requests_total: calls by provider and operation
//   - provider_latency_seconds: call latency per provider
//   - provider_failures_total: classified failures by provider and type
//   - breaker_state: 0=closed, 1=half_open, 2=open
type ProviderMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	failures *prometheus.CounterVec
	breaker  *prometheus.GaugeVec
}

func newProviderMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *ProviderMetrics {
	pm := &ProviderMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_requests_total",
				Help:      "Total upstream provider calls",
			},
			[]string{"provider", "operation"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_latency_seconds",
				Help:      "Upstream provider call latency in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"provider"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_failures_total",
				Help:      "Classified provider failures (timeout, server, rate_limit, ...)",
			},
			[]string{"provider", "error_type"},
		),
		breaker: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "breaker_state",
				Help:      "Circuit breaker state per provider (0=closed, 1=half_open, 2=open)",
			},
			[]string{"provider"},
		),
	}

	registry.MustRegister(pm.requests, pm.latency, pm.failures, pm.breaker)
	return pm
}

func (pm *ProviderMetrics) request(provider, operation string, d time.Duration) {
	pm.requests.WithLabelValues(provider, operation).Inc()
	pm.latency.WithLabelValues(provider).Observe(d.Seconds())
}

func (pm *ProviderMetrics) failure(provider, errorType string) {
	pm.failures.WithLabelValues(provider, errorType).Inc()
}

func (pm *ProviderMetrics) breakerState(provider string, state breaker.State) {
	var v float64
	switch state {
	case breaker.HalfOpen:
		v = 1
	case breaker.Open:
		v = 2
	}
	pm.breaker.WithLabelValues(provider).Set(v)
}
