package metrics

import (
	"time"

	"mercator-hq/ganymede/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// SessionMetrics tracks streaming session lifecycle and chunk flow.
//
// Metrics:
//   - active_sessions: currently running sessions per provider
//   - sessions_total: finished sessions by provider and outcome
//   - session_duration_seconds: session wall time by provider and outcome
//   - chunks_total: processed chunks by provider and result
//   - chunk_bytes: chunk size distribution per provider
//   - stream_bytes_total: emitted bytes per provider
type SessionMetrics struct {
	active    *prometheus.GaugeVec
	total     *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	chunks    *prometheus.CounterVec
	chunkSize *prometheus.HistogramVec
	bytes     *prometheus.CounterVec
}

func newSessionMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *SessionMetrics {
	sm := &SessionMetrics{
		active: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "active_sessions",
				Help:      "Number of currently active streaming sessions",
			},
			[]string{"provider"},
		),
		total: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "sessions_total",
				Help:      "Finished sessions by terminal outcome",
			},
			[]string{"provider", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "session_duration_seconds",
				Help:      "Session duration from start to terminal state",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"provider", "outcome"},
		),
		chunks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "chunks_total",
				Help:      "Processed chunks by result (emitted, delayed, dropped, rejected)",
			},
			[]string{"provider", "result"},
		),
		chunkSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "chunk_bytes",
				Help:      "Chunk size distribution in bytes",
				Buckets:   cfg.ChunkSizeBuckets,
			},
			[]string{"provider"},
		),
		bytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "stream_bytes_total",
				Help:      "Total emitted stream bytes per provider",
			},
			[]string{"provider"},
		),
	}

	registry.MustRegister(sm.active, sm.total, sm.duration, sm.chunks, sm.chunkSize, sm.bytes)
	return sm
}

func (sm *SessionMetrics) started(provider string) {
	sm.active.WithLabelValues(provider).Inc()
}

func (sm *SessionMetrics) finished(provider, outcome string, d time.Duration) {
	sm.active.WithLabelValues(provider).Dec()
	sm.total.WithLabelValues(provider, outcome).Inc()
	sm.duration.WithLabelValues(provider, outcome).Observe(d.Seconds())
}

func (sm *SessionMetrics) chunk(provider, result string, size int) {
	sm.chunks.WithLabelValues(provider, result).Inc()
	sm.chunkSize.WithLabelValues(provider).Observe(float64(size))
	if result == "emitted" {
		sm.bytes.WithLabelValues(provider).Add(float64(size))
	}
}
