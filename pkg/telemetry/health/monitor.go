package health

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/ganymede/pkg/config"

	"github.com/robfig/cron/v3"
)

// Status classifies overall system health.
type Status int

const (
	// Healthy means all indicators are within normal bounds.
	Healthy Status = iota

	// Warning means at least one indicator crossed its warning
	// threshold.
	Warning

	// Critical means at least one indicator crossed its critical
	// threshold.
	Critical
)

// String returns the lowercase name of the status.
func (s Status) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Warning:
		return "warning"
	case Critical:
		return "critical"
	default:
		return "unknown"
	}
}

// Snapshot is one window of aggregate performance indicators.
type Snapshot struct {
	// ErrorRate is the fraction of failed requests in the window.
	ErrorRate float64

	// LatencyRatio is current average latency relative to the
	// baseline. 1.0 means unchanged.
	LatencyRatio float64

	// StreamingSuccessRate is the fraction of streaming operations
	// that completed without error.
	StreamingSuccessRate float64

	// Requests is the number of requests observed in the window.
	Requests int64
}

// MetricsSource supplies the indicator snapshot for each evaluation.
type MetricsSource interface {
	Snapshot() Snapshot
}

// FlagStore is the subset of the feature flag store the monitor uses
// for automatic rollback. Satisfied by *migration.Store.
type FlagStore interface {
	Rollback() error
	ForceLegacy() error
}

// Sink receives evaluation results for instrumentation. Satisfied by
// *metrics.Collector. A nil Sink is allowed.
type Sink interface {
	HealthCheck(status string, consecutiveWarnings, consecutiveCritical int)
	RollbackTriggered()
}

// Record is one health evaluation kept in the bounded history ring.
type Record struct {
	Timestamp time.Time
	Status    Status
	Snapshot  Snapshot
	Reasons   []string
}

// Monitor periodically classifies system health and triggers an
// automatic migration rollback when the system stays degraded.
// Rollback is latched: once triggered it will not fire again until
// Rearm is called.
type Monitor struct {
	cfg    config.HealthConfig
	source MetricsSource
	flags  FlagStore
	sink   Sink
	logger *slog.Logger
	cron   *cron.Cron

	mu                  sync.Mutex
	running             bool
	status              Status
	consecutiveWarnings int
	consecutiveCritical int
	rolledBack          bool
	history             []Record
	next                int
	filled              bool
}

// NewMonitor creates a Monitor. The flag store may be nil, which
// disables automatic rollback; the sink may be nil.
func NewMonitor(cfg config.HealthConfig, source MetricsSource, flags FlagStore, sink Sink, logger *slog.Logger) *Monitor {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 30s"
	}
	if cfg.WarningErrorRate == 0 {
		cfg.WarningErrorRate = 0.05
	}
	if cfg.CriticalErrorRate == 0 {
		cfg.CriticalErrorRate = 0.10
	}
	if cfg.WarningLatencyRatio == 0 {
		cfg.WarningLatencyRatio = 2.0
	}
	if cfg.CriticalLatencyRatio == 0 {
		cfg.CriticalLatencyRatio = 3.0
	}
	if cfg.WarningStreamingSuccess == 0 {
		cfg.WarningStreamingSuccess = 0.90
	}
	if cfg.CriticalStreamingSuccess == 0 {
		cfg.CriticalStreamingSuccess = 0.80
	}
	if cfg.MaxConsecutiveCritical == 0 {
		cfg.MaxConsecutiveCritical = 3
	}
	if cfg.MaxConsecutiveWarnings == 0 {
		cfg.MaxConsecutiveWarnings = 10
	}
	if cfg.HistorySize == 0 {
		cfg.HistorySize = 120
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Monitor{
		cfg:     cfg,
		source:  source,
		flags:   flags,
		sink:    sink,
		logger:  logger.With("component", "health.monitor"),
		cron:    cron.New(),
		history: make([]Record, cfg.HistorySize),
	}
}

// Start schedules periodic evaluation. The monitor stops when ctx is
// cancelled or Stop is called.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}
	if _, err := cron.ParseStandard(m.cfg.Schedule); err != nil {
		return fmt.Errorf("invalid health schedule %q: %w", m.cfg.Schedule, err)
	}
	if _, err := m.cron.AddFunc(m.cfg.Schedule, func() { m.Check() }); err != nil {
		return fmt.Errorf("scheduling health checks: %w", err)
	}

	m.cron.Start()
	m.running = true
	m.logger.Info("health monitor started", "schedule", m.cfg.Schedule)

	go func() {
		<-ctx.Done()
		m.Stop()
	}()

	return nil
}

// Stop halts scheduling and waits for a running evaluation to finish.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	<-m.cron.Stop().Done()
	m.running = false
	m.logger.Info("health monitor stopped")
}

// Check runs one evaluation immediately and returns its record.
func (m *Monitor) Check() Record {
	snap := m.source.Snapshot()
	status, reasons := m.classify(snap)

	m.mu.Lock()
	m.status = status
	switch status {
	case Healthy:
		m.consecutiveWarnings = 0
		m.consecutiveCritical = 0
	case Warning:
		m.consecutiveWarnings++
	case Critical:
		m.consecutiveCritical++
	}
	warnings, critical := m.consecutiveWarnings, m.consecutiveCritical

	rec := Record{
		Timestamp: time.Now(),
		Status:    status,
		Snapshot:  snap,
		Reasons:   reasons,
	}
	m.history[m.next] = rec
	m.next = (m.next + 1) % len(m.history)
	if m.next == 0 {
		m.filled = true
	}

	shouldRollback := !m.rolledBack && m.flags != nil &&
		(critical >= m.cfg.MaxConsecutiveCritical || warnings >= m.cfg.MaxConsecutiveWarnings)
	if shouldRollback {
		m.rolledBack = true
	}
	m.mu.Unlock()

	if m.sink != nil {
		m.sink.HealthCheck(status.String(), warnings, critical)
	}

	switch status {
	case Warning:
		m.logger.Warn("health degraded",
			"error_rate", snap.ErrorRate,
			"latency_ratio", snap.LatencyRatio,
			"streaming_success", snap.StreamingSuccessRate,
			"reasons", reasons,
		)
	case Critical:
		m.logger.Error("health critical",
			"error_rate", snap.ErrorRate,
			"latency_ratio", snap.LatencyRatio,
			"streaming_success", snap.StreamingSuccessRate,
			"consecutive_critical", critical,
			"reasons", reasons,
		)
	}

	if shouldRollback {
		m.rollback(critical, warnings)
	}

	return rec
}

// rollback reverts the migration phase. If the revert itself fails,
// forcing legacy mode is the emergency fallback.
func (m *Monitor) rollback(critical, warnings int) {
	m.logger.Error("triggering automatic migration rollback",
		"consecutive_critical", critical,
		"consecutive_warnings", warnings,
	)
	if m.sink != nil {
		m.sink.RollbackTriggered()
	}

	if err := m.flags.Rollback(); err != nil {
		m.logger.Error("rollback failed, forcing legacy mode", "error", err)
		if err := m.flags.ForceLegacy(); err != nil {
			m.logger.Error("forcing legacy mode failed", "error", err)
		}
	}
}

func (m *Monitor) classify(s Snapshot) (Status, []string) {
	var warnings, criticals []string

	switch {
	case s.ErrorRate >= m.cfg.CriticalErrorRate:
		criticals = append(criticals, "error_rate")
	case s.ErrorRate >= m.cfg.WarningErrorRate:
		warnings = append(warnings, "error_rate")
	}
	switch {
	case s.LatencyRatio >= m.cfg.CriticalLatencyRatio:
		criticals = append(criticals, "latency_ratio")
	case s.LatencyRatio >= m.cfg.WarningLatencyRatio:
		warnings = append(warnings, "latency_ratio")
	}
	switch {
	case s.StreamingSuccessRate < m.cfg.CriticalStreamingSuccess:
		criticals = append(criticals, "streaming_success")
	case s.StreamingSuccessRate < m.cfg.WarningStreamingSuccess:
		warnings = append(warnings, "streaming_success")
	}

	if len(criticals) > 0 {
		return Critical, criticals
	}
	if len(warnings) > 0 {
		return Warning, warnings
	}
	return Healthy, nil
}

// Status returns the result of the most recent evaluation.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// RolledBack reports whether the automatic rollback has fired.
func (m *Monitor) RolledBack() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rolledBack
}

// Rearm clears the rollback latch and the consecutive counters so a
// future degradation can trigger rollback again.
func (m *Monitor) Rearm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rolledBack = false
	m.consecutiveWarnings = 0
	m.consecutiveCritical = 0
	m.logger.Info("health monitor re-armed")
}

// History returns the retained evaluation records, oldest first.
func (m *Monitor) History() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.filled {
		out := make([]Record, m.next)
		copy(out, m.history[:m.next])
		return out
	}
	out := make([]Record, 0, len(m.history))
	out = append(out, m.history[m.next:]...)
	out = append(out, m.history[:m.next]...)
	return out
}
