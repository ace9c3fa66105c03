package resources

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"runtime/metrics"
	"sync"
	"sync/atomic"
	"time"

	"mercator-hq/ganymede/pkg/config"
)

// Cumulative CPU time classes published by the runtime. Busy time is
// total minus idle.
const (
	cpuTotalMetric = "/cpu/classes/total:cpu-seconds"
	cpuIdleMetric  = "/cpu/classes/idle:cpu-seconds"
)

// Priority orders admission requests. High priority bypasses the
// concurrency cap and survives Critical status.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// SystemStatus classifies overall resource pressure.
type SystemStatus int

const (
	StatusHealthy SystemStatus = iota
	StatusWarning
	StatusCritical
)

func (s SystemStatus) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusWarning:
		return "warning"
	case StatusCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// AdmissionError reports a rejected admission check.
type AdmissionError struct {
	Provider string
	Priority Priority
	Reason   string
}

func (e *AdmissionError) Error() string {
	return fmt.Sprintf("admission rejected for provider %q (priority %s): %s",
		e.Provider, e.Priority, e.Reason)
}

// providerCounters tracks one provider's in-flight accounting with
// lock-free atomics.
type providerCounters struct {
	current int64
	peak    int64
	failed  int64
	total   int64
}

// Metrics is a point-in-time copy of one provider's counters.
type Metrics struct {
	CurrentRequests int64
	PeakRequests    int64
	TotalRequests   int64
	FailedRequests  int64
}

// Monitor tracks per-provider concurrency and system pressure and
// issues admission decisions.
//
// Thread safety: safe for concurrent use; the fast paths (RegisterStart,
// RegisterCompletion, CheckAvailability) are atomic reads and updates.
type Monitor struct {
	cfg    config.ResourcesConfig
	logger *slog.Logger

	mu        sync.RWMutex
	providers map[string]*providerCounters

	status        atomic.Int32
	memoryUsageMB atomic.Int64
	cpuPercent    atomic.Uint64 // IEEE 754 bits

	sampleMu       sync.Mutex
	lastCPUSeconds float64
	lastSampleAt   time.Time
}

// NewMonitor creates a resource monitor with Healthy initial status.
func NewMonitor(cfg config.ResourcesConfig, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		cfg:       cfg,
		logger:    logger.With("component", "resources"),
		providers: make(map[string]*providerCounters),
	}
}

// Run resamples system pressure on the configured interval until the
// context is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	interval := m.cfg.SampleInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.Sample()
	for {
		select {
		case <-ticker.C:
			m.Sample()
		case <-ctx.Done():
			return
		}
	}
}

// CheckAvailability decides whether a request for the provider may
// proceed. High priority bypasses the per-provider cap; Warning status
// rejects low-priority requests; Critical rejects all but High.
func (m *Monitor) CheckAvailability(provider string, priority Priority) error {
	status := m.Status()
	switch status {
	case StatusCritical:
		if priority != PriorityHigh {
			return &AdmissionError{Provider: provider, Priority: priority,
				Reason: "system status critical"}
		}
	case StatusWarning:
		if priority == PriorityLow {
			return &AdmissionError{Provider: provider, Priority: priority,
				Reason: "system status warning"}
		}
	}

	if priority == PriorityHigh {
		return nil
	}

	c := m.counters(provider)
	if atomic.LoadInt64(&c.current) >= int64(m.cfg.MaxConcurrentPerProvider) {
		return &AdmissionError{Provider: provider, Priority: priority,
			Reason: fmt.Sprintf("concurrent request limit %d reached", m.cfg.MaxConcurrentPerProvider)}
	}
	return nil
}

// RegisterStart records a request starting against the provider.
func (m *Monitor) RegisterStart(provider string) {
	c := m.counters(provider)
	current := atomic.AddInt64(&c.current, 1)
	atomic.AddInt64(&c.total, 1)

	// Best-effort peak update; racing updates settle on a value that
	// was current at some point.
	for {
		peak := atomic.LoadInt64(&c.peak)
		if current <= peak || atomic.CompareAndSwapInt64(&c.peak, peak, current) {
			break
		}
	}
}

// RegisterCompletion records a request finishing. failed marks it
// against the provider's failure counter.
func (m *Monitor) RegisterCompletion(provider string, failed bool) {
	c := m.counters(provider)
	if atomic.AddInt64(&c.current, -1) < 0 {
		atomic.StoreInt64(&c.current, 0)
	}
	if failed {
		atomic.AddInt64(&c.failed, 1)
	}
}

// Status returns the last sampled system status.
func (m *Monitor) Status() SystemStatus {
	return SystemStatus(m.status.Load())
}

// RecommendedTimeout scales the base timeout by system pressure:
// healthy 1x, warning 1.5x, critical 2x.
func (m *Monitor) RecommendedTimeout() time.Duration {
	base := m.cfg.BaseTimeout
	switch m.Status() {
	case StatusWarning:
		return base + base/2
	case StatusCritical:
		return 2 * base
	default:
		return base
	}
}

// ProviderMetrics returns a snapshot of one provider's counters.
func (m *Monitor) ProviderMetrics(provider string) Metrics {
	c := m.counters(provider)
	return Metrics{
		CurrentRequests: atomic.LoadInt64(&c.current),
		PeakRequests:    atomic.LoadInt64(&c.peak),
		TotalRequests:   atomic.LoadInt64(&c.total),
		FailedRequests:  atomic.LoadInt64(&c.failed),
	}
}

// MemoryUsageMB returns the heap usage from the last sample.
func (m *Monitor) MemoryUsageMB() int64 {
	return m.memoryUsageMB.Load()
}

// CPUUsagePercent returns the CPU usage estimate from the last sample.
func (m *Monitor) CPUUsagePercent() float64 {
	return math.Float64frombits(m.cpuPercent.Load())
}

// Sample recomputes system status from heap usage, CPU usage, and
// connection saturation. Called on every tick and exposed for tests.
func (m *Monitor) Sample() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	heapMB := int64(ms.HeapAlloc / (1 << 20))
	m.memoryUsageMB.Store(heapMB)

	cpuPct := m.sampleCPU(time.Now())
	m.cpuPercent.Store(math.Float64bits(cpuPct))

	status := m.classify(heapMB, cpuPct, m.connectionRatio())
	old := SystemStatus(m.status.Swap(int32(status)))
	if status != old {
		m.logger.Info("system status changed",
			"from", old.String(),
			"to", status.String(),
			"heap_mb", heapMB,
			"cpu_pct", cpuPct)
	}
}

// sampleCPU estimates process CPU usage since the previous sample as a
// percentage of capacity across GOMAXPROCS processors. The first call
// has no baseline and reports zero.
func (m *Monitor) sampleCPU(now time.Time) float64 {
	samples := []metrics.Sample{
		{Name: cpuTotalMetric},
		{Name: cpuIdleMetric},
	}
	metrics.Read(samples)
	if samples[0].Value.Kind() != metrics.KindFloat64 || samples[1].Value.Kind() != metrics.KindFloat64 {
		return 0
	}
	busy := samples[0].Value.Float64() - samples[1].Value.Float64()

	m.sampleMu.Lock()
	defer m.sampleMu.Unlock()
	prev, prevAt := m.lastCPUSeconds, m.lastSampleAt
	m.lastCPUSeconds, m.lastSampleAt = busy, now
	if prevAt.IsZero() {
		return 0
	}
	return cpuPercentOver(busy-prev, now.Sub(prevAt).Seconds(), runtime.GOMAXPROCS(0))
}

// cpuPercentOver converts busy CPU seconds over a wall-clock interval
// into a percentage of capacity, clamped to [0, 100].
func cpuPercentOver(busySeconds, elapsedSeconds float64, procs int) float64 {
	if busySeconds <= 0 || elapsedSeconds <= 0 || procs <= 0 {
		return 0
	}
	pct := busySeconds / (elapsedSeconds * float64(procs)) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// connectionRatio is total in-flight requests over total capacity.
func (m *Monitor) connectionRatio() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	capacity := int64(m.cfg.MaxConcurrentPerProvider) * int64(len(m.providers))
	if capacity == 0 {
		return 0
	}
	var inFlight int64
	for _, c := range m.providers {
		inFlight += atomic.LoadInt64(&c.current)
	}
	return float64(inFlight) / float64(capacity)
}

// classify applies the configured thresholds; the worst dimension wins.
// A threshold of zero disables that dimension.
func (m *Monitor) classify(heapMB int64, cpuPct, connRatio float64) SystemStatus {
	switch {
	case m.cfg.MemoryCriticalMB > 0 && heapMB >= int64(m.cfg.MemoryCriticalMB),
		m.cfg.CPUCriticalPercent > 0 && cpuPct >= m.cfg.CPUCriticalPercent,
		m.cfg.ConnectionCriticalRatio > 0 && connRatio >= m.cfg.ConnectionCriticalRatio:
		return StatusCritical
	case m.cfg.MemoryWarningMB > 0 && heapMB >= int64(m.cfg.MemoryWarningMB),
		m.cfg.CPUWarningPercent > 0 && cpuPct >= m.cfg.CPUWarningPercent,
		m.cfg.ConnectionWarningRatio > 0 && connRatio >= m.cfg.ConnectionWarningRatio:
		return StatusWarning
	default:
		return StatusHealthy
	}
}

func (m *Monitor) counters(provider string) *providerCounters {
	m.mu.RLock()
	c, ok := m.providers[provider]
	m.mu.RUnlock()
	if ok {
		return c
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.providers[provider]; ok {
		return c
	}
	c = &providerCounters{}
	m.providers[provider] = c
	return c
}
