package resources

import (
	"errors"
	"testing"
	"time"

	"mercator-hq/ganymede/pkg/config"
)

func testResourcesConfig() config.ResourcesConfig {
	return config.ResourcesConfig{
		MaxConcurrentPerProvider: 3,
		MemoryWarningMB:          512,
		MemoryCriticalMB:         1024,
		CPUWarningPercent:        75,
		CPUCriticalPercent:       90,
		ConnectionWarningRatio:   0.75,
		ConnectionCriticalRatio:  0.9,
		SampleInterval:           5 * time.Second,
		BaseTimeout:              30 * time.Second,
	}
}

func TestCheckAvailability_ConcurrencyCap(t *testing.T) {
	m := NewMonitor(testResourcesConfig(), nil)

	for i := 0; i < 3; i++ {
		if err := m.CheckAvailability("openai", PriorityNormal); err != nil {
			t.Fatalf("request %d rejected: %v", i, err)
		}
		m.RegisterStart("openai")
	}

	err := m.CheckAvailability("openai", PriorityNormal)
	var admErr *AdmissionError
	if !errors.As(err, &admErr) {
		t.Fatalf("err = %v, want AdmissionError", err)
	}

	// High priority bypasses the cap.
	if err := m.CheckAvailability("openai", PriorityHigh); err != nil {
		t.Errorf("high priority rejected at cap: %v", err)
	}

	// Another provider is unaffected.
	if err := m.CheckAvailability("anthropic", PriorityNormal); err != nil {
		t.Errorf("other provider rejected: %v", err)
	}

	// Completion frees a slot.
	m.RegisterCompletion("openai", false)
	if err := m.CheckAvailability("openai", PriorityNormal); err != nil {
		t.Errorf("rejected after completion: %v", err)
	}
}

func TestCheckAvailability_StatusGates(t *testing.T) {
	m := NewMonitor(testResourcesConfig(), nil)

	m.status.Store(int32(StatusWarning))
	if err := m.CheckAvailability("openai", PriorityLow); err == nil {
		t.Error("low priority admitted under warning status")
	}
	if err := m.CheckAvailability("openai", PriorityNormal); err != nil {
		t.Errorf("normal priority rejected under warning status: %v", err)
	}

	m.status.Store(int32(StatusCritical))
	if err := m.CheckAvailability("openai", PriorityNormal); err == nil {
		t.Error("normal priority admitted under critical status")
	}
	if err := m.CheckAvailability("openai", PriorityHigh); err != nil {
		t.Errorf("high priority rejected under critical status: %v", err)
	}
}

func TestRecommendedTimeout(t *testing.T) {
	m := NewMonitor(testResourcesConfig(), nil)

	if got := m.RecommendedTimeout(); got != 30*time.Second {
		t.Errorf("healthy timeout = %s, want 30s", got)
	}

	m.status.Store(int32(StatusWarning))
	if got := m.RecommendedTimeout(); got != 45*time.Second {
		t.Errorf("warning timeout = %s, want 45s", got)
	}

	m.status.Store(int32(StatusCritical))
	if got := m.RecommendedTimeout(); got != 60*time.Second {
		t.Errorf("critical timeout = %s, want 60s", got)
	}
}

func TestClassify(t *testing.T) {
	m := NewMonitor(testResourcesConfig(), nil)

	tests := []struct {
		name      string
		heapMB    int64
		cpuPct    float64
		connRatio float64
		want      SystemStatus
	}{
		{"idle", 100, 5, 0.1, StatusHealthy},
		{"memory warning", 600, 5, 0.1, StatusWarning},
		{"memory critical", 1500, 5, 0.1, StatusCritical},
		{"cpu warning", 100, 80, 0.1, StatusWarning},
		{"cpu critical", 100, 95, 0.1, StatusCritical},
		{"connection warning", 100, 5, 0.8, StatusWarning},
		{"connection critical", 100, 5, 0.95, StatusCritical},
		{"worst dimension wins", 600, 80, 0.95, StatusCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.classify(tt.heapMB, tt.cpuPct, tt.connRatio); got != tt.want {
				t.Errorf("classify(%d, %.0f, %.2f) = %s, want %s",
					tt.heapMB, tt.cpuPct, tt.connRatio, got, tt.want)
			}
		})
	}
}

func TestClassify_ZeroCPUThresholdDisablesDimension(t *testing.T) {
	cfg := testResourcesConfig()
	cfg.CPUWarningPercent = 0
	cfg.CPUCriticalPercent = 0
	m := NewMonitor(cfg, nil)

	if got := m.classify(100, 99, 0.1); got != StatusHealthy {
		t.Errorf("classify with cpu disabled = %s, want healthy", got)
	}
}

func TestCPUPercentOver(t *testing.T) {
	tests := []struct {
		name    string
		busy    float64
		elapsed float64
		procs   int
		want    float64
	}{
		{"half of one core", 2.5, 5, 1, 50},
		{"quarter of four cores", 5, 5, 4, 25},
		{"clamped at 100", 20, 5, 1, 100},
		{"no elapsed time", 1, 0, 1, 0},
		{"counter regression", -1, 5, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cpuPercentOver(tt.busy, tt.elapsed, tt.procs); got != tt.want {
				t.Errorf("cpuPercentOver(%.1f, %.1f, %d) = %.1f, want %.1f",
					tt.busy, tt.elapsed, tt.procs, got, tt.want)
			}
		})
	}
}

func TestProviderMetrics(t *testing.T) {
	m := NewMonitor(testResourcesConfig(), nil)

	m.RegisterStart("openai")
	m.RegisterStart("openai")
	m.RegisterCompletion("openai", true)

	got := m.ProviderMetrics("openai")
	if got.CurrentRequests != 1 {
		t.Errorf("current = %d, want 1", got.CurrentRequests)
	}
	if got.PeakRequests != 2 {
		t.Errorf("peak = %d, want 2", got.PeakRequests)
	}
	if got.TotalRequests != 2 {
		t.Errorf("total = %d, want 2", got.TotalRequests)
	}
	if got.FailedRequests != 1 {
		t.Errorf("failed = %d, want 1", got.FailedRequests)
	}
}

func TestSample_SetsMemoryAndStatus(t *testing.T) {
	m := NewMonitor(testResourcesConfig(), nil)

	m.Sample()
	if m.MemoryUsageMB() < 0 {
		t.Errorf("memory usage = %d", m.MemoryUsageMB())
	}
	// The first sample has no CPU baseline.
	if got := m.CPUUsagePercent(); got != 0 {
		t.Errorf("first-sample cpu usage = %.1f, want 0", got)
	}
	// A test process stays far below 512MB of heap.
	if m.Status() != StatusHealthy {
		t.Errorf("status = %s, want healthy", m.Status())
	}

	m.Sample()
	if got := m.CPUUsagePercent(); got < 0 || got > 100 {
		t.Errorf("cpu usage = %.1f, want within [0, 100]", got)
	}
}
