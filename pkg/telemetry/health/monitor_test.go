package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/migration"
)

type stubSource struct {
	snap Snapshot
}

func (s *stubSource) Snapshot() Snapshot { return s.snap }

type stubFlags struct {
	rollbacks   int
	forced      int
	rollbackErr error
}

func (f *stubFlags) Rollback() error {
	f.rollbacks++
	return f.rollbackErr
}

func (f *stubFlags) ForceLegacy() error {
	f.forced++
	return nil
}

func healthySnapshot() Snapshot {
	return Snapshot{LatencyRatio: 1.0, StreamingSuccessRate: 1.0}
}

func newTestMonitor(source MetricsSource, flags FlagStore) *Monitor {
	return NewMonitor(config.HealthConfig{}, source, flags, nil, nil)
}

func TestClassify(t *testing.T) {
	m := newTestMonitor(&stubSource{}, nil)

	tests := []struct {
		name string
		snap Snapshot
		want Status
	}{
		{"all healthy", healthySnapshot(), Healthy},
		{"error rate warning", Snapshot{ErrorRate: 0.06, LatencyRatio: 1, StreamingSuccessRate: 1}, Warning},
		{"error rate critical", Snapshot{ErrorRate: 0.12, LatencyRatio: 1, StreamingSuccessRate: 1}, Critical},
		{"latency warning", Snapshot{LatencyRatio: 2.5, StreamingSuccessRate: 1}, Warning},
		{"latency critical", Snapshot{LatencyRatio: 3.5, StreamingSuccessRate: 1}, Critical},
		{"streaming warning", Snapshot{LatencyRatio: 1, StreamingSuccessRate: 0.85}, Warning},
		{"streaming critical", Snapshot{LatencyRatio: 1, StreamingSuccessRate: 0.75}, Critical},
		{"critical beats warning", Snapshot{ErrorRate: 0.06, LatencyRatio: 3.5, StreamingSuccessRate: 1}, Critical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := m.classify(tt.snap)
			if got != tt.want {
				t.Errorf("classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConsecutiveCountersResetOnHealthy(t *testing.T) {
	source := &stubSource{snap: Snapshot{ErrorRate: 0.12, LatencyRatio: 1, StreamingSuccessRate: 1}}
	m := newTestMonitor(source, nil)

	m.Check()
	m.Check()
	if m.consecutiveCritical != 2 {
		t.Fatalf("consecutiveCritical = %d, want 2", m.consecutiveCritical)
	}

	source.snap = healthySnapshot()
	m.Check()
	if m.consecutiveCritical != 0 || m.consecutiveWarnings != 0 {
		t.Errorf("counters not reset: critical=%d warnings=%d",
			m.consecutiveCritical, m.consecutiveWarnings)
	}
	if m.Status() != Healthy {
		t.Errorf("Status = %v, want Healthy", m.Status())
	}
}

func TestRollbackAfterConsecutiveCriticals(t *testing.T) {
	source := &stubSource{snap: Snapshot{ErrorRate: 0.15, LatencyRatio: 1, StreamingSuccessRate: 1}}
	flags := &stubFlags{}
	m := newTestMonitor(source, flags)

	m.Check()
	m.Check()
	if flags.rollbacks != 0 {
		t.Fatalf("rollback fired after 2 criticals")
	}

	m.Check()
	if flags.rollbacks != 1 {
		t.Fatalf("rollbacks = %d, want 1 after 3 criticals", flags.rollbacks)
	}
	if !m.RolledBack() {
		t.Error("RolledBack() = false after trigger")
	}

	// Latched: further criticals must not trigger again.
	m.Check()
	m.Check()
	if flags.rollbacks != 1 {
		t.Errorf("rollbacks = %d after latch, want 1", flags.rollbacks)
	}
}

func TestRollbackAfterConsecutiveWarnings(t *testing.T) {
	source := &stubSource{snap: Snapshot{ErrorRate: 0.06, LatencyRatio: 1, StreamingSuccessRate: 1}}
	flags := &stubFlags{}
	m := newTestMonitor(source, flags)

	for i := 0; i < 10; i++ {
		m.Check()
	}
	if flags.rollbacks != 1 {
		t.Errorf("rollbacks = %d after 10 warnings, want 1", flags.rollbacks)
	}
}

func TestRollbackFailureForcesLegacy(t *testing.T) {
	source := &stubSource{snap: Snapshot{ErrorRate: 0.2, LatencyRatio: 1, StreamingSuccessRate: 1}}
	flags := &stubFlags{rollbackErr: errors.New("db locked")}
	m := newTestMonitor(source, flags)

	for i := 0; i < 3; i++ {
		m.Check()
	}
	if flags.forced != 1 {
		t.Errorf("forced = %d, want 1 when rollback fails", flags.forced)
	}
}

func TestRearm(t *testing.T) {
	source := &stubSource{snap: Snapshot{ErrorRate: 0.2, LatencyRatio: 1, StreamingSuccessRate: 1}}
	flags := &stubFlags{}
	m := newTestMonitor(source, flags)

	for i := 0; i < 3; i++ {
		m.Check()
	}
	m.Rearm()
	if m.RolledBack() {
		t.Fatal("still latched after Rearm")
	}

	for i := 0; i < 3; i++ {
		m.Check()
	}
	if flags.rollbacks != 2 {
		t.Errorf("rollbacks = %d after re-arm, want 2", flags.rollbacks)
	}
}

func TestHistoryRing(t *testing.T) {
	source := &stubSource{snap: healthySnapshot()}
	m := NewMonitor(config.HealthConfig{HistorySize: 3}, source, nil, nil, nil)

	m.Check()
	if got := len(m.History()); got != 1 {
		t.Fatalf("history len = %d, want 1", got)
	}

	source.snap = Snapshot{ErrorRate: 0.2, LatencyRatio: 1, StreamingSuccessRate: 1}
	for i := 0; i < 4; i++ {
		m.Check()
	}

	records := m.History()
	if len(records) != 3 {
		t.Fatalf("history len = %d, want 3 (bounded)", len(records))
	}
	for _, rec := range records {
		if rec.Status != Critical {
			t.Errorf("oldest healthy record not evicted: %v", rec.Status)
		}
	}
}

func TestStartStop(t *testing.T) {
	source := &stubSource{snap: healthySnapshot()}
	m := NewMonitor(config.HealthConfig{Schedule: "@every 1h"}, source, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()

	deadline := time.After(2 * time.Second)
	for m.running {
		select {
		case <-deadline:
			t.Fatal("monitor did not stop after context cancel")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	m := NewMonitor(config.HealthConfig{Schedule: "not a schedule"}, &stubSource{}, nil, nil, nil)
	if err := m.Start(context.Background()); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestStatsWindows(t *testing.T) {
	s := NewStats()

	// First window: 10 requests, 1 failure, baseline latency 100ms.
	for i := 0; i < 10; i++ {
		o := migration.Outcome{
			Path:      migration.PathReqllm,
			Operation: migration.OpStreaming,
			Duration:  100 * time.Millisecond,
		}
		if i == 0 {
			o.Err = errors.New("boom")
		}
		s.RecordRoute(o)
	}

	snap := s.Snapshot()
	if snap.Requests != 10 {
		t.Errorf("Requests = %d, want 10", snap.Requests)
	}
	if snap.ErrorRate != 0.1 {
		t.Errorf("ErrorRate = %v, want 0.1", snap.ErrorRate)
	}
	if snap.LatencyRatio != 1.0 {
		t.Errorf("first window LatencyRatio = %v, want 1.0", snap.LatencyRatio)
	}
	if snap.StreamingSuccessRate != 0.9 {
		t.Errorf("StreamingSuccessRate = %v, want 0.9", snap.StreamingSuccessRate)
	}

	// Second window: latency triples against the baseline.
	for i := 0; i < 5; i++ {
		s.RecordRoute(migration.Outcome{
			Path:      migration.PathLegacy,
			Operation: migration.OpNonStreaming,
			Duration:  300 * time.Millisecond,
		})
	}

	snap = s.Snapshot()
	if snap.Requests != 5 {
		t.Errorf("second window Requests = %d, want 5", snap.Requests)
	}
	if snap.ErrorRate != 0 {
		t.Errorf("second window ErrorRate = %v, want 0", snap.ErrorRate)
	}
	if snap.LatencyRatio != 3.0 {
		t.Errorf("LatencyRatio = %v, want 3.0", snap.LatencyRatio)
	}
	if snap.StreamingSuccessRate != 1.0 {
		t.Errorf("no streaming traffic should report 1.0, got %v", snap.StreamingSuccessRate)
	}
}

func TestStatsEmptyWindow(t *testing.T) {
	s := NewStats()
	snap := s.Snapshot()

	if snap.ErrorRate != 0 || snap.LatencyRatio != 1.0 || snap.StreamingSuccessRate != 1.0 {
		t.Errorf("empty window not healthy: %+v", snap)
	}
}
