package health

import (
	"sync"
	"time"

	"mercator-hq/ganymede/pkg/migration"
)

// Stats accumulates routing outcomes into the indicator snapshot the
// monitor consumes. It implements both migration.Recorder (the feed)
// and MetricsSource (the drain). Each Snapshot call covers the window
// since the previous call; the first window with latency data sets
// the latency baseline.
type Stats struct {
	mu sync.Mutex

	total        int64
	failed       int64
	streamTotal  int64
	streamFailed int64
	latencySum   time.Duration
	latencyCount int64

	lastTotal        int64
	lastFailed       int64
	lastStreamTotal  int64
	lastStreamFailed int64
	lastLatencySum   time.Duration
	lastLatencyCount int64

	baseline time.Duration
}

// NewStats creates an empty accumulator.
func NewStats() *Stats {
	return &Stats{}
}

// RecordRoute implements migration.Recorder.
func (s *Stats) RecordRoute(o migration.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	if o.Err != nil {
		s.failed++
	}
	if o.Duration > 0 {
		s.latencySum += o.Duration
		s.latencyCount++
	}
	if o.Operation == migration.OpStreaming {
		s.streamTotal++
		if o.Err != nil {
			s.streamFailed++
		}
	}
}

// Snapshot implements MetricsSource. A window with no traffic reports
// healthy indicators.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := s.total - s.lastTotal
	failed := s.failed - s.lastFailed
	streamTotal := s.streamTotal - s.lastStreamTotal
	streamFailed := s.streamFailed - s.lastStreamFailed
	latencySum := s.latencySum - s.lastLatencySum
	latencyCount := s.latencyCount - s.lastLatencyCount

	s.lastTotal = s.total
	s.lastFailed = s.failed
	s.lastStreamTotal = s.streamTotal
	s.lastStreamFailed = s.streamFailed
	s.lastLatencySum = s.latencySum
	s.lastLatencyCount = s.latencyCount

	snap := Snapshot{
		LatencyRatio:         1.0,
		StreamingSuccessRate: 1.0,
		Requests:             total,
	}
	if total > 0 {
		snap.ErrorRate = float64(failed) / float64(total)
	}
	if streamTotal > 0 {
		snap.StreamingSuccessRate = 1.0 - float64(streamFailed)/float64(streamTotal)
	}
	if latencyCount > 0 {
		avg := latencySum / time.Duration(latencyCount)
		if s.baseline == 0 {
			s.baseline = avg
		}
		snap.LatencyRatio = float64(avg) / float64(s.baseline)
	}
	return snap
}
