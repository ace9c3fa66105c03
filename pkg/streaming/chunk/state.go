package chunk

import (
	"time"

	"mercator-hq/ganymede/pkg/config"
)

// State holds all per-session chunk processing state. Exactly one session
// goroutine owns a State value; nothing here is safe for concurrent use.
type State struct {
	// nextSequence is the next expected sequence number for ordered
	// delivery. It only ever increases.
	nextSequence int64

	// pending buffers chunks that arrived ahead of nextSequence, keyed
	// by sequence number. Bounded by maxPending.
	pending    map[int64][]byte
	maxPending int

	// Flow control.
	flowEnabled  bool
	maxPerWindow int
	window       time.Duration
	// arrivals holds the timestamps of chunks accepted within the
	// current window, oldest first. Pruned on every Process call.
	arrivals           []time.Time
	backpressureActive bool

	// Validation.
	maxChunkSize   int
	totalSizeLimit int64
	totalSize      int64

	// Aggregation.
	buffer         []byte
	flushThreshold int
	flushInterval  time.Duration
	lastFlush      time.Time

	chunkCount int64
}

// NewState creates chunk processing state for a new session, seeded from
// streaming configuration. The supplied time anchors the first flush
// interval.
func NewState(cfg config.StreamingConfig, now time.Time) *State {
	return &State{
		pending:        make(map[int64][]byte),
		maxPending:     cfg.MaxPendingChunks,
		flowEnabled:    cfg.FlowControlEnabled,
		maxPerWindow:   cfg.MaxChunksPerSecond,
		window:         cfg.FlowControlWindow,
		maxChunkSize:   cfg.MaxChunkSize,
		totalSizeLimit: cfg.TotalSizeLimit,
		flushThreshold: cfg.FlushThreshold,
		flushInterval:  cfg.FlushInterval,
		lastFlush:      now,
	}
}

// TotalSize returns the cumulative byte size of all accepted chunks.
func (s *State) TotalSize() int64 {
	return s.totalSize
}

// ChunkCount returns the number of accepted chunks.
func (s *State) ChunkCount() int64 {
	return s.chunkCount
}

// PendingCount returns the number of out-of-order chunks currently held
// in the reorder buffer.
func (s *State) PendingCount() int {
	return len(s.pending)
}

// BufferedBytes returns the size of the aggregation buffer awaiting flush.
func (s *State) BufferedBytes() int {
	return len(s.buffer)
}

// NextSequence returns the next expected sequence number.
func (s *State) NextSequence() int64 {
	return s.nextSequence
}

// BackpressureActive reports whether the most recent Process call
// resulted in a flow-control delay.
func (s *State) BackpressureActive() bool {
	return s.backpressureActive
}

// Release drops the reorder buffer and aggregation buffer, freeing held
// chunk memory. Called on session teardown after the final flush.
func (s *State) Release() {
	s.pending = nil
	s.buffer = nil
	s.arrivals = nil
}
