package chunk

import (
	"time"
	"unicode/utf8"
)

// Kind classifies the outcome of a Process call.
type Kind int

const (
	// Emitted means the chunk was accepted. Result.Emitted carries any
	// payloads flushed as a consequence; it may be empty when content
	// is still buffered, and Result.Dropped marks a chunk discarded by
	// the reorder buffer rather than aggregated.
	Emitted Kind = iota

	// Delayed means the flow-control window is full. The chunk was not
	// accepted; the caller should redeliver it after Result.Delay.
	Delayed

	// Rejected means the chunk failed validation or exhausted the rate
	// limit. Result.Err holds the typed reason. State is unchanged
	// except for flow-control bookkeeping.
	Rejected
)

func (k Kind) String() string {
	switch k {
	case Emitted:
		return "emitted"
	case Delayed:
		return "delayed"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Result is the outcome of processing one chunk.
type Result struct {
	Kind Kind

	// Emitted holds flushed payloads in sequence order.
	Emitted [][]byte

	// Delay is how long the caller should wait before redelivering the
	// chunk. Set only when Kind is Delayed.
	Delay time.Duration

	// Dropped is true when the chunk was accepted structurally but
	// discarded: a duplicate sequence number or a reorder buffer
	// overflow. The caller should log DropReason at warning level.
	Dropped    bool
	DropReason string

	// Err is the typed rejection reason. Set only when Kind is Rejected.
	Err error
}

// Process runs one chunk through validation, flow control, ordering, and
// aggregation. seq is nil for providers that deliver chunks in arrival
// order. now is passed explicitly so the function stays deterministic.
func (s *State) Process(data []byte, seq *int64, now time.Time) Result {
	if err := s.validate(data); err != nil {
		return Result{Kind: Rejected, Err: err}
	}

	if s.flowEnabled {
		if res, limited := s.checkFlow(now); limited {
			return res
		}
	}

	s.backpressureActive = false
	if s.flowEnabled {
		s.arrivals = append(s.arrivals, now)
	}

	if seq == nil {
		s.accept(data)
		return Result{Kind: Emitted, Emitted: s.maybeFlush(now)}
	}

	switch {
	case *seq == s.nextSequence:
		s.accept(data)
		s.nextSequence++
		s.drainPending()
		return Result{Kind: Emitted, Emitted: s.maybeFlush(now)}

	case *seq < s.nextSequence:
		return Result{
			Kind:       Emitted,
			Dropped:    true,
			DropReason: "duplicate sequence number",
		}

	default:
		if _, ok := s.pending[*seq]; ok {
			return Result{
				Kind:       Emitted,
				Dropped:    true,
				DropReason: "duplicate sequence number",
			}
		}
		if len(s.pending) >= s.maxPending {
			return Result{
				Kind:       Emitted,
				Dropped:    true,
				DropReason: "reorder buffer full",
			}
		}
		s.pending[*seq] = data
		s.totalSize += int64(len(data))
		s.chunkCount++
		return Result{Kind: Emitted, Emitted: s.maybeFlush(now)}
	}
}

// validate applies the three hard chunk checks. None of them mutate state.
func (s *State) validate(data []byte) error {
	if len(data) > s.maxChunkSize {
		return &SizeError{Size: len(data), Limit: s.maxChunkSize}
	}
	if s.totalSize+int64(len(data)) > s.totalSizeLimit {
		return &TotalSizeError{Current: s.totalSize, Incoming: len(data), Limit: s.totalSizeLimit}
	}
	if !utf8.Valid(data) {
		return &EncodingError{Offset: validOffset(data)}
	}
	return nil
}

// validOffset returns the byte offset of the first invalid UTF-8 sequence.
func validOffset(data []byte) int {
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return len(data)
}

// checkFlow prunes the arrival window and decides whether the chunk must
// wait. Returns the limiting Result and true when the window is full.
func (s *State) checkFlow(now time.Time) (Result, bool) {
	cutoff := now.Add(-s.window)
	i := 0
	for i < len(s.arrivals) && s.arrivals[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		s.arrivals = append(s.arrivals[:0], s.arrivals[i:]...)
	}

	if len(s.arrivals) < s.maxPerWindow {
		return Result{}, false
	}

	delay := s.window - now.Sub(s.arrivals[0])
	if delay > 0 {
		s.backpressureActive = true
		return Result{Kind: Delayed, Delay: delay}, true
	}
	return Result{
		Kind: Rejected,
		Err:  &RateLimitError{Count: len(s.arrivals), Window: s.window},
	}, true
}

// accept appends the chunk to the aggregation buffer and updates totals.
func (s *State) accept(data []byte) {
	s.buffer = append(s.buffer, data...)
	s.totalSize += int64(len(data))
	s.chunkCount++
}

// drainPending moves contiguous buffered chunks into the aggregation
// buffer, advancing the sequence counter. Pending chunks were already
// counted against the total when they arrived.
func (s *State) drainPending() {
	for {
		data, ok := s.pending[s.nextSequence]
		if !ok {
			return
		}
		delete(s.pending, s.nextSequence)
		s.buffer = append(s.buffer, data...)
		s.nextSequence++
	}
}

// maybeFlush returns the buffered payload when the size or time
// threshold has been crossed. A flush always empties the whole buffer,
// so one Process call emits at most one payload.
func (s *State) maybeFlush(now time.Time) [][]byte {
	if !s.ShouldFlush(now) {
		return nil
	}
	return [][]byte{s.flush(now)}
}

// ShouldFlush reports whether buffered content is due for emission. It is
// a side-effect-free query used by the session's flush timer.
func (s *State) ShouldFlush(now time.Time) bool {
	if len(s.buffer) == 0 {
		return false
	}
	if s.flushThreshold > 0 && len(s.buffer) >= s.flushThreshold {
		return true
	}
	return now.Sub(s.lastFlush) >= s.flushInterval
}

// Flush forces emission of the aggregation buffer regardless of
// thresholds. Returns nil when the buffer is empty. Used by the flush
// timer and on session teardown so no buffered bytes are lost.
func (s *State) Flush(now time.Time) []byte {
	if len(s.buffer) == 0 {
		return nil
	}
	return s.flush(now)
}

func (s *State) flush(now time.Time) []byte {
	out := make([]byte, len(s.buffer))
	copy(out, s.buffer)
	s.buffer = s.buffer[:0]
	s.lastFlush = now
	return out
}
