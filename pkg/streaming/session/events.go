package session

import "time"

// EventType identifies a consumer-visible session event.
type EventType string

const (
	// EventProcessingStarted marks the transition from Initializing to
	// Streaming, fired when the first upstream chunk arrives.
	EventProcessingStarted EventType = "processing_started"

	// EventContentChunk carries an ordered, aggregated content payload.
	EventContentChunk EventType = "content_chunk"

	// EventComplete marks successful completion. The event carries the
	// final session metrics.
	EventComplete EventType = "complete"

	// EventError marks unrecoverable failure. The event carries a
	// stable reason code; any partial content was delivered in a
	// preceding content_chunk event.
	EventError EventType = "error"

	// EventStreamCancelled acknowledges an explicit cancellation.
	EventStreamCancelled EventType = "stream_cancelled"

	// EventStreamTimeout marks expiry of the absolute session deadline.
	EventStreamTimeout EventType = "stream_timeout"
)

// Event is the single consumer protocol: an ordered stream of content
// chunks bracketed by lifecycle events.
type Event struct {
	Type      EventType
	SessionID string
	Timestamp time.Time

	// Content is set on content_chunk events.
	Content []byte

	// Fallback marks content produced by a fallback strategy rather
	// than the upstream provider. Strategy names which one.
	Fallback bool
	Strategy string

	// Reason is a stable reason code set on error and timeout events.
	Reason string

	// Err is the underlying error on error events, when available.
	Err error

	// Metrics is set on terminal events.
	Metrics *Metrics
}

// Metrics is the per-session activity snapshot.
type Metrics struct {
	ChunkCount   int64
	ByteCount    int64
	StartedAt    time.Time
	FirstChunkAt time.Time
	FinishedAt   time.Time
}

// Status is the session lifecycle state.
type Status int32

const (
	StatusInitializing Status = iota
	StatusStreaming
	StatusCompleted
	StatusError
	StatusTimedOut
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusInitializing:
		return "initializing"
	case StatusStreaming:
		return "streaming"
	case StatusCompleted:
		return "completed"
	case StatusError:
		return "error"
	case StatusTimedOut:
		return "timed_out"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is a terminal state.
func (s Status) Terminal() bool {
	return s >= StatusCompleted
}
