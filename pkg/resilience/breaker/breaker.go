package breaker

import (
	"sync"
	"time"

	"mercator-hq/ganymede/pkg/config"
)

// State represents the state of a circuit breaker.
type State int

const (
	// Closed allows requests through normally.
	Closed State = iota

	// Open rejects all requests until the recovery timeout elapses.
	Open

	// HalfOpen allows a probe request to test recovery.
	HalfOpen
)

// String returns the human-readable name for the breaker state.
func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Breaker is a per-provider failure isolation state machine.
//
// Transitions: Closed opens after FailureThreshold consecutive failures.
// Open moves to HalfOpen once RecoveryTimeout has elapsed since it
// opened, observed on the next Allow call. A single success in HalfOpen
// closes the breaker and resets the failure count; a failure in HalfOpen
// reopens it immediately.
//
// Thread safety: safe for concurrent use.
type Breaker struct {
	failureThreshold int
	recoveryTimeout  time.Duration

	mu              sync.Mutex
	state           State
	failureCount    int
	successCount    int
	lastFailureTime time.Time
	openedAt        time.Time
}

// New creates a breaker in the Closed state.
func New(cfg config.BreakerConfig) *Breaker {
	return &Breaker{
		failureThreshold: cfg.FailureThreshold,
		recoveryTimeout:  cfg.RecoveryTimeout,
		state:            Closed,
	}
}

// Allow reports whether a request may proceed. An Open breaker whose
// recovery timeout has elapsed transitions to HalfOpen and admits the
// probe.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed, HalfOpen:
		return true
	case Open:
		if time.Since(b.openedAt) >= b.recoveryTimeout {
			b.state = HalfOpen
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess resets the failure count and, when the breaker is
// HalfOpen, closes it. A success while Open does not close the breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.successCount++
	switch b.state {
	case Closed:
		b.failureCount = 0
	case HalfOpen:
		b.state = Closed
		b.failureCount = 0
	}
}

// RecordFailure counts a failure against the breaker. The threshold
// opens a Closed breaker; any failure reopens a HalfOpen one.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.lastFailureTime = now

	switch b.state {
	case Closed:
		b.failureCount++
		if b.failureCount >= b.failureThreshold {
			b.state = Open
			b.openedAt = now
		}
	case HalfOpen:
		b.failureCount++
		b.state = Open
		b.openedAt = now
	}
}

// State returns the current breaker state without side effects.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Snapshot captures breaker counters for observability.
type Snapshot struct {
	State           State
	FailureCount    int
	SuccessCount    int
	LastFailureTime time.Time
	OpenedAt        time.Time
}

// Snapshot returns a copy of the breaker's current counters.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		State:           b.state,
		FailureCount:    b.failureCount,
		SuccessCount:    b.successCount,
		LastFailureTime: b.lastFailureTime,
		OpenedAt:        b.openedAt,
	}
}

// Reset returns the breaker to Closed with all counters cleared. Used by
// manual intervention and tests.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Closed
	b.failureCount = 0
	b.successCount = 0
	b.lastFailureTime = time.Time{}
	b.openedAt = time.Time{}
}
