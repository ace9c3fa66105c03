package resilience

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/resilience/breaker"
)

// Decision is the outcome of handling one session error.
type Decision int

const (
	// Recovered means the session should retry the failed operation
	// after Verdict.RetryAfter.
	Recovered Decision = iota

	// Fallback means the session should deliver the alternate response
	// carried by the verdict instead of retrying.
	Fallback

	// Terminated means the session's error budget is exhausted. The
	// session must stop and release its resources.
	Terminated
)

func (d Decision) String() string {
	switch d {
	case Recovered:
		return "recovered"
	case Fallback:
		return "fallback"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Verdict tells a session how to proceed after an error.
type Verdict struct {
	Decision       Decision
	Classification Classification

	// RetryAfter is the backoff delay before redelivery. Set when the
	// decision is Recovered.
	RetryAfter time.Duration

	// Strategy names the fallback applied: "simulated", "cached", or
	// "error". Set when the decision is Fallback.
	Strategy string

	// Content is the fallback payload for the simulated and cached
	// strategies. Nil for the error strategy.
	Content []byte

	// Reason is a stable reason code surfaced to the consumer on
	// Terminated and error-strategy verdicts.
	Reason string
}

// Cache supplies previously successful enrichment content for the
// "cached" fallback strategy. A nil cache degrades cached fallbacks to
// the error strategy.
type Cache interface {
	Get(scenario string) ([]byte, bool)
}

// sessionErrors tracks one session's error history within the sliding
// window, plus its retry budget.
type sessionErrors struct {
	history          []time.Time
	recoveryAttempts int
}

// Manager owns the retry / fallback / terminate decision for all
// sessions. It keeps a per-session error window and updates per-provider
// circuit breakers on provider-attributable failures and on successes.
//
// Thread safety: safe for concurrent use by many session goroutines.
type Manager struct {
	cfg      config.ResilienceConfig
	breakers *breaker.Registry
	cache    Cache
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*sessionErrors
}

// NewManager creates a resilience manager. cache may be nil when the
// cached fallback strategy is not configured.
func NewManager(cfg config.ResilienceConfig, breakers *breaker.Registry, cache Cache, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:      cfg,
		breakers: breakers,
		cache:    cache,
		logger:   logger,
		sessions: make(map[string]*sessionErrors),
	}
}

// Breakers exposes the underlying breaker registry for health snapshots.
func (m *Manager) Breakers() *breaker.Registry {
	return m.breakers
}

// HandleError records an error against the session and provider and
// returns the verdict the session must act on. scenario is the request
// text used for cached fallback lookup; it may be empty.
func (m *Manager) HandleError(sessionID, provider, scenario string, err error) Verdict {
	class := Classify(err)

	// Client and data errors are local to the session's input or
	// payload; they never count against the provider's breaker.
	providerFault := class.Category != CategoryClient && class.Category != CategoryData

	count, attempts := m.recordError(sessionID)
	if count >= m.cfg.MaxSessionErrors {
		m.ReleaseSession(sessionID)
		if providerFault {
			m.breakers.Get(provider).RecordFailure()
		}
		m.logger.Warn("session error budget exhausted",
			"session_id", sessionID,
			"provider", provider,
			"error_count", count,
			"error_type", string(class.Type))
		return Verdict{
			Decision:       Terminated,
			Classification: class,
			Reason:         "error_budget_exhausted",
		}
	}

	b := m.breakers.Get(provider)
	if providerFault {
		b.RecordFailure()
	}

	// Allow half-opens a breaker whose recovery timeout has elapsed and
	// admits this session's retry as the trial request. The failure was
	// already recorded, so it cannot reopen the fresh half-open state.
	if !b.Allow() {
		m.logger.Warn("circuit breaker open, skipping retry",
			"session_id", sessionID,
			"provider", provider,
			"error_type", string(class.Type))
		return m.fallback(class, scenario)
	}

	if class.Retryable && attempts < m.cfg.MaxRecoveryAttempts {
		delay := m.backoff(attempts, err)
		m.bumpAttempts(sessionID)
		m.logger.Info("scheduling session retry",
			"session_id", sessionID,
			"provider", provider,
			"attempt", attempts+1,
			"delay", delay,
			"error_type", string(class.Type))
		return Verdict{
			Decision:       Recovered,
			Classification: class,
			RetryAfter:     delay,
		}
	}

	return m.fallback(class, scenario)
}

// RecordSuccess resets the provider's breaker failure count (closing a
// half-open breaker) and clears the session's retry budget.
func (m *Manager) RecordSuccess(sessionID, provider string) {
	m.breakers.Get(provider).RecordSuccess()

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		s.recoveryAttempts = 0
	}
}

// ReleaseSession drops the session's error state. Called when a session
// reaches a terminal state.
func (m *Manager) ReleaseSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

// ActiveSessions returns the number of sessions with recorded errors.
func (m *Manager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// recordError appends to the session's windowed history and returns the
// in-window error count and current recovery attempts.
func (m *Manager) recordError(sessionID string) (count, attempts int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		s = &sessionErrors{}
		m.sessions[sessionID] = s
	}

	now := time.Now()
	cutoff := now.Add(-m.cfg.ErrorWindow)
	kept := s.history[:0]
	for _, at := range s.history {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	s.history = append(kept, now)

	return len(s.history), s.recoveryAttempts
}

func (m *Manager) bumpAttempts(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		s.recoveryAttempts++
	}
}

// backoff computes the bounded exponential retry delay. Rate-limited
// errors honor the provider's Retry-After when it is longer.
func (m *Manager) backoff(attempts int, err error) time.Duration {
	delay := m.cfg.RetryBaseDelay << uint(attempts)
	if delay > m.cfg.RetryMaxDelay || delay <= 0 {
		delay = m.cfg.RetryMaxDelay
	}
	if ra := retryAfter(err); ra > delay {
		delay = ra
	}
	return delay
}

// fallback builds the verdict for the configured strategy. Exactly one
// strategy applies per verdict; a cache miss degrades to the error
// strategy rather than combining.
func (m *Manager) fallback(class Classification, scenario string) Verdict {
	switch m.cfg.FallbackStrategy {
	case config.FallbackSimulated:
		return Verdict{
			Decision:       Fallback,
			Classification: class,
			Strategy:       config.FallbackSimulated,
			Content:        []byte(fmt.Sprintf("[fallback] Simulated enrichment unavailable from upstream (%s).", class.Type)),
		}
	case config.FallbackCached:
		if m.cache != nil {
			if content, ok := m.cache.Get(scenario); ok {
				return Verdict{
					Decision:       Fallback,
					Classification: class,
					Strategy:       config.FallbackCached,
					Content:        content,
				}
			}
		}
		fallthrough
	default:
		return Verdict{
			Decision:       Fallback,
			Classification: class,
			Strategy:       config.FallbackError,
			Reason:         string(class.Type),
		}
	}
}
