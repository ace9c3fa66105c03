package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/providers"
	"mercator-hq/ganymede/pkg/resilience"
	"mercator-hq/ganymede/pkg/streaming/chunk"
)

// Resolver decides how a session proceeds after an error. Implemented
// by resilience.Manager.
type Resolver interface {
	HandleError(sessionID, provider, scenario string, err error) resilience.Verdict
	RecordSuccess(sessionID, provider string)
	ReleaseSession(sessionID string)
}

// SourceFunc opens (or reopens, on retry) the upstream chunk stream for
// a session.
type SourceFunc func(ctx context.Context) (<-chan *providers.StreamChunk, error)

// Options configures one session.
type Options struct {
	// Provider is the upstream provider identifier, used for breaker
	// accounting and logging.
	Provider string

	// Scenario is the request text, used for cached fallback lookup.
	Scenario string

	// Source opens the upstream stream. When nil the session is fed
	// externally via Submit, Complete, and Fail.
	Source SourceFunc

	// Resolver handles errors. When nil every error terminates the
	// session.
	Resolver Resolver

	Logger *slog.Logger
}

// ErrSessionClosed is returned when submitting to a terminal session.
var ErrSessionClosed = errors.New("session closed")

type commandKind int

const (
	cmdChunk commandKind = iota
	cmdComplete
	cmdFail
	cmdCancel
)

type command struct {
	kind commandKind
	data []byte
	seq  *int64
	err  error
}

// Session is one streaming enrichment session. All state is owned by
// the session's run goroutine; external callers interact only through
// the command channel and the events channel.
type Session struct {
	id       string
	provider string
	scenario string
	cfg      config.StreamingConfig
	source   SourceFunc
	resolver Resolver
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	commands chan command
	events   chan Event

	status atomic.Int32

	// onDone is invoked exactly once from the run goroutine's cleanup,
	// used by the Coordinator to drop the session from its index.
	onDone func()

	metricsMu sync.Mutex
	metrics   Metrics

	state *chunk.State
}

// newSession wires a session without starting it. Exposed through
// Coordinator.Start.
func newSession(parent context.Context, cfg config.StreamingConfig, opts Options, onDone func()) *Session {
	ctx, cancel := context.WithCancel(parent)

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	id := uuid.NewString()
	now := time.Now()

	s := &Session{
		id:       id,
		provider: opts.Provider,
		scenario: opts.Scenario,
		cfg:      cfg,
		source:   opts.Source,
		resolver: opts.Resolver,
		logger:   logger.With("session_id", id, "provider", opts.Provider),
		ctx:      ctx,
		cancel:   cancel,
		commands: make(chan command, cfg.CommandBuffer),
		events:   make(chan Event, cfg.CommandBuffer),
		onDone:   onDone,
		metrics:  Metrics{StartedAt: now},
		state:    chunk.NewState(cfg, now),
	}
	s.status.Store(int32(StatusInitializing))
	return s
}

// start launches the run goroutine and, when a source is configured,
// the upstream pump.
func (s *Session) start() {
	go s.run()
	if s.source != nil {
		go s.openSource()
	}
}

// ID returns the generated session identifier.
func (s *Session) ID() string { return s.id }

// Provider returns the upstream provider identifier.
func (s *Session) Provider() string { return s.provider }

// Status returns the current lifecycle state.
func (s *Session) Status() Status { return Status(s.status.Load()) }

// Events returns the consumer event channel. It is closed after the
// terminal event has been delivered.
func (s *Session) Events() <-chan Event { return s.events }

// Metrics returns a snapshot of the session's activity counters.
func (s *Session) Metrics() Metrics {
	s.metricsMu.Lock()
	defer s.metricsMu.Unlock()
	return s.metrics
}

// Submit delivers one upstream chunk to the session. seq is nil for
// providers that deliver in arrival order.
func (s *Session) Submit(data []byte, seq *int64) error {
	if !s.send(command{kind: cmdChunk, data: data, seq: seq}) {
		return ErrSessionClosed
	}
	return nil
}

// Complete signals that the upstream stream finished normally.
func (s *Session) Complete() error {
	if !s.send(command{kind: cmdComplete}) {
		return ErrSessionClosed
	}
	return nil
}

// Fail reports an upstream failure for resilience handling.
func (s *Session) Fail(err error) error {
	if !s.send(command{kind: cmdFail, err: err}) {
		return ErrSessionClosed
	}
	return nil
}

// Cancel requests cancellation. The buffered aggregation state is
// flushed best-effort before the stream_cancelled event. Cancelling a
// terminal session is a no-op.
func (s *Session) Cancel() {
	s.send(command{kind: cmdCancel})
}

// send enqueues a command, giving up when the session is shutting down.
func (s *Session) send(cmd command) bool {
	select {
	case s.commands <- cmd:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// openSource invokes the source and pumps its chunks into the command
// channel. Runs outside the session goroutine.
func (s *Session) openSource() {
	ch, err := s.source(s.ctx)
	if err != nil {
		s.Fail(err)
		return
	}
	s.pump(ch)
}

// pump translates provider stream chunks into session commands. An
// in-band error chunk is escalated; a finish reason or channel close
// completes the session.
func (s *Session) pump(ch <-chan *providers.StreamChunk) {
	for c := range ch {
		if c.Err != nil {
			s.Fail(c.Err)
			return
		}
		if len(c.Data) > 0 {
			if err := s.Submit(c.Data, c.Sequence); err != nil {
				return
			}
		}
		switch c.FinishReason {
		case providers.FinishReasonStop, providers.FinishReasonLength:
			s.Complete()
			return
		case providers.FinishReasonError:
			s.Fail(&providers.StreamError{Provider: s.provider, Message: "stream finished with error"})
			return
		}
	}
	s.Complete()
}

// run is the session actor loop. It owns all mutable session state.
func (s *Session) run() {
	defer s.finalize()

	deadline := time.NewTimer(s.cfg.SessionTimeout)
	defer deadline.Stop()

	flushEvery := s.cfg.FlushInterval / 2
	if flushEvery <= 0 {
		flushEvery = 50 * time.Millisecond
	}
	flush := time.NewTicker(flushEvery)
	defer flush.Stop()

	for {
		select {
		case cmd := <-s.commands:
			switch cmd.kind {
			case cmdChunk:
				s.handleChunk(cmd)
			case cmdComplete:
				s.complete(false, "")
				return
			case cmdFail:
				if s.handleFailure(cmd.err) {
					return
				}
			case cmdCancel:
				s.cancelled()
				return
			}

		case <-deadline.C:
			s.timedOut()
			return

		case <-flush.C:
			now := time.Now()
			if s.state.ShouldFlush(now) {
				s.emitContent(s.state.Flush(now), false, "")
			}

		case <-s.ctx.Done():
			s.cancelled()
			return
		}
	}
}

// handleChunk runs one chunk through the processing state and acts on
// the outcome.
func (s *Session) handleChunk(cmd command) {
	if s.Status() == StatusInitializing {
		s.status.Store(int32(StatusStreaming))
		s.emit(Event{Type: EventProcessingStarted})
	}

	now := time.Now()
	res := s.state.Process(cmd.data, cmd.seq, now)

	switch res.Kind {
	case chunk.Emitted:
		if res.Dropped {
			s.logger.Warn("chunk dropped", "reason", res.DropReason)
			return
		}
		s.updateMetrics(now)
		for _, payload := range res.Emitted {
			s.emitContent(payload, false, "")
		}

	case chunk.Delayed:
		// Deferred redelivery keeps the actor responsive; the chunk
		// re-enters the command channel after the computed delay.
		s.logger.Debug("backpressure delay", "delay", res.Delay)
		time.AfterFunc(res.Delay, func() {
			s.send(cmd)
		})

	case chunk.Rejected:
		var rateErr *chunk.RateLimitError
		if errors.As(res.Err, &rateErr) {
			// Hard rate limit: back off a full window before retrying
			// this chunk.
			time.AfterFunc(s.cfg.FlowControlWindow, func() {
				s.send(cmd)
			})
			return
		}
		s.noteChunkError(res.Err)
	}
}

// noteChunkError records a chunk-local validation error against the
// session's error budget. The chunk is dropped either way; only budget
// exhaustion ends the session.
func (s *Session) noteChunkError(err error) {
	s.logger.Warn("chunk rejected", "error", err)
	if s.resolver == nil {
		return
	}
	v := s.resolver.HandleError(s.id, s.provider, s.scenario, err)
	if v.Decision == resilience.Terminated {
		s.terminate(v.Reason, err)
	}
}

// handleFailure escalates an upstream error and acts on the verdict.
// Returns true when the session reached a terminal state.
func (s *Session) handleFailure(err error) bool {
	if s.resolver == nil {
		s.terminate("upstream_error", err)
		return true
	}

	v := s.resolver.HandleError(s.id, s.provider, s.scenario, err)
	switch v.Decision {
	case resilience.Recovered:
		if s.source == nil {
			// Externally fed session: the feeder owns redelivery.
			return false
		}
		s.logger.Info("retrying upstream stream", "delay", v.RetryAfter)
		time.AfterFunc(v.RetryAfter, func() {
			go s.openSource()
		})
		return false

	case resilience.Fallback:
		s.flushPartial()
		if len(v.Content) > 0 {
			s.emitContent(v.Content, true, v.Strategy)
			s.complete(true, v.Strategy)
		} else {
			s.terminate(v.Reason, err)
		}
		return true

	default: // Terminated
		s.terminate(v.Reason, err)
		return true
	}
}

// complete finishes the session successfully, flushing any buffered
// content first.
func (s *Session) complete(fallback bool, strategy string) {
	s.flushPartial()
	s.status.Store(int32(StatusCompleted))

	if s.resolver != nil && !fallback {
		s.resolver.RecordSuccess(s.id, s.provider)
	}

	m := s.closeMetrics()
	s.emit(Event{Type: EventComplete, Fallback: fallback, Strategy: strategy, Metrics: &m})
	s.logger.Info("session completed",
		"chunks", m.ChunkCount,
		"bytes", m.ByteCount,
		"fallback", fallback)
}

// terminate finishes the session with an error event.
func (s *Session) terminate(reason string, err error) {
	s.flushPartial()
	s.status.Store(int32(StatusError))

	m := s.closeMetrics()
	s.emit(Event{Type: EventError, Reason: reason, Err: err, Metrics: &m})
	s.logger.Error("session terminated", "reason", reason, "error", err)
}

// cancelled acknowledges cancellation, flushing buffered content
// best-effort.
func (s *Session) cancelled() {
	s.flushPartial()
	s.status.Store(int32(StatusCancelled))

	m := s.closeMetrics()
	s.emit(Event{Type: EventStreamCancelled, Metrics: &m})
	s.logger.Info("session cancelled", "bytes", m.ByteCount)
}

// timedOut fires on the absolute session deadline.
func (s *Session) timedOut() {
	s.flushPartial()
	s.status.Store(int32(StatusTimedOut))

	m := s.closeMetrics()
	s.emit(Event{Type: EventStreamTimeout, Reason: "session_timeout", Metrics: &m})
	s.logger.Warn("session timed out", "timeout", s.cfg.SessionTimeout, "bytes", m.ByteCount)
}

// flushPartial force-flushes the aggregation buffer so no accepted
// bytes are lost on a terminal transition.
func (s *Session) flushPartial() {
	if data := s.state.Flush(time.Now()); len(data) > 0 {
		s.emitContent(data, false, "")
	}
}

func (s *Session) emitContent(data []byte, fallback bool, strategy string) {
	if len(data) == 0 {
		return
	}
	s.emit(Event{Type: EventContentChunk, Content: data, Fallback: fallback, Strategy: strategy})
}

// emit delivers an event to the consumer, giving up if the session
// context is torn down while the consumer is stalled.
func (s *Session) emit(ev Event) {
	ev.SessionID = s.id
	ev.Timestamp = time.Now()
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}

func (s *Session) updateMetrics(now time.Time) {
	s.metricsMu.Lock()
	defer s.metricsMu.Unlock()
	if s.metrics.FirstChunkAt.IsZero() {
		s.metrics.FirstChunkAt = now
	}
	s.metrics.ChunkCount = s.state.ChunkCount()
	s.metrics.ByteCount = s.state.TotalSize()
}

func (s *Session) closeMetrics() Metrics {
	s.metricsMu.Lock()
	defer s.metricsMu.Unlock()
	s.metrics.ChunkCount = s.state.ChunkCount()
	s.metrics.ByteCount = s.state.TotalSize()
	s.metrics.FinishedAt = time.Now()
	return s.metrics
}

// finalize is the single cleanup path: it runs exactly once when the
// run goroutine exits, in any terminal state.
func (s *Session) finalize() {
	if !Status(s.status.Load()).Terminal() {
		s.status.Store(int32(StatusCancelled))
	}
	s.state.Release()
	if s.resolver != nil {
		s.resolver.ReleaseSession(s.id)
	}
	if s.onDone != nil {
		s.onDone()
	}
	s.cancel()
	close(s.events)
}