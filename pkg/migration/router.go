package migration

import (
	"context"
	"log/slog"
	"time"
)

// Routing path identifiers.
const (
	PathReqllm = "reqllm"
	PathLegacy = "legacy"
)

// Outcome describes one implementation invocation for the health
// monitor.
type Outcome struct {
	Path      string
	Operation Operation
	Err       error
	Duration  time.Duration

	// Fallback marks a legacy invocation that followed a failed
	// new-path call.
	Fallback bool
}

// Recorder receives every invocation outcome. Implemented by the health
// monitor's metrics aggregator.
type Recorder interface {
	RecordRoute(Outcome)
}

// Handler is one implementation of an enrichment operation.
type Handler func(ctx context.Context) error

// Router is the front door that chooses between the legacy and reqllm
// implementations per call.
type Router struct {
	store    *Store
	recorder Recorder
	logger   *slog.Logger
}

// NewRouter creates a router. recorder may be nil.
func NewRouter(store *Store, recorder Recorder, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		store:    store,
		recorder: recorder,
		logger:   logger.With("component", "migration_router"),
	}
}

// Do routes one call. The reqllm path is chosen per the store's
// decision; when it fails and fallback is enabled, the same request is
// retried on the legacy path and both outcomes are recorded.
func (r *Router) Do(ctx context.Context, sessionID, provider string, op Operation, reqllm, legacy Handler) (string, error) {
	if !r.store.ShouldUseReqllm(sessionID, provider, op) {
		return PathLegacy, r.invoke(ctx, PathLegacy, op, false, legacy)
	}

	err := r.invoke(ctx, PathReqllm, op, false, reqllm)
	if err == nil {
		return PathReqllm, nil
	}

	if !r.store.Flags().FallbackEnabled {
		return PathReqllm, err
	}

	r.logger.Warn("reqllm path failed, falling back to legacy",
		"session_id", sessionID,
		"provider", provider,
		"operation", string(op),
		"error", err)

	return PathLegacy, r.invoke(ctx, PathLegacy, op, true, legacy)
}

// invoke runs one handler and records its outcome.
func (r *Router) invoke(ctx context.Context, path string, op Operation, fallback bool, h Handler) error {
	start := time.Now()
	err := h(ctx)

	if r.recorder != nil {
		r.recorder.RecordRoute(Outcome{
			Path:      path,
			Operation: op,
			Err:       err,
			Duration:  time.Since(start),
			Fallback:  fallback,
		})
	}
	return err
}
