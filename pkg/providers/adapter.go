package providers

import "context"

// Adapter is the core interface that all LLM provider adapters must implement.
// It provides a unified abstraction for enriching scenario text through
// different upstream providers (OpenAI, Anthropic, simulated).
//
// All methods accept a context.Context for cancellation and timeout control.
// Implementations must respect context cancellation and return immediately
// when the context is cancelled.
//
// Example usage:
//
//	chunks, err := adapter.StreamScenario(ctx, &ScenarioRequest{
//	    SessionID: sessionID,
//	    Scenario:  "A cargo ship loses power in a shipping lane.",
//	})
//	if err != nil {
//	    return err
//	}
//	for chunk := range chunks {
//	    if chunk.Err != nil {
//	        return chunk.Err
//	    }
//	    process(chunk.Data)
//	}
type Adapter interface {
	// StreamScenario sends a streaming enrichment request to the provider.
	// It returns a channel that yields incremental response chunks as they
	// arrive. The caller must read from the channel until it closes. If an
	// error occurs during streaming it is set in the Err field of the final
	// StreamChunk.
	StreamScenario(ctx context.Context, req *ScenarioRequest) (<-chan *StreamChunk, error)

	// Complete sends a non-streaming enrichment request and returns the
	// full response. Implements automatic retry with exponential backoff
	// for transient errors.
	Complete(ctx context.Context, req *ScenarioRequest) (*EnrichmentResponse, error)

	// HealthCheck performs an on-demand health check against the provider.
	// Returns nil if the provider is reachable and responding.
	HealthCheck(ctx context.Context) error

	// Name returns the adapter's configured name (e.g., "openai").
	Name() string

	// Type returns the adapter's type (openai, anthropic, simulated).
	Type() string

	// Healthy returns the current health status of the adapter. This is
	// updated by request accounting and the background health checker and
	// can be used for routing decisions.
	Healthy() bool

	// Health returns detailed health information including last check time,
	// consecutive failures, and request counters.
	Health() AdapterHealth

	// Close releases the adapter's resources (HTTP connections, background
	// checkers). After Close the adapter must not be used.
	Close() error
}

// StreamReader abstracts the underlying SSE or streaming protocol used by
// a provider.
type StreamReader interface {
	// Read reads the next chunk from the stream.
	// Returns nil and io.EOF when the stream ends normally.
	Read(ctx context.Context) (*StreamChunk, error)

	// Close closes the stream and releases resources.
	Close() error
}
