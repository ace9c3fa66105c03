// Package providers implements the provider adapter layer for Ganymede.
//
// It defines a provider-agnostic abstraction (the Adapter interface) for
// enriching scenario text through upstream LLM providers, and normalizes
// their heterogeneous streaming responses into a single StreamChunk format
// consumed by the chunk pipeline.
//
// # Architecture
//
// The package is organized as:
//
//   - Adapter: the core interface (StreamScenario, Complete, HealthCheck)
//   - HTTPAdapter: shared base with connection pooling, retries, and
//     health accounting; concrete adapters embed it
//   - Registry: the named set of adapters built at startup from config
//   - openai/: OpenAI-compatible chat-completions adapter (SSE)
//   - anthropic/: Anthropic Messages API adapter (event-based SSE)
//   - simulated/: in-process adapter producing deterministic chunk streams
//
// # Streaming
//
// StreamScenario returns a receive-only channel of *StreamChunk. The caller
// must drain the channel until it closes. Chunks carry raw bytes plus an
// optional provider-assigned sequence number; a nil Sequence means chunks
// are numbered by arrival order downstream.
//
// Errors during streaming are delivered in-band as the final chunk's Err
// field, so a consumer sees either a chunk with FinishReason set or a chunk
// with Err set as the last element before close.
//
// # Error Taxonomy
//
// All failures surface as typed errors (AuthError, RateLimitError,
// TimeoutError, DecodeError, ProviderError, StreamError) so the resilience
// layer can classify them without string matching.
//
// # Health
//
// Every HTTPAdapter tracks request counters and consecutive failures, and
// optionally runs a background health probe (StartHealthChecker). Three
// consecutive failures mark an adapter unhealthy; any success restores it.
package providers
