package providers

import "time"

// Message represents a single message sent to a provider.
// It is provider-agnostic and will be transformed to provider-specific formats.
type Message struct {
	// Role identifies the message sender (system, user, assistant)
	Role string `json:"role"`

	// Content is the message text content
	Content string `json:"content"`
}

// TokenUsage tracks token consumption for an enrichment request.
type TokenUsage struct {
	// PromptTokens is the number of tokens in the prompt
	PromptTokens int `json:"prompt_tokens"`

	// CompletionTokens is the number of tokens in the completion
	CompletionTokens int `json:"completion_tokens"`

	// TotalTokens is the total number of tokens used (prompt + completion)
	TotalTokens int `json:"total_tokens"`
}

// ScenarioRequest represents a provider-agnostic scenario enrichment request.
// It is transformed to provider-specific formats by each adapter.
type ScenarioRequest struct {
	// SessionID identifies the streaming session this request belongs to.
	// It is not sent to the provider; adapters use it for logging only.
	SessionID string `json:"-"`

	// Scenario is the scenario text to enrich
	Scenario string `json:"scenario"`

	// SystemPrompt is an optional system instruction prepended to the
	// conversation
	SystemPrompt string `json:"system_prompt,omitempty"`

	// Model is the model identifier; empty means the adapter's configured
	// default model
	Model string `json:"model,omitempty"`

	// Temperature controls randomness (0.0 to 1.0)
	Temperature float64 `json:"temperature,omitempty"`

	// MaxTokens is the maximum number of tokens to generate
	MaxTokens int `json:"max_tokens,omitempty"`

	// Metadata contains additional request context used internally,
	// never sent to the provider
	Metadata map[string]string `json:"-"`
}

// EnrichmentResponse represents a provider-agnostic enrichment response.
// It is normalized from provider-specific response formats.
type EnrichmentResponse struct {
	// ID is the unique response identifier
	ID string `json:"id"`

	// Model is the model that generated the response
	Model string `json:"model"`

	// Content is the generated text content
	Content string `json:"content"`

	// FinishReason indicates why generation stopped (stop, length, error)
	FinishReason string `json:"finish_reason"`

	// Usage contains token consumption information
	Usage TokenUsage `json:"usage"`

	// Created is the Unix timestamp when the response was created
	Created int64 `json:"created"`
}

// StreamChunk represents a single chunk in a streaming response.
//
// Sequence is a pointer because not every provider numbers its chunks.
// A nil Sequence means "arrival order": the chunk pipeline assigns the
// next expected number on receipt. Providers that do number chunks allow
// the pipeline to detect and repair out-of-order delivery.
type StreamChunk struct {
	// ID is the response identifier (same across all chunks)
	ID string `json:"id"`

	// Model is the model generating the response
	Model string `json:"model"`

	// Sequence is the provider-assigned chunk sequence number, if any
	Sequence *int64 `json:"sequence,omitempty"`

	// Data is the incremental content in this chunk
	Data []byte `json:"data"`

	// FinishReason is set in the final chunk to indicate why generation
	// stopped
	FinishReason string `json:"finish_reason,omitempty"`

	// Usage is included in the final chunk (if supported by provider)
	Usage *TokenUsage `json:"usage,omitempty"`

	// Err is set if an error occurred during streaming
	Err error `json:"-"`

	// Created is the Unix timestamp when the chunk was created
	Created int64 `json:"created"`
}

// AdapterHealth tracks the health status of a provider adapter.
type AdapterHealth struct {
	// IsHealthy indicates whether the adapter is currently healthy
	IsHealthy bool

	// LastCheck is the timestamp of the last health check
	LastCheck time.Time

	// LastError is the most recent error encountered (nil if healthy)
	LastError error

	// ConsecutiveFailures counts sequential health check failures
	ConsecutiveFailures int

	// LastSuccessfulRequest is the timestamp of the last successful request
	LastSuccessfulRequest time.Time

	// TotalRequests is the total number of requests sent to this adapter
	TotalRequests int64

	// FailedRequests is the total number of failed requests
	FailedRequests int64
}

// AdapterConfig contains configuration for a single adapter instance.
// This is a subset of config.ProviderConfig with only the fields adapters need.
type AdapterConfig struct {
	// Name is the provider identifier (e.g., "openai", "anthropic")
	Name string

	// Type is the adapter type (openai, anthropic, simulated)
	Type string

	// BaseURL is the API endpoint base URL
	BaseURL string

	// APIKey is the authentication key
	APIKey string

	// Model is the default model when a request does not name one
	Model string

	// Timeout is the request timeout duration
	Timeout time.Duration

	// MaxRetries is the maximum number of retry attempts
	MaxRetries int

	// HealthCheckInterval is how often to run background health checks
	HealthCheckInterval time.Duration

	// MaxIdleConns is the maximum number of idle connections in the pool
	MaxIdleConns int

	// MaxIdleConnsPerHost is the maximum idle connections per host
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long an idle connection remains in the pool
	IdleConnTimeout time.Duration
}

// Message role constants
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Finish reason constants
const (
	FinishReasonStop   = "stop"
	FinishReasonLength = "length"
	FinishReasonError  = "error"
)

// Adapter type constants
const (
	TypeOpenAI    = "openai"
	TypeAnthropic = "anthropic"
	TypeSimulated = "simulated"
)
