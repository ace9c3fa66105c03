package config

import "time"

// Config is the root configuration structure for Ganymede.
// It contains all configuration sections for the streaming pipeline,
// provider adapters, resilience policy, resource arbitration, the
// migration layer, health monitoring, and telemetry.
type Config struct {
	// Streaming contains per-session chunk processing configuration
	// including validation limits, flow control, ordering, and aggregation.
	Streaming StreamingConfig `yaml:"streaming"`

	// Providers contains configuration for all upstream LLM provider
	// adapters. Keys are provider identifiers (e.g., "openai", "anthropic").
	Providers map[string]ProviderConfig `yaml:"providers"`

	// Resilience contains error-budget, retry, fallback, and circuit
	// breaker configuration.
	Resilience ResilienceConfig `yaml:"resilience"`

	// Resources contains admission control configuration: per-provider
	// concurrency caps and system pressure thresholds.
	Resources ResourcesConfig `yaml:"resources"`

	// Migration contains feature-flag persistence and routing
	// configuration for the legacy/reqllm client migration.
	Migration MigrationConfig `yaml:"migration"`

	// Health contains health monitor scheduling, classification
	// thresholds, and automatic rollback configuration.
	Health HealthConfig `yaml:"health"`

	// Telemetry contains observability configuration including logging
	// and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// StreamingConfig contains per-session chunk processing configuration.
// These values seed the ChunkProcessor state created for each new session.
type StreamingConfig struct {
	// MaxChunkSize is the maximum size of a single chunk in bytes.
	// Chunks larger than this are rejected (never retried).
	// Default: 1048576 (1MB)
	MaxChunkSize int `yaml:"max_chunk_size"`

	// TotalSizeLimit is the maximum cumulative content size per session
	// in bytes. A chunk that would exceed it is rejected and the running
	// total is unchanged.
	// Default: 10485760 (10MB)
	TotalSizeLimit int64 `yaml:"total_size_limit"`

	// FlowControlEnabled toggles the sliding-window rate limiter for
	// inbound chunks. When disabled, chunks are never delayed.
	// Default: true
	FlowControlEnabled bool `yaml:"flow_control_enabled"`

	// MaxChunksPerSecond is the maximum number of chunks accepted within
	// one flow-control window.
	// Default: 100
	MaxChunksPerSecond int `yaml:"max_chunks_per_second"`

	// FlowControlWindow is the sliding window duration for flow control.
	// Default: 1s
	FlowControlWindow time.Duration `yaml:"flow_control_window"`

	// MaxPendingChunks bounds the out-of-order reorder buffer. Chunks
	// arriving more than this far ahead of the expected sequence number
	// are dropped with a warning.
	// Default: 64
	MaxPendingChunks int `yaml:"max_pending_chunks"`

	// FlushThreshold is the aggregation buffer size in bytes that
	// triggers an emission to the consumer.
	// Default: 4096
	FlushThreshold int `yaml:"flush_threshold"`

	// FlushInterval is the maximum time buffered content may wait before
	// being emitted, regardless of size.
	// Default: 100ms
	FlushInterval time.Duration `yaml:"flush_interval"`

	// SessionTimeout is the absolute per-session deadline. When it fires
	// the session transitions to TimedOut and the consumer receives
	// whatever partial content was accumulated.
	// Default: 90s
	SessionTimeout time.Duration `yaml:"session_timeout"`

	// CommandBuffer is the size of each session's bounded command channel.
	// Default: 256
	CommandBuffer int `yaml:"command_buffer"`
}

// ProviderConfig contains configuration for a single provider adapter.
type ProviderConfig struct {
	// Type is the adapter type: "openai", "anthropic", or "simulated".
	Type string `yaml:"type"`

	// BaseURL is the API endpoint base URL.
	BaseURL string `yaml:"base_url"`

	// APIKey is the authentication key.
	APIKey string `yaml:"api_key"`

	// Model is the default model identifier for enrichment requests.
	Model string `yaml:"model"`

	// Timeout is the per-request timeout.
	// Default: 60s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the maximum number of transport-level retry attempts.
	// Default: 3
	MaxRetries int `yaml:"max_retries"`

	// HealthCheckInterval is how often the adapter's background health
	// probe runs.
	// Default: 30s
	HealthCheckInterval time.Duration `yaml:"health_check_interval"`

	// MaxIdleConns is the maximum number of idle connections in the pool.
	// Default: 10
	MaxIdleConns int `yaml:"max_idle_conns"`

	// MaxIdleConnsPerHost is the maximum idle connections per host.
	// Default: 5
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host"`

	// IdleConnTimeout is how long an idle connection remains in the pool.
	// Default: 90s
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

// Recognized values for ResilienceConfig.FallbackStrategy.
const (
	FallbackSimulated = "simulated"
	FallbackCached    = "cached"
	FallbackError     = "error"
)

// ResilienceConfig contains error handling and failure isolation configuration.
type ResilienceConfig struct {
	// MaxSessionErrors is the per-session error budget. A session that
	// accumulates this many errors within ErrorWindow is terminated.
	// Default: 5
	MaxSessionErrors int `yaml:"max_session_errors"`

	// ErrorWindow is the sliding window over which session errors are
	// counted.
	// Default: 60s
	ErrorWindow time.Duration `yaml:"error_window"`

	// MaxRecoveryAttempts caps retry attempts per session error sequence.
	// Default: 3
	MaxRecoveryAttempts int `yaml:"max_recovery_attempts"`

	// RetryBaseDelay is the initial retry backoff delay.
	// Default: 500ms
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`

	// RetryMaxDelay caps the exponential retry backoff.
	// Default: 10s
	RetryMaxDelay time.Duration `yaml:"retry_max_delay"`

	// FallbackStrategy selects what a Fallback verdict produces.
	// Options: "simulated", "cached", "error"
	// Default: "error"
	FallbackStrategy string `yaml:"fallback_strategy"`

	// Breaker contains per-provider circuit breaker configuration.
	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig contains circuit breaker configuration shared by all
// per-provider breakers.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the breaker.
	// Default: 5
	FailureThreshold int `yaml:"failure_threshold"`

	// RecoveryTimeout is how long an open breaker waits before allowing
	// a half-open probe.
	// Default: 30s
	RecoveryTimeout time.Duration `yaml:"recovery_timeout"`
}

// ResourcesConfig contains admission control configuration.
type ResourcesConfig struct {
	// MaxConcurrentPerProvider caps simultaneous in-flight requests per
	// provider. High-priority requests bypass this cap.
	// Default: 10
	MaxConcurrentPerProvider int `yaml:"max_concurrent_per_provider"`

	// MemoryWarningMB and MemoryCriticalMB are process heap thresholds.
	// Defaults: 512 / 1024
	MemoryWarningMB  int `yaml:"memory_warning_mb"`
	MemoryCriticalMB int `yaml:"memory_critical_mb"`

	// CPUWarningPercent and CPUCriticalPercent are thresholds on process
	// CPU usage as a percentage of GOMAXPROCS capacity, measured between
	// samples.
	// Defaults: 75 / 90
	CPUWarningPercent  float64 `yaml:"cpu_warning_percent"`
	CPUCriticalPercent float64 `yaml:"cpu_critical_percent"`

	// ConnectionWarningRatio and ConnectionCriticalRatio are thresholds
	// on the ratio of in-flight requests to the configured cap, summed
	// across providers.
	// Defaults: 0.75 / 0.9
	ConnectionWarningRatio  float64 `yaml:"connection_warning_ratio"`
	ConnectionCriticalRatio float64 `yaml:"connection_critical_ratio"`

	// SampleInterval is how often resource usage is resampled.
	// Default: 5s
	SampleInterval time.Duration `yaml:"sample_interval"`

	// BaseTimeout is the timeout recommended while the system is healthy.
	// Warning status recommends 1.5x, Critical 2x.
	// Default: 30s
	BaseTimeout time.Duration `yaml:"base_timeout"`
}

// MigrationConfig contains feature-flag store and routing configuration.
type MigrationConfig struct {
	// DBPath is the SQLite database file used to persist feature flags.
	// Flags are persisted after every mutation and restored at startup.
	// Default: "ganymede-flags.db"
	DBPath string `yaml:"db_path"`

	// SnapshotPath is an optional JSON snapshot file mirrored on every
	// mutation. When set together with WatchSnapshot, external edits to
	// the file are loaded back into the store.
	SnapshotPath string `yaml:"snapshot_path"`

	// WatchSnapshot enables the fsnotify watcher on SnapshotPath.
	// Default: false
	WatchSnapshot bool `yaml:"watch_snapshot"`

	// DecisionCacheTTL is the TTL for cached per-session routing
	// decisions. Zero disables expiry.
	// Default: 10m
	DecisionCacheTTL time.Duration `yaml:"decision_cache_ttl"`

	// DecisionCacheMaxEntries bounds the routing decision cache (LRU
	// eviction beyond this size). Zero means unlimited.
	// Default: 10000
	DecisionCacheMaxEntries int `yaml:"decision_cache_max_entries"`
}

// HealthConfig contains health monitor configuration.
type HealthConfig struct {
	// Schedule is the cron expression for health evaluation.
	// Default: "@every 30s"
	Schedule string `yaml:"schedule"`

	// WarningErrorRate and CriticalErrorRate classify the aggregate
	// request error rate.
	// Defaults: 0.05 / 0.10
	WarningErrorRate  float64 `yaml:"warning_error_rate"`
	CriticalErrorRate float64 `yaml:"critical_error_rate"`

	// WarningLatencyRatio and CriticalLatencyRatio classify current
	// latency relative to the baseline.
	// Defaults: 2.0 / 3.0
	WarningLatencyRatio  float64 `yaml:"warning_latency_ratio"`
	CriticalLatencyRatio float64 `yaml:"critical_latency_ratio"`

	// WarningStreamingSuccess and CriticalStreamingSuccess classify the
	// streaming success rate (fractions, not percentages).
	// Defaults: 0.90 / 0.80
	WarningStreamingSuccess  float64 `yaml:"warning_streaming_success"`
	CriticalStreamingSuccess float64 `yaml:"critical_streaming_success"`

	// MaxConsecutiveCritical triggers automatic rollback when reached.
	// Default: 3
	MaxConsecutiveCritical int `yaml:"max_consecutive_critical"`

	// MaxConsecutiveWarnings triggers automatic rollback when reached.
	// Default: 10
	MaxConsecutiveWarnings int `yaml:"max_consecutive_warnings"`

	// HistorySize bounds the in-memory health record ring.
	// Default: 120
	HistorySize int `yaml:"history_size"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactPII enables automatic PII redaction in logs.
	// Default: true
	RedactPII bool `yaml:"redact_pii"`

	// BufferSize is the size of the async log buffer.
	// Default: 10000
	BufferSize int `yaml:"buffer_size"`

	// RedactPatterns contains custom PII redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom PII redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the address for the metrics HTTP endpoint.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "mercator"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "ganymede"
	Subsystem string `yaml:"subsystem"`

	// RequestDurationBuckets defines histogram buckets for request and
	// session durations (seconds).
	// Default: [0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 90.0]
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`

	// ChunkSizeBuckets defines histogram buckets for chunk sizes (bytes).
	// Default: [64, 256, 1024, 4096, 16384, 65536, 262144]
	ChunkSizeBuckets []float64 `yaml:"chunk_size_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Only used when Sampler is "ratio".
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name reported in traces.
	// Default: "ganymede"
	ServiceName string `yaml:"service_name"`

	// Insecure disables TLS for the collector connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// ExportTimeout is the timeout for span exports.
	// Default: 10s
	ExportTimeout time.Duration `yaml:"export_timeout"`
}
