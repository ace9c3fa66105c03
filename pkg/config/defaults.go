package config

import "time"

// Default returns a Config populated with default values for all sections.
// The defaults produce a working single-process deployment with a single
// simulated provider; production deployments override providers and
// migration settings via YAML.
func Default() *Config {
	cfg := &Config{
		Providers: map[string]ProviderConfig{},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with defaults. It is called by
// Load after unmarshaling so that partial configuration files work, and
// may be called directly on hand-built configs in tests.
func ApplyDefaults(cfg *Config) {
	applyStreamingDefaults(&cfg.Streaming)
	applyResilienceDefaults(&cfg.Resilience)
	applyResourcesDefaults(&cfg.Resources)
	applyMigrationDefaults(&cfg.Migration)
	applyHealthDefaults(&cfg.Health)
	applyTelemetryDefaults(&cfg.Telemetry)

	for name, pc := range cfg.Providers {
		applyProviderDefaults(&pc)
		cfg.Providers[name] = pc
	}
}

func applyStreamingDefaults(c *StreamingConfig) {
	// Flow control defaults to enabled. A bare bool cannot distinguish
	// "not set" from "explicitly false", so only default it on when no
	// flow control field was configured at all.
	if !c.FlowControlEnabled && c.MaxChunksPerSecond == 0 && c.FlowControlWindow == 0 {
		c.FlowControlEnabled = true
	}
	if c.MaxChunkSize == 0 {
		c.MaxChunkSize = 1 << 20 // 1MB
	}
	if c.TotalSizeLimit == 0 {
		c.TotalSizeLimit = 10 << 20 // 10MB
	}
	if c.MaxChunksPerSecond == 0 {
		c.MaxChunksPerSecond = 100
	}
	if c.FlowControlWindow == 0 {
		c.FlowControlWindow = time.Second
	}
	if c.MaxPendingChunks == 0 {
		c.MaxPendingChunks = 64
	}
	if c.FlushThreshold == 0 {
		c.FlushThreshold = 4096
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = 100 * time.Millisecond
	}
	if c.SessionTimeout == 0 {
		c.SessionTimeout = 90 * time.Second
	}
	if c.CommandBuffer == 0 {
		c.CommandBuffer = 256
	}
}

func applyProviderDefaults(c *ProviderConfig) {
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.HealthCheckInterval == 0 {
		c.HealthCheckInterval = 30 * time.Second
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 10
	}
	if c.MaxIdleConnsPerHost == 0 {
		c.MaxIdleConnsPerHost = 5
	}
	if c.IdleConnTimeout == 0 {
		c.IdleConnTimeout = 90 * time.Second
	}
}

func applyResilienceDefaults(c *ResilienceConfig) {
	if c.MaxSessionErrors == 0 {
		c.MaxSessionErrors = 5
	}
	if c.ErrorWindow == 0 {
		c.ErrorWindow = 60 * time.Second
	}
	if c.MaxRecoveryAttempts == 0 {
		c.MaxRecoveryAttempts = 3
	}
	if c.RetryBaseDelay == 0 {
		c.RetryBaseDelay = 500 * time.Millisecond
	}
	if c.RetryMaxDelay == 0 {
		c.RetryMaxDelay = 10 * time.Second
	}
	if c.FallbackStrategy == "" {
		c.FallbackStrategy = "error"
	}
	if c.Breaker.FailureThreshold == 0 {
		c.Breaker.FailureThreshold = 5
	}
	if c.Breaker.RecoveryTimeout == 0 {
		c.Breaker.RecoveryTimeout = 30 * time.Second
	}
}

func applyResourcesDefaults(c *ResourcesConfig) {
	if c.MaxConcurrentPerProvider == 0 {
		c.MaxConcurrentPerProvider = 10
	}
	if c.MemoryWarningMB == 0 {
		c.MemoryWarningMB = 512
	}
	if c.MemoryCriticalMB == 0 {
		c.MemoryCriticalMB = 1024
	}
	if c.CPUWarningPercent == 0 {
		c.CPUWarningPercent = 75
	}
	if c.CPUCriticalPercent == 0 {
		c.CPUCriticalPercent = 90
	}
	if c.ConnectionWarningRatio == 0 {
		c.ConnectionWarningRatio = 0.75
	}
	if c.ConnectionCriticalRatio == 0 {
		c.ConnectionCriticalRatio = 0.9
	}
	if c.SampleInterval == 0 {
		c.SampleInterval = 5 * time.Second
	}
	if c.BaseTimeout == 0 {
		c.BaseTimeout = 30 * time.Second
	}
}

func applyMigrationDefaults(c *MigrationConfig) {
	if c.DBPath == "" {
		c.DBPath = "ganymede-flags.db"
	}
	if c.DecisionCacheTTL == 0 {
		c.DecisionCacheTTL = 10 * time.Minute
	}
	if c.DecisionCacheMaxEntries == 0 {
		c.DecisionCacheMaxEntries = 10000
	}
}

func applyHealthDefaults(c *HealthConfig) {
	if c.Schedule == "" {
		c.Schedule = "@every 30s"
	}
	if c.WarningErrorRate == 0 {
		c.WarningErrorRate = 0.05
	}
	if c.CriticalErrorRate == 0 {
		c.CriticalErrorRate = 0.10
	}
	if c.WarningLatencyRatio == 0 {
		c.WarningLatencyRatio = 2.0
	}
	if c.CriticalLatencyRatio == 0 {
		c.CriticalLatencyRatio = 3.0
	}
	if c.WarningStreamingSuccess == 0 {
		c.WarningStreamingSuccess = 0.90
	}
	if c.CriticalStreamingSuccess == 0 {
		c.CriticalStreamingSuccess = 0.80
	}
	if c.MaxConsecutiveCritical == 0 {
		c.MaxConsecutiveCritical = 3
	}
	if c.MaxConsecutiveWarnings == 0 {
		c.MaxConsecutiveWarnings = 10
	}
	if c.HistorySize == 0 {
		c.HistorySize = 120
	}
}

func applyTelemetryDefaults(c *TelemetryConfig) {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
		// An entirely unset logging section also gets PII redaction on.
		if !c.Logging.RedactPII && c.Logging.Format == "" {
			c.Logging.RedactPII = true
		}
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.BufferSize == 0 {
		c.Logging.BufferSize = 10000
	}

	if !c.Metrics.Enabled && c.Metrics.ListenAddress == "" && c.Metrics.Path == "" {
		c.Metrics.Enabled = true
	}
	if c.Metrics.ListenAddress == "" {
		c.Metrics.ListenAddress = "127.0.0.1:9090"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "mercator"
	}
	if c.Metrics.Subsystem == "" {
		c.Metrics.Subsystem = "ganymede"
	}
	if len(c.Metrics.RequestDurationBuckets) == 0 {
		c.Metrics.RequestDurationBuckets = []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 90.0}
	}
	if len(c.Metrics.ChunkSizeBuckets) == 0 {
		c.Metrics.ChunkSizeBuckets = []float64{64, 256, 1024, 4096, 16384, 65536, 262144}
	}

	if c.Tracing.Sampler == "" {
		c.Tracing.Sampler = "ratio"
		// An entirely unset tracing section talks to a local collector
		// without TLS.
		if c.Tracing.Endpoint == "" {
			c.Tracing.Insecure = true
		}
	}
	if c.Tracing.SampleRatio == 0 {
		c.Tracing.SampleRatio = 0.1
	}
	if c.Tracing.Endpoint == "" {
		c.Tracing.Endpoint = "localhost:4317"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "ganymede"
	}
	if c.Tracing.ExportTimeout == 0 {
		c.Tracing.ExportTimeout = 10 * time.Second
	}
}
