package config

import "time"

// ConfigBuilder provides a fluent API for building Config instances in tests.
// It starts with default values and allows selective overrides.
type ConfigBuilder struct {
	cfg Config
}

// NewTestConfig creates a new ConfigBuilder with sensible defaults for testing.
// The resulting configuration is valid and can be used immediately.
func NewTestConfig() *ConfigBuilder {
	cfg := Config{
		Providers: make(map[string]ProviderConfig),
	}
	ApplyDefaults(&cfg)

	// Add a default provider for tests
	cfg.Providers["openai"] = ProviderConfig{
		Type:    "openai",
		BaseURL: "https://api.openai.com/v1",
		APIKey:  "test-key",
	}
	applied := cfg.Providers["openai"]
	applyProviderDefaults(&applied)
	cfg.Providers["openai"] = applied

	return &ConfigBuilder{cfg: cfg}
}

// Build returns the built Config instance.
func (b *ConfigBuilder) Build() *Config {
	return &b.cfg
}

// WithProvider adds or updates a provider configuration.
func (b *ConfigBuilder) WithProvider(name string, provider ProviderConfig) *ConfigBuilder {
	if b.cfg.Providers == nil {
		b.cfg.Providers = make(map[string]ProviderConfig)
	}
	b.cfg.Providers[name] = provider
	return b
}

// WithSessionTimeout sets the streaming session timeout.
func (b *ConfigBuilder) WithSessionTimeout(d time.Duration) *ConfigBuilder {
	b.cfg.Streaming.SessionTimeout = d
	return b
}

// WithMaxChunkSize sets the streaming max chunk size.
func (b *ConfigBuilder) WithMaxChunkSize(n int) *ConfigBuilder {
	b.cfg.Streaming.MaxChunkSize = n
	return b
}

// WithFlowControl sets the flow control toggle and rate.
func (b *ConfigBuilder) WithFlowControl(enabled bool, maxPerSecond int) *ConfigBuilder {
	b.cfg.Streaming.FlowControlEnabled = enabled
	b.cfg.Streaming.MaxChunksPerSecond = maxPerSecond
	return b
}

// WithFallbackStrategy sets the resilience fallback strategy.
func (b *ConfigBuilder) WithFallbackStrategy(strategy string) *ConfigBuilder {
	b.cfg.Resilience.FallbackStrategy = strategy
	return b
}

// WithFlagDBPath sets the migration flag database path.
func (b *ConfigBuilder) WithFlagDBPath(path string) *ConfigBuilder {
	b.cfg.Migration.DBPath = path
	return b
}

// WithSnapshot sets the migration snapshot path and watcher toggle.
func (b *ConfigBuilder) WithSnapshot(path string, watch bool) *ConfigBuilder {
	b.cfg.Migration.SnapshotPath = path
	b.cfg.Migration.WatchSnapshot = watch
	return b
}

// WithHealthSchedule sets the health monitor cron schedule.
func (b *ConfigBuilder) WithHealthSchedule(schedule string) *ConfigBuilder {
	b.cfg.Health.Schedule = schedule
	return b
}

// WithLoggingLevel sets the logging level.
func (b *ConfigBuilder) WithLoggingLevel(level string) *ConfigBuilder {
	b.cfg.Telemetry.Logging.Level = level
	return b
}

// WithLoggingFormat sets the logging format.
func (b *ConfigBuilder) WithLoggingFormat(format string) *ConfigBuilder {
	b.cfg.Telemetry.Logging.Format = format
	return b
}

// WithMetricsEnabled sets whether metrics are enabled.
func (b *ConfigBuilder) WithMetricsEnabled(enabled bool) *ConfigBuilder {
	b.cfg.Telemetry.Metrics.Enabled = enabled
	return b
}

// MinimalConfig returns a minimal valid configuration for testing.
// This is useful for tests that don't care about most configuration values.
func MinimalConfig() *Config {
	return NewTestConfig().Build()
}
