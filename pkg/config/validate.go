package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "streaming.max_chunk_size").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateStreaming(&cfg.Streaming)...)
	errs = append(errs, validateProviders(cfg.Providers)...)
	errs = append(errs, validateResilience(&cfg.Resilience)...)
	errs = append(errs, validateResources(&cfg.Resources)...)
	errs = append(errs, validateMigration(&cfg.Migration)...)
	errs = append(errs, validateHealth(&cfg.Health)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateStreaming validates chunk processing configuration.
func validateStreaming(cfg *StreamingConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxChunkSize <= 0 {
		errs = append(errs, FieldError{
			Field:   "streaming.max_chunk_size",
			Message: "max chunk size must be positive",
		})
	}
	if cfg.TotalSizeLimit <= 0 {
		errs = append(errs, FieldError{
			Field:   "streaming.total_size_limit",
			Message: "total size limit must be positive",
		})
	}
	if cfg.TotalSizeLimit > 0 && cfg.MaxChunkSize > 0 && int64(cfg.MaxChunkSize) > cfg.TotalSizeLimit {
		errs = append(errs, FieldError{
			Field:   "streaming.max_chunk_size",
			Message: "max chunk size cannot exceed total size limit",
		})
	}
	if cfg.MaxChunksPerSecond <= 0 {
		errs = append(errs, FieldError{
			Field:   "streaming.max_chunks_per_second",
			Message: "max chunks per second must be positive",
		})
	}
	if cfg.FlowControlWindow <= 0 {
		errs = append(errs, FieldError{
			Field:   "streaming.flow_control_window",
			Message: "flow control window must be positive",
		})
	}
	if cfg.MaxPendingChunks <= 0 {
		errs = append(errs, FieldError{
			Field:   "streaming.max_pending_chunks",
			Message: "max pending chunks must be positive",
		})
	}
	if cfg.FlushThreshold <= 0 {
		errs = append(errs, FieldError{
			Field:   "streaming.flush_threshold",
			Message: "flush threshold must be positive",
		})
	}
	if cfg.FlushInterval <= 0 {
		errs = append(errs, FieldError{
			Field:   "streaming.flush_interval",
			Message: "flush interval must be positive",
		})
	}
	if cfg.SessionTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "streaming.session_timeout",
			Message: "session timeout must be positive",
		})
	}
	if cfg.CommandBuffer <= 0 {
		errs = append(errs, FieldError{
			Field:   "streaming.command_buffer",
			Message: "command buffer must be positive",
		})
	}

	return errs
}

// validateProviders validates all provider adapter configurations.
func validateProviders(providers map[string]ProviderConfig) []FieldError {
	var errs []FieldError

	for name, pc := range providers {
		prefix := fmt.Sprintf("providers.%s", name)

		switch pc.Type {
		case "openai", "anthropic", "simulated":
		case "":
			errs = append(errs, FieldError{
				Field:   prefix + ".type",
				Message: "provider type is required",
			})
		default:
			errs = append(errs, FieldError{
				Field:   prefix + ".type",
				Message: fmt.Sprintf("unknown provider type %q (must be openai, anthropic, or simulated)", pc.Type),
			})
		}

		if pc.Type != "simulated" {
			if pc.BaseURL == "" {
				errs = append(errs, FieldError{
					Field:   prefix + ".base_url",
					Message: "base URL is required",
				})
			} else if u, err := url.Parse(pc.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
				errs = append(errs, FieldError{
					Field:   prefix + ".base_url",
					Message: "base URL must be a valid absolute URL",
				})
			}
			if pc.APIKey == "" {
				errs = append(errs, FieldError{
					Field:   prefix + ".api_key",
					Message: "API key is required",
				})
			}
		}

		if pc.Timeout < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".timeout",
				Message: "timeout must be non-negative",
			})
		}
		if pc.MaxRetries < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".max_retries",
				Message: "max retries must be non-negative",
			})
		}
	}

	return errs
}

// validateResilience validates error handling configuration.
func validateResilience(cfg *ResilienceConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxSessionErrors <= 0 {
		errs = append(errs, FieldError{
			Field:   "resilience.max_session_errors",
			Message: "max session errors must be positive",
		})
	}
	if cfg.ErrorWindow <= 0 {
		errs = append(errs, FieldError{
			Field:   "resilience.error_window",
			Message: "error window must be positive",
		})
	}
	if cfg.MaxRecoveryAttempts < 0 {
		errs = append(errs, FieldError{
			Field:   "resilience.max_recovery_attempts",
			Message: "max recovery attempts must be non-negative",
		})
	}
	if cfg.RetryBaseDelay <= 0 {
		errs = append(errs, FieldError{
			Field:   "resilience.retry_base_delay",
			Message: "retry base delay must be positive",
		})
	}
	if cfg.RetryMaxDelay < cfg.RetryBaseDelay {
		errs = append(errs, FieldError{
			Field:   "resilience.retry_max_delay",
			Message: "retry max delay must be >= retry base delay",
		})
	}

	switch cfg.FallbackStrategy {
	case FallbackSimulated, FallbackCached, FallbackError:
	default:
		errs = append(errs, FieldError{
			Field:   "resilience.fallback_strategy",
			Message: fmt.Sprintf("unknown fallback strategy %q (must be simulated, cached, or error)", cfg.FallbackStrategy),
		})
	}

	if cfg.Breaker.FailureThreshold <= 0 {
		errs = append(errs, FieldError{
			Field:   "resilience.breaker.failure_threshold",
			Message: "failure threshold must be positive",
		})
	}
	if cfg.Breaker.RecoveryTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "resilience.breaker.recovery_timeout",
			Message: "recovery timeout must be positive",
		})
	}

	return errs
}

// validateResources validates admission control configuration.
func validateResources(cfg *ResourcesConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxConcurrentPerProvider <= 0 {
		errs = append(errs, FieldError{
			Field:   "resources.max_concurrent_per_provider",
			Message: "max concurrent per provider must be positive",
		})
	}
	if cfg.MemoryWarningMB <= 0 || cfg.MemoryCriticalMB <= 0 {
		errs = append(errs, FieldError{
			Field:   "resources.memory_warning_mb",
			Message: "memory thresholds must be positive",
		})
	}
	if cfg.MemoryWarningMB > 0 && cfg.MemoryCriticalMB > 0 && cfg.MemoryWarningMB >= cfg.MemoryCriticalMB {
		errs = append(errs, FieldError{
			Field:   "resources.memory_critical_mb",
			Message: "critical memory threshold must exceed warning threshold",
		})
	}
	if cfg.CPUWarningPercent <= 0 || cfg.CPUWarningPercent > 100 {
		errs = append(errs, FieldError{
			Field:   "resources.cpu_warning_percent",
			Message: "cpu warning percent must be in (0, 100]",
		})
	}
	if cfg.CPUCriticalPercent <= 0 || cfg.CPUCriticalPercent > 100 {
		errs = append(errs, FieldError{
			Field:   "resources.cpu_critical_percent",
			Message: "cpu critical percent must be in (0, 100]",
		})
	}
	if cfg.CPUWarningPercent > cfg.CPUCriticalPercent {
		errs = append(errs, FieldError{
			Field:   "resources.cpu_critical_percent",
			Message: "cpu critical percent must be >= warning percent",
		})
	}
	if cfg.ConnectionWarningRatio <= 0 || cfg.ConnectionWarningRatio > 1 {
		errs = append(errs, FieldError{
			Field:   "resources.connection_warning_ratio",
			Message: "connection warning ratio must be in (0, 1]",
		})
	}
	if cfg.ConnectionCriticalRatio <= 0 || cfg.ConnectionCriticalRatio > 1 {
		errs = append(errs, FieldError{
			Field:   "resources.connection_critical_ratio",
			Message: "connection critical ratio must be in (0, 1]",
		})
	}
	if cfg.ConnectionWarningRatio > cfg.ConnectionCriticalRatio {
		errs = append(errs, FieldError{
			Field:   "resources.connection_critical_ratio",
			Message: "connection critical ratio must be >= warning ratio",
		})
	}
	if cfg.SampleInterval <= 0 {
		errs = append(errs, FieldError{
			Field:   "resources.sample_interval",
			Message: "sample interval must be positive",
		})
	}
	if cfg.BaseTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "resources.base_timeout",
			Message: "base timeout must be positive",
		})
	}

	return errs
}

// validateMigration validates feature-flag store configuration.
func validateMigration(cfg *MigrationConfig) []FieldError {
	var errs []FieldError

	if cfg.DBPath == "" {
		errs = append(errs, FieldError{
			Field:   "migration.db_path",
			Message: "flag database path is required",
		})
	}
	if cfg.WatchSnapshot && cfg.SnapshotPath == "" {
		errs = append(errs, FieldError{
			Field:   "migration.snapshot_path",
			Message: "snapshot path is required when watch_snapshot is enabled",
		})
	}
	if cfg.DecisionCacheTTL < 0 {
		errs = append(errs, FieldError{
			Field:   "migration.decision_cache_ttl",
			Message: "decision cache TTL must be non-negative",
		})
	}
	if cfg.DecisionCacheMaxEntries < 0 {
		errs = append(errs, FieldError{
			Field:   "migration.decision_cache_max_entries",
			Message: "decision cache max entries must be non-negative",
		})
	}

	return errs
}

// validateHealth validates health monitor configuration.
func validateHealth(cfg *HealthConfig) []FieldError {
	var errs []FieldError

	if cfg.Schedule == "" {
		errs = append(errs, FieldError{
			Field:   "health.schedule",
			Message: "health schedule is required",
		})
	} else if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		errs = append(errs, FieldError{
			Field:   "health.schedule",
			Message: fmt.Sprintf("invalid cron schedule: %v", err),
		})
	}

	if cfg.WarningErrorRate <= 0 || cfg.WarningErrorRate >= 1 {
		errs = append(errs, FieldError{
			Field:   "health.warning_error_rate",
			Message: "warning error rate must be in (0, 1)",
		})
	}
	if cfg.CriticalErrorRate <= cfg.WarningErrorRate {
		errs = append(errs, FieldError{
			Field:   "health.critical_error_rate",
			Message: "critical error rate must exceed warning error rate",
		})
	}
	if cfg.WarningLatencyRatio <= 1 {
		errs = append(errs, FieldError{
			Field:   "health.warning_latency_ratio",
			Message: "warning latency ratio must exceed 1",
		})
	}
	if cfg.CriticalLatencyRatio <= cfg.WarningLatencyRatio {
		errs = append(errs, FieldError{
			Field:   "health.critical_latency_ratio",
			Message: "critical latency ratio must exceed warning latency ratio",
		})
	}
	if cfg.WarningStreamingSuccess <= 0 || cfg.WarningStreamingSuccess > 1 {
		errs = append(errs, FieldError{
			Field:   "health.warning_streaming_success",
			Message: "warning streaming success must be in (0, 1]",
		})
	}
	if cfg.CriticalStreamingSuccess >= cfg.WarningStreamingSuccess {
		errs = append(errs, FieldError{
			Field:   "health.critical_streaming_success",
			Message: "critical streaming success must be below warning streaming success",
		})
	}
	if cfg.MaxConsecutiveCritical <= 0 {
		errs = append(errs, FieldError{
			Field:   "health.max_consecutive_critical",
			Message: "max consecutive critical must be positive",
		})
	}
	if cfg.MaxConsecutiveWarnings <= 0 {
		errs = append(errs, FieldError{
			Field:   "health.max_consecutive_warnings",
			Message: "max consecutive warnings must be positive",
		})
	}
	if cfg.HistorySize <= 0 {
		errs = append(errs, FieldError{
			Field:   "health.history_size",
			Message: "history size must be positive",
		})
	}

	return errs
}

// validateTelemetry validates observability configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("unknown log level %q (must be debug, info, warn, or error)", cfg.Logging.Level),
		})
	}

	switch cfg.Logging.Format {
	case "json", "text", "console":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("unknown log format %q (must be json, text, or console)", cfg.Logging.Format),
		})
	}

	if cfg.Logging.BufferSize < 0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.buffer_size",
			Message: "buffer size must be non-negative",
		})
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.ListenAddress == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.listen_address",
				Message: "listen address is required when metrics are enabled",
			})
		}
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.path",
				Message: "metrics path must start with /",
			})
		}
	}

	switch cfg.Tracing.Sampler {
	case "always", "never", "ratio":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("unknown sampler %q (must be always, never, or ratio)", cfg.Tracing.Sampler),
		})
	}

	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "endpoint is required when tracing is enabled",
		})
	}

	return errs
}
