package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. The configuration is not modified by environment variables; use
// LoadConfigWithEnvOverrides for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention GANYMEDE_SECTION_FIELD (e.g., GANYMEDE_STREAMING_SESSION_TIMEOUT).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format GANYMEDE_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Streaming overrides
	if val := os.Getenv("GANYMEDE_STREAMING_SESSION_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Streaming.SessionTimeout = d
		}
	}
	if val := os.Getenv("GANYMEDE_STREAMING_MAX_CHUNK_SIZE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Streaming.MaxChunkSize = i
		}
	}
	if val := os.Getenv("GANYMEDE_STREAMING_MAX_CHUNKS_PER_SECOND"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Streaming.MaxChunksPerSecond = i
		}
	}

	// Provider overrides for the common provider identifiers
	applyProviderEnvOverrides(cfg, "openai")
	applyProviderEnvOverrides(cfg, "anthropic")

	// Resilience overrides
	if val := os.Getenv("GANYMEDE_RESILIENCE_MAX_SESSION_ERRORS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Resilience.MaxSessionErrors = i
		}
	}
	if val := os.Getenv("GANYMEDE_RESILIENCE_FALLBACK_STRATEGY"); val != "" {
		cfg.Resilience.FallbackStrategy = val
	}

	// Migration overrides
	if val := os.Getenv("GANYMEDE_MIGRATION_DB_PATH"); val != "" {
		cfg.Migration.DBPath = val
	}
	if val := os.Getenv("GANYMEDE_MIGRATION_SNAPSHOT_PATH"); val != "" {
		cfg.Migration.SnapshotPath = val
	}
	if val := os.Getenv("GANYMEDE_MIGRATION_WATCH_SNAPSHOT"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Migration.WatchSnapshot = b
		}
	}

	// Health overrides
	if val := os.Getenv("GANYMEDE_HEALTH_SCHEDULE"); val != "" {
		cfg.Health.Schedule = val
	}

	// Telemetry overrides
	if val := os.Getenv("GANYMEDE_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("GANYMEDE_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("GANYMEDE_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("GANYMEDE_TELEMETRY_METRICS_LISTEN_ADDRESS"); val != "" {
		cfg.Telemetry.Metrics.ListenAddress = val
	}
}

// applyProviderEnvOverrides applies environment variable overrides for a
// specific provider. Provider environment variables follow the format
// GANYMEDE_PROVIDERS_<NAME>_<FIELD> where NAME is the uppercase provider name.
func applyProviderEnvOverrides(cfg *Config, providerName string) {
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}

	provider, exists := cfg.Providers[providerName]
	prefix := fmt.Sprintf("GANYMEDE_PROVIDERS_%s_", strings.ToUpper(providerName))

	modified := false

	if val := os.Getenv(prefix + "BASE_URL"); val != "" {
		provider.BaseURL = val
		modified = true
	}
	if val := os.Getenv(prefix + "API_KEY"); val != "" {
		provider.APIKey = val
		modified = true
	}
	if val := os.Getenv(prefix + "MODEL"); val != "" {
		provider.Model = val
		modified = true
	}
	if val := os.Getenv(prefix + "TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			provider.Timeout = d
			modified = true
		}
	}
	if val := os.Getenv(prefix + "MAX_RETRIES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			provider.MaxRetries = i
			modified = true
		}
	}

	if modified || exists {
		applyProviderDefaults(&provider)
		cfg.Providers[providerName] = provider
	}
}
