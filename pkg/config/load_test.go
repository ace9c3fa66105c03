package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	configPath := writeConfigFile(t, `
streaming:
  session_timeout: "45s"
  max_chunk_size: 524288
  flow_control_enabled: true
  max_chunks_per_second: 50

providers:
  openai:
    type: "openai"
    base_url: "https://api.openai.com/v1"
    api_key: "test-key-123"
    timeout: "30s"
    max_retries: 5
  sim:
    type: "simulated"

resilience:
  max_session_errors: 3
  fallback_strategy: "simulated"

migration:
  db_path: "./test-flags.db"

telemetry:
  logging:
    level: "debug"
    format: "text"
`)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Streaming.SessionTimeout != 45*time.Second {
		t.Errorf("expected session timeout 45s, got %v", cfg.Streaming.SessionTimeout)
	}
	if cfg.Streaming.MaxChunkSize != 524288 {
		t.Errorf("expected max chunk size 524288, got %d", cfg.Streaming.MaxChunkSize)
	}
	if cfg.Streaming.MaxChunksPerSecond != 50 {
		t.Errorf("expected 50 chunks/s, got %d", cfg.Streaming.MaxChunksPerSecond)
	}

	openai, ok := cfg.Providers["openai"]
	if !ok {
		t.Fatal("expected openai provider to be present")
	}
	if openai.Timeout != 30*time.Second {
		t.Errorf("expected provider timeout 30s, got %v", openai.Timeout)
	}
	if openai.MaxRetries != 5 {
		t.Errorf("expected 5 retries, got %d", openai.MaxRetries)
	}

	if cfg.Resilience.MaxSessionErrors != 3 {
		t.Errorf("expected 3 max session errors, got %d", cfg.Resilience.MaxSessionErrors)
	}
	if cfg.Resilience.FallbackStrategy != "simulated" {
		t.Errorf("expected simulated fallback, got %q", cfg.Resilience.FallbackStrategy)
	}

	if cfg.Migration.DBPath != "./test-flags.db" {
		t.Errorf("expected flag db path override, got %q", cfg.Migration.DBPath)
	}

	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("expected debug level, got %q", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfig_DefaultsFillGaps(t *testing.T) {
	// A file that only sets one field should still produce a fully
	// defaulted, valid configuration.
	configPath := writeConfigFile(t, `
streaming:
  session_timeout: "120s"
`)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Streaming.SessionTimeout != 120*time.Second {
		t.Errorf("expected 120s timeout, got %v", cfg.Streaming.SessionTimeout)
	}
	if cfg.Streaming.MaxChunkSize != 1<<20 {
		t.Errorf("expected default 1MB chunk size, got %d", cfg.Streaming.MaxChunkSize)
	}
	if cfg.Resilience.ErrorWindow != 60*time.Second {
		t.Errorf("expected default 60s error window, got %v", cfg.Resilience.ErrorWindow)
	}
	if cfg.Health.Schedule != "@every 30s" {
		t.Errorf("expected default health schedule, got %q", cfg.Health.Schedule)
	}
	if cfg.Migration.DBPath != "ganymede-flags.db" {
		t.Errorf("expected default flag db path, got %q", cfg.Migration.DBPath)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped os.ErrNotExist, got %v", err)
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	configPath := writeConfigFile(t, "streaming: [not a mapping")

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("expected error for malformed YAML")
	}
	if !strings.Contains(err.Error(), "parse") {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestLoadConfig_InvalidConfig(t *testing.T) {
	configPath := writeConfigFile(t, `
providers:
  openai:
    type: "openai"
`)

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("expected validation error")
	}

	var ve ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}

	fields := make(map[string]bool)
	for _, fe := range ve.Errors {
		fields[fe.Field] = true
	}
	if !fields["providers.openai.base_url"] || !fields["providers.openai.api_key"] {
		t.Errorf("expected base_url and api_key errors, got %v", ve.Errors)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	configPath := writeConfigFile(t, `
streaming:
  session_timeout: "45s"

providers:
  openai:
    type: "openai"
    base_url: "https://api.openai.com/v1"
    api_key: "file-key"
`)

	t.Setenv("GANYMEDE_STREAMING_SESSION_TIMEOUT", "10s")
	t.Setenv("GANYMEDE_PROVIDERS_OPENAI_API_KEY", "env-key")
	t.Setenv("GANYMEDE_RESILIENCE_FALLBACK_STRATEGY", "cached")
	t.Setenv("GANYMEDE_TELEMETRY_LOGGING_LEVEL", "warn")

	cfg, err := LoadConfigWithEnvOverrides(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Streaming.SessionTimeout != 10*time.Second {
		t.Errorf("env override should win: expected 10s, got %v", cfg.Streaming.SessionTimeout)
	}
	if cfg.Providers["openai"].APIKey != "env-key" {
		t.Errorf("env override should win: expected env-key, got %q", cfg.Providers["openai"].APIKey)
	}
	if cfg.Resilience.FallbackStrategy != "cached" {
		t.Errorf("expected cached fallback, got %q", cfg.Resilience.FallbackStrategy)
	}
	if cfg.Telemetry.Logging.Level != "warn" {
		t.Errorf("expected warn level, got %q", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfigWithEnvOverrides_InvalidOverride(t *testing.T) {
	configPath := writeConfigFile(t, `
providers:
  sim:
    type: "simulated"
`)

	t.Setenv("GANYMEDE_RESILIENCE_FALLBACK_STRATEGY", "bogus")

	_, err := LoadConfigWithEnvOverrides(configPath)
	if err == nil {
		t.Fatal("expected validation error after env overrides")
	}
	if !strings.Contains(err.Error(), "fallback_strategy") {
		t.Errorf("expected fallback_strategy error, got %v", err)
	}
}
