package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := MinimalConfig()

	err := Validate(cfg)
	if err != nil {
		t.Errorf("expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := &Config{
		// Everything zero: streaming limits, resilience budget, health
		// schedule, telemetry enums are all invalid.
		Providers: map[string]ProviderConfig{},
	}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation to fail")
	}

	validationErr, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}

	if len(validationErr.Errors) < 2 {
		t.Errorf("expected multiple errors, got %d", len(validationErr.Errors))
	}

	// Verify error message includes multiple errors
	errMsg := validationErr.Error()
	if !strings.Contains(errMsg, "validation failed with") {
		t.Errorf("error message should mention multiple errors: %s", errMsg)
	}
}

func TestValidate_Streaming(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*StreamingConfig)
		wantError  bool
		errorField string
	}{
		{
			name:      "valid streaming config",
			mutate:    func(c *StreamingConfig) {},
			wantError: false,
		},
		{
			name: "zero max chunk size",
			mutate: func(c *StreamingConfig) {
				c.MaxChunkSize = 0
			},
			wantError:  true,
			errorField: "streaming.max_chunk_size",
		},
		{
			name: "chunk size exceeds total limit",
			mutate: func(c *StreamingConfig) {
				c.MaxChunkSize = 1024
				c.TotalSizeLimit = 512
			},
			wantError:  true,
			errorField: "streaming.max_chunk_size",
		},
		{
			name: "negative flush interval",
			mutate: func(c *StreamingConfig) {
				c.FlushInterval = -time.Second
			},
			wantError:  true,
			errorField: "streaming.flush_interval",
		},
		{
			name: "zero session timeout",
			mutate: func(c *StreamingConfig) {
				c.SessionTimeout = 0
			},
			wantError:  true,
			errorField: "streaming.session_timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := MinimalConfig()
			tt.mutate(&cfg.Streaming)

			errs := validateStreaming(&cfg.Streaming)
			if tt.wantError {
				if len(errs) == 0 {
					t.Fatal("expected validation error")
				}
				found := false
				for _, fe := range errs {
					if fe.Field == tt.errorField {
						found = true
					}
				}
				if !found {
					t.Errorf("expected error for field %q, got %v", tt.errorField, errs)
				}
			} else if len(errs) != 0 {
				t.Errorf("expected no errors, got %v", errs)
			}
		})
	}
}

func TestValidate_Providers(t *testing.T) {
	tests := []struct {
		name       string
		provider   ProviderConfig
		wantError  bool
		errorField string
	}{
		{
			name: "valid openai provider",
			provider: ProviderConfig{
				Type:    "openai",
				BaseURL: "https://api.openai.com/v1",
				APIKey:  "sk-test",
			},
			wantError: false,
		},
		{
			name: "simulated provider needs no credentials",
			provider: ProviderConfig{
				Type: "simulated",
			},
			wantError: false,
		},
		{
			name: "missing type",
			provider: ProviderConfig{
				BaseURL: "https://api.openai.com/v1",
				APIKey:  "sk-test",
			},
			wantError:  true,
			errorField: "providers.test.type",
		},
		{
			name: "unknown type",
			provider: ProviderConfig{
				Type:    "cohere",
				BaseURL: "https://api.cohere.ai/v1",
				APIKey:  "key",
			},
			wantError:  true,
			errorField: "providers.test.type",
		},
		{
			name: "missing base URL",
			provider: ProviderConfig{
				Type:   "anthropic",
				APIKey: "key",
			},
			wantError:  true,
			errorField: "providers.test.base_url",
		},
		{
			name: "relative base URL",
			provider: ProviderConfig{
				Type:    "anthropic",
				BaseURL: "/v1/messages",
				APIKey:  "key",
			},
			wantError:  true,
			errorField: "providers.test.base_url",
		},
		{
			name: "missing API key",
			provider: ProviderConfig{
				Type:    "openai",
				BaseURL: "https://api.openai.com/v1",
			},
			wantError:  true,
			errorField: "providers.test.api_key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := validateProviders(map[string]ProviderConfig{"test": tt.provider})
			if tt.wantError {
				found := false
				for _, fe := range errs {
					if fe.Field == tt.errorField {
						found = true
					}
				}
				if !found {
					t.Errorf("expected error for field %q, got %v", tt.errorField, errs)
				}
			} else if len(errs) != 0 {
				t.Errorf("expected no errors, got %v", errs)
			}
		})
	}
}

func TestValidate_FallbackStrategy(t *testing.T) {
	cfg := MinimalConfig()
	cfg.Resilience.FallbackStrategy = "panic"

	errs := validateResilience(&cfg.Resilience)
	if len(errs) != 1 {
		t.Fatalf("expected exactly 1 error, got %v", errs)
	}
	if errs[0].Field != "resilience.fallback_strategy" {
		t.Errorf("unexpected field: %s", errs[0].Field)
	}
}

func TestValidate_HealthSchedule(t *testing.T) {
	tests := []struct {
		schedule string
		valid    bool
	}{
		{"@every 30s", true},
		{"@every 1m", true},
		{"*/5 * * * *", true},
		{"", false},
		{"whenever", false},
		{"* * *", false},
	}

	for _, tt := range tests {
		t.Run(tt.schedule, func(t *testing.T) {
			cfg := MinimalConfig()
			cfg.Health.Schedule = tt.schedule

			errs := validateHealth(&cfg.Health)
			gotError := false
			for _, fe := range errs {
				if fe.Field == "health.schedule" {
					gotError = true
				}
			}
			if gotError == tt.valid {
				t.Errorf("schedule %q: valid=%v but gotError=%v (%v)", tt.schedule, tt.valid, gotError, errs)
			}
		})
	}
}

func TestValidate_HealthThresholdOrdering(t *testing.T) {
	cfg := MinimalConfig()
	cfg.Health.WarningErrorRate = 0.10
	cfg.Health.CriticalErrorRate = 0.05

	errs := validateHealth(&cfg.Health)
	found := false
	for _, fe := range errs {
		if fe.Field == "health.critical_error_rate" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected ordering error for critical_error_rate, got %v", errs)
	}
}

func TestValidate_ResourcesThresholdOrdering(t *testing.T) {
	cfg := MinimalConfig()
	cfg.Resources.MemoryWarningMB = 2048
	cfg.Resources.MemoryCriticalMB = 1024

	errs := validateResources(&cfg.Resources)
	found := false
	for _, fe := range errs {
		if fe.Field == "resources.memory_critical_mb" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected ordering error for memory_critical_mb, got %v", errs)
	}
}

func TestValidate_ResourcesCPUThresholds(t *testing.T) {
	cfg := MinimalConfig()
	cfg.Resources.CPUWarningPercent = 95
	cfg.Resources.CPUCriticalPercent = 80

	errs := validateResources(&cfg.Resources)
	found := false
	for _, fe := range errs {
		if fe.Field == "resources.cpu_critical_percent" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected ordering error for cpu_critical_percent, got %v", errs)
	}

	cfg = MinimalConfig()
	cfg.Resources.CPUWarningPercent = 150
	errs = validateResources(&cfg.Resources)
	found = false
	for _, fe := range errs {
		if fe.Field == "resources.cpu_warning_percent" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected range error for cpu_warning_percent, got %v", errs)
	}
}

func TestValidate_MigrationWatchRequiresSnapshot(t *testing.T) {
	cfg := MinimalConfig()
	cfg.Migration.WatchSnapshot = true
	cfg.Migration.SnapshotPath = ""

	errs := validateMigration(&cfg.Migration)
	if len(errs) != 1 || errs[0].Field != "migration.snapshot_path" {
		t.Errorf("expected snapshot_path error, got %v", errs)
	}
}

func TestValidate_TelemetryEnums(t *testing.T) {
	cfg := MinimalConfig()
	cfg.Telemetry.Logging.Level = "verbose"
	cfg.Telemetry.Logging.Format = "xml"

	errs := validateTelemetry(&cfg.Telemetry)
	if len(errs) != 2 {
		t.Errorf("expected 2 errors, got %v", errs)
	}
}

func TestValidate_Tracing(t *testing.T) {
	cfg := MinimalConfig()
	cfg.Telemetry.Tracing.Sampler = "sometimes"
	cfg.Telemetry.Tracing.SampleRatio = 1.5

	errs := validateTelemetry(&cfg.Telemetry)
	if len(errs) != 2 {
		t.Errorf("expected 2 errors, got %v", errs)
	}

	cfg = MinimalConfig()
	cfg.Telemetry.Tracing.Enabled = true
	cfg.Telemetry.Tracing.Endpoint = ""

	errs = validateTelemetry(&cfg.Telemetry)
	if len(errs) != 1 || errs[0].Field != "telemetry.tracing.endpoint" {
		t.Errorf("expected endpoint error, got %v", errs)
	}
}

func TestFieldError_Error(t *testing.T) {
	fe := FieldError{Field: "streaming.max_chunk_size", Message: "must be positive"}
	want := "streaming.max_chunk_size: must be positive"
	if fe.Error() != want {
		t.Errorf("expected %q, got %q", want, fe.Error())
	}
}

func TestValidationError_SingleError(t *testing.T) {
	ve := ValidationError{Errors: []FieldError{
		{Field: "migration.db_path", Message: "flag database path is required"},
	}}
	msg := ve.Error()
	if !strings.Contains(msg, "migration.db_path") {
		t.Errorf("error message should include field path: %s", msg)
	}
	if strings.Contains(msg, "errors:") {
		t.Errorf("single error should not use the multi-error format: %s", msg)
	}
}
