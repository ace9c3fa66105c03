// Package config provides configuration management for Mercator Ganymede.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. It provides a type-safe
// configuration system with comprehensive validation and sensible defaults.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention GANYMEDE_SECTION_FIELD.
// For example:
//
//   - GANYMEDE_STREAMING_SESSION_TIMEOUT overrides streaming.session_timeout
//   - GANYMEDE_PROVIDERS_OPENAI_API_KEY overrides providers.openai.api_key
//   - GANYMEDE_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Environment variables always take precedence over file-based configuration.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Validation
//
// All configuration is validated automatically during loading. Validation
// collects every violation before reporting, so a single load attempt surfaces
// all problems at once:
//
//	configuration validation failed with 2 errors:
//	  - providers.openai.base_url: field is required
//	  - streaming.max_chunk_size: must be greater than 0
//
// # Example Configuration
//
// Here is a minimal configuration file:
//
//	streaming:
//	  session_timeout: 90s
//	  flow_control_enabled: true
//
//	providers:
//	  openai:
//	    type: "openai"
//	    base_url: "https://api.openai.com/v1"
//	    api_key: "${OPENAI_API_KEY}"
//
//	migration:
//	  db_path: "./ganymede-flags.db"
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
//
// # Thread Safety
//
// Config values are read-only after loading. Components that need runtime
// mutability (feature flags, health state) maintain their own synchronized
// state and treat the Config as an immutable seed.
package config
