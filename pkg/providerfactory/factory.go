// Package providerfactory constructs provider adapters from configuration
// and assembles the adapter registry used by the rest of the pipeline.
//
// It sits above pkg/providers and its concrete adapter subpackages so that
// the providers package itself stays free of import cycles.
package providerfactory

import (
	"context"
	"fmt"
	"log/slog"

	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/providers"
	"mercator-hq/ganymede/pkg/providers/anthropic"
	"mercator-hq/ganymede/pkg/providers/openai"
	"mercator-hq/ganymede/pkg/providers/simulated"
)

// NewAdapter creates a provider adapter based on the configuration.
//
// Supported adapter types:
//   - "openai": OpenAI-compatible chat completions APIs (OpenAI, Azure,
//     local inference servers)
//   - "anthropic": Anthropic Messages API
//   - "simulated": in-process deterministic adapter
//
// If Type is empty it is inferred from the adapter name.
func NewAdapter(cfg providers.AdapterConfig) (providers.Adapter, error) {
	adapterType := cfg.Type
	if adapterType == "" {
		adapterType = inferAdapterType(cfg.Name)
		cfg.Type = adapterType
	}

	slog.Debug("creating provider adapter",
		"name", cfg.Name,
		"type", adapterType,
		"base_url", cfg.BaseURL,
	)

	var adapter providers.Adapter
	var err error

	switch adapterType {
	case providers.TypeOpenAI:
		adapter, err = openai.New(cfg)

	case providers.TypeAnthropic:
		adapter, err = anthropic.New(cfg)

	case providers.TypeSimulated:
		adapter, err = simulated.New(cfg, simulated.Options{})

	default:
		return nil, &providers.ConfigError{
			Provider: cfg.Name,
			Field:    "type",
			Message:  fmt.Sprintf("unsupported adapter type: %q (supported: openai, anthropic, simulated)", adapterType),
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create adapter %q: %w", cfg.Name, err)
	}

	slog.Info("provider adapter created",
		"name", cfg.Name,
		"type", adapterType,
	)

	return adapter, nil
}

// BuildRegistry creates the adapter registry from the provider configuration
// section. Background health checkers are started for HTTP adapters and run
// until ctx is cancelled.
func BuildRegistry(ctx context.Context, cfgs map[string]config.ProviderConfig) (*providers.Registry, error) {
	registry := providers.NewRegistry()

	for name, pc := range cfgs {
		adapter, err := NewAdapter(adapterConfig(name, pc))
		if err != nil {
			registry.Close()
			return nil, err
		}

		type healthCheckStarter interface {
			StartHealthChecker(context.Context)
		}
		if hcs, ok := adapter.(healthCheckStarter); ok {
			hcs.StartHealthChecker(ctx)
		}

		if err := registry.Register(adapter); err != nil {
			adapter.Close()
			registry.Close()
			return nil, err
		}
	}

	return registry, nil
}

// adapterConfig maps a config.ProviderConfig onto the adapter-facing subset.
func adapterConfig(name string, pc config.ProviderConfig) providers.AdapterConfig {
	return providers.AdapterConfig{
		Name:                name,
		Type:                pc.Type,
		BaseURL:             pc.BaseURL,
		APIKey:              pc.APIKey,
		Model:               pc.Model,
		Timeout:             pc.Timeout,
		MaxRetries:          pc.MaxRetries,
		HealthCheckInterval: pc.HealthCheckInterval,
		MaxIdleConns:        pc.MaxIdleConns,
		MaxIdleConnsPerHost: pc.MaxIdleConnsPerHost,
		IdleConnTimeout:     pc.IdleConnTimeout,
	}
}

// inferAdapterType infers the adapter type from a provider name.
func inferAdapterType(name string) string {
	switch name {
	case "openai", "azure-openai":
		return providers.TypeOpenAI
	case "anthropic":
		return providers.TypeAnthropic
	case "simulated", "sim":
		return providers.TypeSimulated
	default:
		return providers.TypeOpenAI
	}
}
