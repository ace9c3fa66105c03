package providerfactory

import (
	"context"
	"testing"

	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/providers"
)

func TestNewAdapter_TypeDispatch(t *testing.T) {
	tests := []struct {
		name     string
		cfg      providers.AdapterConfig
		wantType string
		wantErr  bool
	}{
		{
			name: "openai",
			cfg: providers.AdapterConfig{
				Name:   "openai",
				Type:   providers.TypeOpenAI,
				APIKey: "sk-test",
			},
			wantType: providers.TypeOpenAI,
		},
		{
			name: "anthropic",
			cfg: providers.AdapterConfig{
				Name:   "anthropic",
				Type:   providers.TypeAnthropic,
				APIKey: "key",
			},
			wantType: providers.TypeAnthropic,
		},
		{
			name: "simulated",
			cfg: providers.AdapterConfig{
				Name: "sim",
				Type: providers.TypeSimulated,
			},
			wantType: providers.TypeSimulated,
		},
		{
			name: "type inferred from name",
			cfg: providers.AdapterConfig{
				Name:   "anthropic",
				APIKey: "key",
			},
			wantType: providers.TypeAnthropic,
		},
		{
			name: "unsupported type",
			cfg: providers.AdapterConfig{
				Name: "x",
				Type: "cohere",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter, err := NewAdapter(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer adapter.Close()

			if adapter.Type() != tt.wantType {
				t.Errorf("expected type %q, got %q", tt.wantType, adapter.Type())
			}
		})
	}
}

func TestBuildRegistry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry, err := BuildRegistry(ctx, map[string]config.ProviderConfig{
		"sim":    {Type: "simulated"},
		"openai": {Type: "openai", APIKey: "sk-test", BaseURL: "https://api.openai.com/v1"},
	})
	if err != nil {
		t.Fatalf("BuildRegistry failed: %v", err)
	}
	defer registry.Close()

	names := registry.Names()
	if len(names) != 2 {
		t.Fatalf("expected 2 adapters, got %v", names)
	}

	sim, err := registry.Get("sim")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if sim.Type() != providers.TypeSimulated {
		t.Errorf("expected simulated, got %q", sim.Type())
	}
}

func TestBuildRegistry_InvalidProvider(t *testing.T) {
	ctx := context.Background()

	_, err := BuildRegistry(ctx, map[string]config.ProviderConfig{
		"openai": {Type: "openai"}, // missing API key
	})
	if err == nil {
		t.Fatal("expected error for invalid provider config")
	}
}
