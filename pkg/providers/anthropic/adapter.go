package anthropic

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"mercator-hq/ganymede/pkg/providers"
)

const (
	// DefaultBaseURL is the Anthropic API endpoint used when none is configured.
	DefaultBaseURL = "https://api.anthropic.com"

	// DefaultModel is used when neither the request nor the config names a model.
	DefaultModel = "claude-3-5-haiku-20241022"

	// APIVersion is the anthropic-version header value.
	APIVersion = "2023-06-01"

	// defaultMaxTokens is applied when a request omits max_tokens, which the
	// Messages API requires.
	defaultMaxTokens = 4096
)

// Adapter enriches scenarios through Anthropic's Messages API.
type Adapter struct {
	*providers.HTTPAdapter
}

// New creates a new Anthropic adapter instance.
func New(config providers.AdapterConfig) (*Adapter, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{
			Provider: "anthropic",
			Field:    "name",
			Message:  "provider name is required",
		}
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.APIKey == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "api_key",
			Message:  "API key is required for Anthropic",
		}
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 100
	}
	if config.MaxIdleConnsPerHost == 0 {
		config.MaxIdleConnsPerHost = 10
	}
	config.Type = providers.TypeAnthropic

	a := &Adapter{
		HTTPAdapter: providers.NewHTTPAdapter(config),
	}

	slog.Info("Anthropic adapter initialized",
		"provider", config.Name,
		"base_url", config.BaseURL,
		"model", config.Model,
	)

	return a, nil
}

// Complete sends a non-streaming enrichment request.
func (a *Adapter) Complete(ctx context.Context, req *providers.ScenarioRequest) (*providers.EnrichmentResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	msgReq := buildMessagesRequest(req, a.Config().Model, false)

	url := fmt.Sprintf("%s/v1/messages", a.Config().BaseURL)
	var msgResp messagesResponse
	if err := a.DoJSONRequest(ctx, "POST", url, msgReq, &msgResp, a.headers(false)); err != nil {
		return nil, err
	}

	resp, err := toEnrichmentResponse(&msgResp)
	if err != nil {
		return nil, &providers.DecodeError{
			Provider: a.Name(),
			Cause:    err,
		}
	}

	slog.Debug("enrichment request succeeded",
		"provider", a.Name(),
		"model", resp.Model,
		"tokens", resp.Usage.TotalTokens,
	)

	return resp, nil
}

// StreamScenario sends a streaming enrichment request.
func (a *Adapter) StreamScenario(ctx context.Context, req *providers.ScenarioRequest) (<-chan *providers.StreamChunk, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	msgReq := buildMessagesRequest(req, a.Config().Model, true)

	url := fmt.Sprintf("%s/v1/messages", a.Config().BaseURL)
	stream, err := newStreamReader(ctx, a.HTTPAdapter, url, msgReq, a.headers(true))
	if err != nil {
		return nil, err
	}

	chunks := make(chan *providers.StreamChunk, 100)

	go func() {
		defer close(chunks)
		defer stream.Close()

		for {
			chunk, err := stream.Read(ctx)
			if err != nil {
				if err != io.EOF {
					chunks <- &providers.StreamChunk{Err: err}
				}
				return
			}

			select {
			case chunks <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()

	return chunks, nil
}

// HealthCheck probes the Messages API with the provider's auth headers.
// Anthropic uses x-api-key rather than bearer auth, so the generic probe
// in HTTPAdapter would always fail with 401.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	url := fmt.Sprintf("%s/v1/models", a.Config().BaseURL)
	resp, err := a.DoRequest(ctx, "GET", url, nil, a.headers(false))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

// headers builds the request headers for the Messages API.
func (a *Adapter) headers(streaming bool) map[string]string {
	h := map[string]string{
		"x-api-key":         a.Config().APIKey,
		"anthropic-version": APIVersion,
		"Content-Type":      "application/json",
	}
	if streaming {
		h["Accept"] = "text/event-stream"
	}
	return h
}

// validateRequest validates the enrichment request before sending.
func validateRequest(req *providers.ScenarioRequest) error {
	if req == nil {
		return &providers.ValidationError{
			Field:   "request",
			Message: "request cannot be nil",
		}
	}
	if req.Scenario == "" {
		return &providers.ValidationError{
			Field:   "scenario",
			Message: "scenario text is required",
		}
	}
	return nil
}
