package openai

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"mercator-hq/ganymede/pkg/providers"
)

// DefaultBaseURL is the OpenAI API endpoint used when none is configured.
const DefaultBaseURL = "https://api.openai.com/v1"

// DefaultModel is used when neither the request nor the config names a model.
const DefaultModel = "gpt-4o-mini"

// Adapter enriches scenarios through an OpenAI-compatible chat completions
// API. Any backend speaking that protocol (OpenAI, Azure OpenAI, local
// inference servers) works by pointing BaseURL at it.
type Adapter struct {
	*providers.HTTPAdapter
}

// New creates a new OpenAI adapter instance.
func New(config providers.AdapterConfig) (*Adapter, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{
			Provider: "openai",
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
			Message:  "API key is required for OpenAI",
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
	config.Type = providers.TypeOpenAI

	a := &Adapter{
		HTTPAdapter: providers.NewHTTPAdapter(config),
	}

	slog.Info("OpenAI adapter initialized",
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

	chatReq := buildChatRequest(req, a.Config().Model, false)

	url := fmt.Sprintf("%s/chat/completions", a.Config().BaseURL)
	var chatResp chatResponse
	if err := a.DoJSONRequest(ctx, "POST", url, chatReq, &chatResp, a.headers(false)); err != nil {
		return nil, err
	}

	resp, err := toEnrichmentResponse(&chatResp)
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

// StreamScenario sends a streaming enrichment request. Chunks arrive on the
// returned channel until the stream ends; an in-stream failure is delivered
// as a final chunk with Err set.
func (a *Adapter) StreamScenario(ctx context.Context, req *providers.ScenarioRequest) (<-chan *providers.StreamChunk, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	chatReq := buildChatRequest(req, a.Config().Model, true)

	url := fmt.Sprintf("%s/chat/completions", a.Config().BaseURL)
	stream, err := newStreamReader(ctx, a.HTTPAdapter, url, chatReq, a.headers(true))
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

			if chunk.FinishReason != "" {
				return
			}
		}
	}()

	return chunks, nil
}

// headers builds the request headers for the chat completions endpoint.
func (a *Adapter) headers(streaming bool) map[string]string {
	h := map[string]string{
		"Authorization": "Bearer " + a.Config().APIKey,
		"Content-Type":  "application/json",
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
