package anthropic

import (
	"fmt"
	"time"

	"mercator-hq/ganymede/pkg/providers"
)

// Anthropic Messages API wire types.

// messagesRequest represents a Messages API request.
type messagesRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	System      string        `json:"system,omitempty"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

// wireMessage represents a message in Anthropic format.
type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// contentBlock represents a content block in a response.
type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// messagesResponse represents a Messages API response.
type messagesResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Content    []contentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Usage      wireUsage      `json:"usage"`
}

// wireUsage represents token usage in Anthropic format.
type wireUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// streamEvent represents an event in Anthropic's SSE stream.
//
// Anthropic reuses the "delta" key for both content_block_delta and
// message_delta payloads, so a single struct holds the union of their
// fields and the event type disambiguates.
type streamEvent struct {
	Type string `json:"type"`

	// For message_start events
	Message *messagesResponse `json:"message,omitempty"`

	// For content_block_start / content_block_delta events
	Index        int           `json:"index,omitempty"`
	ContentBlock *contentBlock `json:"content_block,omitempty"`

	// Union of content_block_delta and message_delta payloads
	Delta *eventDelta `json:"delta,omitempty"`

	// For message_delta events
	Usage *wireUsage `json:"usage,omitempty"`
}

// eventDelta is the union of content and message delta fields.
type eventDelta struct {
	Type       string `json:"type,omitempty"`
	Text       string `json:"text,omitempty"`
	StopReason string `json:"stop_reason,omitempty"`
}

// buildMessagesRequest builds the Anthropic wire request from a scenario
// request. The scenario text becomes the single user message; the system
// prompt travels in the top-level system field as the API requires.
func buildMessagesRequest(req *providers.ScenarioRequest, defaultModel string, stream bool) *messagesRequest {
	model := req.Model
	if model == "" {
		model = defaultModel
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	return &messagesRequest{
		Model: model,
		Messages: []wireMessage{
			{Role: providers.RoleUser, Content: req.Scenario},
		},
		System:      req.SystemPrompt,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		Stream:      stream,
	}
}

// toEnrichmentResponse normalizes an Anthropic response.
func toEnrichmentResponse(resp *messagesResponse) (*providers.EnrichmentResponse, error) {
	if len(resp.Content) == 0 {
		return nil, fmt.Errorf("response contains no content blocks")
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	return &providers.EnrichmentResponse{
		ID:           resp.ID,
		Model:        resp.Model,
		Content:      content,
		FinishReason: normalizeStopReason(resp.StopReason),
		Usage: providers.TokenUsage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
		Created: time.Now().Unix(),
	}, nil
}

// streamState tracks identity across stream events; Anthropic sends the
// response id and model only in message_start.
type streamState struct {
	id    string
	model string
}

// toStreamChunk transforms a stream event. Returns nil for events that do
// not produce a consumer-visible chunk (message_start, pings, block
// boundaries).
func toStreamChunk(event *streamEvent, state *streamState) (*providers.StreamChunk, error) {
	switch event.Type {
	case "message_start":
		if event.Message != nil {
			state.id = event.Message.ID
			state.model = event.Message.Model
		}
		return nil, nil

	case "content_block_start", "content_block_stop", "ping":
		return nil, nil

	case "content_block_delta":
		if event.Delta != nil && event.Delta.Text != "" {
			return &providers.StreamChunk{
				ID:      state.id,
				Model:   state.model,
				Data:    []byte(event.Delta.Text),
				Created: time.Now().Unix(),
			}, nil
		}
		return nil, nil

	case "message_delta":
		chunk := &providers.StreamChunk{
			ID:      state.id,
			Model:   state.model,
			Created: time.Now().Unix(),
		}
		if event.Delta != nil {
			chunk.FinishReason = normalizeStopReason(event.Delta.StopReason)
		}
		if event.Usage != nil {
			chunk.Usage = &providers.TokenUsage{
				PromptTokens:     event.Usage.InputTokens,
				CompletionTokens: event.Usage.OutputTokens,
				TotalTokens:      event.Usage.InputTokens + event.Usage.OutputTokens,
			}
		}
		return chunk, nil

	case "message_stop":
		return nil, nil

	case "error":
		return nil, fmt.Errorf("provider sent error event")

	default:
		// Unknown event types are skipped so new API events don't break
		// existing deployments.
		return nil, nil
	}
}

// normalizeStopReason maps Anthropic stop reasons to the provider-agnostic set.
func normalizeStopReason(reason string) string {
	switch reason {
	case "":
		return ""
	case "end_turn", "stop_sequence":
		return providers.FinishReasonStop
	case "max_tokens":
		return providers.FinishReasonLength
	default:
		return providers.FinishReasonStop
	}
}
