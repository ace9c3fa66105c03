package openai

import (
	"fmt"
	"time"

	"mercator-hq/ganymede/pkg/providers"
)

// OpenAI chat completions wire types.

// chatRequest represents an OpenAI chat completion request.
type chatRequest struct {
	Model         string         `json:"model"`
	Messages      []chatMessage  `json:"messages"`
	Temperature   float64        `json:"temperature,omitempty"`
	MaxTokens     int            `json:"max_tokens,omitempty"`
	Stream        bool           `json:"stream,omitempty"`
	StreamOptions *streamOptions `json:"stream_options,omitempty"`
	User          string         `json:"user,omitempty"`
}

// streamOptions requests usage reporting in the final stream chunk.
type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// chatMessage represents a message in OpenAI format.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse represents an OpenAI chat completion response.
type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

// chatChoice represents a completion choice.
type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// chatUsage represents token usage in OpenAI format.
type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// streamResponse represents a chunk in OpenAI's SSE stream.
type streamResponse struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []streamChoice `json:"choices"`
	Usage   *chatUsage     `json:"usage,omitempty"`
}

// streamChoice represents a choice in a stream chunk.
type streamChoice struct {
	Index        int         `json:"index"`
	Delta        streamDelta `json:"delta"`
	FinishReason string      `json:"finish_reason,omitempty"`
}

// streamDelta represents the incremental content in a stream chunk.
type streamDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// buildChatRequest builds the OpenAI wire request from a scenario request.
// The scenario text becomes the user message; an optional system prompt
// precedes it.
func buildChatRequest(req *providers.ScenarioRequest, defaultModel string, stream bool) *chatRequest {
	model := req.Model
	if model == "" {
		model = defaultModel
	}

	var messages []chatMessage
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{
			Role:    providers.RoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, chatMessage{
		Role:    providers.RoleUser,
		Content: req.Scenario,
	})

	chatReq := &chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	}
	if stream {
		chatReq.StreamOptions = &streamOptions{IncludeUsage: true}
	}
	return chatReq
}

// toEnrichmentResponse normalizes an OpenAI response.
func toEnrichmentResponse(resp *chatResponse) (*providers.EnrichmentResponse, error) {
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("response contains no choices")
	}

	choice := resp.Choices[0]

	created := resp.Created
	if created == 0 {
		created = time.Now().Unix()
	}

	return &providers.EnrichmentResponse{
		ID:           resp.ID,
		Model:        resp.Model,
		Content:      choice.Message.Content,
		FinishReason: normalizeFinishReason(choice.FinishReason),
		Usage: providers.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Created: created,
	}, nil
}

// toStreamChunk normalizes an SSE chunk. Returns nil for chunks that carry
// neither content nor a finish reason (e.g., the initial role-only delta).
func toStreamChunk(resp *streamResponse) *providers.StreamChunk {
	chunk := &providers.StreamChunk{
		ID:      resp.ID,
		Model:   resp.Model,
		Created: resp.Created,
	}

	if resp.Usage != nil {
		chunk.Usage = &providers.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}

	if len(resp.Choices) == 0 {
		// Usage-only final frame
		if chunk.Usage != nil {
			return chunk
		}
		return nil
	}

	choice := resp.Choices[0]
	chunk.Data = []byte(choice.Delta.Content)
	chunk.FinishReason = normalizeFinishReason(choice.FinishReason)

	if len(chunk.Data) == 0 && chunk.FinishReason == "" && chunk.Usage == nil {
		return nil
	}
	return chunk
}

// normalizeFinishReason maps OpenAI finish reasons to the provider-agnostic set.
func normalizeFinishReason(reason string) string {
	switch reason {
	case "":
		return ""
	case "stop":
		return providers.FinishReasonStop
	case "length":
		return providers.FinishReasonLength
	default:
		return providers.FinishReasonStop
	}
}
