// Package openai implements the OpenAI-compatible provider adapter.
//
// It speaks the chat completions protocol (POST /chat/completions) with
// Server-Sent Events streaming, so it also works against Azure OpenAI and
// local inference servers that expose the same API.
//
// The adapter maps a ScenarioRequest to a two-message conversation (optional
// system prompt + the scenario text as the user message) and normalizes SSE
// delta frames into providers.StreamChunk values. OpenAI does not number its
// chunks, so Sequence is always nil and downstream ordering is by arrival.
//
// Usage reporting is requested via stream_options.include_usage; when the
// backend supports it, the final chunk carries token usage.
package openai
