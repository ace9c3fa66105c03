// Package anthropic implements the Anthropic provider adapter.
//
// It speaks the Messages API (POST /v1/messages) with event-typed
// Server-Sent Events streaming: message_start, content_block_delta,
// message_delta, and message_stop events are consumed and normalized into
// providers.StreamChunk values. The response id and model arrive only in
// message_start, so the reader carries them across subsequent events.
//
// Anthropic does not number its chunks; Sequence is always nil and
// downstream ordering is by arrival. The stop reason and final token usage
// arrive in message_delta, immediately before message_stop ends the stream.
package anthropic
