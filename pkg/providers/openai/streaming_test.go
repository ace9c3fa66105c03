package openai

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/ganymede/pkg/providers"
)

func sseServer(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("expected Accept: text/event-stream, got %s", r.Header.Get("Accept"))
		}
		if !strings.Contains(r.Header.Get("Authorization"), "Bearer") {
			t.Error("expected Authorization header with Bearer token")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")

		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("expected http.ResponseWriter to be http.Flusher")
		}

		for _, frame := range frames {
			fmt.Fprintf(w, "%s\n\n", frame)
			flusher.Flush()
		}
	}))
}

func testAdapter(t *testing.T, baseURL string) *Adapter {
	t.Helper()
	adapter, err := New(providers.AdapterConfig{
		Name:       "openai-test",
		BaseURL:    baseURL,
		APIKey:     "test-api-key",
		Timeout:    5 * time.Second,
		MaxRetries: 0,
	})
	if err != nil {
		t.Fatalf("failed to create adapter: %v", err)
	}
	return adapter
}

func TestStreamScenario_ChunkDelivery(t *testing.T) {
	frames := []string{
		`data: {"id":"chatcmpl-123","object":"chat.completion.chunk","created":1234567890,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"role":"assistant","content":""},"finish_reason":null}]}`,
		`data: {"id":"chatcmpl-123","object":"chat.completion.chunk","created":1234567890,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":"Hel"},"finish_reason":null}]}`,
		`data: {"id":"chatcmpl-123","object":"chat.completion.chunk","created":1234567890,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":"lo, "},"finish_reason":null}]}`,
		`data: {"id":"chatcmpl-123","object":"chat.completion.chunk","created":1234567890,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":"world"},"finish_reason":null}]}`,
		`data: {"id":"chatcmpl-123","object":"chat.completion.chunk","created":1234567890,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
		`data: [DONE]`,
	}

	server := sseServer(t, frames)
	defer server.Close()

	adapter := testAdapter(t, server.URL)
	defer adapter.Close()

	chunks, err := adapter.StreamScenario(context.Background(), &providers.ScenarioRequest{
		Scenario: "Say hello",
	})
	if err != nil {
		t.Fatalf("failed to start stream: %v", err)
	}

	var content strings.Builder
	var finishReason string
	for chunk := range chunks {
		if chunk.Err != nil {
			t.Fatalf("unexpected stream error: %v", chunk.Err)
		}
		content.Write(chunk.Data)
		if chunk.FinishReason != "" {
			finishReason = chunk.FinishReason
		}
		if chunk.Sequence != nil {
			t.Error("OpenAI chunks should not carry sequence numbers")
		}
	}

	if content.String() != "Hello, world" {
		t.Errorf("expected %q, got %q", "Hello, world", content.String())
	}
	if finishReason != providers.FinishReasonStop {
		t.Errorf("expected stop finish reason, got %q", finishReason)
	}
}

func TestStreamScenario_SkipsEmptyDeltas(t *testing.T) {
	frames := []string{
		`: keep-alive comment`,
		`data: {"id":"c","model":"m","choices":[{"index":0,"delta":{"role":"assistant"},"finish_reason":null}]}`,
		`data: {"id":"c","model":"m","choices":[{"index":0,"delta":{"content":"x"},"finish_reason":null}]}`,
		`data: {"id":"c","model":"m","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
		`data: [DONE]`,
	}

	server := sseServer(t, frames)
	defer server.Close()

	adapter := testAdapter(t, server.URL)
	defer adapter.Close()

	chunks, err := adapter.StreamScenario(context.Background(), &providers.ScenarioRequest{
		Scenario: "x",
	})
	if err != nil {
		t.Fatalf("failed to start stream: %v", err)
	}

	var received []*providers.StreamChunk
	for chunk := range chunks {
		if chunk.Err != nil {
			t.Fatalf("unexpected stream error: %v", chunk.Err)
		}
		received = append(received, chunk)
	}

	// Role-only delta and comment are skipped: one content chunk, one final.
	if len(received) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(received))
	}
	if string(received[0].Data) != "x" {
		t.Errorf("expected content %q, got %q", "x", received[0].Data)
	}
	if received[1].FinishReason != providers.FinishReasonStop {
		t.Errorf("expected final chunk finish reason, got %q", received[1].FinishReason)
	}
}

func TestStreamScenario_MalformedFrame(t *testing.T) {
	frames := []string{
		`data: {"id":"c","model":"m","choices":[{"index":0,"delta":{"content":"ok"},"finish_reason":null}]}`,
		`data: {not json`,
	}

	server := sseServer(t, frames)
	defer server.Close()

	adapter := testAdapter(t, server.URL)
	defer adapter.Close()

	chunks, err := adapter.StreamScenario(context.Background(), &providers.ScenarioRequest{
		Scenario: "x",
	})
	if err != nil {
		t.Fatalf("failed to start stream: %v", err)
	}

	var streamErr error
	for chunk := range chunks {
		if chunk.Err != nil {
			streamErr = chunk.Err
		}
	}

	if streamErr == nil {
		t.Fatal("expected an in-band stream error")
	}
	if _, ok := streamErr.(*providers.DecodeError); !ok {
		t.Errorf("expected DecodeError, got %T: %v", streamErr, streamErr)
	}
}

func TestStreamScenario_UsageFrame(t *testing.T) {
	frames := []string{
		`data: {"id":"c","model":"m","choices":[{"index":0,"delta":{"content":"hi"},"finish_reason":null}]}`,
		`data: {"id":"c","model":"m","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
		`data: {"id":"c","model":"m","choices":[],"usage":{"prompt_tokens":5,"completion_tokens":1,"total_tokens":6}}`,
		`data: [DONE]`,
	}

	server := sseServer(t, frames)
	defer server.Close()

	adapter := testAdapter(t, server.URL)
	defer adapter.Close()

	chunks, err := adapter.StreamScenario(context.Background(), &providers.ScenarioRequest{
		Scenario: "x",
	})
	if err != nil {
		t.Fatalf("failed to start stream: %v", err)
	}

	var last *providers.StreamChunk
	for chunk := range chunks {
		if chunk.Err != nil {
			t.Fatalf("unexpected stream error: %v", chunk.Err)
		}
		last = chunk
	}

	// Stream terminates at the finish_reason chunk; the usage-only frame is
	// not reached because the reader stops after the final chunk.
	if last == nil || last.FinishReason != providers.FinishReasonStop {
		t.Fatalf("expected final chunk with finish reason, got %+v", last)
	}
}

func TestStreamScenario_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"id\":\"c\",\"model\":\"m\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"a\"},\"finish_reason\":null}]}\n\n")
		flusher.Flush()
		// Hold the connection open; the client should cancel.
		<-r.Context().Done()
	}))
	defer server.Close()

	adapter := testAdapter(t, server.URL)
	defer adapter.Close()

	ctx, cancel := context.WithCancel(context.Background())
	chunks, err := adapter.StreamScenario(ctx, &providers.ScenarioRequest{
		Scenario: "x",
	})
	if err != nil {
		t.Fatalf("failed to start stream: %v", err)
	}

	<-chunks // first chunk
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-chunks:
			if !ok {
				return // channel closed after cancellation
			}
		case <-deadline:
			t.Fatal("stream channel not closed after context cancellation")
		}
	}
}
