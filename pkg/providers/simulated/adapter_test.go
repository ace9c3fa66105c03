package simulated

import (
	"context"
	"strings"
	"testing"
	"time"

	"mercator-hq/ganymede/pkg/providers"
)

func TestStreamScenario_Deterministic(t *testing.T) {
	adapter, err := New(providers.AdapterConfig{Name: "sim"}, Options{
		ChunkSize: 4,
		Numbered:  true,
	})
	if err != nil {
		t.Fatalf("failed to create adapter: %v", err)
	}

	chunks, err := adapter.StreamScenario(context.Background(), &providers.ScenarioRequest{
		Scenario: "hello",
	})
	if err != nil {
		t.Fatalf("failed to start stream: %v", err)
	}

	var content strings.Builder
	var lastSeq int64 = -1
	var final *providers.StreamChunk
	for chunk := range chunks {
		if chunk.Sequence == nil {
			t.Fatal("expected numbered chunks")
		}
		if *chunk.Sequence != lastSeq+1 {
			t.Errorf("expected sequence %d, got %d", lastSeq+1, *chunk.Sequence)
		}
		lastSeq = *chunk.Sequence
		content.Write(chunk.Data)
		final = chunk
	}

	want := "Simulated enrichment: hello"
	if content.String() != want {
		t.Errorf("expected %q, got %q", want, content.String())
	}
	if final == nil || final.FinishReason != providers.FinishReasonStop {
		t.Fatalf("expected final stop chunk, got %+v", final)
	}
}

func TestStreamScenario_CustomResponder(t *testing.T) {
	adapter, err := New(providers.AdapterConfig{Name: "sim"}, Options{
		ChunkSize: 3,
		Respond:   func(string) string { return "Hello, world" },
	})
	if err != nil {
		t.Fatalf("failed to create adapter: %v", err)
	}

	chunks, err := adapter.StreamScenario(context.Background(), &providers.ScenarioRequest{
		Scenario: "anything",
	})
	if err != nil {
		t.Fatalf("failed to start stream: %v", err)
	}

	var parts []string
	for chunk := range chunks {
		if len(chunk.Data) > 0 {
			parts = append(parts, string(chunk.Data))
		}
	}

	if got := strings.Join(parts, ""); got != "Hello, world" {
		t.Errorf("expected %q, got %q", "Hello, world", got)
	}
	if len(parts) != 4 {
		t.Errorf("expected 4 content chunks of size 3, got %d", len(parts))
	}
}

func TestStreamScenario_CancelStopsPacing(t *testing.T) {
	adapter, err := New(providers.AdapterConfig{Name: "sim"}, Options{
		ChunkSize: 1,
		Delay:     time.Hour,
	})
	if err != nil {
		t.Fatalf("failed to create adapter: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	chunks, err := adapter.StreamScenario(ctx, &providers.ScenarioRequest{
		Scenario: "x",
	})
	if err != nil {
		t.Fatalf("failed to start stream: %v", err)
	}

	cancel()

	select {
	case _, ok := <-chunks:
		if ok {
			// A chunk may have been buffered before cancellation; channel
			// must still close promptly.
			select {
			case _, ok := <-chunks:
				if ok {
					t.Fatal("expected channel to close after cancellation")
				}
			case <-time.After(time.Second):
				t.Fatal("channel not closed after cancellation")
			}
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancellation")
	}
}

func TestComplete(t *testing.T) {
	adapter, err := New(providers.AdapterConfig{Name: "sim"}, Options{})
	if err != nil {
		t.Fatalf("failed to create adapter: %v", err)
	}

	resp, err := adapter.Complete(context.Background(), &providers.ScenarioRequest{
		Scenario: "a storm front approaches",
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if !strings.Contains(resp.Content, "a storm front approaches") {
		t.Errorf("expected scenario echoed in content, got %q", resp.Content)
	}
	if resp.FinishReason != providers.FinishReasonStop {
		t.Errorf("expected stop, got %q", resp.FinishReason)
	}

	if adapter.Health().TotalRequests != 1 {
		t.Errorf("expected request accounting, got %d", adapter.Health().TotalRequests)
	}
}

func TestComplete_EmptyScenario(t *testing.T) {
	adapter, _ := New(providers.AdapterConfig{Name: "sim"}, Options{})

	_, err := adapter.Complete(context.Background(), &providers.ScenarioRequest{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if _, ok := err.(*providers.ValidationError); !ok {
		t.Errorf("expected ValidationError, got %T", err)
	}
}
