package simulated

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/ganymede/pkg/providers"
)

// Options controls the shape of the simulated stream.
type Options struct {
	// ChunkSize is the number of bytes per emitted chunk.
	// Default: 16
	ChunkSize int

	// Delay is the pause between chunks, simulating network pacing.
	// Default: 0 (as fast as the consumer drains)
	Delay time.Duration

	// Numbered assigns sequence numbers to chunks. The real providers do
	// not number their chunks, so tests exercising the reorder path enable
	// this and shuffle delivery themselves.
	// Default: false
	Numbered bool

	// Respond overrides the default enrichment function. It receives the
	// scenario text and returns the full response content.
	Respond func(scenario string) string
}

// Adapter is an in-process provider that produces deterministic chunk
// streams without any network dependency. It backs the "simulated" fallback
// strategy and offline deployments.
type Adapter struct {
	name string
	opts Options

	mu     sync.RWMutex
	health providers.AdapterHealth

	requestCount int64
}

// New creates a simulated adapter.
func New(config providers.AdapterConfig, opts Options) (*Adapter, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{
			Provider: "simulated",
			Field:    "name",
			Message:  "provider name is required",
		}
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 16
	}
	if opts.Respond == nil {
		opts.Respond = defaultRespond
	}

	slog.Info("simulated adapter initialized",
		"provider", config.Name,
		"chunk_size", opts.ChunkSize,
		"delay", opts.Delay,
	)

	return &Adapter{
		name: config.Name,
		opts: opts,
		health: providers.AdapterHealth{
			IsHealthy:             true,
			LastCheck:             time.Now(),
			LastSuccessfulRequest: time.Now(),
		},
	}, nil
}

// defaultRespond produces a deterministic enrichment of the scenario text.
func defaultRespond(scenario string) string {
	return fmt.Sprintf("Simulated enrichment: %s", scenario)
}

// StreamScenario produces the enrichment as a paced chunk stream.
func (a *Adapter) StreamScenario(ctx context.Context, req *providers.ScenarioRequest) (<-chan *providers.StreamChunk, error) {
	if req == nil || req.Scenario == "" {
		return nil, &providers.ValidationError{
			Field:   "scenario",
			Message: "scenario text is required",
		}
	}

	content := []byte(a.opts.Respond(req.Scenario))
	a.recordRequest()

	chunks := make(chan *providers.StreamChunk, 100)

	go func() {
		defer close(chunks)

		id := fmt.Sprintf("sim-%d", time.Now().UnixNano())
		var seq int64

		for offset := 0; offset < len(content); offset += a.opts.ChunkSize {
			if a.opts.Delay > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(a.opts.Delay):
				}
			}

			end := offset + a.opts.ChunkSize
			if end > len(content) {
				end = len(content)
			}

			chunk := &providers.StreamChunk{
				ID:      id,
				Model:   "simulated",
				Data:    content[offset:end],
				Created: time.Now().Unix(),
			}
			if a.opts.Numbered {
				n := seq
				chunk.Sequence = &n
				seq++
			}

			select {
			case chunks <- chunk:
			case <-ctx.Done():
				return
			}
		}

		final := &providers.StreamChunk{
			ID:           id,
			Model:        "simulated",
			FinishReason: providers.FinishReasonStop,
			Usage: &providers.TokenUsage{
				PromptTokens:     len(req.Scenario) / 4,
				CompletionTokens: len(content) / 4,
				TotalTokens:      (len(req.Scenario) + len(content)) / 4,
			},
			Created: time.Now().Unix(),
		}
		if a.opts.Numbered {
			n := seq
			final.Sequence = &n
		}

		select {
		case chunks <- final:
		case <-ctx.Done():
		}
	}()

	return chunks, nil
}

// Complete returns the full enrichment in one response.
func (a *Adapter) Complete(ctx context.Context, req *providers.ScenarioRequest) (*providers.EnrichmentResponse, error) {
	if req == nil || req.Scenario == "" {
		return nil, &providers.ValidationError{
			Field:   "scenario",
			Message: "scenario text is required",
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content := a.opts.Respond(req.Scenario)
	a.recordRequest()

	return &providers.EnrichmentResponse{
		ID:           fmt.Sprintf("sim-%d", time.Now().UnixNano()),
		Model:        "simulated",
		Content:      content,
		FinishReason: providers.FinishReasonStop,
		Usage: providers.TokenUsage{
			PromptTokens:     len(req.Scenario) / 4,
			CompletionTokens: len(content) / 4,
			TotalTokens:      (len(req.Scenario) + len(content)) / 4,
		},
		Created: time.Now().Unix(),
	}, nil
}

// HealthCheck always succeeds; the adapter has no external dependency.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	return ctx.Err()
}

// Name returns the adapter's configured name.
func (a *Adapter) Name() string {
	return a.name
}

// Type returns "simulated".
func (a *Adapter) Type() string {
	return providers.TypeSimulated
}

// Healthy always reports true.
func (a *Adapter) Healthy() bool {
	return true
}

// Health returns the adapter's request counters.
func (a *Adapter) Health() providers.AdapterHealth {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.health
}

// Close is a no-op; there are no resources to release.
func (a *Adapter) Close() error {
	return nil
}

func (a *Adapter) recordRequest() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requestCount++
	a.health.TotalRequests++
	a.health.LastSuccessfulRequest = time.Now()
}
