package openai

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"mercator-hq/ganymede/pkg/providers"
)

// streamReader reads Server-Sent Events (SSE) from an OpenAI-compatible
// streaming endpoint.
type streamReader struct {
	adapter *providers.HTTPAdapter
	resp    io.ReadCloser
	scanner *bufio.Scanner
	closed  bool
}

// newStreamReader issues the streaming request and wraps the response body.
func newStreamReader(ctx context.Context, adapter *providers.HTTPAdapter, url string, req *chatRequest, headers map[string]string) (*streamReader, error) {
	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := adapter.DoRequest(ctx, "POST", url, bodyBytes, headers)
	if err != nil {
		return nil, err
	}

	return &streamReader{
		adapter: adapter,
		resp:    resp.Body,
		scanner: bufio.NewScanner(resp.Body),
	}, nil
}

// Read reads the next chunk from the stream.
// Returns nil, io.EOF when the stream ends normally.
func (s *streamReader) Read(ctx context.Context) (*providers.StreamChunk, error) {
	if s.closed {
		return nil, io.EOF
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, &providers.StreamError{
					Provider: s.adapter.Name(),
					Message:  "failed to read stream",
					Cause:    err,
				}
			}
			return nil, io.EOF
		}

		line := s.scanner.Text()

		if line == "" {
			continue
		}

		// Skip non-data lines (comments, event types, etc.)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")

		if data == "[DONE]" {
			return nil, io.EOF
		}

		var frame streamResponse
		if err := json.Unmarshal([]byte(data), &frame); err != nil {
			return nil, &providers.DecodeError{
				Provider:    s.adapter.Name(),
				RawResponse: data,
				Cause:       fmt.Errorf("failed to parse stream chunk: %w", err),
			}
		}

		chunk := toStreamChunk(&frame)
		if chunk == nil {
			continue
		}
		return chunk, nil
	}
}

// Close closes the stream and releases resources.
func (s *streamReader) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.resp.Close()
}
