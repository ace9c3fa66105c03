package anthropic

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"mercator-hq/ganymede/pkg/providers"
)

// streamReader reads Server-Sent Events (SSE) from Anthropic's streaming API.
// Unlike the OpenAI stream, events are typed via the SSE event field and the
// terminal frame is a message_stop event rather than a [DONE] sentinel.
type streamReader struct {
	adapter *providers.HTTPAdapter
	resp    io.ReadCloser
	scanner *bufio.Scanner
	state   *streamState
	closed  bool
}

// newStreamReader issues the streaming request and wraps the response body.
func newStreamReader(ctx context.Context, adapter *providers.HTTPAdapter, url string, req *messagesRequest, headers map[string]string) (*streamReader, error) {
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
		state:   &streamState{},
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

		event, err := s.readEvent()
		if err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, err
		}
		if event == nil {
			continue
		}

		if event.Type == "message_stop" {
			return nil, io.EOF
		}

		chunk, err := toStreamChunk(event, s.state)
		if err != nil {
			return nil, &providers.StreamError{
				Provider: s.adapter.Name(),
				Message:  "stream event error",
				Cause:    err,
			}
		}
		if chunk == nil {
			continue
		}
		return chunk, nil
	}
}

// readEvent reads a complete SSE event (event type line plus data lines,
// terminated by a blank line).
func (s *streamReader) readEvent() (*streamEvent, error) {
	var eventType string
	var dataLines []string

	for s.scanner.Scan() {
		line := s.scanner.Text()

		// Empty line marks end of event
		if line == "" {
			if eventType != "" || len(dataLines) > 0 {
				break
			}
			continue
		}

		if strings.HasPrefix(line, "event: ") {
			eventType = strings.TrimPrefix(line, "event: ")
		} else if strings.HasPrefix(line, "data: ") {
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
		}
		// Ignore other SSE fields (id, retry) and comments
	}

	if err := s.scanner.Err(); err != nil {
		return nil, &providers.StreamError{
			Provider: s.adapter.Name(),
			Message:  "failed to read stream",
			Cause:    err,
		}
	}

	if eventType == "" && len(dataLines) == 0 {
		return nil, io.EOF
	}

	var event streamEvent
	if len(dataLines) > 0 {
		data := strings.Join(dataLines, "\n")
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			return nil, &providers.DecodeError{
				Provider:    s.adapter.Name(),
				RawResponse: data,
				Cause:       fmt.Errorf("failed to parse stream event: %w", err),
			}
		}
	}

	if eventType != "" && event.Type == "" {
		event.Type = eventType
	}

	return &event, nil
}

// Close closes the stream and releases resources.
func (s *streamReader) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.resp.Close()
}
