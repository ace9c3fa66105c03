package chunk

import (
	"fmt"
	"time"
)

// SizeError indicates a single chunk exceeded the per-chunk size limit.
// The chunk is rejected and never retried.
type SizeError struct {
	Size  int
	Limit int
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("chunk size %d exceeds limit %d", e.Size, e.Limit)
}

// TotalSizeError indicates accepting a chunk would push the session's
// cumulative content size past its limit. The running total is unchanged.
type TotalSizeError struct {
	Current  int64
	Incoming int
	Limit    int64
}

func (e *TotalSizeError) Error() string {
	return fmt.Sprintf("total size %d + chunk %d exceeds limit %d", e.Current, e.Incoming, e.Limit)
}

// EncodingError indicates a chunk contained invalid UTF-8.
type EncodingError struct {
	Offset int
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("invalid UTF-8 sequence at byte offset %d", e.Offset)
}

// RateLimitError indicates the flow-control window is saturated and no
// positive delay could be computed. The caller must back off before
// redelivering the chunk.
type RateLimitError struct {
	Count  int
	Window time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded: %d chunks within %s", e.Count, e.Window)
}
