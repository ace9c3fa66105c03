// Package resilience decides what happens after a streaming error: retry
// with backoff, fall back to an alternate response, or terminate the
// session. Decisions combine a fixed error taxonomy, a per-session error
// budget over a sliding window, and per-provider circuit breakers.
package resilience
