// Package chunk implements per-session chunk processing: validation,
// sliding-window flow control, sequence ordering, and size/time aggregation.
//
// All operations are pure functions over a session-local State value. The
// owning session goroutine passes the current time explicitly, so the
// package performs no clock reads, no locking, and no I/O of its own.
// Shared-state concerns (backpressure redelivery, consumer delivery,
// logging of dropped chunks) belong to the caller.
package chunk
