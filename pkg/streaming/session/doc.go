// Package session owns the lifecycle of one streaming enrichment
// session. Each session runs as a single goroutine consuming a bounded
// command channel; it feeds raw provider chunks through the chunk
// processing state, delivers ordered content and lifecycle events to one
// consumer, and delegates errors to a resilience resolver whose verdict
// it acts on.
//
// The Coordinator indexes active sessions by generated id and guarantees
// exactly-once resource release when a session reaches a terminal state.
package session
