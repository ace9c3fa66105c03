// Package breaker implements per-provider circuit breakers with the
// Closed, Open, and HalfOpen states, plus a lazily-populated registry
// keyed by provider identifier.
package breaker
