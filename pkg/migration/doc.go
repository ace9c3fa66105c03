// Package migration routes traffic between the legacy enrichment client
// and the new reqllm client under a feature-flag rollout policy.
//
// The Store holds the process-wide FeatureFlags value: initialized from
// SQLite at startup, mutated only through validated atomic updates, and
// persisted after every mutation. Routing decisions are deterministic in
// the session identifier (FNV-1a hash modulo 100 against the rollout
// percentage) and cached with TTL and LRU bounds. The Router invokes the
// chosen implementation and, when fallback is enabled, retries a failed
// new-path call on the legacy path, recording both outcomes for the
// health monitor.
package migration
