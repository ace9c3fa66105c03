// Ganymede is a streaming resilience and migration layer for LLM
// providers.
//
// It manages streaming sessions end to end: chunk ordering and flow
// control, per-provider circuit breakers, retry/fallback/terminate
// error handling, and a feature-flagged rollout that routes traffic
// between a legacy client and the new reqllm path with automatic
// health-based rollback.
//
// Usage:
//
//	# Start with default configuration
//	ganymede run
//
//	# Start with a custom configuration file
//	ganymede run --config /etc/ganymede/config.yaml
//
//	# Validate configuration without starting
//	ganymede validate
//
//	# Show version information
//	ganymede version
package main

func main() {
	Execute()
}
