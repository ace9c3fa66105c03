// Package metrics exposes Prometheus instrumentation for sessions,
// providers, migration routing, and health classification.
//
// Collector is the single entry point: construct it once with the
// process registry, then record through its methods. All recording is
// a no-op when metrics are disabled in configuration. Collector also
// implements migration.Recorder so it can sit directly behind the
// migration router.
package metrics
