// Package telemetry provides observability for Ganymede.
//
// # Components
//
//   - logging: structured logging over log/slog with PII redaction
//   - metrics: Prometheus metrics for sessions, providers, routing, and health
//   - tracing: OpenTelemetry distributed tracing with an OTLP exporter
//   - health: scheduled performance classification and automatic rollback
//
// # Usage
//
//	logger, err := logging.New(cfg.Telemetry.Logging)
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
//	tracer, err := tracing.New(cfg.Telemetry.Tracing)
//	monitor := health.NewMonitor(cfg.Health, stats, store, collector, logger.Slog())
//
// The metrics Collector and the health Stats aggregator both implement
// migration.Recorder, so routing outcomes feed Prometheus and the
// rollback classifier from a single fan-out.
//
// # PII Protection
//
// PII is redacted from logs by default:
//
//   - API keys: sk-abc123 -> sk-***
//   - Emails: user@example.com -> ***@example.com
//   - Bearer tokens: Bearer abc123 -> Bearer ***
//   - IP addresses: 192.168.1.1 -> 192.*.*.*
//
// Custom redaction patterns can be configured.
package telemetry
