// Package tracing provides distributed tracing over the OpenTelemetry
// SDK with an OTLP gRPC exporter.
//
// Tracing is disabled by default; when disabled, New returns a noop
// tracer so callers never need to branch on configuration:
//
//	tracer, err := tracing.New(cfg.Telemetry.Tracing)
//	if err != nil {
//		return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, "session.stream",
//		trace.WithAttributes(tracing.SessionAttributes(id, provider, scenario)...))
//	defer span.End()
//
// Sampling is parent-based: the "always", "never", and "ratio"
// strategies apply only to root spans, and children follow their
// parent's decision.
package tracing
