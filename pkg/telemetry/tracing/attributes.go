package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys under the "ganymede." namespace. Standard dimensions
// (provider, path, operation) match the Prometheus label names so a
// trace can be correlated with the metrics it contributed to.
const (
	AttrProvider  = "ganymede.provider"
	AttrScenario  = "ganymede.scenario"
	AttrSessionID = "ganymede.session_id"
	AttrPath      = "ganymede.path"
	AttrOperation = "ganymede.operation"
	AttrChunks    = "ganymede.chunks"
	AttrBytes     = "ganymede.bytes"
	AttrFallback  = "ganymede.fallback"
)

// SessionAttributes returns the standard span attributes for a
// streaming session.
func SessionAttributes(sessionID, provider, scenario string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrSessionID, sessionID),
		attribute.String(AttrProvider, provider),
		attribute.String(AttrScenario, scenario),
	}
}

// RouteAttributes returns the standard span attributes for a routing
// decision.
func RouteAttributes(path, operation string, fallback bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrPath, path),
		attribute.String(AttrOperation, operation),
		attribute.Bool(AttrFallback, fallback),
	}
}

// SetStreamTotals records the final chunk and byte counts on a session
// span.
func SetStreamTotals(span trace.Span, chunks, bytes int64) {
	span.SetAttributes(
		attribute.Int64(AttrChunks, chunks),
		attribute.Int64(AttrBytes, bytes),
	)
}
