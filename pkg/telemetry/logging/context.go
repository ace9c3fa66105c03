package logging

import "context"

// contextKey is unexported so only this package can install values.
type contextKey string

const (
	sessionIDKey contextKey = "session_id"
	providerKey  contextKey = "provider"
	scenarioKey  contextKey = "scenario"
	operationKey contextKey = "operation"
	requestIDKey contextKey = "request_id"
)

// WithSessionID attaches a session identifier to ctx.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionID returns the session identifier from ctx, or "".
func SessionID(ctx context.Context) string {
	return stringValue(ctx, sessionIDKey)
}

// WithProvider attaches a provider name to ctx.
func WithProvider(ctx context.Context, provider string) context.Context {
	return context.WithValue(ctx, providerKey, provider)
}

// Provider returns the provider name from ctx, or "".
func Provider(ctx context.Context) string {
	return stringValue(ctx, providerKey)
}

// WithScenario attaches a scenario name to ctx.
func WithScenario(ctx context.Context, scenario string) context.Context {
	return context.WithValue(ctx, scenarioKey, scenario)
}

// Scenario returns the scenario name from ctx, or "".
func Scenario(ctx context.Context) string {
	return stringValue(ctx, scenarioKey)
}

// WithOperation attaches an operation kind (streaming or
// non-streaming) to ctx.
func WithOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, operationKey, op)
}

// Operation returns the operation kind from ctx, or "".
func Operation(ctx context.Context) string {
	return stringValue(ctx, operationKey)
}

// WithRequestID attaches a correlation identifier to ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the correlation identifier from ctx, or "".
func RequestID(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// Fields collects the logging fields present in ctx as alternating
// key-value pairs suitable for Logger.With.
func Fields(ctx context.Context) []any {
	var fields []any
	for _, key := range []contextKey{requestIDKey, sessionIDKey, providerKey, scenarioKey, operationKey} {
		if v := stringValue(ctx, key); v != "" {
			fields = append(fields, string(key), v)
		}
	}
	return fields
}
