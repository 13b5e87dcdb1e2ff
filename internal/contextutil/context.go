package contextutil

import "context"

type contextKey string

const TraceIDKey contextKey = "traceID"

// Identity is the authenticated caller, resolved once per request from the session token.
type Identity struct {
	UserID string
	Token  string
}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

func TraceIDFromContext(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return "unknown-trace-id"
	}
	return traceID
}
