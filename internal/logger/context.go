package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context, injected into every
// InfoCtx/WarnCtx/ErrorCtx call along the call chain of a single sync
// request or server-side push batch.
type LogContext struct {
	TraceID   string    // OpenTelemetry trace ID
	SpanID    string    // OpenTelemetry span ID
	Endpoint  string    // wire-protocol endpoint name (§6.1), e.g. "Upsert"
	Owner     string    // base58 public key the request is scoped to
	ClientIP  string    // client IP address (without port), server side only
	StartTime time.Time // for duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext with the given client IP
func NewLogContext(clientIP string) *LogContext {
	return &LogContext{
		ClientIP:  clientIP,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:   lc.TraceID,
		SpanID:    lc.SpanID,
		Endpoint:  lc.Endpoint,
		Owner:     lc.Owner,
		ClientIP:  lc.ClientIP,
		StartTime: lc.StartTime,
	}
}

// WithEndpoint returns a copy with the endpoint set
func (lc *LogContext) WithEndpoint(endpoint string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Endpoint = endpoint
	}
	return clone
}

// WithOwner returns a copy with the owner set
func (lc *LogContext) WithOwner(owner string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Owner = owner
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
