package http

import (
	"context"
	nethttp "net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/propagation"
)

const (
	// HeaderXRequestID is the standard header name for request tracing
	HeaderXRequestID = "X-Request-ID"
	// HeaderTraceParent is the W3C trace context header name
	HeaderTraceParent = "traceparent"
)

// contextKey is the type for context keys to avoid collisions
type contextKey string

const requestIDKey contextKey = "request_id"

// WithRequestID adds a request ID to the context; the client sends it instead of generating one
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns a request ID from context if present
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		return id, true
	}
	return "", false
}

func newUUID() string {
	return uuid.New().String()
}

// requestID picks the ID for one logical request: per-call header, then
// context, then the generator. Both attempts of a request share it.
func (c *client) requestID(ctx context.Context, req *Request) string {
	header := c.config.TraceIDHeader
	for k, v := range req.Headers {
		if v != "" && nethttp.CanonicalHeaderKey(k) == nethttp.CanonicalHeaderKey(header) {
			return v
		}
	}
	if id, ok := RequestIDFromContext(ctx); ok {
		return id
	}
	gen := c.config.NewTraceID
	if gen == nil {
		gen = newUUID
	}
	return gen()
}

// injectTraceContext writes traceparent/tracestate for the active span
func injectTraceContext(ctx context.Context, h nethttp.Header) {
	propagation.TraceContext{}.Inject(ctx, propagation.HeaderCarrier(h))
}
