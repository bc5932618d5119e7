package httpmiddleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RequestIDHeader carries the request identifier in both directions.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLen = 128

type requestIDKey struct{}

// RequestIDFromContext returns the request identifier, or "".
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// RequestID tags each request with an identifier: a well-formed incoming
// X-Request-ID, else the trace ID of the active span, else a random UUID.
// The identifier is echoed in the response, recorded on the span and added
// to the request logger. Place it after InjectLogger and Instrument.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			span := trace.SpanFromContext(ctx)

			id := requestID(r.Header.Get(RequestIDHeader), span.SpanContext())
			w.Header().Set(RequestIDHeader, id)
			span.SetAttributes(attribute.String("http.request_id", id))

			ctx = context.WithValue(ctx, requestIDKey{}, id)
			ctx = zctx.With(ctx, zap.String("request_id", id))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requestID(incoming string, sc trace.SpanContext) string {
	switch {
	case printableASCII(incoming, maxRequestIDLen):
		return incoming
	case sc.HasTraceID():
		return sc.TraceID().String()
	default:
		return uuid.NewString()
	}
}

// printableASCII reports whether s holds 1 to limit bytes in 0x20-0x7E.
func printableASCII(s string, limit int) bool {
	if s == "" || len(s) > limit {
		return false
	}
	return !strings.ContainsFunc(s, func(r rune) bool { return r < 0x20 || r > 0x7E })
}
