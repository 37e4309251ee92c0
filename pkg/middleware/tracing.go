package middleware

import (
	"net/http"

	"github.com/joshianirudh/context-engine/pkg/tracing"
)

// Tracing returns middleware that opens a root span for each request, using
// the request id as the trace id, and logs the span tree on completion.
// Install it inside RequestID so the id is already assigned.
func Tracing() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.StartSpan(r.Context(), r.Method+" "+r.URL.Path, GetRequestID(r.Context()))
			next.ServeHTTP(w, r.WithContext(ctx))
			span.End()
			span.Log()
		})
	}
}
