package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RequestRecorder receives one observation per HTTP request.
type RequestRecorder interface {
	RecordHTTPRequest(method, op, status string, d time.Duration)
}

// Metrics times every request. The op label is the dispatched operation for
// API calls and the matched route pattern otherwise, so label cardinality
// stays bounded.
func Metrics(recorder RequestRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			recorder.RecordHTTPRequest(r.Method, operationLabel(r), strconv.Itoa(ww.Status()), time.Since(start))
		})
	}
}

func operationLabel(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return "unmatched"
	}
	if op := rctx.URLParam("op"); op != "" {
		return op
	}
	if pattern := rctx.RoutePattern(); pattern != "" {
		return pattern
	}
	return "unmatched"
}
