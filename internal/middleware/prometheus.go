package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/crucial707/book-catalog/internal/metrics"
)

// Prometheus records request duration and count for each request, labelled by the
// matched chi route pattern. Requests no route matched share metrics.UnmatchedPath so
// arbitrary 404 paths cannot create new series. /metrics itself is not recorded.
func Prometheus(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrap := wrapWriter(w)
		next.ServeHTTP(wrap, r)
		if r.URL.Path == "/metrics" {
			return
		}

		path := metrics.UnmatchedPath
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		metrics.RecordRequest(r.Method, path, wrap.status, time.Since(start).Seconds())
	})
}
