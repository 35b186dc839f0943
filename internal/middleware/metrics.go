package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/samims/notifyhub/internal/metrics"
)

// MetricsMiddleware records request counts and latency. Paths are labelled by
// route pattern so ids in the URL do not blow up label cardinality.
func MetricsMiddleware(next http.Handler) http.Handler {
	h := func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)
		duration := time.Since(start).Seconds()

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		status := strconv.Itoa(ww.Status())

		metrics.HTTPRequests.WithLabelValues(path, r.Method, status).Inc()
		metrics.RequestDuration.WithLabelValues(path, r.Method).Observe(duration)
	}

	return http.HandlerFunc(h)
}
