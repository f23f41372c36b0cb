package middleware

import (
	"net/http"
	"time"

	"reservations/pkg/metrics"
)

// Metrics records request counts and latency. routeLabel maps a raw path to a
// bounded label, typically the route pattern; nil keeps the raw path.
func Metrics(m *metrics.Metrics, routeLabel func(path string) string) func(http.Handler) http.Handler {
	if routeLabel == nil {
		routeLabel = func(path string) string { return path }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrapResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			m.ObserveHTTP(r.Method, routeLabel(r.URL.Path), wrapped.statusCode, time.Since(start))
		})
	}
}
