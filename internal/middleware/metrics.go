package middleware

import (
	"net/http"
	"strconv"
	"time"

	"media-json/internal/metrics"

	"github.com/gorilla/mux"
)

// Metrics records request counts and latencies. Paths are labeled with the
// matched route template, so it must be installed with Router.Use.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		wrapped := newResponseWriter(w)
		start := time.Now()
		next.ServeHTTP(wrapped, r)

		path := routeTemplate(r)
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "other"
}
