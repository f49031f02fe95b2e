package metrics

import (
	"net/http"
	"time"
)

// unmatched labels requests no route pattern matched, so unknown paths
// cannot grow the label set.
const unmatched = "unmatched"

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// HTTPMiddleware returns middleware that records HTTP metrics labelled by
// the matched ServeMux pattern, e.g. "GET /api/regions/{region}".
func HTTPMiddleware(reg *Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reg.InFlightInc()
			defer reg.InFlightDec()

			start := time.Now()

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			route := r.Pattern
			if route == "" {
				route = unmatched
			}
			reg.RecordRequest(r.Method, route, rw.statusCode, time.Since(start).Seconds())
		})
	}
}
