package middlewares

import (
	"net/http"
	"time"

	"github.com/dropDatabas3/tokenbridge/internal/observability/metrics"
)

// WithMetrics cuenta requests y latencias. Debe ir después de WithRequestID
// y antes del router para capturar también los 404.
func WithMetrics() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			metrics.ObserveRequest(r.Method, r.URL.Path, rec.status, time.Since(start))
		})
	}
}
