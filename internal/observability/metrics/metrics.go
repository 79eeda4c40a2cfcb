// Package metrics registra y expone las métricas Prometheus del broker.
package metrics

import (
	"net/http"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once
	registerErr  error

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Domain metrics
	oauthCallbacksTotal   *prometheus.CounterVec
	tokenValidationsTotal *prometheus.CounterVec
	tokenRefreshesTotal   *prometheus.CounterVec
)

// Register inicializa las métricas en el registry dado (o el default si es
// nil) y devuelve el handler para /metrics.
func Register(registry prometheus.Registerer) (http.Handler, error) {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tokenbridge_http_requests_total",
			Help: "Número total de requests procesadas",
		}, []string{"method", "path", "status"})

		httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tokenbridge_http_request_duration_seconds",
			Help:    "Latencia de los requests HTTP",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"})

		oauthCallbacksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tokenbridge_oauth_callbacks_total",
			Help: "Callbacks OAuth procesados por proveedor y resultado",
		}, []string{"provider", "outcome"}) // outcome: success|auth_failed|session_lost|token_save_failed|session_failed

		tokenValidationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tokenbridge_token_validations_total",
			Help: "Validaciones de tokens contra el proveedor",
		}, []string{"provider", "valid"})

		tokenRefreshesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tokenbridge_token_refreshes_total",
			Help: "Refrescos de tokens por proveedor y resultado",
		}, []string{"provider", "outcome"}) // outcome: success|provider_rejected|save_failed

		for _, c := range []prometheus.Collector{
			httpRequestsTotal,
			httpRequestDuration,
			oauthCallbacksTotal,
			tokenValidationsTotal,
			tokenRefreshesTotal,
		} {
			if err := registerCollector(registry, c); err != nil {
				registerErr = err
				return
			}
		}
	})
	if registerErr != nil {
		return nil, registerErr
	}

	// Gatherer global por compatibilidad, las métricas viven allí.
	return promhttp.Handler(), nil
}

func registerCollector(r prometheus.Registerer, c prometheus.Collector) error {
	if err := r.Register(c); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}

// idSegment matchea segmentos de path que son identificadores (uuid, fb_<id>,
// realm ids numéricos) para no explotar la cardinalidad de las métricas.
var idSegment = regexp.MustCompile(`/((?:fb_)?[0-9a-fA-F-]{8,}|\d{4,})`)

// NormalizePath colapsa los identificadores del path a un placeholder.
func NormalizePath(path string) string {
	return idSegment.ReplaceAllString(path, "/{id}")
}

// ObserveRequest registra una request HTTP terminada.
func ObserveRequest(method, path string, status int, dur time.Duration) {
	if httpRequestsTotal == nil {
		return // Register no fue llamado (tests)
	}
	p := NormalizePath(path)
	httpRequestsTotal.WithLabelValues(method, p, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, p).Observe(dur.Seconds())
}

// OAuthCallback registra el resultado de un callback OAuth.
func OAuthCallback(provider, outcome string) {
	if oauthCallbacksTotal == nil {
		return
	}
	oauthCallbacksTotal.WithLabelValues(provider, outcome).Inc()
}

// TokenValidation registra una validación de token contra el proveedor.
func TokenValidation(provider string, valid bool) {
	if tokenValidationsTotal == nil {
		return
	}
	tokenValidationsTotal.WithLabelValues(provider, strconv.FormatBool(valid)).Inc()
}

// TokenRefresh registra un intento de refresh.
func TokenRefresh(provider, outcome string) {
	if tokenRefreshesTotal == nil {
		return
	}
	tokenRefreshesTotal.WithLabelValues(provider, outcome).Inc()
}
