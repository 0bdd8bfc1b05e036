// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movies_http_requests_total",
			Help: "HTTP requests by route pattern, method and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "movies_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// GatewayRequests counts TMDb calls; outcome is ok, not_found or error.
	GatewayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movies_tmdb_requests_total",
			Help: "Requests made to the TMDb API",
		},
		[]string{"operation", "outcome"},
	)

	GatewayBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "movies_tmdb_circuit_breaker_state",
			Help: "TMDb circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CatalogImports = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "movies_catalog_imports_total",
			Help: "Movies imported from TMDb on first access",
		},
	)

	RatingRecomputes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movies_rating_recomputes_total",
			Help: "Average rating recomputations by trigger",
		},
		[]string{"trigger"},
	)
)
