// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var latencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "streetcred_http_requests_total",
		Help: "HTTP requests by route pattern and status code",
	}, []string{"method", "route", "status"})
	HTTPDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "streetcred_http_duration_ms",
		Help:    "HTTP request duration in milliseconds",
		Buckets: latencyBuckets,
	}, []string{"route"})

	ResolverOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "streetcred_resolver_outcomes_total",
		Help: "Neighborhood resolver outcomes per tier",
	}, []string{"tier", "outcome"})
	ResolverDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "streetcred_resolver_duration_ms",
		Help:    "Neighborhood resolver tier latency in milliseconds",
		Buckets: latencyBuckets,
	}, []string{"tier"})
	ResolverCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streetcred_resolver_cache_hits_total",
		Help: "Neighborhood cache hits",
	})
	ResolverCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streetcred_resolver_cache_misses_total",
		Help: "Neighborhood cache misses",
	})

	VerificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "streetcred_verifications_total",
		Help: "Verification attempts by outcome (accepted, rejected)",
	}, []string{"outcome"})
	PointsAwardedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streetcred_points_awarded_total",
		Help: "Points added to user totals",
	})
	BadgesIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streetcred_badges_issued_total",
		Help: "Badges inserted, including reconciled ones",
	})
	LedgerRetriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "streetcred_ledger_retries_total",
		Help: "Ledger transactions retried after a transient store error",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPDurationMs,
		ResolverOutcomesTotal,
		ResolverDurationMs,
		ResolverCacheHitsTotal,
		ResolverCacheMissesTotal,
		VerificationsTotal,
		PointsAwardedTotal,
		BadgesIssuedTotal,
		LedgerRetriesTotal,
	)
}

// Handler exposes the default registry for scraping.
func Handler() http.Handler { return promhttp.Handler() }
