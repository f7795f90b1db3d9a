package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HistoryRequestsTotal counts history requests by timeframe and outcome.
	HistoryRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aptoscope_history_requests_total",
			Help: "Number of portfolio history requests, by timeframe and outcome.",
		},
		[]string{"timeframe", "outcome"},
	)

	// HistoryRequestDuration observes end-to-end history computation time.
	HistoryRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aptoscope_history_request_duration_seconds",
			Help:    "Duration of portfolio history computation.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"timeframe"},
	)

	// PriceProviderFailures counts failed upstream price calls per provider.
	PriceProviderFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aptoscope_price_provider_failures_total",
			Help: "Number of failed price provider calls, by provider and call type.",
		},
		[]string{"provider", "call"},
	)

	// PriceCacheHits counts daily-series cache hits and misses.
	PriceCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aptoscope_price_cache_lookups_total",
			Help: "Price series cache lookups, by result (hit/miss).",
		},
		[]string{"result"},
	)
)

// MustRegisterMetrics registers all collectors with the default registry.
// Panics on duplicate registration, which indicates a wiring bug.
func MustRegisterMetrics() {
	prometheus.MustRegister(
		HistoryRequestsTotal,
		HistoryRequestDuration,
		PriceProviderFailures,
		PriceCacheHits,
	)
}
