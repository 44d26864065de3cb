// Package metrics declares the prometheus instruments for search, the
// provider store and the HTTP surface.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GazetteerRecords is the number of indexed ZIP centroids.
	GazetteerRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "printnearby_gazetteer_indexed_records",
			Help: "Number of ZIP centroids in the spatial index",
		},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "printnearby_search_duration_seconds",
			Help:    "Duration of nearby searches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	SearchOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "printnearby_search_total",
			Help: "Nearby searches by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// StoreChunkQueries counts membership-filter queries sent to the provider store.
	StoreChunkQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "printnearby_store_chunk_queries_total",
			Help: "Provider store membership queries by result",
		},
		[]string{"result"},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "printnearby_store_breaker_state",
			Help: "Provider store circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "printnearby_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// ObserveSearch records one search.
func ObserveSearch(operation, outcome string, started time.Time) {
	SearchDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
	SearchOutcomes.WithLabelValues(operation, outcome).Inc()
}

// ObserveHTTP records one HTTP request.
func ObserveHTTP(method, route string, status int, started time.Time) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(time.Since(started).Seconds())
}
