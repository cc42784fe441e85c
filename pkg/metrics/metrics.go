package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	CacheLookupCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_lookup_count",
			Help: "Result cache lookups by outcome",
		},
		[]string{"kind", "outcome"}, // kind: progress, search; outcome: hit, miss
	)

	MilestoneMutationCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "milestone_mutation_count",
			Help: "Total milestone and release mutations",
		},
		[]string{"operation", "result"}, // operation: create, close, associate, release_create
	)

	NotificationPublishCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_publish_count",
			Help: "Fire-and-forget event publishes by outcome",
		},
		[]string{"routing_key", "outcome"},
	)
)

// RecordHTTPRequestDuration records HTTP request latency.
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordDBQueryDuration records database query latency.
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// IncrementCacheLookup counts a cache hit or miss.
func IncrementCacheLookup(kind, outcome string) {
	CacheLookupCount.WithLabelValues(kind, outcome).Inc()
}

// IncrementMutation counts a mutation attempt result.
func IncrementMutation(operation, result string) {
	MilestoneMutationCount.WithLabelValues(operation, result).Inc()
}

// IncrementNotificationPublish counts an event publish outcome.
func IncrementNotificationPublish(routingKey, outcome string) {
	NotificationPublishCount.WithLabelValues(routingKey, outcome).Inc()
}
