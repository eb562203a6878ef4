package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Event ingestion metrics
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracking_events_total",
			Help: "Total number of tracking events received",
		},
		[]string{"endpoint", "status"},
	)

	// Queue metrics
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracking_queue_depth",
			Help: "Current depth of the bounded event queue",
		},
	)

	QueueCapacity = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracking_queue_capacity",
			Help: "Maximum capacity of the bounded event queue",
		},
	)

	QueueRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracking_queue_rejections_total",
			Help: "Total number of enqueue attempts rejected by the full-queue policy",
		},
	)

	// Batch processor metrics
	BatchesFlushed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracking_batches_flushed_total",
			Help: "Total number of batches flushed to storage",
		},
	)

	FlushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tracking_batch_flush_duration_seconds",
			Help:    "Duration of batch flush operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Flush failures are the silent data-loss boundary; alert on this.
	FlushFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracking_batch_flush_failures_total",
			Help: "Total number of batch flushes that failed and were discarded",
		},
	)

	// Rate limiting metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracking_rate_limit_hits_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"partner"},
	)

	// Credential cache metrics
	AuthCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracking_auth_cache_hits_total",
			Help: "Total number of credential cache hits",
		},
	)

	AuthCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracking_auth_cache_misses_total",
			Help: "Total number of credential cache misses requiring key-scan validation",
		},
	)
)
