// Package observability provides metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// CacheLookups counts cache-aside lookups by outcome (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_cache_lookups_total",
		Help: "Cache-aside lookups by outcome",
	}, []string{"outcome"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inkwell_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// AuthAttempts counts register/login attempts by outcome.
	AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_auth_attempts_total",
		Help: "Registration and login attempts by action and outcome",
	}, []string{"action", "outcome"})

	// AccessDenied counts requests rejected by the identity resolver or a gate.
	AccessDenied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_access_denied_total",
		Help: "Requests rejected with 403 by reason",
	}, []string{"reason"})

	// RateLimitRejections counts requests rejected by a rate limiter.
	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_rate_limit_rejections_total",
		Help: "Requests rejected by a rate limiter",
	}, []string{"resource"})

	// ContentWrites counts posts and comments written by kind and action.
	ContentWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_content_writes_total",
		Help: "Posts and comments created, updated or deleted",
	}, []string{"kind", "action"})

	// FeedConnections is the gauge of open live feed websocket connections.
	FeedConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inkwell_feed_connections",
		Help: "Number of open live feed websocket connections",
	})

	// FeedEvents counts events fanned out to the live feed by type.
	FeedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_feed_events_total",
		Help: "Live feed events by type",
	}, []string{"event_type"})

	// FeedBackpressureDrops counts feed messages dropped for slow clients.
	FeedBackpressureDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkwell_feed_backpressure_drops_total",
		Help: "Live feed messages dropped due to backpressure",
	})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
