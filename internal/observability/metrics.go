package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReactionToggles counts applied reaction toggles by target type and action.
	ReactionToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_reaction_toggles_total",
		Help: "Total number of applied reaction toggles by target type and action",
	}, []string{"target_type", "action"})

	// CounterIncrementRetries counts retried counter increment attempts.
	CounterIncrementRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agora_counter_increment_retries_total",
		Help: "Total number of retried target_stats increment attempts",
	})

	// CounterIncrementFailures counts counter increments that exhausted retries.
	CounterIncrementFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agora_counter_increment_failures_total",
		Help: "Total number of target_stats increments that exhausted retries",
	})

	// StatsRecounts counts counter repair recomputations by target type.
	StatsRecounts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_stats_recounts_total",
		Help: "Total number of target_stats repair recounts by target type",
	}, []string{"target_type"})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agora_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
