package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	summaryComputedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activity_stats",
		Subsystem: "aggregation",
		Name:      "summaries_computed_total",
		Help:      "Number of summaries recomputed and persisted, by period type.",
	}, []string{"period_type"})

	summaryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "activity_stats",
		Subsystem: "aggregation",
		Name:      "compute_duration_seconds",
		Help:      "Time spent scanning, reducing and upserting one summary.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"period_type"})

	upsertRetryCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "activity_stats",
		Subsystem: "store",
		Name:      "upsert_retries_total",
		Help:      "Number of summary upserts retried after a concurrent-writer conflict.",
	})

	upsertConflictCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "activity_stats",
		Subsystem: "store",
		Name:      "upsert_conflicts_total",
		Help:      "Number of summary upserts that exhausted their retries.",
	})

	leaderboardDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "activity_stats",
		Subsystem: "leaderboard",
		Name:      "rank_duration_seconds",
		Help:      "Time spent scanning and ranking a leaderboard.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"dimension"})

	leaderboardGroupsGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "activity_stats",
		Subsystem: "leaderboard",
		Name:      "eligible_groups",
		Help:      "Eligible group count of the most recent ranking per dimension.",
	}, []string{"dimension"})

	cacheLookupCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activity_stats",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Page cache lookups by kind and result.",
	}, []string{"kind", "result"})
)

func init() {
	prometheus.MustRegister(
		summaryComputedCounter,
		summaryDuration,
		upsertRetryCounter,
		upsertConflictCounter,
		leaderboardDuration,
		leaderboardGroupsGauge,
		cacheLookupCounter,
	)
}

// RecordSummaryComputed counts a persisted summary and its latency.
func RecordSummaryComputed(periodType string, elapsed time.Duration) {
	summaryComputedCounter.WithLabelValues(periodType).Inc()
	summaryDuration.WithLabelValues(periodType).Observe(elapsed.Seconds())
}

// RecordUpsertRetry counts one retried upsert attempt.
func RecordUpsertRetry() {
	upsertRetryCounter.Inc()
}

// RecordUpsertConflict counts an upsert that gave up.
func RecordUpsertConflict() {
	upsertConflictCounter.Inc()
}

// RecordLeaderboard records ranking latency and size.
func RecordLeaderboard(dimension string, groups int, elapsed time.Duration) {
	leaderboardDuration.WithLabelValues(dimension).Observe(elapsed.Seconds())
	leaderboardGroupsGauge.WithLabelValues(dimension).Set(float64(groups))
}

// RecordCacheLookup counts a cache hit or miss.
func RecordCacheLookup(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookupCounter.WithLabelValues(kind, result).Inc()
}
