package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the RPI engine

var (
	// Calculation metrics
	CalculationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpi_calculations_total",
			Help: "Total number of calculation runs by terminal status",
		},
		[]string{"status"},
	)

	CalculationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rpi_calculation_duration_seconds",
			Help:    "Duration of full calculation pipeline runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	CalculationsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rpi_calculations_in_flight",
			Help: "Number of calculation runs currently in progress on this instance",
		},
	)

	MatchesProcessed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rpi_matches_processed",
			Help: "Matches processed by the most recent calculation run",
		},
	)

	TeamsRanked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rpi_teams_ranked",
			Help: "Teams ranked by the most recent calculation run",
		},
	)

	// Cache metrics
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpi_cache_hits_total",
			Help: "Total number of result cache hits by tier",
		},
		[]string{"tier"},
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpi_cache_misses_total",
			Help: "Total number of result cache misses by tier",
		},
		[]string{"tier"},
	)

	CacheOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rpi_cache_operation_duration_seconds",
			Help:    "Duration of durable cache operations in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// Database metrics
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpi_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "table", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rpi_db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	// Read surface metrics
	RankingReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpi_ranking_reads_total",
			Help: "Total number of ranking reads by outcome",
		},
		[]string{"outcome"},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpi_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rpi_system_uptime_seconds",
			Help: "System uptime in seconds",
		},
	)

	LastCompletedCalculation = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rpi_last_completed_calculation_timestamp",
			Help: "Timestamp of the last successfully completed calculation",
		},
	)
)

// RecordCalculation records a finished calculation run.
func RecordCalculation(status string, duration float64) {
	CalculationsTotal.WithLabelValues(status).Inc()
	CalculationDuration.Observe(duration)

	if status == "completed" {
		LastCompletedCalculation.SetToCurrentTime()
	}
}

// RecordCacheHit records a cache hit for a tier.
func RecordCacheHit(tier string) {
	CacheHitsTotal.WithLabelValues(tier).Inc()
}

// RecordCacheMiss records a cache miss for a tier.
func RecordCacheMiss(tier string) {
	CacheMissesTotal.WithLabelValues(tier).Inc()
}

// RecordCacheOperation records a durable cache operation duration.
func RecordCacheOperation(operation string, duration float64) {
	CacheOperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordDBQuery records a database query metric.
func RecordDBQuery(operation, table, status string, duration float64) {
	DBQueriesTotal.WithLabelValues(operation, table, status).Inc()
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration)
}

// RecordRankingRead records a ranking read outcome (fresh, cached, fallback,
// in_progress, not_found).
func RecordRankingRead(outcome string) {
	RankingReadsTotal.WithLabelValues(outcome).Inc()
}

// RecordError records an error.
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// UpdateRunProgress updates the progress gauges for the active run.
func UpdateRunProgress(matches, teams int) {
	MatchesProcessed.Set(float64(matches))
	TeamsRanked.Set(float64(teams))
}
