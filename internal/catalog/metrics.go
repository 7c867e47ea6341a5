package catalog

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// queryDuration tracks query execution time by count mode.
	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_query_duration_seconds",
		Help:    "Time taken to execute a catalog query by count mode",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"count_mode"})

	// queryErrors tracks degraded (empty-page) query executions.
	queryErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_query_errors_total",
		Help: "Total number of catalog queries that degraded to an empty page",
	})

	// allocationAttempts tracks the distribution of assign attempts per
	// allocation, including the successful one.
	allocationAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_code_allocation_attempts",
		Help:    "Number of assign attempts per code allocation",
		Buckets: []float64{1, 2, 3, 5, 10, 20, 30},
	})

	// allocationOutcomes tracks allocation results.
	allocationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_code_allocations_total",
		Help: "Total number of code allocations by outcome",
	}, []string{"outcome"}) // outcome: committed, exhausted, failed

	// discountsApplied counts items whose price was rewritten by a rule.
	discountsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_discounts_applied_total",
		Help: "Total number of items annotated with an automatic discount",
	})
)

// MetricsRecorder wraps the package metrics behind methods so components do
// not touch collectors directly.
type MetricsRecorder struct{}

// NewMetricsRecorder creates a metrics recorder.
func NewMetricsRecorder() *MetricsRecorder {
	return &MetricsRecorder{}
}

// RecordQueryDuration records query execution time.
func (m *MetricsRecorder) RecordQueryDuration(mode CountMode, d time.Duration) {
	queryDuration.WithLabelValues(mode.String()).Observe(d.Seconds())
}

// RecordQueryError records a degraded query.
func (m *MetricsRecorder) RecordQueryError() {
	queryErrors.Inc()
}

// RecordAllocation records an allocation outcome and its attempt count.
func (m *MetricsRecorder) RecordAllocation(outcome string, attempts int) {
	allocationOutcomes.WithLabelValues(outcome).Inc()
	if attempts > 0 {
		allocationAttempts.Observe(float64(attempts))
	}
}

// RecordDiscountApplied counts an applied discount.
func (m *MetricsRecorder) RecordDiscountApplied() {
	discountsApplied.Inc()
}
