// Package metrics exposes Prometheus collectors for the harvester.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	recordsExtractedTotal     *prometheus.CounterVec
	rowsSkippedTotal          *prometheus.CounterVec
	sourceFailuresTotal       *prometheus.CounterVec
	reconciliationAlarmsTotal prometheus.Counter
	storageWriteErrorsTotal   *prometheus.CounterVec
	ruleRowsDroppedTotal      *prometheus.CounterVec
	runDurationSeconds        prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		recordsExtractedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_records_extracted_total",
				Help: "Total number of records extracted, labeled by source.",
			},
			[]string{"source"},
		)

		rowsSkippedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_rows_skipped_total",
				Help: "Total number of unparsable rows skipped, labeled by source.",
			},
			[]string{"source"},
		)

		sourceFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_source_failures_total",
				Help: "Total number of whole-source extraction failures, labeled by source.",
			},
			[]string{"source"},
		)

		reconciliationAlarmsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "harvester_reconciliation_alarms_total",
				Help: "Total number of enrichment row-count mismatches.",
			},
		)

		storageWriteErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_storage_write_errors_total",
				Help: "Total number of partition write failures, labeled by tier.",
			},
			[]string{"tier"},
		)

		ruleRowsDroppedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_rule_rows_dropped_total",
				Help: "Total number of rows removed by transformation rules, labeled by tier.",
			},
			[]string{"tier"},
		)

		runDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "harvester_run_duration_seconds",
				Help:    "Histogram of end-to-end harvest run durations.",
				Buckets: []float64{30, 60, 120, 300, 600, 1200, 1800},
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveExtraction records one source's extraction outcome.
func ObserveExtraction(source string, extracted, skipped int) {
	recordsExtractedTotal.WithLabelValues(source).Add(float64(extracted))
	if skipped > 0 {
		rowsSkippedTotal.WithLabelValues(source).Add(float64(skipped))
	}
}

// ObserveSourceFailure increments the whole-source failure counter.
func ObserveSourceFailure(source string) {
	sourceFailuresTotal.WithLabelValues(source).Inc()
}

// ObserveReconciliationAlarm increments the reconciliation alarm counter.
func ObserveReconciliationAlarm() {
	reconciliationAlarmsTotal.Inc()
}

// ObserveStorageWriteError increments the write failure counter for a tier.
func ObserveStorageWriteError(tier string) {
	storageWriteErrorsTotal.WithLabelValues(tier).Inc()
}

// ObserveRuleDrop records rows removed by the rule chain for a tier.
func ObserveRuleDrop(tier string, dropped int) {
	if dropped > 0 {
		ruleRowsDroppedTotal.WithLabelValues(tier).Add(float64(dropped))
	}
}

// ObserveRunDuration records the duration of one harvest run.
func ObserveRunDuration(d time.Duration) {
	runDurationSeconds.Observe(d.Seconds())
}
