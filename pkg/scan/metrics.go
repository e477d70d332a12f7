package scan

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for scan runs.
var (
	scanCohortsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scan_cohorts_total",
		Help: "Total number of cohorts dispatched",
	})

	scanRangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scan_ranges_total",
		Help: "Total ranges processed by outcome",
	}, []string{"outcome"})

	scanFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scan_fetch_duration_seconds",
		Help:    "Duration of a single range fetch including decode and scan",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 15},
	})

	scanTerminationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scan_termination_total",
		Help: "Total finished runs by termination reason",
	}, []string{"reason"})
)
