package core

import (
	"github.com/JonMunkholm/tableclean/internal/outlier"
	"github.com/JonMunkholm/tableclean/internal/skew"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	// runsTotal counts cleaning runs by outcome (ok, error, rejected)
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tableclean_runs_total",
		Help: "Total cleaning runs by status",
	}, []string{"status"})

	// runDuration tracks end-to-end run latency
	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tableclean_run_duration_seconds",
		Help:    "Cleaning run duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
	})

	// runsActive is the number of runs holding a limiter slot
	runsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tableclean_runs_active",
		Help: "Cleaning runs currently in progress",
	})

	// rowsProcessed counts rows loaded into cleaning runs
	rowsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tableclean_rows_processed_total",
		Help: "Total rows loaded by cleaning runs",
	})

	// transformsTotal counts transformed columns by transform and mode
	transformsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tableclean_transforms_total",
		Help: "Total skew transforms applied by transform and mode",
	}, []string{"transform", "mode"})

	// outliersReplaced counts replaced outlier values by method
	outliersReplaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tableclean_outliers_replaced_total",
		Help: "Total outlier values replaced by method",
	}, []string{"method"})
)

func recordTransforms(report *skew.Report) {
	if report == nil {
		return
	}
	for _, r := range report.Results {
		transformsTotal.WithLabelValues(string(r.Transform), string(r.Mode)).Inc()
	}
}

func recordOutliers(results []outlier.Result) {
	for _, r := range results {
		if n := len(r.Outliers); n > 0 {
			outliersReplaced.WithLabelValues(string(r.Method)).Add(float64(n))
		}
	}
}
