package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "harbor_marks_build_info",
			Help: "Build information of the marks tracker",
		},
		[]string{"version", "commit"},
	)

	SourceRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harbor_marks_source_refresh_total",
			Help: "Total number of per-market source reads",
		},
		[]string{"source", "status"},
	)

	SourceRefreshDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "harbor_marks_source_refresh_duration_seconds",
			Help:    "Duration of a full source refresh",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 0.05s to ~25s
		},
		[]string{"source"},
	)

	EvaluationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harbor_marks_evaluation_total",
			Help: "Total number of tracker evaluations",
		},
		[]string{"status"},
	)

	EvaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "harbor_marks_evaluation_duration_seconds",
			Help:    "Duration of tracker evaluations",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 0.001s to ~4.1s
		},
	)

	MarketResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harbor_marks_market_results_total",
			Help: "Per-market evaluation results by error class",
		},
		[]string{"class"},
	)

	MaintenanceOperationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harbor_marks_maintenance_operation_total",
			Help: "Total number of maintenance operations",
		},
		[]string{"operation_type", "status"},
	)
)
