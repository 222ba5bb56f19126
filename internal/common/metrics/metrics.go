// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medqa_dispatch_total",
			Help: "Upstream calls by endpoint and outcome (success, transport_failure, http_failure, parse_failure)",
		},
		[]string{"endpoint", "outcome"},
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "medqa_dispatch_duration_seconds",
			Help:    "Duration of upstream calls in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"endpoint"},
	)

	DispatchCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medqa_dispatch_cache_hits_total",
			Help: "Upstream calls served from the response cache",
		},
		[]string{"endpoint"},
	)

	AnswersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medqa_answers_total",
			Help: "Synthesized answers by kind (derived, sentinel)",
		},
		[]string{"kind"},
	)

	CommitsDiscarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "medqa_commits_discarded_total",
			Help: "Answers dropped because a newer query was submitted",
		},
	)

	QueriesInflight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "medqa_queries_inflight",
			Help: "Queries currently awaiting both endpoints",
		},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)
