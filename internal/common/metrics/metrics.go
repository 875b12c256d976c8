// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
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

	AllocationRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocation_runs_total",
			Help: "Allocation runs by outcome (decided, nothing_to_decide, conflict, not_found, error)",
		},
		[]string{"outcome"},
	)

	AllocationRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "allocation_run_duration_seconds",
			Help:    "Duration of allocation runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	ApplicationsDecided = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "applications_decided_total",
			Help: "Applications decided by allocation runs, by resulting status",
		},
		[]string{"status"},
	)

	ApplicationSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "application_submissions_total",
			Help: "Ticket application submissions by result",
		},
		[]string{"result"},
	)

	// Unlabelled: games only accumulate, so a per-game series would grow without bound.
	RemainingCapacityAfterRun = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "allocation_remaining_capacity",
			Help:    "Remaining ticket capacity of the game after each committed run",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		},
	)
)
