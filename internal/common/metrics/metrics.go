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

	// ActionsDispatched counts dispatches by entity and action kind
	// (find, fetch, delete, create, generic).
	ActionsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagerduty_actions_dispatched_total",
			Help: "Total number of PagerDuty actions dispatched",
		},
		[]string{"entity", "kind", "outcome"},
	)

	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagerduty_api_requests_total",
			Help: "PagerDuty REST requests by HTTP method and status code",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pagerduty_api_request_duration_seconds",
			Help:    "Latency of PagerDuty REST requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	IdempotentReplays = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagerduty_action_replays_total",
			Help: "Jobs answered from the idempotency store instead of PagerDuty",
		},
		[]string{"task_type"},
	)
)
