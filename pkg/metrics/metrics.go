package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	PagesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "harvester_pages_processed_total",
			Help: "Applicant list pages visited.",
		},
	)

	ApplicantsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_applicants_total",
			Help: "Applicant items visited.",
		},
		[]string{"outcome"}, // collected, skipped
	)

	ResumeDispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_resume_dispatches_total",
			Help: "Resume download requests by outcome.",
		},
		[]string{"status"}, // initiated, failed, unavailable, saved, download_error
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_runs_total",
			Help: "Traversal runs by final state.",
		},
		[]string{"state"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "harvester_run_duration_seconds",
			Help:    "Wall time of traversal runs.",
			Buckets: []float64{30, 60, 300, 600, 1800, 3600, 7200},
		},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_store_errors_total",
			Help: "Failures writing to status or record stores.",
		},
		[]string{"store"},
	)
)
