package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hireiq_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hireiq_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Admission Metrics
	AnalysesCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hireiq_analyses_created_total",
			Help: "Total number of persisted analyses",
		},
		[]string{"plan"},
	)

	QuotaRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hireiq_quota_rejections_total",
			Help: "Total number of requests rejected by the usage quota",
		},
		[]string{"plan"},
	)

	InconsistentCommitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hireiq_inconsistent_commits_total",
			Help: "Analyses persisted whose usage commit failed (under-counted)",
		},
	)

	// Scoring Metrics
	ScoringRequestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hireiq_scoring_requests_total",
			Help: "Total number of scoring engine invocations",
		},
	)

	ScoringFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hireiq_scoring_failures_total",
			Help: "Total number of failed scoring engine invocations",
		},
	)

	ScoringDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hireiq_scoring_duration_seconds",
			Help:    "Scoring engine call duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2m
		},
	)

	// Entitlement Metrics
	EntitlementEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hireiq_entitlement_events_total",
			Help: "Total number of processed entitlement change events",
		},
		[]string{"outcome"},
	)

	// Upload Metrics
	ResumeUploadsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hireiq_resume_uploads_total",
			Help: "Total number of uploaded resume documents",
		},
	)

	ResumeUploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hireiq_resume_upload_size_bytes",
			Help:    "Size of uploaded resume documents in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8), // 1KB to ~16MB
		},
	)
)

// Entitlement event outcomes.
const (
	EntitlementOutcomeApplied    = "applied"
	EntitlementOutcomeUnresolved = "unresolved"
	EntitlementOutcomeFailed     = "failed"
)
