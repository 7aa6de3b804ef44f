// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// RunsTotal tracks campaign runs by terminal outcome.
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Campaign runs by outcome",
		},
		[]string{"outcome"}, // completed, empty, failed
	)

	// RunDuration tracks end-to-end campaign run duration.
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_run_duration_seconds",
			Help:    "Campaign run duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	// LeadsEnrichedTotal tracks per-candidate enrichment outcomes.
	LeadsEnrichedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_enriched_total",
			Help: "Enrichment calls by outcome",
		},
		[]string{"outcome"}, // accepted, discarded
	)

	// CreditsTotal tracks credit movements.
	CreditsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credits_total",
			Help: "Credits consumed and refunded",
		},
		[]string{"movement"}, // consumed, refunded
	)

	// LLMRequestDuration tracks gateway call latency per operation.
	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "LLM gateway request duration",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"provider", "operation", "status"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"provider", "direction"},
	)

	// SMTPTestsTotal tracks SMTP configuration probes.
	SMTPTestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smtp_tests_total",
			Help: "SMTP configuration tests by result",
		},
		[]string{"result"},
	)

	// ActiveRuns tracks runs currently executing.
	ActiveRuns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipeline_active_runs",
			Help: "Number of campaign runs in flight",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordLLMCall records one gateway call.
func RecordLLMCall(provider, operation, status string, duration float64, tokensIn, tokensOut int) {
	LLMRequestDuration.WithLabelValues(provider, operation, status).Observe(duration)
	LLMTokensTotal.WithLabelValues(provider, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(provider, "out").Add(float64(tokensOut))
}

// RecordRun records a finished campaign run.
func RecordRun(outcome string, duration float64) {
	RunsTotal.WithLabelValues(outcome).Inc()
	RunDuration.Observe(duration)
}
