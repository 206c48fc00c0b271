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

	// ModelRequestDuration tracks chat-completion call duration including retries.
	ModelRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "model_request_duration_seconds",
			Help:    "Chat completion request duration including retries",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"provider", "model", "status"},
	)

	// ModelTokensTotal tracks tokens consumed per provider and model.
	ModelTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_tokens_total",
			Help: "Total tokens processed by chat completions",
		},
		[]string{"provider", "model", "direction"},
	)

	// ModelCostTotal tracks estimated spend per provider and model.
	ModelCostTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_cost_dollars_total",
			Help: "Estimated chat completion cost in dollars",
		},
		[]string{"provider", "model"},
	)

	// ModelRetriesTotal tracks retried chat-completion attempts.
	ModelRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_retries_total",
			Help: "Chat completion attempts that were retried",
		},
		[]string{"provider"},
	)

	// PipelineRunsTotal tracks orchestrator pipeline outcomes.
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Per-message pipeline runs by terminal state",
		},
		[]string{"tenant_id", "state"},
	)

	// DocumentsIngestedTotal tracks ingestion outcomes.
	DocumentsIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "documents_ingested_total",
			Help: "Document ingestion runs by outcome",
		},
		[]string{"tenant_id", "status"},
	)

	// ChunksIndexedTotal tracks chunks written to the vector index.
	ChunksIndexedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chunks_indexed_total",
			Help: "Chunks embedded and upserted to the vector index",
		},
		[]string{"tenant_id"},
	)

	// EscalationsTotal tracks rule-triggered escalations.
	EscalationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escalations_total",
			Help: "Sessions escalated to human agents",
		},
		[]string{"tenant_id", "rule_id"},
	)

	// MessagesTotal tracks total messages persisted.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total messages persisted",
		},
		[]string{"tenant_id", "role"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordModelRequest records metrics for a completed chat call.
func RecordModelRequest(provider, model, status string, duration float64, promptTokens, completionTokens int, cost float64) {
	ModelRequestDuration.WithLabelValues(provider, model, status).Observe(duration)
	ModelTokensTotal.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	ModelTokensTotal.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	ModelCostTotal.WithLabelValues(provider, model).Add(cost)
}
