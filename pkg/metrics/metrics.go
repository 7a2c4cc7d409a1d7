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
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "route", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// ProviderRequestDuration tracks calls to the remote AI provider.
	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_request_duration_seconds",
			Help:    "AI provider request duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"op", "status"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// MessagesTotal tracks persisted chat messages.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Total chat messages persisted",
		},
		[]string{"emitter"},
	)

	// ChatsTotal tracks chat sessions created.
	ChatsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chats_total",
			Help: "Total chat sessions created",
		},
	)

	// DocumentsTotal tracks document uploads by outcome.
	DocumentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "documents_uploaded_total",
			Help: "Total document uploads",
		},
		[]string{"status"},
	)

	// CollectionsTotal tracks remote collections created or deleted.
	CollectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collections_total",
			Help: "Remote collection lifecycle operations",
		},
		[]string{"op"},
	)

	// RephraseFallbacks counts greetings persisted without rephrasing.
	RephraseFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rephrase_fallbacks_total",
			Help: "Greetings persisted un-rephrased after a provider failure",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, route, status string, duration float64) {
	RequestDuration.WithLabelValues(method, route, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, route, status).Inc()
}

// RecordProviderCall records metrics for one provider round trip.
func RecordProviderCall(op, status string, duration float64) {
	ProviderRequestDuration.WithLabelValues(op, status).Observe(duration)
}

// RecordCompletion records token usage for a completion.
func RecordCompletion(model string, tokensIn, tokensOut int) {
	LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
}
