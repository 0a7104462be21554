// Package observability provides Prometheus metrics and the health/metrics
// HTTP endpoint.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "leadscan"

// Scan pipeline metrics.
var (
	ScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scans_total",
		Help:      "Scan runs by terminal state.",
	}, []string{"status"})

	ScanMessagesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scan_messages_processed_total",
		Help:      "Messages sent through classification.",
	})

	ScanLeadsFound = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scan_leads_found_total",
		Help:      "Leads that passed the confidence filter and dedup.",
	})

	ScanBatchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scan_batch_errors_total",
		Help:      "Batch-level errors by kind.",
	}, []string{"kind"})
)

// LLM gateway metrics.
var (
	LLMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "llm_requests_total",
		Help:      "LLM completion requests by provider, model and outcome.",
	}, []string{"provider", "model", "status"})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "llm_request_duration_seconds",
		Help:      "LLM completion request latency.",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
	}, []string{"provider", "model"})
)

// Parsing and persistence metrics.
var (
	VerdictsDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "verdicts_discarded_total",
		Help:      "Verdict entries dropped for unknown message IDs.",
	})

	LeadsDeduplicated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "leads_deduplicated_total",
		Help:      "Leads dropped as duplicates of persisted or in-run leads.",
	})

	RowStoreWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rowstore_writes_total",
		Help:      "Row store append calls by outcome.",
	}, []string{"status"})
)
