// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SubmissionsTotal counts PlaceOrder calls by result
	// (accepted, rejected, queue_error).
	SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_submissions_total",
		Help: "Order submissions by result.",
	}, []string{"result"})

	// JobsProcessedTotal counts worker outcomes
	// (completed, insufficient_stock, user_not_found, products_not_found,
	// duplicate, malformed, error).
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_jobs_processed_total",
		Help: "Processed order jobs by outcome.",
	}, []string{"outcome"})

	// DeadLettersTotal counts messages forwarded to the dead-letter topic.
	DeadLettersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_dead_letters_total",
		Help: "Messages forwarded to the dead-letter topic.",
	})

	// ProcessingDuration observes end-to-end job processing time.
	ProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_processing_duration_seconds",
		Help:    "Time spent processing one order job.",
		Buckets: prometheus.DefBuckets,
	})
)
