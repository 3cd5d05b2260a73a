package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for monitoring
var (
	CallsComposed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "starkmarket_calls_composed_total",
		Help: "The total number of contract calls composed by action",
	}, []string{"action"})

	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "starkmarket_submissions_total",
		Help: "The total number of multi-call submissions by action and status",
	}, []string{"action", "status"})

	SubmissionTime = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "starkmarket_submission_seconds",
		Help:    "Time taken for the execution service to accept a multi-call",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // Start at 250ms with 10 buckets doubling in size
	}, []string{"action"})

	EncodingErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "starkmarket_encoding_errors_total",
		Help: "Total number of actions rejected before submission because of malformed parameters",
	}, []string{"action"})

	CircuitOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "starkmarket_circuit_open",
		Help: "1 when the submission circuit breaker is open",
	})
)
