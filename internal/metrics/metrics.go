// Package metrics exposes Prometheus instrumentation for the verification
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VerificationsTotal counts completed verifications by recommendation.
	VerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shrike",
		Name:      "verifications_total",
		Help:      "Total number of completed post verifications.",
	}, []string{"recommendation", "passed"})

	// DetectionDuration observes end-to-end detection latency.
	DetectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "shrike",
		Name:      "detection_duration_seconds",
		Help:      "Time spent running the four-signal fraud detection.",
		Buckets:   prometheus.DefBuckets,
	})

	// FraudFlagsTotal counts fraud flags raised by signal.
	FraudFlagsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shrike",
		Name:      "fraud_flags_total",
		Help:      "Total number of fraud flags raised, by signal.",
	}, []string{"signal"})

	// CacheHitsTotal counts report memoization hits.
	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shrike",
		Name:      "report_cache_hits_total",
		Help:      "Total number of report cache hits.",
	})

	// RuleEvaluationsTotal counts operator rule evaluations by outcome.
	RuleEvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shrike",
		Name:      "rule_evaluations_total",
		Help:      "Total number of operator rule evaluations, by outcome.",
	}, []string{"outcome"})
)

// ObserveVerification records a completed verification.
func ObserveVerification(recommendation string, passed bool, durationSeconds float64) {
	passedLabel := "false"
	if passed {
		passedLabel = "true"
	}
	VerificationsTotal.WithLabelValues(recommendation, passedLabel).Inc()
	DetectionDuration.Observe(durationSeconds)
}
