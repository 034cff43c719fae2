package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QuotationTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotation_transitions_total",
			Help: "Quotation status transitions by source and target status.",
		},
		[]string{"from", "to"},
	)

	GeminiRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gemini_requests_total",
			Help: "Generative-AI requests by operation and outcome.",
		},
		[]string{"operation", "status"},
	)

	GeminiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gemini_request_duration_seconds",
			Help:    "Duration of generative-AI requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms → ~25s
		},
		[]string{"operation"},
	)

	AIFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_fallbacks_total",
			Help: "Times a rule-based substitute replaced an AI result.",
		},
		[]string{"component"},
	)

	AuditWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_write_failures_total",
			Help: "Audit entries that could not be written after retries.",
		},
	)

	AuditQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "audit_queue_depth",
			Help: "Audit entries waiting to be written.",
		},
	)

	MirrorPushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_mirror_pushes_total",
			Help: "Debounced inventory pushes to the document store by result.",
		},
		[]string{"result"},
	)

	PriceCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "price_history_cache_lookups_total",
			Help: "Historical price cache lookups by result.",
		},
		[]string{"result"},
	)
)

// ObserveDuration records the time elapsed since start on the given histogram.
func ObserveDuration(h *prometheus.HistogramVec, start time.Time, labels ...string) {
	h.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
}
