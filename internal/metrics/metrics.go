// Package metrics wires github.com/prometheus/client_golang (SPEC_FULL.md
// §3.6) into counters and histograms for NLOP steps, embedding requests,
// chunk write failures, and pipeline stage latencies. Grounded on
// pkg/observability/metrics.go's CounterVec/HistogramVec-per-concern
// shape and its promhttp.HandlerFor exposition, narrowed to the four
// concerns SPEC_FULL.md names — this module carries no agent/session/HTTP
// metrics since nothing in SPEC_FULL.md's scope produces them.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every counter and histogram this runtime exposes.
type Metrics struct {
	registry *prometheus.Registry

	nlopTotal       *prometheus.CounterVec
	nlopDuration    *prometheus.HistogramVec
	embedRequests   *prometheus.CounterVec
	embedDuration   prometheus.Histogram
	chunkWriteFails prometheus.Counter
	stageDuration   *prometheus.HistogramVec
}

// New constructs a Metrics instance registered against a fresh registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.nlopTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mentals",
			Subsystem: "executor",
			Name:      "nlop_total",
			Help:      "Total number of natural-language operation steps executed.",
		},
		[]string{"instruction"},
	)
	m.nlopDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mentals",
			Subsystem: "executor",
			Name:      "nlop_duration_seconds",
			Help:      "Duration of a single NLOP step, including its LLM call.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"instruction"},
	)
	m.embedRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mentals",
			Subsystem: "memory",
			Name:      "embed_requests_total",
			Help:      "Total embedding requests issued by the Memory Controller, by outcome.",
		},
		[]string{"outcome"},
	)
	m.embedDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mentals",
			Subsystem: "memory",
			Name:      "embed_duration_seconds",
			Help:      "Duration of a single embedding request.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	m.chunkWriteFails = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mentals",
			Subsystem: "memory",
			Name:      "chunk_write_failures_total",
			Help:      "Chunks that failed embedding or vector-store write during write_chunks.",
		},
	)
	m.stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mentals",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of a single Pipeline Runtime stage.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	m.registry.MustRegister(
		m.nlopTotal, m.nlopDuration,
		m.embedRequests, m.embedDuration,
		m.chunkWriteFails,
		m.stageDuration,
	)
	return m
}

// RecordNLOP records one NLOP step's duration against instruction.
func (m *Metrics) RecordNLOP(instruction string, duration time.Duration) {
	m.nlopTotal.WithLabelValues(instruction).Inc()
	m.nlopDuration.WithLabelValues(instruction).Observe(duration.Seconds())
}

// RecordEmbedRequest records one embedding request's outcome and duration.
func (m *Metrics) RecordEmbedRequest(outcome string, duration time.Duration) {
	m.embedRequests.WithLabelValues(outcome).Inc()
	m.embedDuration.Observe(duration.Seconds())
}

// IncChunkWriteFailure records one chunk failing embedding or storage
// during write_chunks.
func (m *Metrics) IncChunkWriteFailure() {
	m.chunkWriteFails.Inc()
}

// RecordStageDuration records one Pipeline Runtime stage's duration.
func (m *Metrics) RecordStageDuration(stage string, duration time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// Handler exposes the registered metrics in Prometheus text format,
// served by the CLI's optional --metrics-addr flag.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
