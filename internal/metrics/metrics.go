// Package metrics provides Prometheus instrumentation for the alignment pipeline.
//
// Metrics live on a private registry so tests and multiple pipelines in one
// process never collide on registration.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/samuelstevens/arxiv-edits-sub000/internal/models"
)

const namespace = "arxivedits"

// Pass names used as the "pass" label of SentencesAligned.
const (
	PassIdentity  = "identity"
	PassParagraph = "paragraph"
	PassCross     = "cross"
	PassDP        = "dp"
	PassReview    = "review"
)

// Metrics holds the pipeline collectors.
type Metrics struct {
	registry *prometheus.Registry

	// PairsTotal counts processed document pairs.
	// Labels: result (ok, error), class (models.ErrorClass)
	PairsTotal *prometheus.CounterVec

	// SentencesAligned counts sentences resolved per pass.
	// Labels: pass
	SentencesAligned *prometheus.CounterVec

	// ReviewRows counts imported review rows by label.
	// Labels: label (aligned, partial, unaligned)
	ReviewRows *prometheus.CounterVec

	// PairDuration measures end-to-end processing of one pair.
	PairDuration prometheus.Histogram

	// DiffCacheLookups counts diff cache hits and misses.
	// Labels: result (hit, miss)
	DiffCacheLookups *prometheus.CounterVec
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		PairsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "pairs_total",
				Help:      "Document pairs processed by result and error class",
			},
			[]string{"result", "class"},
		),
		SentencesAligned: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "sentences_aligned_total",
				Help:      "Sentences resolved by each alignment pass",
			},
			[]string{"pass"},
		),
		ReviewRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "review",
				Name:      "rows_total",
				Help:      "Manual review rows imported by label",
			},
			[]string{"label"},
		),
		PairDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "pair_duration_seconds",
				Help:      "Time to align one document pair",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
		),
		DiffCacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "diff",
				Name:      "cache_lookups_total",
				Help:      "Diff cache lookups by result",
			},
			[]string{"result"},
		),
	}
	m.registry.MustRegister(m.PairsTotal, m.SentencesAligned, m.ReviewRows, m.PairDuration, m.DiffCacheLookups)
	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordPair records the outcome and duration of one pair.
func (m *Metrics) RecordPair(err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.PairsTotal.WithLabelValues(result, models.ErrorClass(err)).Inc()
	m.PairDuration.Observe(elapsed.Seconds())
}

// RecordAligned adds n resolved sentences for pass.
func (m *Metrics) RecordAligned(pass string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SentencesAligned.WithLabelValues(pass).Add(float64(n))
}

// RecordReview records an import's label counts.
func (m *Metrics) RecordReview(aligned, partial, unaligned int) {
	if m == nil {
		return
	}
	m.ReviewRows.WithLabelValues("aligned").Add(float64(aligned))
	m.ReviewRows.WithLabelValues("partial").Add(float64(partial))
	m.ReviewRows.WithLabelValues("unaligned").Add(float64(unaligned))
}

// RecordCache adds diff cache hit and miss counts.
func (m *Metrics) RecordCache(hits, misses int) {
	if m == nil {
		return
	}
	m.DiffCacheLookups.WithLabelValues("hit").Add(float64(hits))
	m.DiffCacheLookups.WithLabelValues("miss").Add(float64(misses))
}
