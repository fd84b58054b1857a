// Package metrics exports pipeline metrics in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "legal_explainer"

// Exporter owns a private registry. All methods are safe on a nil receiver.
type Exporter struct {
	registry *prometheus.Registry

	analyses           *prometheus.CounterVec
	intakeRejections   *prometheus.CounterVec
	extractionFailures *prometheus.CounterVec
	analysisDuration   prometheus.Histogram
	extractedChars     prometheus.Histogram
	narrations         prometheus.Counter
}

// Config configures the exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for the analysis duration histogram (in seconds)
	DurationBuckets []float64
}

func DefaultConfig() Config {
	return Config{
		DurationBuckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	}
}

func NewExporter(cfg Config) *Exporter {
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = DefaultConfig().DurationBuckets
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &Exporter{registry: registry}

	e.analyses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Total number of summarization calls by terminal outcome",
		},
		[]string{"outcome"},
	)

	e.intakeRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intake_rejections_total",
			Help:      "Total number of rejected uploads",
		},
		[]string{"reason"},
	)

	e.extractionFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_failures_total",
			Help:      "Total number of PDFs whose text could not be extracted",
		},
		[]string{"kind"},
	)

	e.analysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Wall time of the full extract and summarize pipeline",
			Buckets:   cfg.DurationBuckets,
		},
	)

	e.extractedChars = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extracted_characters",
			Help:      "Characters of text extracted per document",
			Buckets:   prometheus.ExponentialBuckets(1000, 4, 8),
		},
	)

	e.narrations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "narrations_total",
			Help:      "Total number of utterances dispatched to the speech engine",
		},
	)

	registry.MustRegister(
		e.analyses,
		e.intakeRejections,
		e.extractionFailures,
		e.analysisDuration,
		e.extractedChars,
		e.narrations,
	)

	return e
}

func (e *Exporter) RecordAnalysis(outcome string, elapsed time.Duration) {
	if e == nil {
		return
	}
	e.analyses.WithLabelValues(outcome).Inc()
	e.analysisDuration.Observe(elapsed.Seconds())
}

func (e *Exporter) RecordRejection(reason string) {
	if e == nil {
		return
	}
	e.intakeRejections.WithLabelValues(reason).Inc()
}

func (e *Exporter) RecordExtractionFailure(kind string) {
	if e == nil {
		return
	}
	e.extractionFailures.WithLabelValues(kind).Inc()
}

func (e *Exporter) RecordExtracted(chars int) {
	if e == nil {
		return
	}
	e.extractedChars.Observe(float64(chars))
}

func (e *Exporter) RecordNarration() {
	if e == nil {
		return
	}
	e.narrations.Inc()
}

// Handler returns the HTTP handler for the metrics endpoint.
func (e *Exporter) Handler() http.Handler {
	if e == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

func (e *Exporter) Registry() *prometheus.Registry {
	if e == nil {
		return nil
	}
	return e.registry
}
