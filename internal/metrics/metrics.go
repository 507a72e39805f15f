// Package metrics records pipeline counters in a per-run Prometheus registry.
//
// adanalyst is a one-shot command, so nothing scrapes it. The registry is
// written once at the end of a run in the node_exporter textfile format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Attempt results recorded by the cascade.
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

// Metrics holds the collectors for one run. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Model cascade
	AttemptsTotal   *prometheus.CounterVec
	AttemptDuration *prometheus.HistogramVec
	ExhaustedTotal  prometheus.Counter

	// Response validation
	ValidationFallbackTotal prometheus.Counter

	// Structured extraction
	ExtractionsTotal *prometheus.CounterVec

	// Pipeline stages
	StagesTotal   *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
}

// New creates and registers the collectors on a fresh registry.
//
// Metrics:
//   - adanalyst_llm_attempts_total{model,result} - model attempts by outcome
//   - adanalyst_llm_attempt_duration_seconds{model} - completion latency
//   - adanalyst_llm_cascade_exhausted_total - cascades that returned the sentinel
//   - adanalyst_validation_fallback_total - validations decided by length only
//   - adanalyst_extractions_total{strategy} - extraction results by strategy
//   - adanalyst_stage_runs_total{stage,status} - stage outcomes
//   - adanalyst_stage_duration_seconds{stage} - stage latency
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		AttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adanalyst_llm_attempts_total",
				Help: "Total number of model attempts by result",
			},
			[]string{"model", "result"},
		),
		AttemptDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "adanalyst_llm_attempt_duration_seconds",
				Help:    "Duration of a single model attempt in seconds",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 9), // 250ms to ~64s
			},
			[]string{"model"},
		),
		ExhaustedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "adanalyst_llm_cascade_exhausted_total",
				Help: "Total number of cascades where no model produced an accepted response",
			},
		),
		ValidationFallbackTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "adanalyst_validation_fallback_total",
				Help: "Total number of validations decided by the length rule because embedding failed",
			},
		),
		ExtractionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adanalyst_extractions_total",
				Help: "Total number of structured extractions by winning strategy",
			},
			[]string{"strategy"},
		),
		StagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adanalyst_stage_runs_total",
				Help: "Total number of pipeline stage executions by status",
			},
			[]string{"stage", "status"},
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "adanalyst_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8), // 10ms to ~164s
			},
			[]string{"stage"},
		),
	}
}

// RecordAttempt records one model attempt.
func (m *Metrics) RecordAttempt(model, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.AttemptsTotal.WithLabelValues(model, result).Inc()
	m.AttemptDuration.WithLabelValues(model).Observe(d.Seconds())
}

// RecordExhausted records a cascade that fell through to the sentinel.
func (m *Metrics) RecordExhausted() {
	if m == nil {
		return
	}
	m.ExhaustedTotal.Inc()
}

// RecordValidationFallback records a length-only validation decision.
func (m *Metrics) RecordValidationFallback() {
	if m == nil {
		return
	}
	m.ValidationFallbackTotal.Inc()
}

// RecordExtraction records which extraction strategy produced a result.
func (m *Metrics) RecordExtraction(strategy string) {
	if m == nil {
		return
	}
	m.ExtractionsTotal.WithLabelValues(strategy).Inc()
}

// RecordStage records a finished stage.
func (m *Metrics) RecordStage(stage, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.StagesTotal.WithLabelValues(stage, status).Inc()
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// Gatherer exposes the registry for tests and exporters.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// WriteTextfile writes the registry to path, creating parent directories.
// The write is atomic: a temp file is renamed into place.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
