// Package metrics provides Prometheus metrics for audit runs.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/custodia-labs/ecaudit/internal/core/domain"
	"github.com/custodia-labs/ecaudit/internal/core/ports/driven"
)

// Ensure Metrics implements the interface.
var _ driven.MetricsRecorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for ecaudit.
// Each instance owns its registry, so runs in one process do not collide.
type Metrics struct {
	registry *prometheus.Registry

	// Per-schema metrics
	StageResults       *prometheus.CounterVec
	StageDuration      *prometheus.HistogramVec
	SchemasAudited     prometheus.Counter
	ResolutionFailures prometheus.Counter
	ChecksumExceptions prometheus.Counter

	// Run metrics
	RunsTotal      *prometheus.CounterVec
	LastRunPassed  prometheus.Gauge
	LastRunSchemas prometheus.Gauge
}

// NewMetrics creates and registers all metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	m := &Metrics{registry: reg}

	m.StageResults = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecaudit_stage_results_total",
			Help: "Audit stage outcomes by stage and result",
		},
		[]string{"stage", "result"},
	)

	m.StageDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ecaudit_stage_duration_seconds",
			Help:    "Duration of audit stages in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"stage"},
	)

	m.SchemasAudited = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "ecaudit_schemas_audited_total",
			Help: "Total number of schemas audited",
		},
	)

	m.ResolutionFailures = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "ecaudit_resolution_failures_total",
			Help: "Schemas whose reference graph could not be resolved",
		},
	)

	m.ChecksumExceptions = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "ecaudit_checksum_exceptions_total",
			Help: "Checksums that passed only through the baseline",
		},
	)

	m.RunsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecaudit_runs_total",
			Help: "Total number of audit runs by verdict",
		},
		[]string{"verdict"},
	)

	m.LastRunPassed = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "ecaudit_last_run_passed",
			Help: "1 if the last run passed, 0 otherwise",
		},
	)

	m.LastRunSchemas = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "ecaudit_last_run_schemas",
			Help: "Number of schemas in the last run",
		},
	)

	return m
}

// Registry returns the registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRecord counts the settled stages of one record.
func (m *Metrics) ObserveRecord(record *domain.SchemaAuditRecord) {
	m.SchemasAudited.Inc()
	for _, stage := range domain.Stages() {
		if res := record.Result(stage); res.Settled() {
			m.StageResults.WithLabelValues(stage.String(), res.String()).Inc()
		}
	}
	if record.ResolutionError != "" {
		m.ResolutionFailures.Inc()
	}
	if record.ChecksumException {
		m.ChecksumExceptions.Inc()
	}
}

// ObserveStage records how long a stage took.
func (m *Metrics) ObserveStage(stage domain.Stage, elapsed time.Duration) {
	m.StageDuration.WithLabelValues(stage.String()).Observe(elapsed.Seconds())
}

// ObserveRun records the verdict of a finished run.
func (m *Metrics) ObserveRun(summary *domain.AuditSummary) {
	m.RunsTotal.WithLabelValues(string(summary.Verdict)).Inc()
	m.LastRunSchemas.Set(float64(summary.Total))
	if summary.Passed() {
		m.LastRunPassed.Set(1)
	} else {
		m.LastRunPassed.Set(0)
	}
}

// WriteTextfile writes the current values in the text exposition format,
// as read by the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}
