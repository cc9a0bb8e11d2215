package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tphakala/reckless-court/internal/court"
)

// CourtMetrics counts court write outcomes and built errors.
type CourtMetrics struct {
	outcomesTotal *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
}

// NewCourtMetrics creates and registers court metrics.
func NewCourtMetrics(registry *prometheus.Registry) (*CourtMetrics, error) {
	m := &CourtMetrics{
		outcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "court_write_outcomes_total",
				Help: "Court write operations by outcome",
			},
			[]string{"operation", "outcome"}, // operation: submit, save, commit, free; outcome: confirmed, unconfirmed, local, noop
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "court_errors_total",
				Help: "Errors built by component and category",
			},
			[]string{"component", "category"},
		),
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordOutcome implements court.Recorder.
func (m *CourtMetrics) RecordOutcome(operation string, outcome court.Outcome) {
	m.outcomesTotal.WithLabelValues(operation, string(outcome)).Inc()
}

// RecordError counts an error of the given component and category.
func (m *CourtMetrics) RecordError(component, category string) {
	m.errorsTotal.WithLabelValues(component, category).Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *CourtMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.outcomesTotal.Describe(ch)
	m.errorsTotal.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *CourtMetrics) Collect(ch chan<- prometheus.Metric) {
	m.outcomesTotal.Collect(ch)
	m.errorsTotal.Collect(ch)
}

var _ court.Recorder = (*CourtMetrics)(nil)
