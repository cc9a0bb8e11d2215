// Package observability wires the Prometheus collectors of the court server.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tphakala/reckless-court/internal/errors"
	"github.com/tphakala/reckless-court/internal/logger"
	"github.com/tphakala/reckless-court/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry
	Court    *metrics.CourtMetrics
	Remote   *metrics.RemoteMetrics
	HTTP     *metrics.HTTPMetrics
}

// NewMetrics creates a new instance of Metrics, initializing all metric collectors.
// It returns an error if any metric collector fails to initialize.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("failed to register Go collector: %w", err)
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("failed to register process collector: %w", err)
	}

	courtMetrics, err := metrics.NewCourtMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create court metrics: %w", err)
	}

	remoteMetrics, err := metrics.NewRemoteMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create remote metrics: %w", err)
	}

	httpMetrics, err := metrics.NewHTTPMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}

	return &Metrics{
		registry: registry,
		Court:    courtMetrics,
		Remote:   remoteMetrics,
		HTTP:     httpMetrics,
	}, nil
}

// Registry returns the registry backing the collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// CountErrors registers an error hook that counts every built error by
// component and category.
func (m *Metrics) CountErrors() {
	errors.AddErrorHook(func(ee *errors.EnhancedError) {
		m.Court.RecordError(ee.GetComponent(), ee.GetCategory())
	})
}

// Handler returns the /metrics exposition handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      promErrorLog{log: logger.Global().Module("metrics")},
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// promErrorLog adapts the module logger to promhttp.Logger
type promErrorLog struct {
	log logger.Logger
}

func (l promErrorLog) Println(v ...any) {
	l.log.Error("metrics handler error", logger.String("error", fmt.Sprint(v...)))
}
