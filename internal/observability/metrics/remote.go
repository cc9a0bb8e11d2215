package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RemoteMetrics contains Prometheus metrics for remote store requests
type RemoteMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	responses       *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
}

// NewRemoteMetrics creates and registers remote store metrics
func NewRemoteMetrics(registry *prometheus.Registry) (*RemoteMetrics, error) {
	m := &RemoteMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "remote_requests_total",
				Help: "Total number of remote store requests",
			},
			[]string{"action", "result"}, // result: success, sent, http_error, app_error, decode_error, transport_error
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "remote_request_duration_seconds",
				Help:    "Time taken by remote store requests",
				Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12), // 10ms to ~20s
			},
			[]string{"action"},
		),
		responses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "remote_http_responses_total",
				Help: "HTTP round trips to the remote store by status class",
			},
			[]string{"class"}, // 2xx, 3xx, 4xx, 5xx or error
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "remote_cache_lookups_total",
				Help: "Read cache lookups by result",
			},
			[]string{"result"},
		),
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// ObserveRequest records one remote request
func (m *RemoteMetrics) ObserveRequest(action, result string, d time.Duration) {
	m.requestsTotal.WithLabelValues(action, result).Inc()
	m.requestDuration.WithLabelValues(action).Observe(d.Seconds())
}

// ObserveStatus records the status class of one HTTP round trip
func (m *RemoteMetrics) ObserveStatus(class string) {
	m.responses.WithLabelValues(class).Inc()
}

// ObserveCache records a read cache lookup
func (m *RemoteMetrics) ObserveCache(hit bool) {
	result := CacheMiss
	if hit {
		result = CacheHit
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *RemoteMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.requestsTotal.Describe(ch)
	m.requestDuration.Describe(ch)
	m.responses.Describe(ch)
	m.cacheLookups.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *RemoteMetrics) Collect(ch chan<- prometheus.Metric) {
	m.requestsTotal.Collect(ch)
	m.requestDuration.Collect(ch)
	m.responses.Collect(ch)
	m.cacheLookups.Collect(ch)
}
