package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/reckless-court/internal/court"
	"github.com/tphakala/reckless-court/internal/errors"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	m, err := NewMetrics()
	require.NoError(t, err)
	return m
}

func TestCourtOutcomes(t *testing.T) {
	m := newTestMetrics(t)

	m.Court.RecordOutcome("save", court.OutcomeUnconfirmed)
	m.Court.RecordOutcome("save", court.OutcomeUnconfirmed)
	m.Court.RecordOutcome("submit", court.OutcomeConfirmed)

	assert.Equal(t, 2, testutil.CollectAndCount(m.Court, "court_write_outcomes_total"))

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	got := counterValue(t, families, "court_write_outcomes_total", map[string]string{"operation": "save", "outcome": "unconfirmed"})
	assert.InDelta(t, 2, got, 0)
}

func TestRemoteMetrics(t *testing.T) {
	m := newTestMetrics(t)

	m.Remote.ObserveRequest("getSubmissions", "success", 120*time.Millisecond)
	m.Remote.ObserveRequest("updateJudgments", "transport_error", time.Second)
	m.Remote.ObserveCache(true)
	m.Remote.ObserveCache(false)
	m.Remote.ObserveCache(true)
	m.Remote.ObserveStatus("2xx")
	m.Remote.ObserveStatus("5xx")

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	assert.InDelta(t, 2, counterValue(t, families, "remote_cache_lookups_total", map[string]string{"result": "hit"}), 0)
	assert.InDelta(t, 1, counterValue(t, families, "remote_requests_total", map[string]string{"action": "updateJudgments", "result": "transport_error"}), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(m.Remote, "remote_request_duration_seconds"))
	assert.InDelta(t, 1, counterValue(t, families, "remote_http_responses_total", map[string]string{"class": "5xx"}), 0)
}

func TestCountErrors(t *testing.T) {
	t.Cleanup(errors.ClearErrorHooks)
	m := newTestMetrics(t)
	m.CountErrors()

	_ = errors.Newf("boom").Component("remote").Category(errors.CategoryNetwork).Build()
	_ = errors.ValidationError("bad input")

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	assert.InDelta(t, 1, counterValue(t, families, "court_errors_total", map[string]string{"component": "remote", "category": "network"}), 0)
}

func TestHandlerExposition(t *testing.T) {
	m := newTestMetrics(t)
	m.HTTP.RecordHTTPRequest(http.MethodGet, "/api/v1/stats", http.StatusOK, 0.01)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `http_requests_total{method="GET",path="/api/v1/stats",status_code="200"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

// counterValue finds the counter sample with exactly the given labels
func counterValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if matchLabels(metric.GetLabel(), labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func matchLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	if len(pairs) != len(want) {
		return false
	}
	for _, p := range pairs {
		if want[p.GetName()] != p.GetValue() {
			return false
		}
	}
	return true
}
