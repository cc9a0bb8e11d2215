package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/reckless-court/internal/conf"
	"github.com/tphakala/reckless-court/internal/court"
	"github.com/tphakala/reckless-court/internal/datastore"
	"github.com/tphakala/reckless-court/internal/logger"
	"github.com/tphakala/reckless-court/internal/observability"
)

func newTestServer(t *testing.T, opts ...ServerOption) *Server {
	t.Helper()
	quiet := logger.NewSlogLogger(nil, logger.LogLevelError, nil)
	ct, err := court.New(nil, datastore.NewMemoryStore(), court.WithLogger(quiet))
	require.NoError(t, err)
	_, err = ct.Init(t.Context())
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	s, err := New(cfg, ct, opts...)
	require.NoError(t, err)
	return s
}

func TestConfigFromSettings(t *testing.T) {
	settings := &conf.Settings{}
	settings.WebServer.Host = "0.0.0.0"
	settings.WebServer.Port = 9090
	settings.WebServer.BodyLimit = "2M"
	settings.WebServer.CORSOrigins = []string{"https://court.example"}

	cfg := ConfigFromSettings(settings)
	assert.Equal(t, "0.0.0.0:9090", cfg.Address())
	assert.Equal(t, "2M", cfg.BodyLimit)
	assert.Equal(t, []string{"https://court.example"}, cfg.AllowedOrigins)
	assert.Equal(t, DefaultReadTimeout, cfg.ReadTimeout)
	require.NoError(t, cfg.Validate())

	cfg.Port = 70000
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.ReadTimeout = 0
	assert.Error(t, cfg.Validate())
}

func TestHealthAndRequestID(t *testing.T) {
	s := newTestServer(t, WithVersion("1.2.3"))

	req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "1.2.3", body["version"])
	assert.Equal(t, false, body["remote"])
}

func TestMetricsEndpoint(t *testing.T) {
	m, err := observability.NewMetrics()
	require.NoError(t, err)
	s := newTestServer(t, WithMetrics(m))

	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",path="/api/v1/stats",status_code="200"} 1`)
}

func TestBodyLimit(t *testing.T) {
	s := newTestServer(t)

	body := `{"name":"` + strings.Repeat("a", 2<<20) + `","message":"x","type":"kev-coin"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestStartAndShutdown(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool { return s.ListenerAddr() != nil }, 2*time.Second, 10*time.Millisecond)

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + s.ListenerAddr().String() + "/health")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
