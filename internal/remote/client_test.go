package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/reckless-court/internal/court"
	"github.com/tphakala/reckless-court/internal/errors"
	"github.com/tphakala/reckless-court/internal/httpclient"
)

const testScriptURL = "https://script.example.com/macros/s/abc/exec"

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type recordingMetrics struct {
	mu       sync.Mutex
	requests []string
	statuses []string
	hits     int
	misses   int
}

func (m *recordingMetrics) ObserveRequest(action, result string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, action+"="+result)
}

func (m *recordingMetrics) ObserveStatus(class string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, class)
}

func (m *recordingMetrics) ObserveCache(hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

// newMockedClient creates a ScriptClient whose transport is intercepted by httpmock
func newMockedClient(t *testing.T, mutate ...func(*Config)) (*ScriptClient, *recordingMetrics) {
	t.Helper()
	hc := httpclient.New(&httpclient.Config{DefaultTimeout: 5 * time.Second})
	httpmock.ActivateNonDefault(hc.HTTPClient())
	t.Cleanup(httpmock.DeactivateAndReset)

	metrics := &recordingMetrics{}
	cfg := Config{
		ScriptURL:  testScriptURL,
		HTTPClient: hc,
		Metrics:    metrics,
		Now:        func() time.Time { return testNow },
	}
	for _, fn := range mutate {
		fn(&cfg)
	}
	c, err := NewScriptClient(cfg)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c, metrics
}

// decodeRequest reads a POST body sent to the script
func decodeRequest(t *testing.T, req *http.Request) (string, json.RawMessage) {
	t.Helper()
	body, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	var envelope struct {
		Action string          `json:"action"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope))
	return envelope.Action, envelope.Data
}

func submissionsResponder(body string) httpmock.Responder {
	return httpmock.NewStringResponder(http.StatusOK, body).HeaderSet(http.Header{"Content-Type": {"application/json"}})
}

func TestNewScriptClient_InvalidURL(t *testing.T) {
	for _, raw := range []string{"", "not a url", "ftp://example.com/x", "https://"} {
		_, err := NewScriptClient(Config{ScriptURL: raw})
		require.Error(t, err, raw)
		assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
	}
}

func TestGetSubmissions_MapsRows(t *testing.T) {
	c, _ := newMockedClient(t)
	httpmock.RegisterResponderWithQuery(http.MethodGet, testScriptURL, "action=getSubmissions",
		submissionsResponder(`{"success":true,"submissions":[
			{"id":1,"name":"Ann","message":"m","type":"kev-coin","date":"2024-02-01T10:00:00.000Z","judgment":"safe","sentence":""},
			{"id":"","name":"Bob","message":42,"type":"hate-coin","date":"","judgment":"","sentence":null},
			{"id":"7","name":"Cy","message":"x","type":"court-case","date":"garbage","judgment":"sentenced","sentence":"Sing"}
		]}`))

	subs, err := c.GetSubmissions(t.Context())
	require.NoError(t, err)
	require.Len(t, subs, 3)

	assert.Equal(t, 1, subs[0].ID)
	assert.Equal(t, court.JudgmentSafe, subs[0].Judgment)
	assert.Equal(t, time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC), subs[0].Date)

	assert.Equal(t, 2, subs[1].ID, "missing id falls back to position")
	assert.Equal(t, "42", subs[1].Message)
	assert.Equal(t, court.JudgmentPending, subs[1].Judgment)
	assert.Empty(t, subs[1].Sentence)
	assert.Equal(t, testNow, subs[1].Date)

	assert.Equal(t, 7, subs[2].ID)
	assert.Equal(t, "Sing", subs[2].Sentence)
	assert.Equal(t, testNow, subs[2].Date)
}

func TestGetSubmissions_CacheAndFreshRead(t *testing.T) {
	c, metrics := newMockedClient(t, func(cfg *Config) { cfg.CacheTTL = time.Minute })
	httpmock.RegisterResponderWithQuery(http.MethodGet, testScriptURL, "action=getSubmissions",
		submissionsResponder(`{"success":true,"submissions":[{"id":1,"name":"Ann","type":"kev-coin"}]}`))

	_, err := c.GetSubmissions(t.Context())
	require.NoError(t, err)
	subs, err := c.GetSubmissions(t.Context())
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, 1, httpmock.GetTotalCallCount(), "second read served from cache")

	subs[0].Name = "mutated"
	again, err := c.GetSubmissions(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "Ann", again[0].Name, "cached slice is not shared with callers")

	_, err = c.GetSubmissions(court.WithFreshRead(t.Context()))
	require.NoError(t, err)
	assert.Equal(t, 2, httpmock.GetTotalCallCount(), "fresh read bypasses cache")

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	assert.Equal(t, 2, metrics.hits)
	assert.Equal(t, 1, metrics.misses)
}

func TestWritesInvalidateCache(t *testing.T) {
	c, _ := newMockedClient(t, func(cfg *Config) { cfg.CacheTTL = time.Minute })
	httpmock.RegisterResponderWithQuery(http.MethodGet, testScriptURL, "action=getSubmissions",
		submissionsResponder(`{"success":true,"submissions":[]}`))
	httpmock.RegisterResponder(http.MethodPost, testScriptURL,
		httpmock.NewStringResponder(http.StatusOK, `{"success":true}`))

	_, err := c.GetSubmissions(t.Context())
	require.NoError(t, err)
	require.NoError(t, c.UpdateJudgmentToFree(t.Context(), 3))
	_, err = c.GetSubmissions(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 3, httpmock.GetTotalCallCount(), "read after a write goes to the script")
}

// blockingResponder answers like submissionsResponder once release is closed,
// and closes started when the first request arrives.
func blockingResponder(body string, started, release chan struct{}) httpmock.Responder {
	var once sync.Once
	return func(*http.Request) (*http.Response, error) {
		once.Do(func() { close(started) })
		<-release
		return httpmock.NewStringResponse(http.StatusOK, body), nil
	}
}

func TestGetSubmissions_CallerCancelDoesNotAbortSharedRead(t *testing.T) {
	c, _ := newMockedClient(t, func(cfg *Config) { cfg.CacheTTL = time.Minute })
	started, release := make(chan struct{}), make(chan struct{})
	httpmock.RegisterResponderWithQuery(http.MethodGet, testScriptURL, "action=getSubmissions",
		blockingResponder(`{"success":true,"submissions":[{"id":1,"name":"Ann","type":"kev-coin"}]}`, started, release))

	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() {
		_, err := c.GetSubmissions(ctx)
		errCh <- err
	}()

	<-started
	cancel()
	err := <-errCh
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	require.Eventually(t, func() bool {
		subs, err := c.GetSubmissions(t.Context())
		return err == nil && len(subs) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, httpmock.GetTotalCallCount(), "the abandoned read still completed and filled the cache")
}

func TestGetSubmissions_ReadOverlappingWriteIsNotCached(t *testing.T) {
	c, _ := newMockedClient(t, func(cfg *Config) { cfg.CacheTTL = time.Minute })
	started, release := make(chan struct{}), make(chan struct{})
	httpmock.RegisterResponderWithQuery(http.MethodGet, testScriptURL, "action=getSubmissions",
		blockingResponder(`{"success":true,"submissions":[{"id":3,"name":"Cid","type":"kev-coin","judgment":"sentenced"}]}`, started, release))
	httpmock.RegisterResponder(http.MethodPost, testScriptURL,
		httpmock.NewStringResponder(http.StatusOK, `{"success":true}`))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.GetSubmissions(t.Context())
	}()

	<-started
	require.NoError(t, c.UpdateJudgmentToFree(t.Context(), 3))
	close(release)
	<-done

	_, err := c.GetSubmissions(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, httpmock.GetTotalCallCount(), "rows read before the write are not served from cache")
}

func TestStatusClassHook(t *testing.T) {
	c, metrics := newMockedClient(t)
	httpmock.RegisterResponderWithQuery(http.MethodGet, testScriptURL, "action=getSubmissions",
		submissionsResponder(`{"success":true,"submissions":[]}`))
	httpmock.RegisterResponder(http.MethodPost, testScriptURL,
		httpmock.NewStringResponder(http.StatusInternalServerError, `oops`))

	_, err := c.GetSubmissions(t.Context())
	require.NoError(t, err)
	require.Error(t, c.UpdateJudgmentToFree(t.Context(), 1))

	httpmock.RegisterResponder(http.MethodPost, testScriptURL, httpmock.ConnectionFailure)
	require.Error(t, c.UpdateJudgmentToFree(t.Context(), 1))

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	assert.Equal(t, []string{"2xx", "5xx", "error"}, metrics.statuses)
}

func TestAddSubmission(t *testing.T) {
	c, metrics := newMockedClient(t)
	httpmock.RegisterResponder(http.MethodPost, testScriptURL, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		action, data := decodeRequest(t, req)
		assert.Equal(t, ActionAddSubmission, action)

		var payload NewSubmissionData
		require.NoError(t, json.Unmarshal(data, &payload))
		assert.Equal(t, NewSubmissionData{Name: "Ann", Message: "hello", Type: "kev-coin", Date: "2024-03-01T12:00:00.000Z"}, payload)
		return httpmock.NewStringResponse(http.StatusOK, `{"success":true,"id":12}`), nil
	})

	id, err := c.AddSubmission(t.Context(), court.NewSubmission{
		Name: "Ann", Message: "hello", Type: court.TypeKevCoin, Date: testNow,
	})
	require.NoError(t, err)
	assert.Equal(t, 12, id)
	assert.Equal(t, []string{"addSubmission=success"}, metrics.requests)
}

func TestUpdateJudgments(t *testing.T) {
	c, _ := newMockedClient(t)
	httpmock.RegisterResponder(http.MethodPost, testScriptURL, func(req *http.Request) (*http.Response, error) {
		action, data := decodeRequest(t, req)
		assert.Equal(t, ActionUpdateJudgments, action)
		assert.JSONEq(t, `[{"id":1,"judgment":"safe"},{"id":2,"judgment":"reckless"}]`, string(data))
		return httpmock.NewStringResponse(http.StatusOK, `{"success":true,"updatedCount":2}`), nil
	})

	n, err := c.UpdateJudgments(t.Context(), []court.JudgmentChange{
		{ID: 1, Judgment: court.JudgmentSafe},
		{ID: 2, Judgment: court.JudgmentReckless},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestUpdateJudgmentWithSentence(t *testing.T) {
	c, _ := newMockedClient(t)
	httpmock.RegisterResponder(http.MethodPost, testScriptURL, func(req *http.Request) (*http.Response, error) {
		action, data := decodeRequest(t, req)
		assert.Equal(t, ActionUpdateJudgmentWithSentence, action)
		assert.JSONEq(t, `{"id":4,"judgment":"sentenced","sentence":"Sing karaoke"}`, string(data))
		return httpmock.NewStringResponse(http.StatusOK, `{"success":true}`), nil
	})

	require.NoError(t, c.UpdateJudgmentWithSentence(t.Context(), 4, court.JudgmentSentenced, "Sing karaoke"))
}

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name      string
		responder httpmock.Responder
		sentinel  error
		category  errors.ErrorCategory
		result    string
	}{
		{
			name:      "application_failure",
			responder: httpmock.NewStringResponder(http.StatusOK, `{"success":false,"error":"Sheet not found"}`),
			sentinel:  ErrApplication,
			category:  errors.CategoryIntegration,
			result:    "app_error",
		},
		{
			name:      "invalid_action_reply",
			responder: httpmock.NewStringResponder(http.StatusOK, `{"error":"Invalid action"}`),
			sentinel:  ErrApplication,
			category:  errors.CategoryIntegration,
			result:    "app_error",
		},
		{
			name:      "html_login_page",
			responder: httpmock.NewStringResponder(http.StatusOK, `<html>Sign in</html>`),
			sentinel:  ErrApplication,
			category:  errors.CategoryIntegration,
			result:    "decode_error",
		},
		{
			name:      "server_error",
			responder: httpmock.NewStringResponder(http.StatusInternalServerError, `oops`),
			sentinel:  ErrTransport,
			category:  errors.CategoryNetwork,
			result:    "http_error",
		},
		{
			name:      "connection_failure",
			responder: httpmock.ConnectionFailure,
			sentinel:  ErrTransport,
			category:  errors.CategoryNetwork,
			result:    "transport_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, metrics := newMockedClient(t)
			httpmock.RegisterResponder(http.MethodPost, testScriptURL, tt.responder)

			_, err := c.UpdateJudgments(t.Context(), []court.JudgmentChange{{ID: 1, Judgment: court.JudgmentSafe}})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.True(t, errors.IsCategory(err, tt.category), "category %s", errors.CategoryOf(err))
			assert.Equal(t, []string{"updateJudgments=" + tt.result}, metrics.requests)
		})
	}
}

func TestApplicationErrorMessage(t *testing.T) {
	c, _ := newMockedClient(t)
	httpmock.RegisterResponder(http.MethodPost, testScriptURL,
		httpmock.NewStringResponder(http.StatusOK, `{"success":false,"error":"ID not found"}`))

	err := c.UpdateJudgmentToFree(t.Context(), 99)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ID not found")
}

func TestSendJudgments(t *testing.T) {
	t.Run("ignores_response", func(t *testing.T) {
		c, metrics := newMockedClient(t)
		httpmock.RegisterResponder(http.MethodPost, testScriptURL, func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "text/plain;charset=utf-8", req.Header.Get("Content-Type"))
			action, _ := decodeRequest(t, req)
			assert.Equal(t, ActionUpdateJudgments, action)
			return httpmock.NewStringResponse(http.StatusInternalServerError, `{"success":false}`), nil
		})

		err := c.SendJudgments(t.Context(), []court.JudgmentChange{{ID: 1, Judgment: court.JudgmentSafe}})
		require.NoError(t, err)
		assert.Equal(t, []string{"updateJudgments:send=sent"}, metrics.requests)
	})

	t.Run("transport_failure", func(t *testing.T) {
		c, _ := newMockedClient(t)
		httpmock.RegisterResponder(http.MethodPost, testScriptURL, httpmock.ConnectionFailure)

		err := c.SendJudgments(t.Context(), []court.JudgmentChange{{ID: 1, Judgment: court.JudgmentSafe}})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTransport)
	})
}

func TestRateLimiterHonoursContext(t *testing.T) {
	c, _ := newMockedClient(t, func(cfg *Config) { cfg.RateLimit = 0.001 })
	httpmock.RegisterResponder(http.MethodPost, testScriptURL,
		httpmock.NewStringResponder(http.StatusOK, `{"success":true}`))

	// The first request consumes the only token
	require.NoError(t, c.UpdateJudgmentToFree(t.Context(), 1))

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	err := c.UpdateJudgmentToFree(ctx, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestTransportErrorRedactsDeploymentID(t *testing.T) {
	const deployed = "https://script.example.com/macros/s/AKfycbxSECRET/exec"
	c, _ := newMockedClient(t, func(cfg *Config) { cfg.ScriptURL = deployed })
	httpmock.RegisterResponder(http.MethodPost, deployed, httpmock.ConnectionFailure)

	_, err := c.UpdateJudgments(t.Context(), []court.JudgmentChange{{ID: 1, Judgment: court.JudgmentSafe}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.NotContains(t, err.Error(), "AKfycbxSECRET")
	assert.Contains(t, err.Error(), "AKfy***")
}
