// Package remote implements the court.Store contract of the Apps Script web
// app that fronts the submissions sheet.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/tphakala/reckless-court/internal/court"
	"github.com/tphakala/reckless-court/internal/errors"
	"github.com/tphakala/reckless-court/internal/httpclient"
	"github.com/tphakala/reckless-court/internal/logger"
	"github.com/tphakala/reckless-court/internal/privacy"
)

// Sentinels wrapped by every remote failure
var (
	// ErrTransport means the request did not complete or the server answered non-2xx
	ErrTransport = errors.NewStd("remote transport failure")
	// ErrApplication means the script answered but reported success=false
	ErrApplication = errors.NewStd("remote application failure")
)

const (
	submissionsCacheKey = "submissions"
	maxResponseBytes    = 8 << 20
	responsePreviewLen  = 200

	// DefaultTimeout is used when Config.Timeout is zero
	DefaultTimeout = 30 * time.Second
)

// Metrics receives per-request observations
type Metrics interface {
	ObserveRequest(action, result string, d time.Duration)
	// ObserveStatus records the HTTP status class of every round trip
	ObserveStatus(class string)
	ObserveCache(hit bool)
}

type nopMetrics struct{}

func (nopMetrics) ObserveRequest(string, string, time.Duration) {}
func (nopMetrics) ObserveStatus(string)                         {}
func (nopMetrics) ObserveCache(bool)                            {}

// Config holds the script client settings
type Config struct {
	ScriptURL string
	Timeout   time.Duration
	RateLimit float64       // requests per second, 0 disables limiting
	CacheTTL  time.Duration // read cache lifetime, 0 disables caching
	UserAgent string

	// HTTPClient overrides the client built from Timeout and UserAgent
	HTTPClient *httpclient.Client
	Logger     logger.Logger
	Metrics    Metrics
	Now        func() time.Time
}

// ScriptClient talks to the Apps Script web app
type ScriptClient struct {
	scriptURL string
	http      *httpclient.Client
	ownsHTTP  bool
	limiter   *rate.Limiter
	cache     *cache.Cache
	reads     singleflight.Group
	timeout   time.Duration
	writeGen  atomic.Uint64 // bumped by every cache invalidation
	log       logger.Logger
	metrics   Metrics
	now       func() time.Time
}

// NewScriptClient validates cfg and creates a client
func NewScriptClient(cfg Config) (*ScriptClient, error) {
	u, err := url.Parse(cfg.ScriptURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.Newf("invalid script URL %q", cfg.ScriptURL).
			Component("remote").
			Category(errors.CategoryConfiguration).
			Build()
	}

	c := &ScriptClient{
		scriptURL: cfg.ScriptURL,
		http:      cfg.HTTPClient,
		log:       cfg.Logger,
		metrics:   cfg.Metrics,
		now:       cfg.Now,
	}
	c.timeout = cfg.Timeout
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.http == nil {
		c.http = httpclient.New(&httpclient.Config{DefaultTimeout: c.timeout, UserAgent: cfg.UserAgent})
		c.ownsHTTP = true
	}
	if c.log == nil {
		c.log = logger.Global().Module("remote")
	}
	if c.metrics == nil {
		c.metrics = nopMetrics{}
	}
	if c.now == nil {
		c.now = time.Now
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(1, int(cfg.RateLimit)))
	}
	if cfg.CacheTTL > 0 {
		c.cache = cache.New(cfg.CacheTTL, cfg.CacheTTL*2)
	}

	c.http.SetBeforeRequestHook(func(req *http.Request) {
		c.log.Trace("script request",
			logger.String("method", req.Method),
			logger.String("url", privacy.RedactURL(req.URL.String())))
	})
	c.http.SetAfterResponseHook(func(_ *http.Request, resp *http.Response, err error) {
		c.metrics.ObserveStatus(statusClass(resp, err))
	})

	c.log.Info("script client initialized",
		logger.String("url", privacy.RedactURL(cfg.ScriptURL)),
		logger.Bool("rate_limited", c.limiter != nil),
		logger.Duration("cache_ttl", cfg.CacheTTL))
	return c, nil
}

// Close releases idle connections of an owned HTTP client
func (c *ScriptClient) Close() {
	if c.ownsHTTP {
		c.http.Close()
	}
}

// GetSubmissions reads every row. Concurrent callers share one request and
// results are cached for the configured TTL unless ctx asks for a fresh read.
func (c *ScriptClient) GetSubmissions(ctx context.Context) ([]court.Submission, error) {
	fresh := court.FreshRead(ctx)
	if c.cache != nil && !fresh {
		if cached, found := c.cache.Get(submissionsCacheKey); found {
			if subs, ok := cached.([]court.Submission); ok {
				c.metrics.ObserveCache(true)
				return slices.Clone(subs), nil
			}
		}
		c.metrics.ObserveCache(false)
	}

	key := submissionsCacheKey
	if fresh {
		key += ":fresh"
	}
	// The shared read is detached from whichever caller started it; each
	// caller stops waiting when its own ctx ends.
	ch := c.reads.DoChan(key, func() (any, error) {
		readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.fetchSubmissions(readCtx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]court.Submission)), nil
	case <-ctx.Done():
		return nil, errors.New(fmt.Errorf("%w: %s: %w", ErrTransport, ActionGetSubmissions, ctx.Err())).
			Component("remote").
			Category(errors.CategoryCancellation).
			Build()
	}
}

func (c *ScriptClient) fetchSubmissions(ctx context.Context) ([]court.Submission, error) {
	gen := c.writeGen.Load()
	u, _ := url.Parse(c.scriptURL)
	q := u.Query()
	q.Set("action", ActionGetSubmissions)
	u.RawQuery = q.Encode()

	resp, err := c.roundTrip(ctx, ActionGetSubmissions, func(ctx context.Context) (*http.Response, error) {
		return c.http.Get(ctx, u.String())
	})
	if err != nil {
		return nil, err
	}

	now := c.now()
	subs := make([]court.Submission, 0, len(resp.Submissions))
	for i := range resp.Submissions {
		subs = append(subs, resp.Submissions[i].ToSubmission(i, now))
	}

	// a write that landed during the read makes these rows stale
	if c.cache != nil && c.writeGen.Load() == gen {
		c.cache.Set(submissionsCacheKey, subs, cache.DefaultExpiration)
	}
	c.log.Debug("submissions fetched", logger.Int("count", len(subs)))
	return subs, nil
}

// AddSubmission appends a row and returns the id the script assigned
func (c *ScriptClient) AddSubmission(ctx context.Context, sub court.NewSubmission) (int, error) {
	resp, err := c.post(ctx, ActionAddSubmission, NewSubmissionData{
		Name:    sub.Name,
		Message: sub.Message,
		Type:    string(sub.Type),
		Date:    FormatDate(sub.Date),
	})
	if err != nil {
		return 0, err
	}
	return int(resp.ID), nil
}

// UpdateJudgments writes a batch and returns the number of matched rows
func (c *ScriptClient) UpdateJudgments(ctx context.Context, changes []court.JudgmentChange) (int, error) {
	resp, err := c.post(ctx, ActionUpdateJudgments, changes)
	if err != nil {
		return 0, err
	}
	return resp.UpdatedCount, nil
}

// SendJudgments posts the batch as text/plain and ignores the reply, the
// way a browser no-cors request would. Only a failed round trip is an error.
func (c *ScriptClient) SendJudgments(ctx context.Context, changes []court.JudgmentChange) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	c.invalidate()
	defer c.invalidate()

	start := time.Now()
	err := c.http.Send(ctx, c.scriptURL, "text/plain;charset=utf-8", Request{Action: ActionUpdateJudgments, Data: changes})
	if err != nil {
		c.metrics.ObserveRequest(ActionUpdateJudgments+":send", "transport_error", time.Since(start))
		return transportError(err, ActionUpdateJudgments+":send", c.scriptURL)
	}
	c.metrics.ObserveRequest(ActionUpdateJudgments+":send", "sent", time.Since(start))
	c.log.Debug("judgments sent without confirmation", logger.Int("count", len(changes)))
	return nil
}

// UpdateJudgmentWithSentence writes one case's judgment and sentence
func (c *ScriptClient) UpdateJudgmentWithSentence(ctx context.Context, id int, j court.Judgment, sentence string) error {
	_, err := c.post(ctx, ActionUpdateJudgmentWithSentence, SentenceUpdate{ID: id, Judgment: j, Sentence: sentence})
	return err
}

// UpdateJudgmentToFree sets a row free and clears its sentence
func (c *ScriptClient) UpdateJudgmentToFree(ctx context.Context, id int) error {
	_, err := c.post(ctx, ActionUpdateJudgmentToFree, FreeUpdate{ID: id})
	return err
}

func (c *ScriptClient) post(ctx context.Context, action string, data any) (*Response, error) {
	c.invalidate()
	defer c.invalidate()
	return c.roundTrip(ctx, action, func(ctx context.Context) (*http.Response, error) {
		return c.http.Post(ctx, c.scriptURL, "application/json", Request{Action: action, Data: data})
	})
}

// roundTrip rate limits, executes and decodes one confirming request
func (c *ScriptClient) roundTrip(ctx context.Context, action string, do func(context.Context) (*http.Response, error)) (*Response, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := do(ctx)
	if err != nil {
		c.metrics.ObserveRequest(action, "transport_error", time.Since(start))
		return nil, transportError(err, action, c.scriptURL)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Debug("failed to close response body", logger.Error(err))
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.metrics.ObserveRequest(action, "transport_error", time.Since(start))
		return nil, transportError(fmt.Errorf("failed to read response body: %w", err), action, c.scriptURL)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.ObserveRequest(action, "http_error", time.Since(start))
		c.log.Warn("script returned HTTP error",
			logger.String("action", action),
			logger.Int("status_code", resp.StatusCode),
			logger.String("response_preview", preview(body)))
		return nil, errors.New(fmt.Errorf("%w: %s returned HTTP %d", ErrTransport, action, resp.StatusCode)).
			Component("remote").
			Category(errors.CategoryNetwork).
			Context("action", action).
			Context("status_code", resp.StatusCode).
			Build()
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		c.metrics.ObserveRequest(action, "decode_error", time.Since(start))
		c.log.Warn("script returned a non-JSON response",
			logger.String("action", action),
			logger.String("content_type", resp.Header.Get("Content-Type")),
			logger.String("response_preview", preview(body)))
		return nil, errors.New(fmt.Errorf("%w: %s returned an unreadable response: %w", ErrApplication, action, err)).
			Component("remote").
			Category(errors.CategoryIntegration).
			Context("action", action).
			Context("response_size", len(body)).
			Build()
	}

	if !out.Success {
		msg := out.Error
		if msg == "" {
			msg = "unknown error from server"
		}
		c.metrics.ObserveRequest(action, "app_error", time.Since(start))
		return nil, errors.New(fmt.Errorf("%w: %s: %s", ErrApplication, action, msg)).
			Component("remote").
			Category(errors.CategoryIntegration).
			Context("action", action).
			Build()
	}

	c.metrics.ObserveRequest(action, "success", time.Since(start))
	c.log.Debug("script request completed",
		logger.String("action", action),
		logger.Duration("duration", time.Since(start)))
	return &out, nil
}

func (c *ScriptClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.New(fmt.Errorf("%w: rate limiter: %w", ErrTransport, err)).
			Component("remote").
			Category(errors.CategoryCancellation).
			Build()
	}
	return nil
}

func (c *ScriptClient) invalidate() {
	c.writeGen.Add(1)
	if c.cache != nil {
		c.cache.Delete(submissionsCacheKey)
	}
}

func transportError(err error, action, scriptURL string) error {
	return errors.New(fmt.Errorf("%w: %s: %w", ErrTransport, action, privacy.WrapError(err))).
		Component("remote").
		Category(errors.CategoryNetwork).
		NetworkContext(scriptURL, 0).
		Context("action", action).
		Build()
}

func statusClass(resp *http.Response, err error) string {
	if err != nil || resp == nil {
		return "error"
	}
	return strconv.Itoa(resp.StatusCode/100) + "xx"
}

func preview(body []byte) string {
	if len(body) > responsePreviewLen {
		return string(body[:responsePreviewLen]) + "..."
	}
	return string(body)
}

var _ court.Store = (*ScriptClient)(nil)
