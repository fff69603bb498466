// Package http implements the transport layer: a retrying HTTP executor with
// rate-limit awareness, a circuit breaker, and typed error mapping.
package http

import (
	"context"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/lumen-io/lumen-go/pkg/lumen"
)

// Response is a completed HTTP response with its body drained.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// RequestHook can mutate an outgoing request (inject identity parameters,
// extra headers) before any attempt is made.
type RequestHook func(ctx context.Context, req *retryablehttp.Request) error

// RetryPolicy configures the retry executor. Total attempts are
// MaxRetries+1; the delay before retry n is InitialBackoff * Base^n capped
// at MaxBackoff, unless the server supplies a larger Retry-After hint.
type RetryPolicy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Base           float64
}

// Option configures the transport client.
type Option func(*Client)

// WithLogger sets the structured logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithUserAgent overrides the default User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithRateLimit adds a client-side token-bucket admission gate.
func WithRateLimit(requestsPerSecond float64) Option {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
		}
	}
}

// WithTimeout bounds each individual HTTP attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.rc.HTTPClient.Timeout = timeout
	}
}

// WithRequestHook appends a request hook.
func WithRequestHook(hook RequestHook) Option {
	return func(c *Client) {
		c.hooks = append(c.hooks, hook)
	}
}

// Client executes GET requests against one base URL with bounded retries,
// honoring server rate-limit hints, gated by a per-configuration circuit
// breaker. The underlying connection pool is shared by all calls through one
// Client and released by Close.
type Client struct {
	baseURL   string
	rc        *retryablehttp.Client
	breaker   *CircuitBreaker
	limiter   *rate.Limiter
	logger    zerolog.Logger
	userAgent string
	hooks     []RequestHook
	closed    atomic.Bool
}

type attemptsKey struct{}

// NewClient creates a transport client. The breaker is owned by the caller
// so tests can drive its clock.
func NewClient(baseURL string, policy RetryPolicy, breaker *CircuitBreaker, opts ...Option) *Client {
	rc := retryablehttp.NewClient()
	rc.Logger = nil
	rc.RetryMax = policy.MaxRetries
	rc.RetryWaitMin = policy.InitialBackoff
	rc.RetryWaitMax = policy.MaxBackoff
	rc.CheckRetry = checkRetry
	rc.Backoff = exponentialBackoff(policy)
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	client := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		rc:        rc,
		breaker:   breaker,
		logger:    zerolog.Nop(),
		userAgent: "lumen-go",
	}

	rc.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		attemptsTotal.WithLabelValues(req.Method).Inc()

		if counter, ok := req.Context().Value(attemptsKey{}).(*int32); ok {
			atomic.AddInt32(counter, 1)
		}

		if attempt > 0 {
			retriesTotal.Inc()
			client.logger.Debug().
				Str("url", redactURL(req.URL)).
				Int("attempt", attempt+1).
				Msg("retrying request")
		}
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// checkRetry retries transport failures, 429, and 5xx. Other statuses,
// including the remaining 4xx family, fail immediately without consuming a
// retry.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if err != nil {
		return true, nil
	}

	if resp != nil && (resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500) {
		return true, nil
	}

	return false, nil
}

// exponentialBackoff computes InitialBackoff * Base^attempt capped at
// MaxBackoff. A server-supplied Retry-After hint overrides the computed
// delay for the next attempt.
func exponentialBackoff(policy RetryPolicy) retryablehttp.Backoff {
	return func(minWait, maxWait time.Duration, attemptNum int, resp *http.Response) time.Duration {
		if resp != nil {
			if hint := parseRetryAfter(resp); hint > 0 {
				return hint
			}
		}

		computed := time.Duration(float64(minWait) * math.Pow(policy.Base, float64(attemptNum)))
		if computed > maxWait || computed <= 0 {
			return maxWait
		}

		return computed
	}
}

// parseRetryAfter reads the server's minimum-wait hint: Retry-After in
// seconds or as an HTTP date, falling back to X-RateLimit-Reset seconds.
func parseRetryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		header = resp.Header.Get("X-RateLimit-Reset")
	}

	if header == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	if at, err := http.ParseTime(header); err == nil {
		if wait := time.Until(at); wait > 0 {
			return wait
		}
	}

	return 0
}

// Get executes one logical GET, retrying per policy. rawQuery must already
// be encoded in the API's canonical form; it is attached verbatim so
// operator characters survive untouched.
func (c *Client) Get(ctx context.Context, path, rawQuery string) (*Response, error) {
	if c.closed.Load() {
		return nil, lumen.ErrClientClosed
	}

	if err := c.breaker.Allow(); err != nil {
		return nil, err
	}

	if c.limiter != nil {
		err := c.limiter.Wait(ctx)
		if err != nil {
			c.breaker.Abort()

			return nil, err
		}
	}

	attempts := new(int32)
	ctx = context.WithValue(ctx, attemptsKey{}, attempts)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+strings.TrimLeft(path, "/"), nil)
	if err != nil {
		c.breaker.Abort()

		return nil, &lumen.APIError{Method: http.MethodGet, URL: c.baseURL + "/" + path, Detail: err.Error()}
	}

	req.URL.RawQuery = rawQuery
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-Id", uuid.NewString())

	for _, hook := range c.hooks {
		err = hook(ctx, req)
		if err != nil {
			c.breaker.Abort()

			return nil, err
		}
	}

	urlShape := redactURL(req.URL)

	c.logger.Debug().Str("url", urlShape).Msg("request")

	start := time.Now()
	resp, err := c.rc.Do(req)

	requestDuration.Observe(time.Since(start).Seconds())

	attemptCount := int(atomic.LoadInt32(attempts))

	if err != nil {
		// A caller-driven cancellation says nothing about endpoint health,
		// so it releases the call instead of counting a failure.
		if ctx.Err() != nil {
			c.breaker.Abort()
		} else {
			c.breaker.RecordFailure()
		}

		requestsTotal.WithLabelValues("error").Inc()
		c.logger.Warn().Str("url", urlShape).Int("attempts", attemptCount).Err(err).Msg("request failed")

		return nil, &lumen.APIError{
			Method:   http.MethodGet,
			URL:      urlShape,
			Attempts: attemptCount,
			Detail:   err.Error(),
		}
	}

	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	if readErr != nil {
		c.breaker.RecordFailure()
		requestsTotal.WithLabelValues("error").Inc()

		return nil, &lumen.APIError{
			Method:     http.MethodGet,
			URL:        urlShape,
			StatusCode: resp.StatusCode,
			Attempts:   attemptCount,
			Detail:     "reading response body: " + readErr.Error(),
		}
	}

	requestsTotal.WithLabelValues(statusClass(resp.StatusCode)).Inc()

	c.logger.Debug().
		Str("url", urlShape).
		Int("status", resp.StatusCode).
		Int("attempts", attemptCount).
		Msg("response")

	return c.mapResponse(resp, body, urlShape, attemptCount)
}

// mapResponse turns a final HTTP response into a Response or a typed error,
// updating the circuit breaker. A 4xx other than 429 means the service is
// responsive, so it does not count as a breaker failure.
func (c *Client) mapResponse(resp *http.Response, body []byte, urlShape string, attempts int) (*Response, error) {
	base := lumen.APIError{
		Method:     http.MethodGet,
		URL:        urlShape,
		StatusCode: resp.StatusCode,
		Attempts:   attempts,
		Detail:     truncate(string(body), 200),
	}

	switch {
	case resp.StatusCode < 300:
		c.breaker.RecordSuccess()

		return &Response{StatusCode: resp.StatusCode, Headers: resp.Header, Body: body}, nil

	case resp.StatusCode == http.StatusNotFound:
		c.breaker.RecordSuccess()

		return nil, &lumen.NotFoundError{APIError: base}

	case resp.StatusCode == http.StatusTooManyRequests:
		c.breaker.RecordFailure()

		return nil, &lumen.RateLimitError{APIError: base, RetryAfter: parseRetryAfter(resp)}

	case resp.StatusCode >= 500:
		c.breaker.RecordFailure()

		return nil, &lumen.ServerError{APIError: base}

	default:
		c.breaker.RecordSuccess()

		return nil, &base
	}
}

// Close releases the shared connection pool. Calls after Close fail with
// lumen.ErrClientClosed.
func (c *Client) Close() {
	if c.closed.CompareAndSwap(false, true) {
		c.rc.HTTPClient.CloseIdleConnections()
	}
}

// redactURL masks credential-bearing query parameters in diagnostics.
func redactURL(u *url.URL) string {
	if u == nil {
		return ""
	}

	raw := u.RawQuery
	if !strings.Contains(raw, "api_key=") {
		return u.String()
	}

	clone := *u

	params := strings.Split(raw, "&")
	for i, param := range params {
		if strings.HasPrefix(param, "api_key=") {
			params[i] = "api_key=***"
		}
	}

	clone.RawQuery = strings.Join(params, "&")

	return clone.String()
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}

	return s[:limit] + "..."
}
