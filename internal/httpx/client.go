// Package httpx is the JSON-over-HTTP client used by every provider:
// exponential backoff with jitter, per-host rate limiting, and a circuit
// breaker per host.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	userAgent = "BriefBot/1.2 (topic-research; +https://github.com/briefbot/briefbot)"

	backoffBase = 500 * time.Millisecond
	backoffCap  = 8 * time.Second
	jitterMax   = 400 * time.Millisecond
)

// TransportError carries the last observed wire failure once retries are
// exhausted.
type TransportError struct {
	Message string
	Status  int
	Body    string
	URL     string
}

func (e *TransportError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (status %d, url %s)", e.Message, e.Status, e.URL)
	}
	return e.Message
}

// Client wraps http.Client with the middleware stack providers expect.
type Client struct {
	http     *http.Client
	logger   zerolog.Logger
	debug    atomic.Bool
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	breakers map[string]*gobreaker.CircuitBreaker
	rps      float64
	burst    int
}

// Option configures a Client.
type Option func(*Client)

// WithDebug enables one structured log line per request attempt.
func WithDebug(debug bool) Option {
	return func(c *Client) { c.debug.Store(debug) }
}

// WithRateLimit sets the per-host token bucket.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) { c.rps, c.burst = rps, burst }
}

// WithLogger sets the diagnostic sink.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithTransport replaces the underlying RoundTripper, letting tests stub
// the wire for endpoints with fixed URLs.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.http.Transport = rt }
}

// New creates a Client. The zero-value http timeout is governed per
// request, so no global timeout is installed here.
func New(opts ...Option) *Client {
	c := &Client{
		http:     &http.Client{},
		logger:   zerolog.Nop(),
		limiters: make(map[string]*rate.Limiter),
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		rps:      4,
		burst:    8,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetDebug toggles attempt logging. Safe to flip mid-run.
func (c *Client) SetDebug(debug bool) {
	c.debug.Store(debug)
}

func (c *Client) limiter(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	if lim, ok := c.limiters[host]; ok {
		return lim
	}
	lim := rate.NewLimiter(rate.Limit(c.rps), c.burst)
	c.limiters[host] = lim
	return lim
}

func (c *Client) breaker(host string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if br, ok := c.breakers[host]; ok {
		return br
	}
	br := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    host,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	c.breakers[host] = br
	return br
}

// RequestJSON issues method against rawurl with optional headers and JSON
// body, retrying transport failures and retryable statuses up to retries
// attempts. The parsed top-level JSON object is returned; non-object
// top-level values are wrapped as {"data": value}.
func (c *Client) RequestJSON(ctx context.Context, method, rawurl string, headers map[string]string, body any, timeout time.Duration, retries int) (map[string]any, error) {
	if retries < 1 {
		retries = 1
	}
	parsed, err := url.Parse(rawurl)
	if err != nil {
		return nil, &TransportError{Message: fmt.Sprintf("invalid url: %v", err), URL: rawurl}
	}
	host := parsed.Host

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	var lastStatus int
	var lastBody string
	var lastErr error

	for attempt := 1; attempt <= retries; attempt++ {
		if err := c.limiter(host).Wait(ctx); err != nil {
			return nil, &TransportError{Message: fmt.Sprintf("rate limit wait: %v", err), URL: rawurl}
		}

		result, err := c.breaker(host).Execute(func() (any, error) {
			return c.attempt(ctx, method, rawurl, headers, payload, timeout)
		})
		if err == nil {
			return result.(map[string]any), nil
		}

		var te *TransportError
		if errors.As(err, &te) {
			lastStatus, lastBody, lastErr = te.Status, te.Body, err
			if te.Status > 0 && !retryableStatus(te.Status) {
				return nil, err
			}
		} else if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &TransportError{Message: fmt.Sprintf("circuit open for %s", host), URL: rawurl}
		} else {
			lastErr = err
		}

		if c.debug.Load() {
			c.logger.Debug().
				Str("method", method).
				Str("url", rawurl).
				Int("attempt", attempt).
				Int("status", lastStatus).
				Err(err).
				Msg("http attempt failed")
		}
		if attempt < retries {
			select {
			case <-time.After(backoffDelay(attempt)):
			case <-ctx.Done():
				return nil, &TransportError{Message: fmt.Sprintf("cancelled: %v", ctx.Err()), URL: rawurl}
			}
		}
	}

	return nil, &TransportError{
		Message: fmt.Sprintf("request failed after %d attempts: %v", retries, lastErr),
		Status:  lastStatus,
		Body:    lastBody,
		URL:     rawurl,
	}
}

func (c *Client) attempt(ctx context.Context, method, rawurl string, headers map[string]string, payload []byte, timeout time.Duration) (map[string]any, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(attemptCtx, method, rawurl, reader)
	if err != nil {
		return nil, &TransportError{Message: fmt.Sprintf("build request: %v", err), URL: rawurl}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Message: fmt.Sprintf("transport: %v", err), URL: rawurl}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &TransportError{Message: fmt.Sprintf("read body: %v", err), Status: resp.StatusCode, URL: rawurl}
	}

	if resp.StatusCode >= 400 {
		return nil, &TransportError{
			Message: fmt.Sprintf("http %d", resp.StatusCode),
			Status:  resp.StatusCode,
			Body:    string(raw),
			URL:     rawurl,
		}
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, &TransportError{Message: fmt.Sprintf("decode json: %v", err), Status: resp.StatusCode, Body: string(raw), URL: rawurl}
	}
	if obj, ok := value.(map[string]any); ok {
		return obj, nil
	}
	return map[string]any{"data": value}, nil
}

// retryableStatus reports whether a status class warrants another try.
func retryableStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return true
	}
	if status >= 500 && status <= 504 {
		return true
	}
	return status >= 520
}

func backoffDelay(attempt int) time.Duration {
	delay := backoffBase << (attempt - 1)
	if delay > backoffCap {
		delay = backoffCap
	}
	return delay + time.Duration(rand.Int63n(int64(jitterMax)))
}

// RedditJSONURL turns a thread path or full URL into the public JSON
// endpoint with the standard query string.
func RedditJSONURL(pathOrURL string) string {
	p := strings.TrimSpace(pathOrURL)
	for _, prefix := range []string{"https://www.reddit.com", "https://old.reddit.com", "https://reddit.com", "http://www.reddit.com", "http://reddit.com"} {
		p = strings.TrimPrefix(p, prefix)
	}
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	p = strings.TrimSuffix(p, "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if !strings.HasSuffix(p, ".json") {
		p += ".json"
	}
	return "https://www.reddit.com" + p + "?raw_json=1&context=0&depth=1&limit=50&sort=top"
}
