// Package questapi is the client for the external quiz/riddle service.
package questapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/layer-3/questhub/core"
	"golang.org/x/time/rate"
)

const maxResponseBytes = 4 << 20

// Interceptor observes every response of the endpoints it is registered
// for. It must not retain body.
type Interceptor func(endpoint string, status int, body []byte)

type interceptor struct {
	prefix string
	fn     Interceptor
}

// Client talks JSON over HTTP to a single Quest API origin.
type Client struct {
	baseURL      string
	http         *http.Client
	timeout      time.Duration
	limiter      *rate.Limiter
	interceptors []interceptor
	logger       watermill.LoggerAdapter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout. A client passed to
// WithHTTPClient is copied, never modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRateLimit paces outgoing requests. It never retries.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(r, burst) }
}

// WithInterceptor registers fn for every endpoint starting with prefix.
func WithInterceptor(prefix string, fn Interceptor) Option {
	return func(c *Client) { c.interceptors = append(c.interceptors, interceptor{prefix: prefix, fn: fn}) }
}

func WithLogger(logger watermill.LoggerAdapter) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a client for the API rooted at baseURL
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  watermill.NopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, "", out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}
	return c.do(ctx, http.MethodPost, path, body, contentType, out)
}

// do performs one request. Transport errors and non-2xx statuses are
// reported as core.ErrNetworkFailure.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %s %s: %v", core.ErrNetworkFailure, method, path, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("Quest API request failed", err, watermill.LogFields{"method": method, "endpoint": path})
		return fmt.Errorf("%w: %s %s: %v", core.ErrNetworkFailure, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", core.ErrNetworkFailure, path, err)
	}

	c.intercept(path, resp.StatusCode, raw)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("Quest API returned an error status", nil, watermill.LogFields{
			"method":   method,
			"endpoint": path,
			"status":   resp.StatusCode,
		})
		return fmt.Errorf("%w: %s %s: status %d", core.ErrNetworkFailure, method, path, resp.StatusCode)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", core.ErrNetworkFailure, path, err)
	}
	return nil
}

func (c *Client) intercept(path string, status int, body []byte) {
	for _, i := range c.interceptors {
		if strings.HasPrefix(path, i.prefix) {
			i.fn(path, status, body)
		}
	}
}
