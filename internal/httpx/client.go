package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// HeaderRequestID carries the per-call correlation id. Retries of one call
// share the id.
const HeaderRequestID = "X-Request-ID"

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithTimeout bounds each attempt. Zero (the default) leaves requests to the
// context and the platform defaults.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.timeout = d
		}
	}
}

// WithHeaders adds default headers to every request.
func WithHeaders(h http.Header) Option {
	return func(c *Client) {
		for k, values := range h {
			for _, v := range values {
				c.headers.Add(k, v)
			}
		}
	}
}

// WithRetryPolicy overrides DefaultRetryPolicy.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) {
		c.retry = policy
	}
}

// WithLogger routes per-request debug logging to log.
func WithLogger(log *logrus.Entry) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// Client sends requests relative to a base URL.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	timeout    time.Duration
	headers    http.Header
	retry      RetryPolicy
	log        *logrus.Entry
}

// Request describes one logical call. Body is replayed as-is on retries.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// NewClient creates a Client for an http or https base URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("httpx: base URL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("httpx: invalid base URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("httpx: invalid base URL %q: scheme must be http or https", baseURL)
	}

	silent := logrus.New()
	silent.SetOutput(io.Discard)
	c := &Client{
		baseURL: parsed,
		headers: make(http.Header),
		retry:   DefaultRetryPolicy,
		log:     logrus.NewEntry(silent),
	}
	for _, opt := range opts {
		opt(c)
	}

	switch {
	case c.httpClient == nil:
		c.httpClient = &http.Client{Timeout: c.timeout}
	case c.timeout > 0:
		withTimeout := *c.httpClient
		withTimeout.Timeout = c.timeout
		c.httpClient = &withTimeout
	}
	c.retry = c.retry.normalized()
	return c, nil
}

// BaseURL returns a copy of the configured base URL.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// Do sends req and returns the response of the first 2xx attempt. Any other
// status is returned as *HTTPError once retries are exhausted. The caller
// closes the response body.
func (c *Client) Do(ctx context.Context, req *Request) (*http.Response, error) {
	if req == nil || req.Method == "" {
		return nil, errors.New("httpx: request with a method is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	target, err := c.resolve(req.Path, req.Query)
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	log := c.log.WithFields(logrus.Fields{
		"method":     req.Method,
		"url":        target,
		"request_id": requestID,
	})

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		resp, err := c.send(ctx, req, target, requestID)
		if err == nil {
			log.WithFields(logrus.Fields{
				"status":  resp.StatusCode,
				"attempt": attempt,
				"elapsed": time.Since(start).String(),
			}).Debug("request completed")
			return resp, nil
		}
		log.WithError(err).WithField("attempt", attempt).Debug("request failed")

		if attempt >= c.retry.MaxRetries || !retryable(err) {
			return nil, err
		}
		if err := wait(ctx, c.retry.Delay(attempt)); err != nil {
			return nil, err
		}
	}
}

// send performs one attempt, turning non-2xx responses into *HTTPError.
func (c *Client) send(ctx context.Context, req *Request, target, requestID string) (*http.Response, error) {
	var body io.Reader = http.NoBody
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header = c.headers.Clone()
	for k, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set(HeaderRequestID, requestID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return resp, nil
	}
	return nil, newHTTPError(resp, req.Method, target)
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Retryable()
	}
	return true
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) resolve(path string, q url.Values) (string, error) {
	ref, err := url.Parse("/" + strings.TrimPrefix(path, "/"))
	if err != nil {
		return "", fmt.Errorf("httpx: invalid path %q: %w", path, err)
	}
	if len(q) > 0 {
		ref.RawQuery = q.Encode()
	}
	return c.baseURL.ResolveReference(ref).String(), nil
}

// JSONRequest encodes v as the body of a JSON request.
func JSONRequest(method, path string, v any) (*Request, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &Request{
		Method: method,
		Path:   path,
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   data,
	}, nil
}

// ReadAllAndClose drains rc and closes it.
func ReadAllAndClose(rc io.ReadCloser) ([]byte, error) {
	defer rc.Close()
	return io.ReadAll(rc)
}
