package httpx_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ratio1/notes_sdk_go/internal/httpx"
)

func TestNewClientValidatesBaseURL(t *testing.T) {
	_, err := httpx.NewClient("")
	require.Error(t, err)

	_, err = httpx.NewClient("://not-a-url")
	require.Error(t, err)

	_, err = httpx.NewClient("localhost:8080")
	require.Error(t, err)

	cl, err := httpx.NewClient("http://localhost:8080/base/")
	require.NoError(t, err)
	assert.Equal(t, "/base/", cl.BaseURL().Path)
}

func TestDoSetsHeadersAndQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/notes/5/vote", r.URL.Path)
		assert.Equal(t, "up", r.URL.Query().Get("type"))
		assert.Equal(t, "notes-test", r.Header.Get("User-Agent"))
		assert.NotEmpty(t, r.Header.Get(httpx.HeaderRequestID))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cl, err := httpx.NewClient(srv.URL, httpx.WithHeaders(http.Header{"User-Agent": {"notes-test"}}))
	require.NoError(t, err)

	resp, err := cl.Do(context.Background(), &httpx.Request{
		Method: http.MethodPost,
		Path:   "api/notes/5/vote",
		Query:  map[string][]string{"type": {"up"}},
	})
	require.NoError(t, err)
	resp.Body.Close()
}

func TestDoReturnsHTTPErrorWithoutRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, `{"error":"down"}`)
	}))
	defer srv.Close()

	cl, err := httpx.NewClient(srv.URL)
	require.NoError(t, err)

	_, err = cl.Do(context.Background(), &httpx.Request{Method: http.MethodGet, Path: "/api/notes"})
	var httpErr *httpx.HTTPError
	require.True(t, errors.As(err, &httpErr), "expected HTTPError, got %v", err)
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
	assert.Equal(t, http.StatusServiceUnavailable, httpx.StatusCode(err))
	assert.True(t, httpErr.Retryable())
	assert.Equal(t, map[string]any{"error": "down"}, httpErr.JSON)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDoRetriesWhenEnabled(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"text":"x"}`, string(body))
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cl, err := httpx.NewClient(srv.URL, httpx.WithRetryPolicy(httpx.RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		MaxDelay:   2 * time.Millisecond,
	}))
	require.NoError(t, err)

	req, err := httpx.JSONRequest(http.MethodPost, "/api/notes", map[string]string{"text": "x"})
	require.NoError(t, err)
	resp, err := cl.Do(context.Background(), req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, int32(3), calls.Load())
}

func TestDoDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	cl, err := httpx.NewClient(srv.URL, httpx.WithRetryPolicy(httpx.RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond}))
	require.NoError(t, err)

	_, err = cl.Do(context.Background(), &httpx.Request{Method: http.MethodDelete, Path: "/api/notes/9"})
	assert.Equal(t, http.StatusNotFound, httpx.StatusCode(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestDoHonoursCancelledContext(t *testing.T) {
	cl, err := httpx.NewClient("http://127.0.0.1:1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = cl.Do(ctx, &httpx.Request{Method: http.MethodGet, Path: "/"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryPolicyDelay(t *testing.T) {
	p := httpx.RetryPolicy{BaseDelay: 10 * time.Millisecond, MaxDelay: 40 * time.Millisecond}
	assert.Equal(t, 10*time.Millisecond, p.Delay(0))
	assert.Equal(t, 20*time.Millisecond, p.Delay(1))
	assert.Equal(t, 40*time.Millisecond, p.Delay(2))
	assert.Equal(t, 40*time.Millisecond, p.Delay(10))

	p.Jitter = 0.5
	for i := 0; i < 20; i++ {
		d := p.Delay(1)
		assert.GreaterOrEqual(t, d, 10*time.Millisecond)
		assert.LessOrEqual(t, d, 30*time.Millisecond)
	}
}
