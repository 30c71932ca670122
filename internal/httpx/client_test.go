package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestJSONRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(WithRateLimit(1000, 1000))
	obj, err := c.RequestJSON(context.Background(), "GET", srv.URL, nil, nil, 5*time.Second, 3)
	require.NoError(t, err)
	assert.Equal(t, true, obj["ok"])
	assert.Equal(t, int32(3), hits.Load())
}

func TestRequestJSONNonRetryableStops(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"missing"}`))
	}))
	defer srv.Close()

	c := New(WithRateLimit(1000, 1000))
	_, err := c.RequestJSON(context.Background(), "GET", srv.URL, nil, nil, 5*time.Second, 3)
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusNotFound, te.Status)
	assert.Contains(t, te.Body, "missing")
}

func TestRequestJSONExhaustsRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"slow down"}`))
	}))
	defer srv.Close()

	c := New(WithRateLimit(1000, 1000))
	_, err := c.RequestJSON(context.Background(), "GET", srv.URL, nil, nil, 5*time.Second, 2)
	require.Error(t, err)
	assert.Equal(t, int32(2), hits.Load())

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusTooManyRequests, te.Status)
}

func TestRequestJSONWrapsNonObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"kind":"Listing"},{"kind":"Listing"}]`))
	}))
	defer srv.Close()

	c := New(WithRateLimit(1000, 1000))
	obj, err := c.RequestJSON(context.Background(), "GET", srv.URL, nil, nil, 5*time.Second, 1)
	require.NoError(t, err)
	list, ok := obj["data"].([]any)
	require.True(t, ok)
	assert.Len(t, list, 2)
}

func TestRequestJSONSendsHeadersAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Contains(t, r.Header.Get("User-Agent"), "BriefBot")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(WithRateLimit(1000, 1000))
	_, err := c.RequestJSON(context.Background(), "POST", srv.URL,
		map[string]string{"Authorization": "Bearer sk-test"},
		map[string]any{"model": "gpt-5"}, 5*time.Second, 1)
	require.NoError(t, err)
}

func TestRetryableStatus(t *testing.T) {
	for _, status := range []int{408, 425, 429, 500, 502, 504, 520, 522, 599} {
		assert.True(t, retryableStatus(status), "status %d", status)
	}
	for _, status := range []int{400, 401, 403, 404, 409, 418, 422, 505, 511} {
		assert.False(t, retryableStatus(status), "status %d", status)
	}
}

func TestBackoffDelayCaps(t *testing.T) {
	for attempt := 1; attempt <= 8; attempt++ {
		d := backoffDelay(attempt)
		assert.GreaterOrEqual(t, d, backoffBase)
		assert.LessOrEqual(t, d, backoffCap+jitterMax)
	}
}

func TestRedditJSONURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{
			"https://www.reddit.com/r/golang/comments/abc123/some_thread/",
			"https://www.reddit.com/r/golang/comments/abc123/some_thread.json?raw_json=1&context=0&depth=1&limit=50&sort=top",
		},
		{
			"/r/golang/comments/abc123/some_thread",
			"https://www.reddit.com/r/golang/comments/abc123/some_thread.json?raw_json=1&context=0&depth=1&limit=50&sort=top",
		},
		{
			"https://old.reddit.com/r/golang/comments/abc123/t/?utm_source=share",
			"https://www.reddit.com/r/golang/comments/abc123/t.json?raw_json=1&context=0&depth=1&limit=50&sort=top",
		},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RedditJSONURL(tt.in))
	}
}
