package enrichers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHTTPClient(overrides HTTPClientConfig) *HTTPClient {
	if overrides.RateLimit == 0 {
		overrides.RateLimit = 1000
	}
	if overrides.BurstSize == 0 {
		overrides.BurstSize = 1000
	}
	if overrides.RetryDelay == 0 {
		overrides.RetryDelay = time.Millisecond
	}
	return NewHTTPClient(overrides)
}

func TestNewHTTPClient(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		c := NewHTTPClient(HTTPClientConfig{})

		assert.Equal(t, 30*time.Second, c.config.Timeout)
		assert.Equal(t, 10.0, c.config.RateLimit)
		assert.Equal(t, 10, c.config.BurstSize)
		assert.Equal(t, 3, c.config.MaxRetries)
		assert.Equal(t, time.Second, c.config.RetryDelay)
		assert.Equal(t, "Chive-CitationService/1.0", c.config.UserAgent)
	})

	t.Run("keeps explicit values", func(t *testing.T) {
		c := NewHTTPClient(HTTPClientConfig{
			Timeout:    5 * time.Second,
			MaxRetries: 1,
			UserAgent:  "custom/2.0",
		})

		assert.Equal(t, 5*time.Second, c.config.Timeout)
		assert.Equal(t, 1, c.config.MaxRetries)
		assert.Equal(t, "custom/2.0", c.config.UserAgent)
	})
}

func TestHTTPClient_Do(t *testing.T) {
	t.Run("sets user agent and api key headers", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Chive-CitationService/1.0", r.Header.Get("User-Agent"))
			assert.Equal(t, "secret", r.Header.Get("x-api-key"))
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		c := newTestHTTPClient(HTTPClientConfig{
			APIKey:       "secret",
			APIKeyHeader: "x-api-key",
		})

		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		resp, err := c.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("retries on 5xx and succeeds", func(t *testing.T) {
		attempts := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			if attempts < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		c := newTestHTTPClient(HTTPClientConfig{MaxRetries: 3})

		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		resp, err := c.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, 3, attempts)
	})

	t.Run("retries on 429 honoring Retry-After seconds", func(t *testing.T) {
		attempts := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			if attempts == 1 {
				w.Header().Set("Retry-After", "0")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		c := newTestHTTPClient(HTTPClientConfig{MaxRetries: 2})

		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		resp, err := c.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, 2, attempts)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		c := newTestHTTPClient(HTTPClientConfig{MaxRetries: 2})

		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		_, err = c.Do(req)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max retries exhausted")
	})

	t.Run("does not retry 4xx client errors", func(t *testing.T) {
		attempts := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		c := newTestHTTPClient(HTTPClientConfig{MaxRetries: 3})

		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		resp, err := c.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, 1, attempts)
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		c := newTestHTTPClient(HTTPClientConfig{MaxRetries: 5, RetryDelay: time.Second})

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		_, err = c.Do(req)
		require.Error(t, err)
	})
}

func TestRetryDelayFrom(t *testing.T) {
	c := newTestHTTPClient(HTTPClientConfig{RetryDelay: 2 * time.Second})

	t.Run("uses configured delay without header", func(t *testing.T) {
		resp := &http.Response{Header: http.Header{}}
		assert.Equal(t, 2*time.Second, c.retryDelayFrom(resp))
	})

	t.Run("parses Retry-After seconds", func(t *testing.T) {
		resp := &http.Response{Header: http.Header{"Retry-After": []string{"7"}}}
		assert.Equal(t, 7*time.Second, c.retryDelayFrom(resp))
	})

	t.Run("falls back on unparsable header", func(t *testing.T) {
		resp := &http.Response{Header: http.Header{"Retry-After": []string{"soon"}}}
		assert.Equal(t, 2*time.Second, c.retryDelayFrom(resp))
	})
}
