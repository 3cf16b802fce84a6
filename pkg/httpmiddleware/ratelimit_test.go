package httpmiddleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func quoteRequest(remoteAddr string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/quote", nil)
	req.RemoteAddr = remoteAddr
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func newLimited(t *testing.T, cfg RateLimitConfig) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return RateLimit(ctx, cfg)(okHandler())
}

func TestRateLimit_UnderLimit(t *testing.T) {
	h := newLimited(t, RateLimitConfig{Max: 5, Window: time.Minute})

	for i := range 5 {
		w := serve(h, quoteRequest("192.168.1.1:12345"))
		assert.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}
}

func TestRateLimit_OverLimit(t *testing.T) {
	h := newLimited(t, RateLimitConfig{Max: 2, Window: time.Minute})

	for range 2 {
		require.Equal(t, http.StatusOK, serve(h, quoteRequest("10.0.0.1:9999")).Code)
	}

	w := serve(h, quoteRequest("10.0.0.1:9999"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, map[string]any{"error": "rate limit exceeded"}, body)
}

func TestRateLimit_PerClient(t *testing.T) {
	h := newLimited(t, RateLimitConfig{Max: 1, Window: time.Minute})

	assert.Equal(t, http.StatusOK, serve(h, quoteRequest("10.0.0.1:1234")).Code)
	assert.Equal(t, http.StatusOK, serve(h, quoteRequest("10.0.0.2:1234")).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(h, quoteRequest("10.0.0.1:5678")).Code)
}

func TestRateLimit_XForwardedFor(t *testing.T) {
	h := newLimited(t, RateLimitConfig{Max: 1, Window: time.Minute})

	req := quoteRequest("192.168.1.1:4444")
	req.Header.Set("X-Forwarded-For", "203.0.113.50, 70.41.3.18")
	assert.Equal(t, http.StatusOK, serve(h, req).Code)

	req = quoteRequest("192.168.1.2:5555")
	req.Header.Set("X-Forwarded-For", "203.0.113.50")
	assert.Equal(t, http.StatusTooManyRequests, serve(h, req).Code)
}

func TestRateLimit_Skip(t *testing.T) {
	h := newLimited(t, RateLimitConfig{
		Max:    1,
		Window: time.Minute,
		Skip:   func(r *http.Request) bool { return r.URL.Path == "/readyz" },
	})

	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		w := serve(h, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
	assert.Equal(t, http.StatusOK, serve(h, quoteRequest("10.0.0.1:1")).Code)
}

func TestRateLimit_Disabled(t *testing.T) {
	h := newLimited(t, RateLimitConfig{Max: 0, Window: time.Minute})

	for range 10 {
		assert.Equal(t, http.StatusOK, serve(h, quoteRequest("10.0.0.1:1")).Code)
	}
}

func TestLimiter_SlidingWindow(t *testing.T) {
	l := &limiter{max: 4, window: time.Minute, clients: make(map[string]*window)}
	start := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	for range 4 {
		_, _, ok := l.allow("a", start)
		require.True(t, ok)
	}
	_, _, ok := l.allow("a", start.Add(30*time.Second))
	assert.False(t, ok, "window still full")

	// Halfway into the next window half of the previous count still applies.
	remaining, _, ok := l.allow("a", start.Add(90*time.Second))
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)

	l.evict(start.Add(5 * time.Minute))
	assert.Empty(t, l.clients)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		header map[string]string
		want   string
	}{
		{"remote addr", "10.1.1.1:80", nil, "10.1.1.1"},
		{"no port", "10.1.1.1", nil, "10.1.1.1"},
		{"real ip", "10.1.1.1:80", map[string]string{"X-Real-IP": "198.51.100.7"}, "198.51.100.7"},
		{"forwarded", "10.1.1.1:80", map[string]string{"X-Forwarded-For": " 203.0.113.9 , 10.0.0.1"}, "203.0.113.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := quoteRequest(tt.remote)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}
