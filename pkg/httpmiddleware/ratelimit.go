package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the per-client sliding window limiter.
type RateLimitConfig struct {
	// Max requests per Window. Zero or negative disables limiting.
	Max    int
	Window time.Duration
	// KeyFunc identifies the client. Defaults to the client IP.
	KeyFunc func(*http.Request) string
	// Skip exempts requests, e.g. health checks.
	Skip func(*http.Request) bool
}

// window counts requests in the current and previous fixed windows.
type window struct {
	prev      float64
	curr      float64
	currStart time.Time
}

type limiter struct {
	max    float64
	window time.Duration

	mu      sync.Mutex
	clients map[string]*window
}

// allow admits one request for key, weighting the previous window by its
// overlap with the sliding window ending at now.
func (l *limiter) allow(key string, now time.Time) (remaining int, resetAt time.Time, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, found := l.clients[key]
	if !found {
		w = &window{currStart: now.Truncate(l.window)}
		l.clients[key] = w
	}
	if elapsed := now.Sub(w.currStart); elapsed >= l.window {
		w.prev = w.curr
		if elapsed >= 2*l.window {
			w.prev = 0
		}
		w.curr = 0
		w.currStart = now.Truncate(l.window)
	}

	overlap := 1 - now.Sub(w.currStart).Seconds()/l.window.Seconds()
	count := w.prev*math.Max(overlap, 0) + w.curr
	resetAt = w.currStart.Add(l.window)
	if count >= l.max {
		return 0, resetAt, false
	}

	w.curr++
	return int(math.Max(l.max-count-1, 0)), resetAt, true
}

func (l *limiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, w := range l.clients {
		if now.Sub(w.currStart) >= 2*l.window {
			delete(l.clients, key)
		}
	}
}

// RateLimit limits each client to cfg.Max requests per sliding window and
// answers 429 with {"error":"rate limit exceeded"} beyond it. Idle clients are
// evicted until ctx is done.
func RateLimit(ctx context.Context, cfg RateLimitConfig) Middleware {
	if cfg.Max <= 0 || cfg.Window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = ClientIP
	}
	l := &limiter{
		max:     float64(cfg.Max),
		window:  cfg.Window,
		clients: make(map[string]*window),
	}
	go func() {
		ticker := time.NewTicker(2 * cfg.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				l.evict(now)
			}
		}
	}()

	limit := strconv.Itoa(cfg.Max)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Skip != nil && cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			now := time.Now()
			remaining, resetAt, ok := l.allow(cfg.KeyFunc(r), now)

			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
			if !ok {
				retry := math.Ceil(math.Max(resetAt.Sub(now).Seconds(), 0))
				h.Set("Retry-After", strconv.Itoa(int(retry)))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// remote address host.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
