package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func passing(_ context.Context) error { return nil }

func failing(msg string) CheckFunc {
	return func(_ context.Context) error { return errors.New(msg) }
}

func get(t *testing.T, fn http.HandlerFunc) (int, statusBody) {
	t.Helper()
	w := httptest.NewRecorder()
	fn(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var body statusBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func runN(p *checkState, n int) {
	for range n {
		p.run(context.Background())
	}
}

func TestLiveEndpoint(t *testing.T) {
	h := New()
	h.AddLivenessCheck("goroutines", time.Second, passing)
	h.AddLivenessCheck("gc", time.Second, failing("long pause"))

	code, body := get(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code, "checks start healthy")
	assert.Equal(t, "ok", body.Status)

	runN(h.states[1], 2)
	code, _ = get(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code, "below failure threshold")

	runN(h.states[1], 1)
	code, body = get(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, map[string]string{"gc": "long pause"}, body.Checks)
}

func TestReadyEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		ready      bool
		vendorRuns int
		wantCode   int
		wantChecks []string
	}{
		{"not marked ready", false, 0, http.StatusServiceUnavailable, []string{"_readiness"}},
		{"ready", true, 0, http.StatusOK, nil},
		{"vendor down", true, 3, http.StatusServiceUnavailable, []string{"square"}},
		{"vendor down and draining", false, 3, http.StatusServiceUnavailable, []string{"_readiness", "square"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New()
			h.AddLivenessCheck("goroutines", time.Second, failing("ignored by readiness"))
			h.AddReadinessCheck("square", time.Second, failing("401"))
			h.SetReady(tt.ready)
			runN(h.states[0], 3)
			runN(h.states[1], tt.vendorRuns)

			code, body := get(t, h.ReadyEndpoint)
			assert.Equal(t, tt.wantCode, code)
			for _, name := range tt.wantChecks {
				assert.Contains(t, body.Checks, name)
			}
			assert.Len(t, body.Checks, len(tt.wantChecks))
		})
	}
}

func TestIsReady(t *testing.T) {
	h := New()
	h.AddReadinessCheck("square", time.Second, passing)
	assert.False(t, h.IsReady())

	h.SetReady(true)
	assert.True(t, h.IsReady())

	h.SetReady(false)
	assert.False(t, h.IsReady())
}

func TestCheckRecovery(t *testing.T) {
	down := true
	h := New(WithThresholds(2, 2))
	h.AddReadinessCheck("square", time.Second, func(context.Context) error {
		if down {
			return errors.New("down")
		}
		return nil
	})
	p := h.states[0]
	assert.Nil(t, p.err())

	runN(p, 2)
	assert.False(t, p.healthy.Load())
	assert.EqualError(t, p.err(), "down")

	down = false
	runN(p, 1)
	assert.False(t, p.healthy.Load(), "needs two successes")
	runN(p, 1)
	assert.True(t, p.healthy.Load())
	assert.NoError(t, p.err())
}

func TestRegister_DefaultTimeout(t *testing.T) {
	h := New()
	h.Register(Check{Name: "x", Kind: Readiness, Func: func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		if !ok {
			return errors.New("no deadline")
		}
		return nil
	}})
	assert.Equal(t, time.Second, h.states[0].Timeout)
	runN(h.states[0], 1)
	assert.NoError(t, h.states[0].err())
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestPingCheck(t *testing.T) {
	assert.NoError(t, PingCheck("square", pinger{})(context.Background()))

	err := PingCheck("square", pinger{err: errors.New("status 401")})(context.Background())
	require.Error(t, err)
	assert.Equal(t, "square unreachable: status 401", err.Error())
}

func TestStartStop(t *testing.T) {
	h := New()
	h.AddLivenessCheck("concurrent", time.Second, failing("err"))
	h.AddReadinessCheck("concurrent", time.Second, passing)
	h.SetReady(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Start(ctx, 10*time.Millisecond)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				h.IsReady()
				get(t, h.LiveEndpoint)
				get(t, h.ReadyEndpoint)
			}
		}()
	}
	wg.Wait()

	h.Stop()
	h.Stop()
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(100000)(context.Background()))

	err := GoroutineCountCheck(0)(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds threshold")
}

func TestGCMaxPauseCheck(t *testing.T) {
	assert.NoError(t, GCMaxPauseCheck(time.Hour)(context.Background()))
}
