// Package health serves liveness and readiness endpoints backed by checks that
// run periodically in the background.
//
// A check flips to unhealthy only after a run of consecutive failures, and
// back to healthy after a run of consecutive successes.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// CheckFunc reports whether a dependency is healthy.
type CheckFunc func(ctx context.Context) error

// Kind selects the endpoint a check contributes to.
type Kind uint8

const (
	// Liveness checks gate /livez.
	Liveness Kind = iota
	// Readiness checks gate /readyz.
	Readiness
)

func (k Kind) String() string {
	if k == Readiness {
		return "readiness"
	}
	return "liveness"
}

// Check describes a registered health check.
type Check struct {
	Name    string
	Kind    Kind
	Timeout time.Duration
	Func    CheckFunc
}

// checkState is the runtime state of one Check. run is only ever called from a
// single goroutine; healthy and lastErr are read concurrently by handlers.
type checkState struct {
	Check

	failAfter    int
	recoverAfter int

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	fails int
	oks   int
}

func (p *checkState) err() error {
	if e := p.lastErr.Load(); e != nil {
		return *e
	}
	return nil
}

func (p *checkState) run(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	err := p.Func(checkCtx)
	p.lastErr.Store(&err)

	lg := zctx.From(ctx).With(
		zap.String("check", p.Name),
		zap.Stringer("kind", p.Kind),
	)
	if err != nil {
		p.oks = 0
		p.fails++
		if p.fails >= p.failAfter && p.healthy.Swap(false) {
			lg.Warn("Check became unhealthy", zap.Error(err), zap.Int("failures", p.fails))
		}
		return
	}

	p.fails = 0
	p.oks++
	if p.oks >= p.recoverAfter && !p.healthy.Swap(true) {
		lg.Info("Check recovered")
	}
}

// Option configures Health.
type Option func(h *Health)

// WithThresholds sets how many consecutive failures mark a check unhealthy
// and how many consecutive successes recover it.
func WithThresholds(failures, successes int) Option {
	return func(h *Health) {
		if failures > 0 {
			h.failAfter = failures
		}
		if successes > 0 {
			h.recoverAfter = successes
		}
	}
}

// Health aggregates checks and the manual readiness switch.
type Health struct {
	ready atomic.Bool

	failAfter    int
	recoverAfter int

	mu     sync.RWMutex
	states []*checkState
	cancel context.CancelFunc
}

// New creates a Health in the not-ready state.
func New(opts ...Option) *Health {
	h := &Health{failAfter: 3, recoverAfter: 1}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Register adds c. Checks start healthy until they fail enough times.
func (h *Health) Register(c Check) {
	if c.Timeout <= 0 {
		c.Timeout = time.Second
	}
	p := &checkState{Check: c, failAfter: h.failAfter, recoverAfter: h.recoverAfter}
	p.healthy.Store(true)

	h.mu.Lock()
	h.states = append(h.states, p)
	h.mu.Unlock()
}

// AddLivenessCheck registers a liveness check.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.Register(Check{Name: name, Kind: Liveness, Timeout: timeout, Func: fn})
}

// AddReadinessCheck registers a readiness check.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.Register(Check{Name: name, Kind: Readiness, Timeout: timeout, Func: fn})
}

// Start runs every registered check now and then every interval until Stop
// is called or ctx is done.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	states := append([]*checkState(nil), h.states...)
	h.mu.Unlock()

	for _, p := range states {
		go loop(ctx, p, interval)
	}
}

func loop(ctx context.Context, p *checkState, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.run(ctx)
		}
	}
}

// Stop halts the background checks. Safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady flips the manual readiness switch.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the service is marked ready and every readiness
// check passes.
func (h *Health) IsReady() bool {
	return h.ready.Load() && len(h.failures(Readiness)) == 0
}

func (h *Health) failures(kind Kind) map[string]string {
	h.mu.RLock()
	states := append([]*checkState(nil), h.states...)
	h.mu.RUnlock()

	out := make(map[string]string)
	for _, p := range states {
		if p.Kind != kind || p.healthy.Load() {
			continue
		}
		if err := p.err(); err != nil {
			out[p.Name] = err.Error()
		} else {
			out[p.Name] = "check is unhealthy"
		}
	}
	return out
}

// LiveEndpoint serves /livez.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, h.failures(Liveness))
}

// ReadyEndpoint serves /readyz.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failures := h.failures(Readiness)
	if !h.ready.Load() {
		failures["_readiness"] = "service is not ready"
	}
	writeStatus(w, failures)
}

// writeStatus responds {"status":"ok"} or 503 with the failing checks.
func writeStatus(w http.ResponseWriter, failures map[string]string) {
	status := http.StatusOK
	if len(failures) > 0 {
		status = http.StatusServiceUnavailable
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		if status == http.StatusOK {
			e.Field("status", func(e *jx.Encoder) { e.Str("ok") })
			return
		}
		e.Field("status", func(e *jx.Encoder) { e.Str("unhealthy") })
		names := make([]string, 0, len(failures))
		for name := range failures {
			names = append(names, name)
		}
		sort.Strings(names)
		e.Field("checks", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for _, name := range names {
					e.Field(name, func(e *jx.Encoder) { e.Str(failures[name]) })
				}
			})
		})
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
