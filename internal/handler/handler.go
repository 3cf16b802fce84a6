package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"

	"github.com/xenking/catering-quote/internal/domain/quote"
	"github.com/xenking/catering-quote/pkg/httpmiddleware"
)

// maxBodyBytes caps the size of a quote request body.
const maxBodyBytes = 64 << 10

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// RequestTimeout bounds the whole vendor call sequence of one quote.
	// Zero disables the deadline.
	RequestTimeout time.Duration
}

// Handler serves the quote endpoints, delegating business logic to the
// quote service.
type Handler struct {
	quotes         *quote.Service
	requestTimeout time.Duration
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(cfg HandlerConfig, quotes *quote.Service) *Handler {
	return &Handler{
		quotes:         quotes,
		requestTimeout: cfg.RequestTimeout,
	}
}

// Routes lists the endpoints served by the handler.
func Routes() []httpmiddleware.Route {
	return []httpmiddleware.Route{
		{Name: "createQuote", Path: "/api/quote"},
		{Name: "estimateQuote", Path: "/api/estimate"},
	}
}

// Register mounts the quote endpoints on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	handlers := map[string]http.HandlerFunc{
		"createQuote":   h.Quote,
		"estimateQuote": h.Estimate,
	}
	for _, rt := range Routes() {
		mux.HandleFunc(rt.Path, handlers[rt.Name])
	}
}

// writeJSON writes status and the object produced by fn.
func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	var e jx.Encoder
	e.Obj(fn)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError writes {"error": msg} with optional diagnostic details.
func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Field("error", func(e *jx.Encoder) { e.Str(msg) })
		if details != "" {
			e.Field("details", func(e *jx.Encoder) { e.Str(details) })
		}
	})
}

// allowPost rejects every method but POST with 405.
func allowPost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodPost {
		return true
	}
	w.Header().Set("Allow", http.MethodPost)
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
	return false
}
