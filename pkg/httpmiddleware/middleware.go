// Package httpmiddleware contains the HTTP middleware chain of the quote API.
package httpmiddleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Middleware wraps an http.Handler.
type Middleware func(h http.Handler) http.Handler

// Wrap applies middlewares to h. The first middleware is the outermost.
func Wrap(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// InjectLogger makes lg the base logger of every request context.
func InjectLogger(lg *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(zctx.Base(r.Context(), lg)))
		})
	}
}

// Route names an endpoint for logs, spans and metrics.
type Route struct {
	// Name is the operation name, e.g. "createQuote".
	Name string
	// Path is the exact request path, e.g. "/api/quote".
	Path string
}

// RouteFinder resolves the route serving a request.
type RouteFinder func(method string, u *url.URL) (Route, bool)

// MakeRouteFinder builds a RouteFinder over exact paths. A trailing slash on
// the request path is ignored.
func MakeRouteFinder(routes ...Route) RouteFinder {
	byPath := make(map[string]Route, len(routes))
	for _, rt := range routes {
		byPath[rt.Path] = rt
	}
	return func(_ string, u *url.URL) (Route, bool) {
		p := u.Path
		if len(p) > 1 {
			p = strings.TrimSuffix(p, "/")
		}
		rt, ok := byPath[p]
		return rt, ok
	}
}

// writeError writes the API's {"error": msg} body.
func writeError(w http.ResponseWriter, status int, msg string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("error", func(e *jx.Encoder) { e.Str(msg) })
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
