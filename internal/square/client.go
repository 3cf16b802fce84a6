// Package square implements the invoicing vendor repositories on top of the
// Square Go SDK.
package square

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	sqclient "github.com/square/square-go-sdk/client"
	"github.com/square/square-go-sdk/core"
	"github.com/square/square-go-sdk/option"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Config holds the vendor connection settings.
type Config struct {
	BaseURL     string
	AccessToken string
	APIVersion  string
	LocationID  string
	// Timeout bounds every single API call.
	Timeout time.Duration
}

// APIError is returned for any call that fails at the HTTP level or whose
// response lacks the expected identifier. Body holds the raw response.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Reason     string
	Body       string
}

func (e *APIError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = fmt.Sprintf("status %d", e.StatusCode)
	}
	if e.Body == "" {
		return fmt.Sprintf("%s %s: %s", e.Method, e.Path, reason)
	}
	return fmt.Sprintf("%s %s: %s: %s", e.Method, e.Path, reason, e.Body)
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	transport http.RoundTripper
	tp        trace.TracerProvider
	mp        metric.MeterProvider
}

// WithTransport sets the base round tripper wrapped by instrumentation.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *clientOptions) { o.transport = rt }
}

// WithTracerProvider sets the tracer provider for outgoing requests.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *clientOptions) { o.tp = tp }
}

// WithMeterProvider sets the meter provider for outgoing requests.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *clientOptions) { o.mp = mp }
}

// Client performs authenticated calls against the vendor API.
type Client struct {
	api        *sqclient.Client
	version    string
	locationID string
}

// NewClient creates a Client. Every request carries the bearer token and the
// API version header. The SDK retrier is limited to a single attempt.
func NewClient(cfg Config, opts ...Option) *Client {
	o := clientOptions{
		transport: http.DefaultTransport,
		tp:        otel.GetTracerProvider(),
		mp:        otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	httpClient := &http.Client{
		Timeout: cfg.Timeout,
		Transport: otelhttp.NewTransport(o.transport,
			otelhttp.WithTracerProvider(o.tp),
			otelhttp.WithMeterProvider(o.mp),
		),
	}
	c := &Client{
		version:    cfg.APIVersion,
		locationID: cfg.LocationID,
	}
	c.api = sqclient.NewClient(c.requestOptions(
		option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")),
		option.WithToken(cfg.AccessToken),
		option.WithHTTPClient(httpClient),
	)...)
	return c
}

// requestOptions appends the settings the SDK would otherwise reset to its
// own defaults on every call.
func (c *Client) requestOptions(extra ...option.RequestOption) []option.RequestOption {
	opts := append([]option.RequestOption{}, extra...)
	opts = append(opts, option.WithMaxAttempts(1))
	if c.version != "" {
		opts = append(opts, &core.VersionOption{Version: c.version})
	}
	return opts
}

// apiError converts an SDK failure into an *APIError. Transport and context
// errors are wrapped as is.
func apiError(method, path string, err error) error {
	var sdkErr *core.APIError
	if errors.As(err, &sdkErr) {
		e := &APIError{Method: method, Path: path, StatusCode: sdkErr.StatusCode}
		if body := sdkErr.Unwrap(); body != nil {
			e.Body = body.Error()
		}
		return e
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	return &APIError{
		Method:     method,
		Path:       path,
		StatusCode: http.StatusOK,
		Reason:     "decode response: " + err.Error(),
	}
}

// missingID builds the error for a successful response without an id.
func missingID[T any, P interface {
	*T
	fmt.Stringer
}](method, path, object string, resp P) *APIError {
	body := "null"
	if resp != nil {
		body = resp.String()
	}
	return &APIError{
		Method:     method,
		Path:       path,
		StatusCode: http.StatusOK,
		Reason:     "response has no " + object + " id",
		Body:       body,
	}
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
