package quote

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/catering-quote/internal/domain/customer"
	"github.com/xenking/catering-quote/internal/domain/invoice"
	"github.com/xenking/catering-quote/internal/domain/order"
	"github.com/xenking/catering-quote/internal/domain/pricing"
)

// Config holds the vendor-side settings every quote shares.
type Config struct {
	LocationID string
	Currency   string
	// InvoiceDueIn is how long after creation the balance payment is due.
	InvoiceDueIn time.Duration
	// NotifyTimeout bounds the best-effort owner notification.
	NotifyTimeout time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithTracerProvider sets the tracer provider used for quote spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = tp.Tracer("quote") }
}

// WithMeterProvider sets the meter provider used for quote counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meter = mp.Meter("quote") }
}

// Service sequences the vendor calls of a quote:
// customer -> order -> invoice -> publish -> notify.
type Service struct {
	cfg       Config
	customers customer.Repository
	orders    order.Repository
	invoices  invoice.Repository
	notifier  Notifier

	tracer trace.Tracer
	meter  metric.Meter

	processed    metric.Int64Counter
	failed       metric.Int64Counter
	notifyFailed metric.Int64Counter

	now    func() time.Time
	newKey func() string
}

// NewService creates a quote Service with the required vendor dependencies.
func NewService(
	cfg Config,
	customers customer.Repository,
	orders order.Repository,
	invoices invoice.Repository,
	notifier Notifier,
	opts ...Option,
) (*Service, error) {
	if cfg.InvoiceDueIn <= 0 {
		cfg.InvoiceDueIn = 7 * 24 * time.Hour
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 5 * time.Second
	}
	s := &Service{
		cfg:       cfg,
		customers: customers,
		orders:    orders,
		invoices:  invoices,
		notifier:  notifier,
		tracer:    otel.GetTracerProvider().Tracer("quote"),
		meter:     otel.GetMeterProvider().Meter("quote"),
		now:       time.Now,
		newKey:    uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}

	var err error
	if s.processed, err = s.meter.Int64Counter("quote.processed",
		metric.WithDescription("Quotes that reached a published invoice"),
	); err != nil {
		return nil, errors.Wrap(err, "processed counter")
	}
	if s.failed, err = s.meter.Int64Counter("quote.failed",
		metric.WithDescription("Quotes aborted by a vendor call, by step"),
	); err != nil {
		return nil, errors.Wrap(err, "failed counter")
	}
	if s.notifyFailed, err = s.meter.Int64Counter("quote.notify.failed",
		metric.WithDescription("Owner notifications that could not be delivered"),
	); err != nil {
		return nil, errors.Wrap(err, "notify counter")
	}
	return s, nil
}

// Estimate prices req without contacting the vendor.
func (s *Service) Estimate(req pricing.Request) (pricing.Estimate, error) {
	if err := CheckAmounts(req); err != nil {
		return pricing.Estimate{}, err
	}
	return pricing.Price(req), nil
}

// Process validates and prices req, then creates the customer, order and
// invoice with the vendor and publishes the invoice. A failing vendor call
// aborts the sequence with an *UpstreamError; nothing is retried or rolled
// back.
func (s *Service) Process(ctx context.Context, req pricing.Request) (*Result, error) {
	req, err := Normalize(req)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "quote.Process")
	defer span.End()

	est := pricing.Price(req)
	res := &Result{Estimate: est}

	if err := s.step(ctx, StepCustomer, func(ctx context.Context) error {
		id, err := s.resolveCustomer(ctx, req)
		res.CustomerID = id
		return err
	}); err != nil {
		return nil, err
	}

	if err := s.step(ctx, StepOrder, func(ctx context.Context) error {
		draft := order.Compose(est, req, s.cfg.LocationID, res.CustomerID, s.cfg.Currency)
		id, err := s.orders.Create(ctx, draft, s.newKey())
		res.OrderID = id
		return err
	}); err != nil {
		return nil, err
	}

	var inv *invoice.Invoice
	if err := s.step(ctx, StepInvoice, func(ctx context.Context) (err error) {
		inv, err = s.invoices.Create(ctx, invoice.Request{
			LocationID: s.cfg.LocationID,
			OrderID:    res.OrderID,
			CustomerID: res.CustomerID,
			Title:      "Catering for " + req.Name,
			DueDate:    s.now().Add(s.cfg.InvoiceDueIn),
		})
		return err
	}); err != nil {
		return nil, err
	}

	if err := s.step(ctx, StepPublish, func(ctx context.Context) (err error) {
		inv, err = s.invoices.Publish(ctx, inv.ID, inv.Version)
		return err
	}); err != nil {
		return nil, err
	}
	res.InvoiceID = inv.ID
	res.InvoiceURL = inv.PublicURL

	s.processed.Add(ctx, 1)
	zctx.From(ctx).Info("Quote invoiced",
		zap.String("customer_id", res.CustomerID),
		zap.String("order_id", res.OrderID),
		zap.String("invoice_id", res.InvoiceID),
		zap.String("final_total", est.FinalTotal.StringFixed(2)),
	)

	s.notify(ctx, Notification{
		Request:    req,
		Estimate:   est,
		InvoiceID:  res.InvoiceID,
		InvoiceURL: res.InvoiceURL,
	})

	return res, nil
}

// step runs one vendor call in its own span and converts its failure into
// an *UpstreamError.
func (s *Service) step(ctx context.Context, name Step, fn func(ctx context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, string(name))
	defer span.End()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(name))
		s.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("step", string(name))))
		zctx.From(ctx).Error("Vendor call failed", zap.String("step", string(name)), zap.Error(err))
		return &UpstreamError{Step: name, Err: err}
	}
	return nil
}

// resolveCustomer returns the id of the customer with exactly req.Email,
// creating one when none exists. Concurrent first-time requests for the
// same email may both create a customer.
func (s *Service) resolveCustomer(ctx context.Context, req pricing.Request) (string, error) {
	c, found, err := s.customers.FindByEmail(ctx, req.Email)
	if err != nil {
		return "", errors.Wrap(err, "search customers")
	}
	if found {
		return c.ID, nil
	}

	c, err = s.customers.Create(ctx, req.Name, req.Email)
	if err != nil {
		return "", errors.Wrap(err, "create customer")
	}
	return c.ID, nil
}

// notify delivers n to the owner. Failures are logged and counted, never
// returned.
func (s *Service) notify(ctx context.Context, n Notification) {
	if s.notifier == nil {
		return
	}

	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.NotifyTimeout)
	defer cancel()

	if err := s.notifier.Notify(nctx, n); err != nil {
		s.notifyFailed.Add(ctx, 1)
		zctx.From(ctx).Warn("Owner notification failed",
			zap.String("invoice_id", n.InvoiceID),
			zap.Error(err),
		)
	}
}
