// Package quote orchestrates turning a catering quote request into a
// published vendor invoice.
package quote

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/catering-quote/internal/domain/pricing"
)

// ErrMissingContact is returned when the request lacks a name or an email.
var ErrMissingContact = errors.New("missing name or email")

// InvalidFieldError indicates a numeric input outside its allowed range.
// An empty Reason means the value was negative.
type InvalidFieldError struct {
	Field  string
	Reason string
}

func (e *InvalidFieldError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "must be non-negative"
	}
	return fmt.Sprintf("%s %s", e.Field, reason)
}

// ReasonOutOfRange marks values beyond the pricing input bounds.
const ReasonOutOfRange = "is out of range"

// Step names one vendor call of the quote sequence.
type Step string

// Vendor calls, in the order they are made.
const (
	StepCustomer Step = "find or create customer"
	StepOrder    Step = "create order"
	StepInvoice  Step = "create invoice"
	StepPublish  Step = "publish invoice"
)

// UpstreamError reports the vendor call that aborted the sequence. Objects
// created by earlier steps are left in place.
type UpstreamError struct {
	Step Step
	Err  error
}

func (e *UpstreamError) Error() string {
	return string(e.Step) + ": " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Result holds the identifiers produced by a successful quote.
type Result struct {
	Estimate   pricing.Estimate
	CustomerID string
	OrderID    string
	InvoiceID  string
	InvoiceURL string
}

// Notification is the operator-facing summary of a processed quote.
type Notification struct {
	Request    pricing.Request
	Estimate   pricing.Estimate
	InvoiceID  string
	InvoiceURL string
}

// Notifier delivers notifications to the business owner.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// Normalize trims contact fields and checks that the request can be priced
// and invoiced. Miles are not checked: pricing clamps them.
func Normalize(req pricing.Request) (pricing.Request, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.EventAddress = strings.TrimSpace(req.EventAddress)
	if req.Name == "" || req.Email == "" {
		return req, ErrMissingContact
	}
	if err := CheckAmounts(req); err != nil {
		return req, err
	}
	return req, nil
}

// CheckAmounts rejects a negative package rate or guest count.
func CheckAmounts(req pricing.Request) error {
	if req.PackageRate.IsNegative() {
		return &InvalidFieldError{Field: "package_rate"}
	}
	if req.GuestCount < 0 {
		return &InvalidFieldError{Field: "guests"}
	}
	return nil
}
