package square

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"

	"github.com/xenking/catering-quote/internal/domain/invoice"
)

// dueDateLayout is the calendar-date format of payment request due dates.
const dueDateLayout = "2006-01-02"

var _ invoice.Repository = (*InvoiceRepository)(nil)

// InvoiceRepository implements invoice.Repository with the Invoices API.
type InvoiceRepository struct {
	c      *Client
	newKey func() string
}

// NewInvoiceRepository returns an InvoiceRepository that uses the given client.
func NewInvoiceRepository(c *Client) *InvoiceRepository {
	return &InvoiceRepository{c: c, newKey: uuid.NewString}
}

// Create drafts an invoice for an existing order with one balance payment
// request, delivered to the primary recipient by email.
func (r *InvoiceRepository) Create(ctx context.Context, req invoice.Request) (*invoice.Invoice, error) {
	inv := &sq.Invoice{
		LocationID:       sq.String(req.LocationID),
		OrderID:          sq.String(req.OrderID),
		PrimaryRecipient: &sq.InvoiceRecipient{CustomerID: sq.String(req.CustomerID)},
		PaymentRequests: []*sq.InvoicePaymentRequest{{
			RequestType: sq.InvoiceRequestTypeBalance.Ptr(),
			DueDate:     sq.String(req.DueDate.UTC().Format(dueDateLayout)),
		}},
		DeliveryMethod:         sq.InvoiceDeliveryMethodEmail.Ptr(),
		AcceptedPaymentMethods: &sq.InvoiceAcceptedPaymentMethods{Card: sq.Bool(true)},
	}
	if req.Title != "" {
		inv.Title = sq.String(req.Title)
	}

	const path = "/v2/invoices"
	resp, err := r.c.api.Invoices.Create(ctx, &sq.CreateInvoiceRequest{
		Invoice:        inv,
		IdempotencyKey: sq.String(r.newKey()),
	}, r.c.requestOptions()...)
	if err != nil {
		return nil, apiError(http.MethodPost, path, err)
	}
	if deref(resp.GetInvoice().GetID()) == "" {
		return nil, missingID(http.MethodPost, path, "invoice", resp)
	}
	return toInvoice(resp.GetInvoice()), nil
}

// Publish publishes the invoice at the given version, which makes the vendor
// email it to the customer.
func (r *InvoiceRepository) Publish(ctx context.Context, id string, version int64) (*invoice.Invoice, error) {
	path := "/v2/invoices/" + url.PathEscape(id) + "/publish"
	resp, err := r.c.api.Invoices.Publish(ctx, &sq.PublishInvoiceRequest{
		InvoiceID:      id,
		Version:        int(version),
		IdempotencyKey: sq.String(r.newKey()),
	}, r.c.requestOptions()...)
	if err != nil {
		return nil, apiError(http.MethodPost, path, err)
	}
	if deref(resp.GetInvoice().GetID()) == "" {
		return nil, missingID(http.MethodPost, path, "invoice", resp)
	}
	return toInvoice(resp.GetInvoice()), nil
}

func toInvoice(inv *sq.Invoice) *invoice.Invoice {
	return &invoice.Invoice{
		ID:        deref(inv.GetID()),
		Version:   int64(deref(inv.GetVersion())),
		Status:    string(deref(inv.GetStatus())),
		PublicURL: deref(inv.GetPublicURL()),
	}
}
