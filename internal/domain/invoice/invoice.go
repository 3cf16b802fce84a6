package invoice

import (
	"context"
	"time"
)

// Invoice is a vendor invoice. Version must be echoed back when publishing.
type Invoice struct {
	ID        string
	Version   int64
	Status    string
	PublicURL string
}

// Request describes an invoice for an existing order, billed in full as a
// single balance payment.
type Request struct {
	LocationID string
	OrderID    string
	CustomerID string
	Title      string
	DueDate    time.Time
}

// Repository creates and publishes vendor invoices.
type Repository interface {
	Create(ctx context.Context, req Request) (*Invoice, error)
	// Publish makes the invoice visible and triggers delivery to the customer.
	Publish(ctx context.Context, id string, version int64) (*Invoice, error)
}
