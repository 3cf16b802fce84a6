package customer

import "context"

// Customer is a vendor customer record.
type Customer struct {
	ID    string
	Name  string
	Email string
}

// Repository looks up and creates vendor customer records.
type Repository interface {
	// FindByEmail returns the first customer whose email matches exactly.
	// found is false when no customer matches.
	FindByEmail(ctx context.Context, email string) (c *Customer, found bool, err error)
	Create(ctx context.Context, name, email string) (*Customer, error)
}
