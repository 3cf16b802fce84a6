package square

import (
	"context"
	"net/http"
	"strings"

	sq "github.com/square/square-go-sdk"

	"github.com/xenking/catering-quote/internal/domain/customer"
)

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository with the Customers API.
type CustomerRepository struct {
	c *Client
}

// NewCustomerRepository returns a CustomerRepository that uses the given client.
func NewCustomerRepository(c *Client) *CustomerRepository {
	return &CustomerRepository{c: c}
}

// FindByEmail searches customers with the vendor's exact email filter and
// returns the first result whose address equals email byte for byte.
func (r *CustomerRepository) FindByEmail(ctx context.Context, email string) (*customer.Customer, bool, error) {
	resp, err := r.c.api.Customers.Search(ctx, &sq.SearchCustomersRequest{
		Query: &sq.CustomerQuery{
			Filter: &sq.CustomerFilter{
				EmailAddress: &sq.CustomerTextFilter{Exact: sq.String(email)},
			},
		},
		Limit: sq.Int64(1),
	}, r.c.requestOptions()...)
	if err != nil {
		return nil, false, apiError(http.MethodPost, "/v2/customers/search", err)
	}

	for _, found := range resp.GetCustomers() {
		c := toCustomer(found)
		if c.ID != "" && c.Email == email {
			return &c, true, nil
		}
	}
	return nil, false, nil
}

// Create registers a new customer. The full name is sent as the given name.
func (r *CustomerRepository) Create(ctx context.Context, name, email string) (*customer.Customer, error) {
	const path = "/v2/customers"
	resp, err := r.c.api.Customers.Create(ctx, &sq.CreateCustomerRequest{
		GivenName:    sq.String(name),
		EmailAddress: sq.String(email),
	}, r.c.requestOptions()...)
	if err != nil {
		return nil, apiError(http.MethodPost, path, err)
	}

	c := toCustomer(resp.GetCustomer())
	if c.ID == "" {
		return nil, missingID(http.MethodPost, path, "customer", resp)
	}
	return &c, nil
}

func toCustomer(c *sq.Customer) customer.Customer {
	given, fam := deref(c.GetGivenName()), deref(c.GetFamilyName())
	return customer.Customer{
		ID:    deref(c.GetID()),
		Name:  strings.TrimSpace(given + " " + fam),
		Email: deref(c.GetEmailAddress()),
	}
}
