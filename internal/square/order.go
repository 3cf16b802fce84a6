package square

import (
	"context"
	"net/http"

	sq "github.com/square/square-go-sdk"
	"github.com/square/square-go-sdk/option"

	"github.com/xenking/catering-quote/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository with the Orders API.
type OrderRepository struct {
	c *Client
}

// NewOrderRepository returns an OrderRepository that uses the given client.
func NewOrderRepository(c *Client) *OrderRepository {
	return &OrderRepository{c: c}
}

// Create submits the draft as a new order. The idempotency key is sent both
// as the Idempotency-Key header and in the request body.
func (r *OrderRepository) Create(ctx context.Context, draft order.Draft, idempotencyKey string) (string, error) {
	const path = "/v2/orders"
	resp, err := r.c.api.Orders.Create(ctx, NewCreateOrderRequest(draft, idempotencyKey),
		r.c.requestOptions(option.WithHTTPHeader(http.Header{"Idempotency-Key": {idempotencyKey}}))...,
	)
	if err != nil {
		return "", apiError(http.MethodPost, path, err)
	}

	id := deref(resp.GetOrder().GetID())
	if id == "" {
		return "", missingID(http.MethodPost, path, "order", resp)
	}
	return id, nil
}

// NewCreateOrderRequest maps a draft onto the vendor order request. Orders
// carry no free-text note of their own, so the draft note is attached to the
// first line item.
func NewCreateOrderRequest(draft order.Draft, idempotencyKey string) *sq.CreateOrderRequest {
	o := &sq.Order{
		LocationID: draft.LocationID,
		CustomerID: sq.String(draft.CustomerID),
	}
	for _, t := range draft.Taxes {
		o.Taxes = append(o.Taxes, &sq.OrderLineItemTax{
			UID:        sq.String(t.UID),
			Name:       sq.String(t.Name),
			Percentage: sq.String(t.Percentage),
			Type:       sq.OrderLineItemTaxType(t.Type).Ptr(),
			Scope:      sq.OrderLineItemTaxScope(t.Scope).Ptr(),
		})
	}
	for i, li := range draft.LineItems {
		item := &sq.OrderLineItem{
			Name:           sq.String(li.Name),
			Quantity:       li.Quantity,
			BasePriceMoney: toMoney(li.BasePrice),
		}
		for _, uid := range li.AppliedTaxes {
			item.AppliedTaxes = append(item.AppliedTaxes, &sq.OrderLineItemAppliedTax{TaxUID: uid})
		}
		if i == 0 && draft.Note != "" {
			item.Note = sq.String(draft.Note)
		}
		o.LineItems = append(o.LineItems, item)
	}

	return &sq.CreateOrderRequest{
		Order:          o,
		IdempotencyKey: sq.String(idempotencyKey),
	}
}

func toMoney(m order.Money) *sq.Money {
	return &sq.Money{
		Amount:   sq.Int64(m.Amount),
		Currency: sq.Currency(m.Currency).Ptr(),
	}
}
