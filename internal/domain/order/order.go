package order

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/xenking/catering-quote/internal/domain/pricing"
)

// Line item names as they appear on the vendor invoice.
const (
	PackageItemName = "Package"
	TravelItemName  = "Travel Fee"
	TipItemName     = "Tip"
)

// SalesTaxUID identifies the order-level sales tax referenced by taxable
// line items.
const SalesTaxUID = "sales-tax"

// TaxType enumerates how a tax is combined with the line item price.
type TaxType string

// TaxAdditive adds the tax on top of the line item price.
const TaxAdditive TaxType = "ADDITIVE"

// TaxScope enumerates what a tax definition applies to.
type TaxScope string

// TaxScopeLineItem applies the tax only to line items that reference it.
const TaxScopeLineItem TaxScope = "LINE_ITEM"

// Money is an exact amount in minor currency units (e.g. cents).
type Money struct {
	Amount   int64
	Currency string
}

// Tax is an order-level percentage tax definition.
type Tax struct {
	UID        string
	Name       string
	Percentage string
	Type       TaxType
	Scope      TaxScope
}

// LineItem is a single priced entry of an order.
type LineItem struct {
	Name         string
	Quantity     string
	BasePrice    Money
	AppliedTaxes []string
}

// Draft is a vendor-neutral description of the order to create.
type Draft struct {
	LocationID string
	CustomerID string
	Taxes      []Tax
	LineItems  []LineItem
	Note       string
}

// ToMoney converts a decimal amount to minor units, rounding half away from
// zero to the nearest cent.
func ToMoney(amount decimal.Decimal, currency string) Money {
	return Money{
		Amount:   amount.Round(2).Shift(2).IntPart(),
		Currency: currency,
	}
}

// Compose maps a priced estimate onto an order draft: the package line carries
// the sales tax, while travel and tip are untaxed single-quantity lines.
func Compose(est pricing.Estimate, req pricing.Request, locationID, customerID, currency string) Draft {
	return Draft{
		LocationID: locationID,
		CustomerID: customerID,
		Taxes: []Tax{{
			UID:        SalesTaxUID,
			Name:       "Sales Tax",
			Percentage: pricing.TaxRate.Shift(2).String(),
			Type:       TaxAdditive,
			Scope:      TaxScopeLineItem,
		}},
		LineItems: []LineItem{
			{
				Name:         PackageItemName,
				Quantity:     strconv.Itoa(req.GuestCount),
				BasePrice:    ToMoney(req.PackageRate, currency),
				AppliedTaxes: []string{SalesTaxUID},
			},
			{
				Name:      TravelItemName,
				Quantity:  "1",
				BasePrice: ToMoney(est.Travel, currency),
			},
			{
				Name:      TipItemName,
				Quantity:  "1",
				BasePrice: ToMoney(est.Tip, currency),
			},
		},
		Note: Note(req),
	}
}

// Note renders the free-text order note from the event address and distance.
func Note(req pricing.Request) string {
	addr := req.EventAddress
	if addr == "" {
		addr = "not provided"
	}
	miles := req.Miles
	if miles.IsNegative() {
		miles = decimal.Zero
	}
	return "Event address: " + addr + "\nMiles: " + miles.StringFixed(1)
}

// Repository creates orders with the invoicing vendor.
type Repository interface {
	// Create submits the draft and returns the vendor order id. The
	// idempotency key must be unique per attempt.
	Create(ctx context.Context, draft Draft, idempotencyKey string) (string, error)
}
