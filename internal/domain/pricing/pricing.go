// Package pricing turns raw catering quote inputs into an itemized estimate.
package pricing

import (
	"math"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Fixed pricing policy.
var (
	// TaxRate applies to the items subtotal only.
	TaxRate = decimal.RequireFromString("0.0625")
	// TipRate applies to the items subtotal only.
	TipRate = decimal.RequireFromString("0.18")
	// TravelBase is the flat travel fee charged for every event.
	TravelBase = decimal.NewFromInt(50)
	// PerMile is added to the travel fee for each mile driven.
	PerMile = decimal.NewFromInt(4)
)

// Input bounds. Parsed amounts must stay below MaxAmount in magnitude and
// carry at most MaxScale fractional digits.
const (
	MaxScale = 10
	MaxCount = math.MaxInt32

	maxExponent = 9
)

// MaxAmount is the exclusive upper bound of a parsed amount's magnitude.
var MaxAmount = decimal.New(1, maxExponent)

// ErrOutOfRange is returned for numeric input outside the accepted bounds.
var ErrOutOfRange = errors.New("value out of range")

// Request holds the customer-supplied quote inputs.
type Request struct {
	Name         string
	Email        string
	EventAddress string
	Miles        decimal.Decimal
	PackageRate  decimal.Decimal
	GuestCount   int
}

// Estimate is the fully itemized price of a Request. Amounts are not rounded.
type Estimate struct {
	Items          decimal.Decimal
	Tax            decimal.Decimal
	Travel         decimal.Decimal
	Tip            decimal.Decimal
	TotalBeforeTip decimal.Decimal
	FinalTotal     decimal.Decimal
}

// Price computes the estimate for req. Negative miles are treated as zero.
func Price(req Request) Estimate {
	miles := req.Miles
	if miles.IsNegative() {
		miles = decimal.Zero
	}

	items := req.PackageRate.Mul(decimal.NewFromInt(int64(req.GuestCount)))
	tax := TaxRate.Mul(items)
	travel := TravelBase.Add(PerMile.Mul(miles))
	tip := TipRate.Mul(items)
	beforeTip := travel.Add(items).Add(tax)

	return Estimate{
		Items:          items,
		Tax:            tax,
		Travel:         travel,
		Tip:            tip,
		TotalBeforeTip: beforeTip,
		FinalTotal:     beforeTip.Add(tip),
	}
}

// ParseAmount converts raw numeric text to a decimal. Empty or malformed
// input yields zero. Values outside the input bounds fail with ErrOutOfRange.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, nil
	}
	if d.IsZero() {
		return decimal.Zero, nil
	}
	// The exponent is checked first: comparing or adding decimals rescales
	// them, which costs 10^|exp|.
	if exp := d.Exponent(); exp > maxExponent || exp < -MaxScale {
		return decimal.Zero, ErrOutOfRange
	}
	if d.Abs().GreaterThanOrEqual(MaxAmount) {
		return decimal.Zero, ErrOutOfRange
	}
	return d, nil
}

// ParseCount converts raw numeric text to a whole count, truncating any
// fractional part toward zero. Empty or malformed input yields zero.
func ParseCount(s string) (int, error) {
	d, err := ParseAmount(s)
	if err != nil {
		return 0, err
	}
	n := d.Truncate(0)
	if n.Abs().GreaterThan(decimal.NewFromInt(MaxCount)) {
		return 0, ErrOutOfRange
	}
	return int(n.IntPart()), nil
}
