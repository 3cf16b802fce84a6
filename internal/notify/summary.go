// Package notify delivers quote summaries to the business owner.
package notify

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/catering-quote/internal/domain/quote"
)

// Subject returns the subject line for a quote notification.
func Subject(n quote.Notification) string {
	return "New catering quote from " + n.Request.Name
}

// Summary renders n as plain text for a human reader. Negative miles are
// shown as zero.
func Summary(n quote.Notification) string {
	req, est := n.Request, n.Estimate

	miles := req.Miles
	if miles.IsNegative() {
		miles = decimal.Zero
	}

	addr := req.EventAddress
	if addr == "" {
		addr = "not provided"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", req.Name)
	fmt.Fprintf(&b, "Email: %s\n", req.Email)
	fmt.Fprintf(&b, "Event address: %s\n", addr)
	fmt.Fprintf(&b, "Miles: %s\n", miles.StringFixed(1))
	fmt.Fprintf(&b, "Guests: %d\n", req.GuestCount)
	fmt.Fprintf(&b, "Package rate: $%s per guest\n", req.PackageRate.StringFixed(2))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Items: $%s\n", est.Items.StringFixed(2))
	fmt.Fprintf(&b, "Tax: $%s\n", est.Tax.StringFixed(2))
	fmt.Fprintf(&b, "Travel: $%s\n", est.Travel.StringFixed(2))
	fmt.Fprintf(&b, "Total before tip: $%s\n", est.TotalBeforeTip.StringFixed(2))
	fmt.Fprintf(&b, "Tip: $%s\n", est.Tip.StringFixed(2))
	fmt.Fprintf(&b, "Final total: $%s\n", est.FinalTotal.StringFixed(2))
	if n.InvoiceID != "" {
		b.WriteString("\n")
		fmt.Fprintf(&b, "Invoice: %s\n", n.InvoiceID)
		if n.InvoiceURL != "" {
			fmt.Fprintf(&b, "Invoice link: %s\n", n.InvoiceURL)
		}
	}
	return b.String()
}
