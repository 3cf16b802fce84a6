package commands

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/catering-quote/internal/domain/pricing"
)

type line struct {
	key   string
	label string
	value decimal.Decimal
}

func breakdown(est pricing.Estimate) []line {
	return []line{
		{"items", "Items", est.Items},
		{"tax", "Tax", est.Tax},
		{"travel", "Travel", est.Travel},
		{"total_before_tip", "Total before tip", est.TotalBeforeTip},
		{"tip", "Tip", est.Tip},
		{"final_total", "Final total", est.FinalTotal},
	}
}
