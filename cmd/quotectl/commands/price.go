package commands

import (
	"fmt"

	"github.com/go-faster/jx"
	"github.com/spf13/cobra"

	"github.com/xenking/catering-quote/internal/domain/pricing"
	"github.com/xenking/catering-quote/internal/domain/quote"
)

func priceCmd() *cobra.Command {
	var (
		ev     eventFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Print the quote breakdown for an event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := ev.request()
			if err != nil {
				return err
			}
			if err := quote.CheckAmounts(req); err != nil {
				return err
			}
			est := pricing.Price(req)

			out := cmd.OutOrStdout()
			if asJSON {
				var e jx.Encoder
				e.Obj(func(e *jx.Encoder) {
					for _, l := range breakdown(est) {
						e.Field(l.key, func(e *jx.Encoder) { e.Num(jx.Num(l.value.String())) })
					}
				})
				_, err := fmt.Fprintln(out, e.String())
				return err
			}
			for _, l := range breakdown(est) {
				if _, err := fmt.Fprintf(out, "%-18s %10s\n", l.label, "$"+l.value.StringFixed(2)); err != nil {
					return err
				}
			}
			return nil
		},
	}
	ev.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print totals as JSON")
	return cmd
}
