// Package commands implements quotectl, an operator tool for pricing quotes
// offline and checking vendor access.
package commands

import (
	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/xenking/catering-quote/internal/domain/pricing"
)

// eventFlags are the pricing inputs shared by subcommands. Values are parsed
// the same way as the API's numeric fields.
type eventFlags struct {
	miles  string
	rate   string
	guests string
}

func (f *eventFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.miles, "miles", "0", "one-way distance to the event in miles")
	cmd.Flags().StringVar(&f.rate, "rate", "0", "package rate per guest")
	cmd.Flags().StringVar(&f.guests, "guests", "0", "number of guests")
}

func (f *eventFlags) request() (pricing.Request, error) {
	var (
		req pricing.Request
		err error
	)
	if req.Miles, err = pricing.ParseAmount(f.miles); err != nil {
		return req, errors.Wrap(err, "--miles")
	}
	if req.PackageRate, err = pricing.ParseAmount(f.rate); err != nil {
		return req, errors.Wrap(err, "--rate")
	}
	if req.GuestCount, err = pricing.ParseCount(f.guests); err != nil {
		return req, errors.Wrap(err, "--guests")
	}
	return req, nil
}

// NewRoot builds the quotectl command tree.
func NewRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "quotectl",
		Short:         "Catering quote operator tool",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(priceCmd(), draftCmd(), pingCmd())
	return root
}

// Execute runs quotectl with os.Args.
func Execute() error {
	return NewRoot().Execute()
}
