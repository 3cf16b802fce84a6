package commands

import (
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/xenking/catering-quote/internal/domain/order"
	"github.com/xenking/catering-quote/internal/domain/pricing"
	"github.com/xenking/catering-quote/internal/domain/quote"
	"github.com/xenking/catering-quote/internal/square"
)

func draftCmd() *cobra.Command {
	var (
		ev         eventFlags
		name       string
		email      string
		address    string
		locationID string
		customerID string
		currency   string
		key        string
	)
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Print the create order request the service would send",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := ev.request()
			if err != nil {
				return err
			}
			req.Name, req.Email, req.EventAddress = name, email, address

			req, err = quote.Normalize(req)
			if err != nil {
				return err
			}
			if key == "" {
				key = uuid.NewString()
			}

			draft := order.Compose(pricing.Price(req), req, locationID, customerID, currency)
			body, err := json.MarshalIndent(square.NewCreateOrderRequest(draft, key), "", "  ")
			if err != nil {
				return errors.Wrap(err, "encode order")
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(body))
			return err
		},
	}
	ev.register(cmd)
	f := cmd.Flags()
	f.StringVar(&name, "name", "", "customer name")
	f.StringVar(&email, "email", "", "customer email")
	f.StringVar(&address, "address", "", "event address")
	f.StringVar(&locationID, "location", "LOCATION_ID", "vendor location ID")
	f.StringVar(&customerID, "customer", "CUSTOMER_ID", "vendor customer ID")
	f.StringVar(&currency, "currency", "USD", "order currency")
	f.StringVar(&key, "idempotency-key", "", "idempotency key (random when empty)")
	return cmd
}
