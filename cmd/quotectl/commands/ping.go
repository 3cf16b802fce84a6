package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/xenking/catering-quote/internal/square"
)

func pingCmd() *cobra.Command {
	cfg := square.Config{Timeout: 10 * time.Second}
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check vendor credentials against the configured location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.AccessToken == "" {
				cfg.AccessToken = os.Getenv("SQUARE_ACCESS_TOKEN")
			}
			if cfg.LocationID == "" {
				cfg.LocationID = os.Getenv("SQUARE_LOCATION_ID")
			}
			if cfg.AccessToken == "" || cfg.LocationID == "" {
				return errors.New("access token and location ID are required")
			}

			start := time.Now()
			if err := square.NewClient(cfg).Ping(cmd.Context()); err != nil {
				return errors.Wrap(err, "ping")
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "location %s reachable in %s\n",
				cfg.LocationID, time.Since(start).Round(time.Millisecond))
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "base-url", "https://connect.squareup.com", "vendor API base URL")
	f.StringVar(&cfg.APIVersion, "api-version", "2024-10-17", "vendor API version")
	f.StringVar(&cfg.AccessToken, "token", "", "access token (default $SQUARE_ACCESS_TOKEN)")
	f.StringVar(&cfg.LocationID, "location", "", "location ID (default $SQUARE_LOCATION_ID)")
	return cmd
}
