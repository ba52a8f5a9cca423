package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPricesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prices",
		Short: "Day-ahead grid prices",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "poll",
		Short: "Fetch new grid prices once",
		Long:  "Fetch every day-ahead price newer than the last stored one and store it in the grid price series.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.cfg.Prices.Enabled = true

			mgr, err := opts.manager(cmd.Context())
			if err != nil {
				return err
			}
			defer closeManager(cmd, mgr)

			inserted, err := mgr.Prices().Poll(cmd.Context())
			if err != nil {
				return fmt.Errorf("polling prices: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %d new prices.\n", inserted)
			return nil
		},
	})
	return cmd
}
