package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/j-veylop/energy-kpi/internal/db"
)

func newVacuumCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "vacuum",
		Short: "Compact the database file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			database, err := db.New(opts.cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer database.Close()

			if err := database.Vacuum(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Vacuumed %s.\n", database.Path())
			return nil
		},
	}
}
