package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/j-veylop/energy-kpi/internal/db"
	"github.com/j-veylop/energy-kpi/internal/models"
	"github.com/j-veylop/energy-kpi/internal/services/factors"
)

func newFactorsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "factors",
		Short: "Manage emission factors",
	}
	cmd.AddCommand(newFactorsListCmd(opts), newFactorsApplyCmd(opts))
	return cmd
}

func newFactorsListCmd(opts *rootOptions) *cobra.Command {
	var (
		filter models.EmissionFactorFilter
		output string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored emission factors",
		Example: `  # All factors of one source
  ekpi factors list --source UBA`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			database, err := db.New(opts.cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer database.Close()

			list, err := database.ListEmissionFactors(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("listing emission factors: %w", err)
			}

			if output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), list)
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No emission factors stored.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, tabPadding, ' ', 0)
			fmt.Fprintln(w, "ID\tSource\tCarrier\tFactor\tUnit\tCreated")
			fmt.Fprintln(w, "--\t------\t-------\t------\t----\t-------")
			for _, f := range list {
				fmt.Fprintf(w, "%d\t%s\t%s\t%g\t%s\t%s\n",
					f.ID, f.Source, f.Carrier, f.Factor, f.Unit, f.CreatedAt.Format("2006-01-02"))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&filter.Source, "source", "", "only factors of this source")
	cmd.Flags().StringVar(&filter.Carrier, "carrier", "", "only factors of this carrier")
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format (table, json)")
	return cmd
}

func newFactorsApplyCmd(opts *rootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Register the factors of the seed file",
		Long: "Register every factor of the seed file that is not stored yet. " +
			"A default seed file is written first when none exists.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" {
				file = opts.cfg.Factors.Path
			}

			database, err := db.New(opts.cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer database.Close()

			ctx := cmd.Context()
			before, err := database.ListEmissionFactors(ctx, models.EmissionFactorFilter{})
			if err != nil {
				return err
			}

			svc, err := factors.New(ctx, database, file)
			if err != nil {
				return err
			}
			defer svc.Close()

			after, err := database.ListEmissionFactors(ctx, models.EmissionFactorFilter{})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d emission factors from %s (%d stored).\n",
				len(after)-len(before), svc.Path(), len(after))
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "seed file (overrides factors.path)")
	return cmd
}
