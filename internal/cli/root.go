// Package cli wires the ekpi cobra commands to the services.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/j-veylop/energy-kpi/internal/config"
	"github.com/j-veylop/energy-kpi/internal/logger"
	"github.com/j-veylop/energy-kpi/internal/services"
	"github.com/j-veylop/energy-kpi/internal/version"
)

// rootOptions holds the persistent flags and the configuration loaded from them.
type rootOptions struct {
	configFile string
	logLevel   string
	logFormat  string
	cfg        *config.Config
}

// NewRootCmd creates the root command. The configuration is loaded once in
// PersistentPreRunE and shared with every subcommand.
func NewRootCmd(ver string) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           version.Name,
		Short:         "Energy KPI backend",
		Long:          "ekpi computes energy KPIs such as self-consumption, autarky, emissions and savings from metered time series.",
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format (json, console)")

	cmd.AddCommand(
		newServeCmd(opts),
		newKPICmd(opts),
		newFactorsCmd(opts),
		newPricesCmd(opts),
		newIngestCmd(opts),
		newDashboardCmd(opts),
		newVacuumCmd(opts),
		newVersionCmd(),
	)

	return cmd
}

// load reads the configuration, applies the flag overrides and sets up logging.
func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	logger.Debug("configuration loaded", "database", cfg.Database.Path, "cache", cfg.Cache.Backend)

	o.cfg = cfg
	return nil
}

// manager builds a service manager from the loaded configuration. The caller closes it.
func (o *rootOptions) manager(ctx context.Context) (*services.Manager, error) {
	mgr, err := services.NewManager(ctx, o.cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing services: %w", err)
	}
	return mgr, nil
}

func closeManager(cmd *cobra.Command, mgr *services.Manager) {
	if err := mgr.Close(); err != nil {
		cmd.PrintErrf("Warning: error closing services: %v\n", err)
	}
}

const rootCmdExample = `  # Serve the HTTP API with background ingestion and price polling
  ekpi serve

  # Print every KPI for the last day
  ekpi kpi --from 2026-01-01T00:00:00Z --to 2026-01-02T00:00:00Z

  # Print one KPI as JSON
  ekpi kpi autarky --interval 15min --output json

  # Re-apply emission factors from the seed file
  ekpi factors apply

  # Open the terminal dashboard
  ekpi dashboard`
