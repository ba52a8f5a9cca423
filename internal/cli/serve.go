package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/j-veylop/energy-kpi/internal/api"
	"github.com/j-veylop/energy-kpi/internal/logger"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: "Serve the HTTP API. Kafka ingestion, price polling and the autarky " +
			"alert run alongside when enabled in the configuration.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				opts.cfg.HTTP.Addr = addr
			}
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides http.addr)")
	return cmd
}

func runServe(cmd *cobra.Command, opts *rootOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgr, err := opts.manager(ctx)
	if err != nil {
		return err
	}
	defer closeManager(cmd, mgr)

	cfg := opts.cfg
	server := api.NewServer(api.Config{
		Addr:            cfg.HTTP.Addr,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
		CacheTTL:        cfg.CacheTTL(),
	}, mgr.KPI(), mgr.Database(), mgr.Cache(), mgr.Metrics())

	mgr.Start(ctx)
	if cfg.Dashboard.AutarkyAlert > 0 {
		mgr.StartRefresh(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(gctx)
	})
	g.Go(func() error {
		return mgr.RunIngest(gctx)
	})

	err = g.Wait()
	logger.Info("shutdown complete")
	return err
}
