package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/j-veylop/energy-kpi/internal/app"
	"github.com/j-veylop/energy-kpi/internal/logger"
	"github.com/j-veylop/energy-kpi/internal/ui/tabs/info"
	"github.com/j-veylop/energy-kpi/internal/ui/tabs/overview"
	"github.com/j-veylop/energy-kpi/internal/ui/tabs/sources"
)

// dashboardLogName is written next to the database; the terminal belongs to the TUI.
const dashboardLogName = "dashboard.log"

func newDashboardCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Open the terminal dashboard",
		Long: `Open the terminal dashboard.

Keyboard Shortcuts:
  1-3             Switch between tabs (Overview, Sources, Info)
  Tab/Shift+Tab   Navigate between tabs
  j/k, Up/Down    Scroll
  e               Toggle consumption and emissions (Sources)
  r               Refresh now
  ?               Toggle help
  q, Ctrl+C       Quit`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDashboard(cmd.Context(), opts)
		},
	}
}

func runDashboard(parent context.Context, opts *rootOptions) error {
	cfg := opts.cfg

	logPath := filepath.Join(filepath.Dir(cfg.Database.Path), dashboardLogName)
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("opening dashboard log: %w", err)
	}
	defer logFile.Close()
	logger.Init(cfg.Log.Level, "json", logFile)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgr, err := opts.manager(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := mgr.Close(); closeErr != nil {
			logger.Warn("error closing services", "error", closeErr)
		}
	}()

	model := app.NewModel(mgr)
	state := model.State()
	model.SetTabs([]app.Tab{
		overview.New(state),
		sources.New(state, mgr.KPI(), cfg.Dashboard.Interval),
		info.New(state, cfg),
	})

	mgr.Start(ctx)
	mgr.StartRefresh(ctx)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("error running dashboard: %w", err)
	}
	return nil
}
