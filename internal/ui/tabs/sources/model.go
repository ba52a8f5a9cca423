// Package sources provides the tab that splits consumption and emissions by
// energy carrier.
package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/energy-kpi/internal/app"
	"github.com/j-veylop/energy-kpi/internal/models"
	"github.com/j-veylop/energy-kpi/internal/services/kpi"
)

const loadTimeout = 30 * time.Second

// Emissions loads the per carrier emission series for a window.
type Emissions interface {
	ScopeOneEmissions(ctx context.Context, q kpi.Query) ([]models.EmissionsByCarrier, error)
	ScopeTwoEmissions(ctx context.Context, q kpi.Query) ([]models.EmissionsByCarrier, error)
}

// mode selects what the tab breaks down.
type mode int

const (
	modeConsumption mode = iota
	modeEmissions
)

func (m mode) String() string {
	if m == modeEmissions {
		return "Emissions"
	}
	return "Consumption"
}

type keyMap struct {
	ToggleMode key.Binding
	Up         key.Binding
	Down       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		ToggleMode: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "consumption/emissions"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
	}
}

// emissionsLoadedMsg carries both scopes for the summary window.
type emissionsLoadedMsg struct {
	scopeOne []models.EmissionsByCarrier
	scopeTwo []models.EmissionsByCarrier
	err      error
}

// Model represents the sources tab state.
type Model struct {
	state     *app.State
	emissions Emissions
	interval  string
	keys      keyMap
	viewport  viewport.Model
	width     int
	height    int

	mode     mode
	loading  bool
	scopeOne []models.EmissionsByCarrier
	scopeTwo []models.EmissionsByCarrier
	errorMsg string
}

// New creates the sources tab. interval is the bucket size used for the
// emission queries and should match the dashboard summary interval.
func New(state *app.State, emissions Emissions, interval string) *Model {
	return &Model{
		state:     state,
		emissions: emissions,
		interval:  interval,
		keys:      defaultKeyMap(),
		viewport:  viewport.New(0, 0),
	}
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) loadEmissionsCmd() tea.Cmd {
	summary := m.state.Summary()
	if m.emissions == nil || summary == nil {
		return nil
	}
	m.loading = true

	q := kpi.Query{From: &summary.Range.From, To: &summary.Range.To, Interval: m.interval}
	emissions := m.emissions
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		one, err := emissions.ScopeOneEmissions(ctx, q)
		if err != nil {
			return emissionsLoadedMsg{err: err}
		}
		two, err := emissions.ScopeTwoEmissions(ctx, q)
		return emissionsLoadedMsg{scopeOne: one, scopeTwo: two, err: err}
	}
}

// Update handles messages for the sources tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	switch msg := msg.(type) {
	case emissionsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.errorMsg = msg.err.Error()
			return m, func() tea.Msg {
				return app.AddNotificationMsg{
					Type:     app.NotificationError,
					Message:  fmt.Sprintf("Emissions error: %v", msg.err),
					Duration: app.LongNotificationDuration,
				}
			}
		}
		m.errorMsg = ""
		m.scopeOne, m.scopeTwo = msg.scopeOne, msg.scopeTwo

	case app.SummaryLoadedMsg:
		if m.mode == modeEmissions && !m.loading {
			return m, m.loadEmissionsCmd()
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.ToggleMode):
			if m.mode == modeConsumption {
				m.mode = modeEmissions
				return m, m.loadEmissionsCmd()
			}
			m.mode = modeConsumption
		case key.Matches(msg, m.keys.Up, m.keys.Down):
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

// SetSize sets the available size for the sources tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.ToggleMode, m.keys.Up, m.keys.Down}
}
