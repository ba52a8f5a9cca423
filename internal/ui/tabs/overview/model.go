// Package overview provides the headline KPI tab of the dashboard.
package overview

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/energy-kpi/internal/app"
	"github.com/j-veylop/energy-kpi/internal/models"
	"github.com/j-veylop/energy-kpi/internal/ui/components"
)

type keyMap struct {
	Up   key.Binding
	Down key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
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

// Model represents the overview tab state.
type Model struct {
	state           *app.State
	spinner         components.LoadingSpinner
	keys            keyMap
	viewport        viewport.Model
	selfConsumption components.ShareGauge
	autarky         components.ShareGauge
	width           int
	height          int
}

// New creates a new overview model.
func New(state *app.State) *Model {
	return &Model{
		state:           state,
		spinner:         components.NewSpinner("Computing KPIs..."),
		keys:            defaultKeyMap(),
		viewport:        viewport.New(0, 0),
		selfConsumption: components.NewShareGauge(),
		autarky:         components.NewShareGauge(),
	}
}

func (m *Model) Init() tea.Cmd {
	return m.spinner.Init()
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case app.SummaryLoadedMsg:
		if msg.Summary != nil {
			cmds = append(cmds,
				m.selfConsumption.SetRatio(msg.Summary.Value(models.KpiSelfConsumption)),
				m.autarky.SetRatio(msg.Summary.Value(models.KpiAutarky)),
			)
		}

	case components.GaugeTickMsg:
		var cmd tea.Cmd
		m.selfConsumption, cmd = m.selfConsumption.Update(msg)
		cmds = append(cmds, cmd)
		m.autarky, cmd = m.autarky.Update(msg)
		cmds = append(cmds, cmd)

	case spinner.TickMsg:
		if m.state.IsLoading() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Up, m.keys.Down) {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

// SetSize sets the available size for the overview.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Up, m.keys.Down}
}
