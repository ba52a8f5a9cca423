// Package info provides the configuration and build info tab.
package info

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/energy-kpi/internal/app"
	"github.com/j-veylop/energy-kpi/internal/config"
)

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding
}

var keys = keyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Top:    key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "top")),
	Bottom: key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "bottom")),
}

// Model shows the effective configuration of the running process.
type Model struct {
	state    *app.State
	config   *config.Config
	viewport viewport.Model
	width    int
	height   int
}

// New creates the info tab. cfg may be nil.
func New(state *app.State, cfg *config.Config) *Model {
	return &Model{state: state, config: cfg, viewport: viewport.New(0, 0)}
}

func (m *Model) Init() tea.Cmd { return nil }

// Update only scrolls; the content is rebuilt on every View.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, keys.Top):
		m.viewport.GotoTop()
	case key.Matches(keyMsg, keys.Bottom):
		m.viewport.GotoBottom()
	case key.Matches(keyMsg, keys.Up, keys.Down):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(keyMsg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) SetSize(width, height int) {
	m.width, m.height = width, height
	m.viewport.Width, m.viewport.Height = width, height
}

func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{keys.Up, keys.Down, keys.Top, keys.Bottom}
}
