package app

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/energy-kpi/internal/services"
	"github.com/j-veylop/energy-kpi/internal/services/kpi"
)

// stubTab records the messages it receives.
type stubTab struct {
	name     string
	received []tea.Msg
	width    int
	height   int
}

func (s *stubTab) Init() tea.Cmd             { return nil }
func (s *stubTab) View() string              { return "content of " + s.name + strings.Repeat("\n", s.height) }
func (s *stubTab) SetSize(width, height int) { s.width, s.height = width, height }
func (s *stubTab) ShortHelp() []key.Binding {
	return []key.Binding{key.NewBinding(key.WithKeys("x"), key.WithHelp("x", s.name+" action"))}
}

func (s *stubTab) Update(msg tea.Msg) (Tab, tea.Cmd) {
	s.received = append(s.received, msg)
	return s, nil
}

func newTestModel(svc Services) (*Model, []*stubTab) {
	m := NewModel(svc)
	tabs := []*stubTab{{name: "overview"}, {name: "sources"}, {name: "info"}}
	m.SetTabs([]Tab{tabs[0], tabs[1], tabs[2]})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m, tabs
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewModel(t *testing.T) {
	m := NewModel(nil)
	if m.State() == nil {
		t.Error("State should be initialized")
	}
	if m.ActiveTab() != TabOverview {
		t.Error("Default tab should be Overview")
	}
	if m.Init() == nil {
		t.Error("Init returned nil command")
	}
}

func TestModel_WindowSizeResizesTabs(t *testing.T) {
	m, tabs := newTestModel(nil)

	if !m.IsReady() {
		t.Error("Model should be ready after WindowSizeMsg")
	}
	for _, tab := range tabs {
		if tab.width != 100 || tab.height != 26 {
			t.Errorf("%s size = %dx%d, want 100x26", tab.name, tab.width, tab.height)
		}
	}
}

func TestModel_TabSwitching(t *testing.T) {
	m, _ := newTestModel(nil)

	m.Update(runes("2"))
	if m.ActiveTab() != TabSources {
		t.Errorf("ActiveTab = %v, want Sources", m.ActiveTab())
	}
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.ActiveTab() != TabInfo {
		t.Errorf("ActiveTab = %v, want Info", m.ActiveTab())
	}
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.ActiveTab() != TabOverview {
		t.Errorf("next tab should wrap, got %v", m.ActiveTab())
	}
	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.ActiveTab() != TabInfo {
		t.Errorf("prev tab should wrap, got %v", m.ActiveTab())
	}
	m.Update(TabSwitchMsg{Tab: TabOverview})
	if m.ActiveTab() != TabOverview {
		t.Errorf("TabSwitchMsg ignored, got %v", m.ActiveTab())
	}
	m.Update(TabSwitchMsg{Tab: TabID(7)})
	if m.ActiveTab() != TabOverview {
		t.Error("unknown tab should be ignored")
	}
}

func TestModel_KeysReachActiveTabOnly(t *testing.T) {
	m, tabs := newTestModel(nil)

	m.Update(runes("x"))
	if len(tabs[0].received) == 0 || len(tabs[1].received) != 0 {
		t.Errorf("overview got %d, sources got %d messages", len(tabs[0].received), len(tabs[1].received))
	}
}

func TestModel_SummaryReachesAllTabs(t *testing.T) {
	m, tabs := newTestModel(nil)
	sum := &kpi.Summary{}

	m.Update(SummaryLoadedMsg{Summary: sum})
	if m.State().Summary() != sum {
		t.Error("summary should be stored in state")
	}
	for _, tab := range tabs {
		if len(tab.received) == 0 {
			t.Errorf("%s did not receive the summary", tab.name)
		}
	}
}

func TestModel_DuplicateSummaryIsIgnored(t *testing.T) {
	m, _ := newTestModel(nil)
	sum := summaryWithAutarky(0.5)

	m.Update(SummaryLoadedMsg{Summary: sum})
	m.Update(SummaryLoadedMsg{Summary: sum})
	if got := m.State().History("autarky"); len(got) != 1 {
		t.Errorf("History = %v, want one entry", got)
	}
}

func TestModel_SummaryError(t *testing.T) {
	m, _ := newTestModel(nil)

	m.Update(SummaryLoadedMsg{Err: errors.New("store down")})
	if m.State().Err() == nil {
		t.Fatal("error should be recorded")
	}
	if !strings.Contains(m.View(), "refresh failed: store down") {
		t.Error("status bar should show the error")
	}
}

func TestModel_Refresh(t *testing.T) {
	svc := newFakeServices()
	m, _ := newTestModel(svc)

	_, cmd := m.Update(runes("r"))
	if cmd == nil {
		t.Fatal("refresh key should return a command")
	}
	if !m.State().IsLoading() {
		t.Error("refresh should mark the state as loading")
	}

	msg := refreshCmd(svc)()
	m.Update(msg)
	if m.State().Summary() != svc.summary {
		t.Error("refreshed summary should be stored")
	}
	if svc.calls != 1 {
		t.Errorf("Refresh called %d times, want 1", svc.calls)
	}
}

func TestModel_Subscription(t *testing.T) {
	svc := newFakeServices()
	m, _ := newTestModel(svc)

	_, cmd := m.Update(SubscriptionEventMsg{Channel: svc.events})
	if cmd == nil || m.eventChannel != svc.events {
		t.Fatal("subscription should start waiting for events")
	}
}

func TestModel_HandleServiceEvent(t *testing.T) {
	m, _ := newTestModel(newFakeServices())

	tests := []struct {
		name  string
		event services.ServiceEvent
		want  NotificationType
	}{
		{"error", services.ErrorEvent{Service: "kpi", Error: errors.New("boom")}, NotificationError},
		{"alert", services.AutarkyAlertEvent{Autarky: 0.2, Threshold: 0.5}, NotificationWarning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := m.handleServiceEvent(tt.event)
			if cmd == nil {
				t.Fatal("expected a command")
			}
			msg, ok := cmd().(AddNotificationMsg)
			if !ok || msg.Type != tt.want {
				t.Errorf("msg = %#v", msg)
			}
		})
	}

	sum := &kpi.Summary{}
	msg := m.handleServiceEvent(services.SummaryUpdatedEvent{Summary: sum})()
	if loaded, ok := msg.(SummaryLoadedMsg); !ok || loaded.Summary != sum {
		t.Errorf("summary event should become SummaryLoadedMsg, got %#v", msg)
	}

	if m.handleServiceEvent(services.PricesUpdatedEvent{}) != nil {
		t.Error("empty price update should be silent")
	}
	if m.handleServiceEvent(services.FactorsAppliedEvent{Applied: 3}) == nil {
		t.Error("applied factors should notify and refresh")
	}
}

func TestModel_Notifications(t *testing.T) {
	m, _ := newTestModel(nil)

	_, cmd := m.Update(AddNotificationMsg{Type: NotificationWarning, Message: "low autarky", Duration: time.Minute})
	if cmd == nil {
		t.Error("timed notification should schedule its removal")
	}
	if !strings.Contains(m.View(), "[WARN] low autarky") {
		t.Error("toast should be rendered")
	}

	id := m.State().Notifications()[0].ID
	m.Update(RemoveNotificationMsg{ID: id})
	if len(m.State().Notifications()) != 0 {
		t.Error("notification should be removed")
	}
}

func TestModel_Tick(t *testing.T) {
	m := NewModel(nil)
	if _, cmd := m.Update(TickMsg{Time: time.Now()}); cmd == nil {
		t.Error("TickMsg should schedule the next tick")
	}
}

func TestModel_View(t *testing.T) {
	m := NewModel(nil)
	if !strings.Contains(m.View(), "Loading...") {
		t.Error("View should show Loading when not ready")
	}

	m, _ = newTestModel(nil)
	view := m.View()
	for _, want := range []string{"Overview", "Sources", "Info", "content of overview", "waiting for first summary"} {
		if !strings.Contains(view, want) {
			t.Errorf("view is missing %q", want)
		}
	}
}

func TestModel_Help(t *testing.T) {
	m, _ := newTestModel(nil)

	m.Update(runes("?"))
	if !m.HelpVisible() {
		t.Fatal("help should be visible")
	}
	view := m.View()
	if !strings.Contains(view, "Keyboard Shortcuts") || !strings.Contains(view, "overview action") {
		t.Error("help overlay should list global and tab bindings")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.HelpVisible() {
		t.Error("esc should close help")
	}
	m.Update(ToggleHelpMsg{})
	if !m.HelpVisible() {
		t.Error("ToggleHelpMsg should open help")
	}
}

func TestModel_Quit(t *testing.T) {
	m, _ := newTestModel(nil)
	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("quit should return a command")
	}
	// tea.Batch wraps the quit command; run it to find the QuitMsg.
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			if c == nil {
				continue
			}
			if _, ok := c().(tea.QuitMsg); ok {
				return
			}
		}
		t.Fatal("batch does not contain quit")
	}
	if _, ok := msg.(tea.QuitMsg); !ok {
		t.Errorf("msg = %#v, want QuitMsg", msg)
	}
}

func TestTabID_String(t *testing.T) {
	tests := map[TabID]string{TabOverview: "Overview", TabSources: "Sources", TabInfo: "Info", TabID(9): "Unknown"}
	for id, want := range tests {
		if got := id.String(); got != want {
			t.Errorf("String() = %s, want %s", got, want)
		}
	}
}
