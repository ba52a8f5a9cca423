package overview

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/energy-kpi/internal/app"
	"github.com/j-veylop/energy-kpi/internal/models"
	"github.com/j-veylop/energy-kpi/internal/services/kpi"
	"github.com/j-veylop/energy-kpi/internal/ui/components"
)

func testSummary() *kpi.Summary {
	rng := models.TimeRange{
		From: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
	}
	return &kpi.Summary{
		Range: rng,
		Values: map[string]*models.KpiResult{
			models.KpiSelfConsumption:  models.NewKpiResult(models.KpiSelfConsumption, 1, "", rng),
			models.KpiAutarky:          models.NewKpiResult(models.KpiAutarky, 0.5, "", rng),
			models.KpiTotalConsumption: models.NewKpiResult(models.KpiTotalConsumption, 2400, models.UnitKWh, rng),
			models.KpiCostSavings:      models.NewKpiResult(models.KpiCostSavings, 12345, models.UnitEUR, rng),
		},
	}
}

func TestModel_Init(t *testing.T) {
	m := New(app.NewState())
	if m.Init() == nil {
		t.Error("Init should start the spinner")
	}
}

func TestModel_ViewLoading(t *testing.T) {
	m := New(app.NewState())
	m.SetSize(80, 24)

	if view := m.View(); !strings.Contains(view, "Computing KPIs") {
		t.Errorf("loading view = %q", view)
	}
}

func TestModel_ViewError(t *testing.T) {
	state := app.NewState()
	state.SetError(kpi.ErrStore)
	m := New(state)
	m.SetSize(80, 24)

	if view := m.View(); !strings.Contains(view, kpi.ErrStore.Error()) {
		t.Errorf("error view = %q", view)
	}
}

func TestModel_SummaryAnimatesGauges(t *testing.T) {
	state := app.NewState()
	m := New(state)
	m.SetSize(120, 40)

	summary := testSummary()
	state.SetSummary(summary)
	_, cmd := m.Update(app.SummaryLoadedMsg{Summary: summary})
	if cmd == nil {
		t.Fatal("summary should start the gauge animation")
	}

	for range 500 {
		var next tea.Cmd
		_, next = m.Update(components.GaugeTickMsg(time.Now()))
		if next == nil {
			break
		}
	}
	if m.autarky.Ratio() != 0.5 || m.selfConsumption.Ratio() != 1 {
		t.Errorf("gauges = %v / %v", m.autarky.Ratio(), m.selfConsumption.Ratio())
	}

	view := m.View()
	for _, want := range []string{"Energy KPIs", "Autarky", "50.0%", "2400.00", "12.3k", "n/a"} {
		if !strings.Contains(view, want) {
			t.Errorf("view is missing %q", want)
		}
	}
}

func TestFormatValue(t *testing.T) {
	tests := map[float64]string{
		0:        "0.00",
		12.345:   "12.35",
		45000:    "45.0k",
		-2500000: "-2.50M",
	}
	for v, want := range tests {
		if got := formatValue(v); got != want {
			t.Errorf("formatValue(%v) = %s, want %s", v, got, want)
		}
	}
}

func TestModel_Help(t *testing.T) {
	m := New(app.NewState())
	if len(m.ShortHelp()) != 2 {
		t.Errorf("ShortHelp = %d bindings", len(m.ShortHelp()))
	}
}
