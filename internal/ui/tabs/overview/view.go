package overview

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/energy-kpi/internal/models"
	"github.com/j-veylop/energy-kpi/internal/services/kpi"
	"github.com/j-veylop/energy-kpi/internal/ui/components"
	"github.com/j-veylop/energy-kpi/internal/ui/styles"
)

// card describes one scalar KPI box.
type card struct {
	title string
	name  string
}

var cards = []card{
	{"Consumption", models.KpiTotalConsumption},
	{"Production", models.KpiTotalProduction},
	{"CO₂ emitted", models.KpiTotalCO2Emissions},
	{"CO₂ saved", models.KpiCO2Savings},
	{"Cost saved", models.KpiCostSavings},
}

// View renders the overview tab.
func (m *Model) View() string {
	summary := m.state.Summary()
	if summary == nil {
		if m.state.Err() != nil {
			return styles.CenterBoth(styles.ErrorTextStyle.Render(m.state.Err().Error()), m.width, m.height)
		}
		return components.RenderSpinnerCentered(m.spinner, m.width, m.height)
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		m.renderTitle(summary),
		m.renderGauges(),
		"",
		m.renderCards(summary),
		"",
		m.renderTrend(),
	)
	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderTitle(summary *kpi.Summary) string {
	title := styles.TitleStyle.Render("Energy KPIs")
	subtitle := styles.HelpStyle.Render(fmt.Sprintf("%s → %s",
		summary.Range.From.Local().Format("2006-01-02 15:04"),
		summary.Range.To.Local().Format("2006-01-02 15:04"),
	))
	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) renderGauges() string {
	width := max(m.width-6, 40)
	return lipgloss.JoinVertical(lipgloss.Left,
		m.selfConsumption.View("Self-consumption", width),
		m.autarky.View("Autarky", width),
	)
}

func (m *Model) renderCards(summary *kpi.Summary) string {
	boxes := make([]string, 0, len(cards))
	for _, c := range cards {
		boxes = append(boxes, renderCard(c.title, summary.Values[c.name]))
	}

	// Wrap onto a second row when the terminal is narrow.
	cardWidth := lipgloss.Width(boxes[0])
	perRow := max(m.width/max(cardWidth, 1), 1)
	var rows []string
	for i := 0; i < len(boxes); i += perRow {
		end := min(i+perRow, len(boxes))
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, boxes[i:end]...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderCard(title string, res *models.KpiResult) string {
	value, unit := "n/a", ""
	if res != nil {
		value = formatValue(res.Value)
		if res.Unit != nil {
			unit = *res.Unit
		}
	}
	return styles.CardStyle.Width(18).Render(lipgloss.JoinVertical(lipgloss.Left,
		styles.CardTitleStyle.Render(title),
		styles.CardValueStyle.Render(value)+" "+styles.CardUnitStyle.Render(unit),
	))
}

// formatValue keeps large totals readable without scientific notation.
func formatValue(v float64) string {
	switch {
	case v >= 1e6 || v <= -1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	case v >= 1e4 || v <= -1e4:
		return fmt.Sprintf("%.1fk", v/1e3)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

func (m *Model) renderTrend() string {
	width := max(m.width-30, 10)
	autarky := m.state.History(models.KpiAutarky)
	self := m.state.History(models.KpiSelfConsumption)

	label := styles.ProgressLabelStyle
	return lipgloss.JoinVertical(lipgloss.Left,
		styles.CardTitleStyle.Render("Trend since start"),
		label.Render("Autarky")+components.RenderShareSparkline(autarky, width),
		label.Render("Self-consumption")+components.RenderShareSparkline(self, width),
	)
}
