package sources

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/energy-kpi/internal/models"
	"github.com/j-veylop/energy-kpi/internal/services/kpi"
	"github.com/j-veylop/energy-kpi/internal/ui/components"
	"github.com/j-veylop/energy-kpi/internal/ui/styles"
)

// View renders the sources tab.
func (m *Model) View() string {
	summary := m.state.Summary()
	if summary == nil {
		return styles.CenterBoth(styles.HelpStyle.Render("Waiting for the first summary..."), m.width, m.height)
	}

	title := styles.TitleStyle.Render(m.mode.String() + " by carrier")
	subtitle := styles.HelpStyle.Render("Press 'e' to switch between consumption and emissions")

	var body string
	switch {
	case m.mode == modeConsumption:
		body = m.renderConsumption(summary.Consumption)
	case m.loading:
		body = styles.HelpStyle.Render("Loading emissions...")
	case m.errorMsg != "":
		body = styles.ErrorTextStyle.Render(m.errorMsg)
	default:
		body = m.renderEmissions()
	}

	m.viewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "", body))
	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderConsumption(rows []models.ConsumptionByCarrier) string {
	if len(rows) == 0 {
		return styles.HelpStyle.Render("No consumption in window")
	}

	grid, local := splitBySource(rows)
	chart := components.RenderSourceChart(grid, local, max(m.width-20, 20), 8, "kWh per bucket")
	legend := components.RenderLegend([]components.LegendItem{
		{Label: "Grid", Color: styles.Grid},
		{Label: "Local", Color: styles.Solar},
	})

	totals := totalsByCarrier(len(rows), func(i int) (string, float64, bool) {
		return rows[i].CarrierName, rows[i].Value, rows[i].Local
	})
	bars := components.RenderBarChart(totals, models.UnitKWh, max(m.width-6, 40))

	return lipgloss.JoinVertical(lipgloss.Left, chart, legend, "", bars)
}

func (m *Model) renderEmissions() string {
	section := func(title string, rows []models.EmissionsByCarrier) string {
		if len(rows) == 0 {
			return lipgloss.JoinVertical(lipgloss.Left,
				styles.CardTitleStyle.Render(title),
				styles.HelpStyle.Render("No emissions in window"))
		}
		totals := totalsByCarrier(len(rows), func(i int) (string, float64, bool) {
			return rows[i].CarrierName, rows[i].Value, false
		})
		parts := []string{
			styles.CardTitleStyle.Render(fmt.Sprintf("%s  %.2f %s", title, kpi.SumEmissions(rows), models.UnitKgCO2Eq)),
		}
		if series := emissionsPerBucket(rows); len(series) > 1 {
			parts = append(parts, components.RenderLineChart(series, max(m.width-20, 20), 5, "kgCO₂eq per bucket"))
		}
		parts = append(parts, components.RenderBarChart(totals, models.UnitKgCO2Eq, max(m.width-6, 40)))
		return lipgloss.JoinVertical(lipgloss.Left, parts...)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		section("Scope 1 (on-site generation)", m.scopeOne),
		"",
		section("Scope 2 (grid and purchased)", m.scopeTwo),
	)
}

// splitBySource sums consumption per bucket into grid draw and local use,
// ordered by bucket.
func splitBySource(rows []models.ConsumptionByCarrier) (grid, local []float64) {
	index := make(map[time.Time]int)
	var buckets []time.Time
	for _, r := range rows {
		if _, ok := index[r.Bucket]; !ok {
			index[r.Bucket] = len(buckets)
			buckets = append(buckets, r.Bucket)
		}
	}
	slices.SortFunc(buckets, func(a, b time.Time) int { return a.Compare(b) })
	for i, b := range buckets {
		index[b] = i
	}

	grid = make([]float64, len(buckets))
	local = make([]float64, len(buckets))
	for _, r := range rows {
		if r.Local {
			local[index[r.Bucket]] += r.Value
		} else {
			grid[index[r.Bucket]] += r.Value
		}
	}
	return grid, local
}

// emissionsPerBucket sums emissions over carriers, ordered by bucket.
func emissionsPerBucket(rows []models.EmissionsByCarrier) []float64 {
	sums := make(map[time.Time]float64)
	for _, r := range rows {
		sums[r.Bucket] += r.Value
	}
	buckets := slices.SortedFunc(maps.Keys(sums), func(a, b time.Time) int { return a.Compare(b) })

	series := make([]float64, len(buckets))
	for i, b := range buckets {
		series[i] = sums[b]
	}
	return series
}

// totalsByCarrier sums n rows per carrier name, largest first.
func totalsByCarrier(n int, row func(int) (string, float64, bool)) []components.BarItem {
	byName := make(map[string]*components.BarItem)
	var order []string
	for i := range n {
		name, value, local := row(i)
		item, ok := byName[name]
		if !ok {
			item = &components.BarItem{Label: name, Color: styles.CarrierColor(name, local)}
			byName[name] = item
			order = append(order, name)
		}
		item.Value += value
	}

	items := make([]components.BarItem, 0, len(order))
	for _, name := range order {
		items = append(items, *byName[name])
	}
	slices.SortStableFunc(items, func(a, b components.BarItem) int {
		switch {
		case a.Value > b.Value:
			return -1
		case a.Value < b.Value:
			return 1
		default:
			return 0
		}
	})
	return items
}
