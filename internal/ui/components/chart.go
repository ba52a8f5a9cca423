// Package components provides reusable UI components for the TUI.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/j-veylop/energy-kpi/internal/ui/styles"
)

const noData = "No data in window"

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

func clampChartSize(width, height int) (int, int) {
	return max(width, 20), max(height, 3)
}

// RenderLineChart creates a single-series ASCII line chart.
func RenderLineChart(data []float64, width, height int, caption string) string {
	if len(data) == 0 {
		return styles.HelpStyle.Render(noData)
	}
	width, height = clampChartSize(width, height)

	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

// RenderSourceChart plots grid draw against local production. The shorter
// series is padded with zeros so both share the same buckets.
func RenderSourceChart(grid, local []float64, width, height int, caption string) string {
	if len(grid) == 0 && len(local) == 0 {
		return styles.HelpStyle.Render(noData)
	}
	width, height = clampChartSize(width, height)

	n := max(len(grid), len(local))
	gridData := make([]float64, n)
	localData := make([]float64, n)
	copy(gridData, grid)
	copy(localData, local)

	return asciigraph.PlotMany([][]float64{gridData, localData},
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(asciigraph.Blue, asciigraph.Yellow),
	)
}

// BarItem is one row of a horizontal bar chart.
type BarItem struct {
	Label string
	Value float64
	Color lipgloss.Color
}

// RenderBarChart draws one horizontal bar per item, scaled to the largest value.
func RenderBarChart(items []BarItem, unit string, width int) string {
	if len(items) == 0 {
		return styles.HelpStyle.Render(noData)
	}

	maxVal := 0.0
	labelWidth := 0
	for _, it := range items {
		maxVal = max(maxVal, it.Value)
		labelWidth = max(labelWidth, lipgloss.Width(it.Label))
	}
	if maxVal == 0 {
		maxVal = 1
	}

	barWidth := max(width-labelWidth-16, 10)

	lines := make([]string, 0, len(items))
	for _, it := range items {
		barLen := max(int(it.Value/maxVal*float64(barWidth)), 0)
		bar := lipgloss.NewStyle().Foreground(it.Color).Render(strings.Repeat("█", barLen))
		lines = append(lines, fmt.Sprintf("%*s │%s %.1f %s", labelWidth, it.Label, bar, it.Value, unit))
	}
	return strings.Join(lines, "\n")
}

// sparkIndex maps v onto the sparkline glyphs relative to maxVal.
func sparkIndex(v, maxVal float64) int {
	idx := int(v / maxVal * float64(len(sparkChars)-1))
	return min(max(idx, 0), len(sparkChars)-1)
}

// sample picks at most width values spread evenly over values.
func sample(values []float64, width int) []float64 {
	if width <= 0 || len(values) <= width {
		return values
	}
	out := make([]float64, width)
	step := float64(len(values)) / float64(width)
	for i := range out {
		out[i] = values[int(float64(i)*step)]
	}
	return out
}

// RenderSparkline creates a compact inline sparkline chart.
func RenderSparkline(values []float64, width int) string {
	if len(values) == 0 {
		return ""
	}
	maxVal := 0.0
	for _, v := range values {
		maxVal = max(maxVal, v)
	}
	if maxVal == 0 {
		maxVal = 1
	}

	var b strings.Builder
	for _, v := range sample(values, width) {
		b.WriteRune(sparkChars[sparkIndex(v, maxVal)])
	}
	return b.String()
}

// RenderShareSparkline draws ratios in [0, 1], colored by how good each one is.
func RenderShareSparkline(ratios []float64, width int) string {
	if len(ratios) == 0 {
		return ""
	}
	var b strings.Builder
	for _, r := range sample(ratios, width) {
		b.WriteString(styles.GetShareStyle(r).Render(string(sparkChars[sparkIndex(r, 1)])))
	}
	return b.String()
}

// LegendItem represents a single legend entry.
type LegendItem struct {
	Label string
	Color lipgloss.Color
}

// RenderLegend creates a chart legend.
func RenderLegend(items []LegendItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		colorBox := lipgloss.NewStyle().Foreground(item.Color).Render("■")
		parts = append(parts, fmt.Sprintf("%s %s", colorBox, item.Label))
	}
	return strings.Join(parts, "  ")
}
