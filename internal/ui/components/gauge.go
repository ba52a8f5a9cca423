package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/energy-kpi/internal/logger"
	"github.com/j-veylop/energy-kpi/internal/ui/styles"
)

const (
	gaugeLow  = "#ff6b6b"
	gaugeHigh = "#51cf66"
)

// GaugeTickMsg drives the gauge easing animation.
type GaugeTickMsg time.Time

func gaugeTick() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(t time.Time) tea.Msg {
		return GaugeTickMsg(t)
	})
}

// ShareGauge renders a ratio KPI such as autarky as a gradient progress bar.
// Changes of the target ratio are eased in over a few frames.
type ShareGauge struct {
	progress progress.Model
	current  float64
	target   float64
}

// NewShareGauge creates a gauge that is red when empty and green when full.
func NewShareGauge() ShareGauge {
	return ShareGauge{
		progress: progress.New(
			progress.WithScaledGradient(gaugeLow, gaugeHigh),
			progress.WithWidth(30),
			progress.WithoutPercentage(),
		),
	}
}

// SetRatio sets the target ratio, clamped to [0, 1], and starts the animation.
func (g *ShareGauge) SetRatio(ratio float64) tea.Cmd {
	g.target = min(max(ratio, 0), 1)
	if g.current == g.target {
		return nil
	}
	return gaugeTick()
}

// Ratio returns the currently displayed ratio.
func (g ShareGauge) Ratio() float64 {
	return g.current
}

// Update moves the displayed ratio a tenth of the way to the target per tick.
func (g ShareGauge) Update(msg tea.Msg) (ShareGauge, tea.Cmd) {
	if _, ok := msg.(GaugeTickMsg); !ok || g.current == g.target {
		return g, nil
	}

	step := (g.target - g.current) / 10
	if step > 0 {
		step = max(step, 0.005)
	} else {
		step = min(step, -0.005)
	}
	g.current += step
	if (step > 0 && g.current >= g.target) || (step < 0 && g.current <= g.target) {
		g.current = g.target
		return g, nil
	}
	return g, gaugeTick()
}

// View renders label, bar and percentage on one line of the given width.
func (g ShareGauge) View(label string, width int) string {
	g.progress.Width = max(width-28, 10)

	percent := styles.GetShareStyle(g.current).
		Width(7).
		Align(lipgloss.Right).
		Render(fmt.Sprintf("%.1f%%", g.current*100))

	return lipgloss.JoinHorizontal(
		lipgloss.Center,
		styles.ProgressLabelStyle.Render(label),
		g.progress.ViewAs(g.current),
		" ",
		percent,
	)
}

// RenderGradientBar renders a static bar for ratio without the bubbles model,
// used in tables where every row needs its own bar.
func RenderGradientBar(ratio float64, width int) string {
	if width < 1 {
		return ""
	}
	filled := min(max(int(float64(width)*ratio), 0), width)

	var b strings.Builder
	for i := range width {
		if i < filled {
			t := float64(i) / float64(max(1, width-1))
			color := interpolateColor(gaugeLow, gaugeHigh, t)
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("█"))
		} else {
			b.WriteString(lipgloss.NewStyle().Foreground(styles.Subtle).Render("░"))
		}
	}
	return b.String()
}

func interpolateColor(fromHex, toHex string, t float64) string {
	from := hexToRGB(fromHex)
	to := hexToRGB(toHex)

	r := int(float64(from[0]) + t*(float64(to[0])-float64(from[0])))
	g := int(float64(from[1]) + t*(float64(to[1])-float64(from[1])))
	b := int(float64(from[2]) + t*(float64(to[2])-float64(from[2])))

	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func hexToRGB(hex string) [3]int {
	hex = strings.TrimPrefix(hex, "#")
	var r, g, b int
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		logger.Error("failed to parse hex color", "hex", hex, "error", err)
		return [3]int{0, 0, 0}
	}
	return [3]int{r, g, b}
}
