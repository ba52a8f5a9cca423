package info

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/energy-kpi/internal/config"
	"github.com/j-veylop/energy-kpi/internal/ui/styles"
	"github.com/j-veylop/energy-kpi/internal/version"
)

// View renders the info tab.
func (m *Model) View() string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		m.renderTitle(),
		m.renderConfigCard(),
		m.renderAboutCard(),
	)
	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Info")
	subtitle := styles.HelpStyle.Render("Configuration and build information")
	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) cardWidth() int {
	return min(max(m.width-6, 50), 90)
}

func (m *Model) renderConfigCard() string {
	rows := []string{styles.CardTitleStyle.Render("Configuration"), ""}

	if cfg := m.config; cfg != nil {
		rows = append(rows,
			row("Database", cfg.Database.Path),
			row("HTTP address", cfg.HTTP.Addr),
			row("Cache", cacheDescription(cfg)),
			row("Default source", orNone(cfg.KPI.DefaultSource)),
			row("Grid price", fmt.Sprintf("%.4f EUR/kWh", cfg.KPI.DefaultGridPriceEUR)),
			row("Emission factors", cfg.Factors.Path+watchSuffix(cfg.Factors.Watch)),
			row("Dashboard window", fmt.Sprintf("%s in %s buckets, every %s",
				cfg.Dashboard.Window, cfg.Dashboard.Interval, cfg.Dashboard.RefreshInterval)),
			row("Autarky alert", alertDescription(cfg.Dashboard.AutarkyAlert)),
			row("Grid prices", pricesDescription(cfg.Prices)),
			row("Kafka ingest", kafkaDescription(cfg.Kafka)),
			row("InfluxDB mirror", influxDescription(cfg.Influx)),
		)
	} else {
		rows = append(rows, styles.HelpStyle.Render("Configuration not loaded"))
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderAboutCard() string {
	rows := []string{
		styles.CardTitleStyle.Render("About " + version.Name),
		"",
		row("Version", version.GetVersion()),
		row("Git Commit", version.GetCommit()),
		row("Build Date", version.GetDate()),
		row("Go Version", runtime.Version()),
		row("Platform", fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)),
	}
	if updated := m.state.LastUpdated(); !updated.IsZero() {
		rows = append(rows, "", "Last summary: "+styles.InfoTextStyle.Render(updated.Format("2006-01-02 15:04:05")))
	}
	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func row(label, value string) string {
	return styles.KeyStyle.Render(label+":") + " " + styles.ValueStyle.Render(value)
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func watchSuffix(watch bool) string {
	if watch {
		return " (watched)"
	}
	return ""
}

func cacheDescription(cfg *config.Config) string {
	switch cfg.Cache.Backend {
	case config.CacheNone:
		return "disabled"
	case config.CacheRedis:
		return fmt.Sprintf("redis %s, ttl %s", cfg.Redis.Addr, cfg.CacheTTL())
	default:
		return fmt.Sprintf("%s, ttl %s", cfg.Cache.Backend, cfg.CacheTTL())
	}
}

func alertDescription(threshold float64) string {
	if threshold <= 0 {
		return "off"
	}
	return strconv.FormatFloat(threshold*100, 'f', 1, 64) + "%"
}

func pricesDescription(p config.PricesConfig) string {
	if !p.Enabled {
		return "off"
	}
	return fmt.Sprintf("%s every %s", p.Region, p.PollInterval)
}

func kafkaDescription(k config.KafkaConfig) string {
	if !k.Enabled {
		return "off"
	}
	return fmt.Sprintf("%s @ %s", k.Topic, strings.Join(k.Brokers, ","))
}

func influxDescription(i config.InfluxConfig) string {
	if !i.Enabled {
		return "off"
	}
	return fmt.Sprintf("%s/%s", i.URL, i.Bucket)
}
