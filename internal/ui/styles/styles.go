// Package styles holds the shared lipgloss palette and styles of the dashboard.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Base colors
	Primary   = lipgloss.Color("42")  // Green
	Secondary = lipgloss.Color("63")  // Purple
	Subtle    = lipgloss.Color("240") // Gray

	// Energy sources
	Solar = lipgloss.Color("220") // Yellow
	Grid  = lipgloss.Color("39")  // Blue
	Fuel  = lipgloss.Color("208") // Orange

	// Status colors
	Success = lipgloss.Color("42")  // Green
	Error   = lipgloss.Color("196") // Red
	Warning = lipgloss.Color("214") // Amber
	Info    = lipgloss.Color("39")  // Blue

	// Backgrounds
	BgDark   = lipgloss.Color("235")
	BgAccent = lipgloss.Color("236")

	// Text
	TextPrimary   = lipgloss.Color("252")
	TextSecondary = lipgloss.Color("245")
	TextMuted     = lipgloss.Color("240")

	ToastStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Subtle).
			Padding(0, 1).
			Background(BgDark)
)

// TitleStyle styles section titles.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary).
	MarginBottom(1)

var SubTitleStyle = lipgloss.NewStyle().
	Foreground(TextSecondary).
	Italic(true)

// DocStyle pads tab content inside the terminal.
var DocStyle = lipgloss.NewStyle().
	Padding(0, 2)

// CardStyle frames a single KPI figure.
var CardStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Subtle).
	Padding(0, 1).
	MarginRight(1)

var CardTitleStyle = lipgloss.NewStyle().
	Foreground(TextSecondary)

var CardValueStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(TextPrimary)

var CardUnitStyle = lipgloss.NewStyle().
	Foreground(TextMuted)

var ProgressLabelStyle = lipgloss.NewStyle().
	Foreground(TextSecondary).
	Width(20)

var HelpStyle = lipgloss.NewStyle().
	Foreground(Subtle)

// HelpPanelStyle frames the keyboard shortcut overlay.
var HelpPanelStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Secondary).
	Padding(1, 2).
	Background(BgDark)

var TableHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(TextPrimary).
	BorderStyle(lipgloss.NormalBorder()).
	BorderBottom(true).
	BorderForeground(Subtle).
	Padding(0, 1)

var TableCellStyle = lipgloss.NewStyle().
	Foreground(TextSecondary).
	Padding(0, 1)

var KeyStyle = lipgloss.NewStyle().
	Foreground(TextSecondary).
	Width(22)

var ValueStyle = lipgloss.NewStyle().
	Foreground(TextPrimary)

// ShareHighStyle is used for ratios above two thirds.
var ShareHighStyle = lipgloss.NewStyle().
	Foreground(Success)

var ShareMediumStyle = lipgloss.NewStyle().
	Foreground(Warning)

var ShareLowStyle = lipgloss.NewStyle().
	Foreground(Error)

var ErrorTextStyle = lipgloss.NewStyle().
	Foreground(Error)

var WarningTextStyle = lipgloss.NewStyle().
	Foreground(Warning)

var InfoTextStyle = lipgloss.NewStyle().
	Foreground(Info)

// GetShareStyle returns the style for a ratio in [0, 1] where higher is better.
func GetShareStyle(ratio float64) lipgloss.Style {
	switch {
	case ratio > 2.0/3:
		return ShareHighStyle
	case ratio > 1.0/3:
		return ShareMediumStyle
	default:
		return ShareLowStyle
	}
}

// CarrierColor picks a color for an energy carrier. Local production is
// drawn in the solar color, anything named like electricity in the grid color.
func CarrierColor(name string, local bool) lipgloss.Color {
	switch {
	case local:
		return Solar
	case name == "electricity":
		return Grid
	default:
		return Fuel
	}
}

// CenterHorizontal centers content horizontally within a given width.
func CenterHorizontal(content string, width int) string {
	return lipgloss.NewStyle().Width(width).Align(lipgloss.Center).Render(content)
}

// CenterBoth centers content both horizontally and vertically.
func CenterBoth(content string, width, height int) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center).
		AlignVertical(lipgloss.Center).
		Render(content)
}
