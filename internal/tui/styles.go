package tui

import "github.com/charmbracelet/lipgloss"

var (
	heroStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("61")).
			Bold(true).
			Padding(0, 1)

	tabActiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("61")).
			Bold(true).
			Padding(0, 1)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Padding(0, 1)

	sectionHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("61")).
				Bold(true)

	helperStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 2)

	sparklineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	onlineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true)
	offlineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	userBubbleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	assistantBubbleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	citationStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)

	severityHighStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	severityMediumStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	severityLowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// severityStyle picks the rendering tier for an alert severity. Unrecognized
// values fall into the lowest tier rather than being rejected.
func severityStyle(severity string) lipgloss.Style {
	switch severity {
	case "high":
		return severityHighStyle
	case "medium":
		return severityMediumStyle
	default:
		return severityLowStyle
	}
}
