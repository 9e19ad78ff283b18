package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#58A6FF"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8B949E")).Italic(true)
	badgeStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#DA3633")).Padding(0, 1)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F0F6FC")).Background(lipgloss.Color("#1F6FEB"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E7681"))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#3FB950"))
	failureStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F85149"))
	runningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#D29922"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F85149")).Bold(true)
	menuStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#30363D")).Padding(0, 1)
)
