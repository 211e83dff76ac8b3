package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8A8A8A"))

	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD866")).
			Bold(true)

	paidStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#A9DC76"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD866"))
	overdueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5F5F87")).
			Padding(0, 1)

	helpStyle = mutedStyle.Italic(true)
)
