package tui

import "github.com/charmbracelet/lipgloss"

var (
	promptLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	hintStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)
