// Package console renders agent output for an interactive terminal.
package console

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("117"))
	subtitleStyl = lipgloss.NewStyle().Foreground(lipgloss.Color("105"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	toolStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("105"))
	codeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("221"))
	headingStyle = lipgloss.NewStyle().Bold(true)
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("117"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("227"))
)
