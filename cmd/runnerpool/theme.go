package main

import "github.com/charmbracelet/lipgloss"

// theme holds the styles used by human-readable command output.
type theme struct {
	OK      lipgloss.Style
	Warn    lipgloss.Style
	Error   lipgloss.Style
	Header  lipgloss.Style
	Dim     lipgloss.Style
	Digest  lipgloss.Style
	Heading lipgloss.Style
}

func newTheme() theme {
	return theme{
		OK:      lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")),
		Warn:    lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true),
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#61AFEF")),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		Digest:  lipgloss.NewStyle().Foreground(lipgloss.Color("#874BFD")),
		Heading: lipgloss.NewStyle().Bold(true),
	}
}
