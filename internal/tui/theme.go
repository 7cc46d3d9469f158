package tui

import "github.com/charmbracelet/lipgloss"

// Theme is the dashboard's color palette, in ANSI 256-color codes.
type Theme struct {
	Title        lipgloss.Color
	Faint        lipgloss.Color
	Connected    lipgloss.Color
	Disconnected lipgloss.Color
	Granted      lipgloss.Color
	Denied       lipgloss.Color
	SelectedBg   lipgloss.Color
	Border       lipgloss.Color
	Levels       map[string]lipgloss.Color // keyed by notification level
}

// DefaultTheme is the built-in palette.
var DefaultTheme = Theme{
	Title:        lipgloss.Color("39"),
	Faint:        lipgloss.Color("245"),
	Connected:    lipgloss.Color("42"),
	Disconnected: lipgloss.Color("196"),
	Granted:      lipgloss.Color("42"),
	Denied:       lipgloss.Color("196"),
	SelectedBg:   lipgloss.Color("237"),
	Border:       lipgloss.Color("240"),
	Levels: map[string]lipgloss.Color{
		"info":    lipgloss.Color("39"),
		"success": lipgloss.Color("42"),
		"warning": lipgloss.Color("214"),
		"error":   lipgloss.Color("196"),
	},
}
