package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Border styles
var (
	StyleFocusedBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62"))

	StyleUnfocusedBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))
)

// Outcome styles
var (
	StyleComputed = lipgloss.NewStyle().
			Foreground(lipgloss.Color("green")).
			Bold(true)

	StyleFallback = lipgloss.NewStyle().
			Foreground(lipgloss.Color("yellow")).
			Bold(true)

	StyleFailed = lipgloss.NewStyle().
			Foreground(lipgloss.Color("red")).
			Bold(true)

	StylePending = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// Gantt bar styles
var (
	StyleBarCritical = lipgloss.NewStyle().
				Foreground(lipgloss.Color("203"))

	StyleBarNormal = lipgloss.NewStyle().
			Foreground(lipgloss.Color("75"))

	StyleWarning = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))
)

// UI element styles
var (
	StyleTitle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Underline(true)

	StyleHelp = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)
