package main

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	primaryColor = lipgloss.Color("#8BC34A")
	accentColor  = lipgloss.Color("#2196F3")
	errorColor   = lipgloss.Color("#e53935")
	warnColor    = lipgloss.Color("#FFC107")
	mutedColor   = lipgloss.Color("#6b7280")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	actionStyle = lipgloss.NewStyle().Foreground(accentColor)

	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	warningStyle = lipgloss.NewStyle().Foreground(warnColor)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(errorColor)

	mutedStyle = lipgloss.NewStyle().Foreground(mutedColor)

	summaryStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)
)
