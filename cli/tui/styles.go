// Package tui provides the interactive Bubble Tea views of the documind CLI:
// the chat conversation and live upload progress.
//
// Views are opt-in (--tui). They consume the same state as the plain
// output paths and never hold data of their own.
package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

// Color palette.
var (
	primaryColor   = lipgloss.Color("#7C3AED") // Purple
	successColor   = lipgloss.Color("#10B981") // Green
	warningColor   = lipgloss.Color("#F59E0B") // Amber
	errorColor     = lipgloss.Color("#EF4444") // Red
	mutedColor     = lipgloss.Color("#6B7280") // Gray
	highlightColor = lipgloss.Color("#3B82F6") // Blue
)

// Styles shared by the views and the table renderer.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	// HeaderStyle styles table header rows.
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(highlightColor)

	LabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(16)

	MutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(successColor)

	WarningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	UserStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(highlightColor)

	AssistantStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	HelpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)
)

// StatusStyle picks a style for an upload or document status.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case "done", "ready":
		return SuccessStyle
	case "pending", "uploading", "processing":
		return WarningStyle
	case "error", "failed":
		return ErrorStyle
	default:
		return lipgloss.NewStyle()
	}
}

type keyMap struct {
	Quit  key.Binding
	Send  key.Binding
	Clear key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "esc"),
		key.WithHelp("esc", "quit"),
	),
	Send: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "send"),
	),
	Clear: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("ctrl+l", "clear"),
	),
}
