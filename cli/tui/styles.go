// Package tui provides the Bubble Tea progress display for framecap
// record.
//
// The display is opt-in only (--tui flag) and purely observational:
// it renders the same frame updates the logger sees and never feeds
// anything back into the recording.
package tui

import "github.com/charmbracelet/lipgloss"

// Color palette.
var (
	primaryColor = lipgloss.Color("#7C3AED") // Purple
	successColor = lipgloss.Color("#10B981") // Green
	errorColor   = lipgloss.Color("#EF4444") // Red
	mutedColor   = lipgloss.Color("#6B7280") // Gray
)

// Styles for TUI components.
var (
	// TitleStyle for the recording header.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	// LabelStyle for field labels.
	LabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(14)

	// ValueStyle for field values.
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	// SuccessStyle for the success outcome line.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	// ErrorStyle for failure outcome lines.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	// BoxStyle for the bordered recording panel.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(1, 2)

	// HelpStyle for help text.
	HelpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)
)

// OutcomeStyle returns a style based on the outcome status string.
func OutcomeStyle(status string) lipgloss.Style {
	switch status {
	case "success":
		return SuccessStyle
	case "":
		return ValueStyle
	default:
		return ErrorStyle
	}
}
