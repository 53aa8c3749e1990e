// ABOUTME: Lipgloss styles for the watch view: task status colors, the activity panel and the progress bar.
// ABOUTME: StyleForStatus maps TaskStatus values to their display style.
package tui

import (
	"github.com/2389-research/featurecrew/progress"
	"github.com/charmbracelet/lipgloss"
)

var (
	BorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62"))

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	// Status colors
	PendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	RunningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	CompletedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	FailedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	// Activity colors
	LogTimestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	LogEventStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	LogThinkingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("141"))
	LogErrorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	LogSuccessStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))

	BarFilledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))
	BarEmptyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

// StyleForStatus returns the lipgloss style for a TaskStatus.
func StyleForStatus(status TaskStatus) lipgloss.Style {
	switch status {
	case TaskRunning:
		return RunningStyle
	case TaskCompleted:
		return CompletedStyle
	case TaskFailed:
		return FailedStyle
	default:
		return PendingStyle
	}
}

// eventStyle returns the style for an event kind in the activity panel.
func eventStyle(kind progress.EventKind) lipgloss.Style {
	switch kind {
	case progress.EventAgentThinking:
		return LogThinkingStyle
	case progress.EventAgentOutput, progress.EventCrewComplete:
		return LogSuccessStyle
	case progress.EventError:
		return LogErrorStyle
	default:
		return LogEventStyle
	}
}
