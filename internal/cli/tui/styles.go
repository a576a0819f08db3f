package tui

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles the dashboard renders with.
type Styles struct {
	Title    lipgloss.Style
	Header   lipgloss.Style
	Footer   lipgloss.Style
	StatusOK lipgloss.Style
	StatusWarn lipgloss.Style
	StatusBad lipgloss.Style
	Error    lipgloss.Style
}

// DefaultStyles returns the dashboard's default color scheme.
func DefaultStyles() Styles {
	return Styles{
		Title:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		Header:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245")),
		Footer:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")).MarginTop(1),
		StatusOK:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		StatusWarn: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		StatusBad:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Error:      lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}
}

func (s Styles) statusStyle(status string) lipgloss.Style {
	switch status {
	case "completed", "idle":
		return s.StatusOK
	case "in_progress", "active":
		return s.Header
	case "excluded", "paused", "offline":
		return s.StatusWarn
	case "failed":
		return s.StatusBad
	default:
		return s.Header
	}
}
