package tui

import "github.com/charmbracelet/lipgloss"

// StyleConfig holds the colors shared by the export progress view and the phase browser.
type StyleConfig struct {
	PrimaryBlue    lipgloss.Color
	AccentBlue     lipgloss.Color
	DarkBackground lipgloss.Color
	TextPrimary    lipgloss.Color
	TextSecondary  lipgloss.Color
	BorderColor    lipgloss.Color
	SelectedColor  lipgloss.Color
	MatchColor     lipgloss.Color

	// Outcome colors
	Success lipgloss.Color
	Failure lipgloss.Color
	Pending lipgloss.Color
}

// DefaultStyles returns the default color palette
func DefaultStyles() *StyleConfig {
	return &StyleConfig{
		PrimaryBlue:    lipgloss.Color("#8AB4F8"),
		AccentBlue:     lipgloss.Color("#4285F4"),
		DarkBackground: lipgloss.Color("#1E1E1E"),
		TextPrimary:    lipgloss.Color("#E8EAED"),
		TextSecondary:  lipgloss.Color("#9AA0A6"),
		BorderColor:    lipgloss.Color("#5F6368"),
		SelectedColor:  lipgloss.Color("#303134"),
		MatchColor:     lipgloss.Color("#FBBC04"),
		Success:        lipgloss.Color("#34A853"),
		Failure:        lipgloss.Color("#EA4335"),
		Pending:        lipgloss.Color("#FFD700"),
	}
}

// TitleStyle returns a title lipgloss style using this config
func (s *StyleConfig) TitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.PrimaryBlue).
		Bold(true).
		Padding(0, 1)
}

// HelpStyle returns a help text lipgloss style using this config
func (s *StyleConfig) HelpStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.TextSecondary).
		Padding(0, 2)
}

// PanelStyle returns the bordered container used by both browser panels.
func (s *StyleConfig) PanelStyle(focused bool) lipgloss.Style {
	border := s.BorderColor
	if focused {
		border = s.AccentBlue
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border)
}

// OutcomeStyle colors an action row by its state.
func (s *StyleConfig) OutcomeStyle(done, ok bool) lipgloss.Style {
	switch {
	case !done:
		return lipgloss.NewStyle().Foreground(s.Pending)
	case ok:
		return lipgloss.NewStyle().Foreground(s.Success)
	default:
		return lipgloss.NewStyle().Foreground(s.Failure).Bold(true)
	}
}
