package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Header represents the top status bar component.
type Header struct {
	buildStatus string
	notice      string
	searchQuery string
	searchMode  bool
	styles      *StyleConfig
}

// NewHeader creates a new header with default styles
func NewHeader(buildStatus string) Header {
	return NewHeaderWithStyles(buildStatus, DefaultStyles())
}

// NewHeaderWithStyles creates a new header with custom styles
func NewHeaderWithStyles(buildStatus string, styles *StyleConfig) Header {
	return Header{
		buildStatus: buildStatus,
		styles:      styles,
	}
}

// SetStatus replaces the build summary.
func (h *Header) SetStatus(status string) {
	h.buildStatus = status
}

// SetNotice shows a one-off message such as the path of a saved document.
func (h *Header) SetNotice(notice string) {
	h.notice = notice
}

// SetSearch updates the search state
func (h *Header) SetSearch(query string, mode bool) {
	h.searchQuery = query
	h.searchMode = mode
}

// Render renders the header
func (h Header) Render(width int) string {
	sectionStyle := lipgloss.NewStyle().
		Foreground(h.styles.PrimaryBlue).
		Bold(true).
		Padding(0, 2)

	status := sectionStyle.Render(Truncate(h.buildStatus, max(width/2, 10), true))

	var searchText string
	switch {
	case h.searchMode:
		searchText = fmt.Sprintf("Search: %s█", h.searchQuery)
	case h.searchQuery != "":
		searchText = fmt.Sprintf("Search: %s", h.searchQuery)
	default:
		searchText = "[/] to search"
	}

	searchStyle := lipgloss.NewStyle().
		Foreground(h.styles.TextSecondary).
		Padding(0, 2)
	if h.searchMode {
		searchStyle = searchStyle.Foreground(h.styles.PrimaryBlue)
	}
	search := searchStyle.Render(Truncate(searchText, max(width/4, 10), true))

	sections := []string{status, search}
	if h.notice != "" {
		room := width - lipgloss.Width(status) - lipgloss.Width(search) - 4
		if room > 3 {
			notice := lipgloss.NewStyle().Foreground(h.styles.Success).Padding(0, 2)
			sections = append(sections, notice.Render(Truncate(h.notice, room, true)))
		}
	}
	leftSection := lipgloss.JoinHorizontal(lipgloss.Left, sections...)

	headerStyle := lipgloss.NewStyle().
		Background(h.styles.DarkBackground).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(h.styles.BorderColor).
		Width(width)

	spacer := lipgloss.NewStyle().Width(max(width-lipgloss.Width(leftSection), 0)).Render("")

	return headerStyle.Render(lipgloss.JoinHorizontal(lipgloss.Left, leftSection, spacer))
}
