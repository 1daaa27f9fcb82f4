package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderDetail renders the lines of one phase, wrapped to maxWidth.
// Lines containing the search query are highlighted.
func (m MainModel) renderDetail(item Item, maxWidth int) string {
	content := strings.Builder{}

	header := lipgloss.NewStyle().
		Foreground(m.styles.PrimaryBlue).
		Bold(true).
		Render(Wrap(fmt.Sprintf("%s | %d lines", CleanLogText(item.Phase), item.Count()), maxWidth))
	fmt.Fprintf(&content, "%s\n\n", header)

	plain := lipgloss.NewStyle().Foreground(m.styles.TextPrimary)
	match := lipgloss.NewStyle().Foreground(m.styles.MatchColor).Bold(true)
	query := strings.ToLower(m.searchQuery)

	for _, line := range item.Lines {
		line = CleanLogText(line)
		if strings.TrimSpace(line) == "" {
			continue
		}
		style := plain
		if query != "" && strings.Contains(strings.ToLower(line), query) {
			style = match
		}
		// Wrap before styling so escapes don't count toward the width.
		fmt.Fprintln(&content, style.Render(Wrap(line, maxWidth)))
	}

	return content.String()
}

// updateDetailContent updates the viewport with content from the selected item
func (m *MainModel) updateDetailContent(item Item) {
	maxWidth := m.detailViewport.Width - 2 // 1 char padding on each side
	m.detailViewport.SetContent(m.renderDetail(item, maxWidth))
	m.detailViewport.GotoTop()
	m.shownPhase = item.Phase
}

// renderDetailPanel renders the right panel with detail viewport
func (m MainModel) renderDetailPanel(width, height int) string {
	if selectedItem, ok := m.listView.GetSelectedItem(); ok {
		headerRow := lipgloss.NewStyle().
			Foreground(m.styles.PrimaryBlue).
			Bold(true).
			Padding(0, 1).
			Render(Truncate(fmt.Sprintf("Phase: %s", CleanLogText(selectedItem.Phase)), width-2, true))

		return lipgloss.JoinVertical(lipgloss.Left, headerRow,
			m.styles.PanelStyle(m.detailFocused).
				Width(width-2).
				Height(height).
				Render(m.detailViewport.View()))
	}

	// No selection - show empty state
	placeholderRow := lipgloss.NewStyle().
		Foreground(m.styles.TextSecondary).
		Padding(0, 1).
		Render(" ")

	empty := "No log lines"
	if m.searchQuery != "" {
		empty = "No phase matches the search"
	}
	emptyStyle := m.styles.PanelStyle(false).
		Width(width-2).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(m.styles.TextSecondary).
		Faint(true)

	return lipgloss.JoinVertical(lipgloss.Left, placeholderRow, emptyStyle.Render(empty))
}
