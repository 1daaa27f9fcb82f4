package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// renderListPanel renders the left panel with the phase list
func (m MainModel) renderListPanel(width, height int) string {
	// list size is set in resizeComponents(), not here during render
	listPanel := m.styles.PanelStyle(!m.detailFocused).
		Width(width - 2).
		Height(height).
		Render(m.listView.Render())

	delegate := m.listView.GetDelegate()
	headerText := fmt.Sprintf("%*s │ %*s │ Phase", delegate.RankWidth, "#", delegate.CountWidth, "Ln")
	headerRow := lipgloss.NewStyle().
		Foreground(m.styles.PrimaryBlue).
		Bold(true).
		Width(width).
		Padding(0, 1).
		Render(Truncate(headerText, width-2, true))

	return lipgloss.JoinVertical(lipgloss.Left, headerRow, listPanel)
}
