package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// panelDimensions holds calculated layout dimensions
type panelDimensions struct {
	availableHeight int
	leftPanelWidth  int
	rightPanelWidth int
}

// calculateDimensions computes panel sizes based on terminal dimensions.
// Render and resize both go through here so they agree.
func (m MainModel) calculateDimensions() panelDimensions {
	headerHeight := lipgloss.Height(m.header.Render(m.width))
	// header + help line (1) + panel column header row (1) + panel borders (2)
	availableHeight := max(m.height-headerHeight-1-1-2, 1)

	// Phase list (35%) | Lines (65%)
	leftPanelWidth := int(float64(m.width) * 0.35)
	rightPanelWidth := m.width - leftPanelWidth

	return panelDimensions{
		availableHeight: availableHeight,
		leftPanelWidth:  leftPanelWidth,
		rightPanelWidth: rightPanelWidth,
	}
}

// View renders the complete TUI layout
func (m MainModel) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	header := m.header.Render(m.width)

	switch m.status {
	case StatusLoading:
		centered := lipgloss.NewStyle().
			Width(m.width).
			Align(lipgloss.Center).
			PaddingTop(2).
			Render(m.progress.View())
		return lipgloss.JoinVertical(lipgloss.Left, header, centered)
	case StatusFailed:
		msg := lipgloss.NewStyle().
			Foreground(m.styles.Failure).
			Padding(1, 2).
			Render(Wrap(fmt.Sprintf("Failed to load build logs: %v", m.err), max(m.width-4, 1)))
		return lipgloss.JoinVertical(lipgloss.Left, header, msg, m.renderHelpText())
	}

	dims := m.calculateDimensions()

	leftPanel := m.renderListPanel(dims.leftPanelWidth, dims.availableHeight)
	rightPanel := m.renderDetailPanel(dims.rightPanelWidth, dims.availableHeight)
	mainContent := lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, rightPanel)

	return lipgloss.JoinVertical(lipgloss.Left, header, mainContent, m.renderHelpText())
}

// renderHelpText renders context-aware help text at the bottom
func (m MainModel) renderHelpText() string {
	keyStyle := lipgloss.NewStyle().Foreground(m.styles.PrimaryBlue).Bold(true)
	sepStyle := lipgloss.NewStyle().Foreground(m.styles.TextSecondary)
	sep := sepStyle.Render(" • ")

	var helpText string
	switch {
	case m.searchMode:
		helpText = keyStyle.Render("Enter") + ": Apply" + sep +
			keyStyle.Render("Esc") + ": Clear"
	case m.detailFocused:
		helpText = keyStyle.Render("j/k") + ": Scroll" + sep +
			keyStyle.Render("Esc") + ": Back" + sep +
			keyStyle.Render("q") + ": Quit"
	case m.status == StatusFailed:
		helpText = keyStyle.Render("q") + ": Quit"
	default:
		helpText = keyStyle.Render("j/k") + ": Nav" + sep +
			keyStyle.Render("Enter") + ": Lines" + sep +
			keyStyle.Render("/") + ": Search" + sep +
			keyStyle.Render("s") + ": Save" + sep +
			keyStyle.Render("q") + ": Quit"
	}

	return m.styles.HelpStyle().Render(helpText)
}

// resizeComponents handles window resize events
func (m *MainModel) resizeComponents() {
	dims := m.calculateDimensions()

	m.listView.SetSize(dims.leftPanelWidth-2, dims.availableHeight)

	m.detailViewport.Width = dims.rightPanelWidth - 2
	m.detailViewport.Height = dims.availableHeight

	// Content is wrapped to the viewport width, so it is rebuilt on every resize.
	if selectedItem, ok := m.listView.GetSelectedItem(); ok {
		m.updateDetailContent(selectedItem)
	}
}
