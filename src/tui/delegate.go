package tui

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	// listRenderingOverhead accounts for padding added by bubbles/list and panel borders.
	// Breakdown: panel border (2) + list internal padding/margins (8) = 10 chars total.
	listRenderingOverhead = 10
)

// Delegate renders phases as table rows.
type Delegate struct {
	RankWidth  int
	CountWidth int
	styles     *StyleConfig
}

// NewDelegate creates a new phase table delegate with default styles
func NewDelegate() Delegate {
	return NewDelegateWithStyles(DefaultStyles())
}

// NewDelegateWithStyles creates a new delegate with custom styles
func NewDelegateWithStyles(styles *StyleConfig) Delegate {
	return Delegate{
		RankWidth:  2,
		CountWidth: 2,
		styles:     styles,
	}
}

// SetColumnWidths sizes the rank and line count columns for the largest values.
func (d *Delegate) SetColumnWidths(maxRank, maxCount int) {
	d.RankWidth = max(2, len(strconv.Itoa(maxRank)))
	d.CountWidth = max(2, len(strconv.Itoa(maxCount)))
}

// Height returns the height of a list item
func (d Delegate) Height() int {
	return 1
}

// Spacing returns spacing between items
func (d Delegate) Spacing() int {
	return 0
}

// Update handles item updates
func (d Delegate) Update(msg tea.Msg, m *list.Model) tea.Cmd {
	return nil
}

// Render renders a list item
func (d Delegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	entry, ok := item.(Item)
	if !ok {
		return
	}

	rankCol := fmt.Sprintf("%*d", d.RankWidth, entry.Rank)
	countCol := fmt.Sprintf("%*d", d.CountWidth, entry.Count())

	// Fixed columns: rank + count + separators (6)
	fixedWidth := d.RankWidth + d.CountWidth + 6
	availableWidth := m.Width() - fixedWidth - listRenderingOverhead

	var name string
	if availableWidth > 0 {
		name = TruncateAndPad(CleanLogText(entry.Phase), availableWidth, true)
	}

	line := fmt.Sprintf("%s │ %s │ %s", rankCol, countCol, name)

	style := lipgloss.NewStyle().Foreground(d.styles.TextSecondary)
	if entry.Matches > 0 {
		style = style.Foreground(d.styles.MatchColor)
	}
	if index == m.Index() {
		style = style.Bold(true).Foreground(d.styles.PrimaryBlue).Background(d.styles.SelectedColor)
	}

	fmt.Fprint(w, style.Render(line))
}
