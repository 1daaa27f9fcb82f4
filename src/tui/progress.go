package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"easlog/src/actions"
)

// ASCII art logo lines for the loading screen
var easlogLogo = []string{
	"▄▄▄▄▄  ▄▄▄   ▄▄▄▄ ▄     ▄▄▄   ▄▄▄▄",
	"█▄▄▄  █▄▄▄█ ▀▄▄▄  █    █   █ █  ▄▄",
	"█▄▄▄▄ █   █ ▄▄▄▄▀ █▄▄▄ ▀▄▄▄▀ ▀▄▄▄█",
}

// Gradient colors from light (top) to dark (bottom)
var logoGradientColors = []string{
	"#5DADE2",
	"#3498DB",
	"#2874A6",
}

// rowDetailWidth caps the filename/error column of an action row.
const rowDetailWidth = 60

// ProgressMsg updates the stage line. Stage "complete" ends the spinner.
type ProgressMsg struct {
	Stage   string
	Current int
	Total   int
}

// ActionMsg reports an export action starting (nil Result) or finishing.
type ActionMsg actions.Event

type actionRow struct {
	label    string
	filename string
	result   *actions.Result
}

// ProgressModel renders the logo, a spinner with the current stage, a progress
// bar and one row per export action.
type ProgressModel struct {
	stage   string
	current int
	total   int
	done    bool
	rows    []actionRow
	spinner spinner.Model
	bar     progress.Model
	styles  *StyleConfig
}

func NewProgressModel() ProgressModel {
	styles := DefaultStyles()
	return ProgressModel{
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(styles.Pending)),
		),
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		styles: styles,
	}
}

// Init starts the spinner.
func (m ProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m ProgressModel) Update(msg tea.Msg) (ProgressModel, tea.Cmd) {
	switch msg := msg.(type) {
	case ProgressMsg:
		m.stage = msg.Stage
		m.current = msg.Current
		m.total = msg.Total
		if msg.Stage == "complete" {
			m.done = true
		}
	case ActionMsg:
		m.apply(actions.Event(msg))
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *ProgressModel) apply(ev actions.Event) {
	rows := make([]actionRow, max(len(m.rows), ev.Index+1))
	copy(rows, m.rows)
	rows[ev.Index].label = ev.Action.Label
	rows[ev.Index].filename = ev.Action.Filename
	m.total = ev.Total

	if ev.Result == nil {
		m.stage = "Exporting " + ev.Action.Label
		m.current = ev.Index
	} else {
		rows[ev.Index].result = ev.Result
		m.current = ev.Index + 1
	}
	m.rows = rows
}

// Results returns the finished actions in run order.
func (m ProgressModel) Results() []*actions.Result {
	var out []*actions.Result
	for _, row := range m.rows {
		if row.result != nil {
			out = append(out, row.result)
		}
	}
	return out
}

func (m ProgressModel) View() string {
	// Each logo line gets its own shade
	var logoLines []string
	for i, line := range easlogLogo {
		color := logoGradientColors[i%len(logoGradientColors)]
		style := lipgloss.NewStyle().
			Foreground(lipgloss.Color(color)).
			Bold(true)
		logoLines = append(logoLines, style.Render(line))
	}
	logo := strings.Join(logoLines, "\n")

	var pct float64
	if m.total > 0 {
		pct = float64(m.current) / float64(m.total) * 100
	}

	var statusLine string
	switch {
	case m.done:
		statusLine = m.styles.OutcomeStyle(true, true).Render("✓ Complete")
	case m.total > 0:
		statusLine = fmt.Sprintf("%s %s (%d/%d, %.0f%%)",
			m.spinner.View(), m.stage, m.current, m.total, pct)
	case m.stage != "":
		statusLine = fmt.Sprintf("%s %s...", m.spinner.View(), m.stage)
	default:
		statusLine = fmt.Sprintf("%s Loading...", m.spinner.View())
	}

	parts := []string{logo, "", statusLine}
	if m.total > 0 {
		parts = append(parts, m.bar.ViewAs(pct/100))
	}
	if rows := m.renderRows(); rows != "" {
		parts = append(parts, "", rows)
	}
	return lipgloss.JoinVertical(lipgloss.Center, parts...)
}

func (m ProgressModel) renderRows() string {
	var lines []string
	for _, row := range m.rows {
		if row.label == "" {
			continue
		}

		marker, detail := "•", row.filename
		style := m.styles.OutcomeStyle(false, false)
		if r := row.result; r != nil {
			style = m.styles.OutcomeStyle(true, r.OK())
			if r.OK() {
				marker, detail = "✓", fmt.Sprintf("%s (%d bytes)", r.Path, r.Bytes)
			} else {
				marker, detail = "✗", r.Error
			}
		}

		line := fmt.Sprintf("%s %s %s", marker, TruncateAndPad(row.label, 10, false), Truncate(detail, rowDetailWidth, true))
		lines = append(lines, style.Render(line))
	}
	if len(lines) == 0 {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
