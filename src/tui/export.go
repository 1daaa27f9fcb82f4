package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"easlog/src/actions"
)

// exportDoneMsg is sent once the event channel is closed.
type exportDoneMsg struct{}

// ExportModel shows the progress of one build export. The exporting goroutine
// sends runner events on the channel and closes it when every action has run.
type ExportModel struct {
	title       string
	events      <-chan actions.Event
	progress    ProgressModel
	interrupted bool
}

// NewExportModel creates the export view for events.
func NewExportModel(title string, events <-chan actions.Event) ExportModel {
	return ExportModel{
		title:    title,
		events:   events,
		progress: NewProgressModel(),
	}
}

func (m ExportModel) Init() tea.Cmd {
	return tea.Batch(m.progress.Init(), waitForEvent(m.events))
}

func waitForEvent(events <-chan actions.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return exportDoneMsg{}
		}
		return ActionMsg(ev)
	}
}

func (m ExportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.interrupted = true
			return m, tea.Quit
		}
	case ActionMsg:
		m.progress, _ = m.progress.Update(msg)
		return m, waitForEvent(m.events)
	case exportDoneMsg:
		m.progress, _ = m.progress.Update(ProgressMsg{Stage: "complete"})
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.progress, cmd = m.progress.Update(msg)
	return m, cmd
}

func (m ExportModel) View() string {
	title := DefaultStyles().TitleStyle().Render(m.title)
	return lipgloss.JoinVertical(lipgloss.Left, title, "", m.progress.View(), "")
}

// Interrupted reports whether the user quit before the export finished.
func (m ExportModel) Interrupted() bool {
	return m.interrupted
}

// Results returns the finished actions.
func (m ExportModel) Results() []*actions.Result {
	return m.progress.Results()
}
