// Package tui provides the terminal views of easlog: the progress screen shown
// while a build is exported and a two-panel browser for aggregated build logs.
package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"easlog/src/aggregate"
	"easlog/src/provider"
)

// Status is the loading state of the browser.
type Status int

const (
	StatusLoading Status = iota
	StatusReady
	StatusFailed
)

// LoadFunc resolves the build and aggregates its logs. It runs off the UI goroutine.
type LoadFunc func() (*provider.BuildRecord, *aggregate.Result, error)

// SaveFunc persists the aggregated document and returns where it went.
type SaveFunc func(rec *provider.BuildRecord, document string) (string, error)

// LoadedMsg carries a finished aggregation into the browser.
type LoadedMsg struct {
	Build  *provider.BuildRecord
	Result *aggregate.Result
}

// LoadFailedMsg reports a build that could not be resolved.
type LoadFailedMsg struct {
	Err error
}

// SavedMsg reports the outcome of a save.
type SavedMsg struct {
	Path string
	Err  error
}

// MainModel is the phase browser: phases of one build on the left, the lines
// of the selected phase on the right.
type MainModel struct {
	header         Header
	listView       View
	detailViewport viewport.Model
	progress       ProgressModel
	styles         *StyleConfig

	items      []Item
	shownPhase string
	build      *provider.BuildRecord
	result     *aggregate.Result
	status     Status
	err        error

	searchMode    bool
	searchQuery   string
	detailFocused bool

	load LoadFunc
	save SaveFunc

	width  int
	height int
	ready  bool
}

// NewMainModel creates a browser that loads its content with load.
// save may be nil, which disables the save key.
func NewMainModel(load LoadFunc, save SaveFunc) MainModel {
	styles := DefaultStyles()
	progress := NewProgressModel()
	progress, _ = progress.Update(ProgressMsg{Stage: "Fetching build logs"})

	return MainModel{
		header:         NewHeaderWithStyles("Loading build...", styles),
		listView:       NewView(styles),
		detailViewport: viewport.New(0, 0),
		progress:       progress,
		styles:         styles,
		status:         StatusLoading,
		load:           load,
		save:           save,
	}
}

func (m MainModel) Init() tea.Cmd {
	return tea.Batch(m.progress.Init(), loadCmd(m.load))
}

func loadCmd(load LoadFunc) tea.Cmd {
	if load == nil {
		return nil
	}
	return func() tea.Msg {
		rec, res, err := load()
		if err != nil {
			return LoadFailedMsg{Err: err}
		}
		return LoadedMsg{Build: rec, Result: res}
	}
}

func (m MainModel) saveCmd() tea.Cmd {
	if m.save == nil || m.result == nil {
		return nil
	}
	save, rec, doc := m.save, m.build, m.result.Document
	return func() tea.Msg {
		path, err := save(rec, doc)
		return SavedMsg{Path: path, Err: err}
	}
}

// ItemsFrom turns an aggregation into list items, one per phase in document order.
func ItemsFrom(groups *aggregate.PhaseGroup) []Item {
	if groups == nil {
		return nil
	}
	phases := groups.Phases()
	items := make([]Item, 0, len(phases))
	for i, phase := range phases {
		items = append(items, Item{Phase: phase, Lines: groups.Lines(phase), Rank: i + 1})
	}
	return items
}

// buildStatus summarizes a build for the header.
func buildStatus(rec *provider.BuildRecord, res *aggregate.Result) string {
	status := fmt.Sprintf("%s %s %s-%s (%s) | %d phases, %d lines",
		rec.Slug, rec.Platform, rec.AppVersion, rec.AppBuildVersion, rec.BuildProfile,
		res.Groups.Len(), res.Lines)
	if n := len(res.Failures); n > 0 {
		status += fmt.Sprintf(", %d dropped", n)
	}
	return status
}

func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeComponents()
		return m, nil

	case LoadedMsg:
		m.build = msg.Build
		m.result = msg.Result
		m.status = StatusReady
		m.items = ItemsFrom(msg.Result.Groups)
		m.header.SetStatus(buildStatus(msg.Build, msg.Result))
		m.progress, _ = m.progress.Update(ProgressMsg{Stage: "complete"})
		m.applyFilter()
		if m.ready {
			m.resizeComponents()
		}
		return m, nil

	case LoadFailedMsg:
		m.status = StatusFailed
		m.err = msg.Err
		m.header.SetStatus("Build unavailable")
		return m, nil

	case SavedMsg:
		if msg.Err != nil {
			m.header.SetNotice(fmt.Sprintf("save failed: %v", msg.Err))
		} else {
			m.header.SetNotice("saved " + msg.Path)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.searchMode {
			return m.updateSearch(msg)
		}
		if m.detailFocused {
			return m.updateDetail(msg)
		}
		return m.updateList(msg)
	}

	return m, nil
}

func (m MainModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.searchMode = false
		m.searchQuery = ""
	case tea.KeyEnter:
		m.searchMode = false
	case tea.KeyBackspace:
		if r := []rune(m.searchQuery); len(r) > 0 {
			m.searchQuery = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.searchQuery += " "
	case tea.KeyRunes:
		m.searchQuery += string(msg.Runes)
	default:
		return m, nil
	}
	m.applyFilter()
	return m, nil
}

func (m MainModel) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "left", "h":
		m.detailFocused = false
		return m, nil
	}
	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

func (m MainModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	if m.status != StatusReady {
		return m, nil
	}

	switch msg.String() {
	case "/":
		m.searchMode = true
		m.header.SetSearch(m.searchQuery, true)
		return m, nil
	case "enter", "right", "l":
		if _, ok := m.listView.GetSelectedItem(); ok {
			m.detailFocused = true
		}
		return m, nil
	case "s":
		return m, m.saveCmd()
	}

	var cmd tea.Cmd
	m.listView, cmd = m.listView.Update(msg)
	if item, ok := m.listView.GetSelectedItem(); ok && item.Phase != m.shownPhase {
		m.updateDetailContent(item)
	}
	return m, cmd
}
