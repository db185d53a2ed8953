package historyview

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/nhle/taskboard/internal/controller"
	"github.com/nhle/taskboard/internal/history"
	"github.com/nhle/taskboard/internal/keys"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/theme"
)

// CloseMsg signals the parent to close the history view.
type CloseMsg struct{}

// BoardChangedMsg signals that tasks were moved back onto the board.
type BoardChangedMsg struct{}

type historyMode int

const (
	modeList historyMode = iota
	modeConfirmDelete
	modeConfirmClear
)

type formBindings struct {
	confirm bool
}

type historyLoadedMsg struct {
	tasks []model.Task
	err   error
}

type actionDoneMsg struct {
	status  string
	err     error
	onBoard bool
}

// Model is the Bubble Tea model for the history view.
type Model struct {
	mode        historyMode
	ctl         *controller.Controller
	keys        *keys.KeyMap
	order       history.Order
	entries     []model.Task
	selectedIdx int
	confirmForm *huh.Form
	targetID    string
	fb          *formBindings
	statusMsg   string
	loading     bool
	width       int
	height      int
}

// New creates a new history view model.
func New(ctl *controller.Controller, k *keys.KeyMap, width, height int) Model {
	return Model{
		mode:   modeList,
		ctl:    ctl,
		keys:   k,
		order:  history.NewestFirst,
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// Init fetches history from the server.
func (m Model) Init() tea.Cmd {
	return m.load()
}

// Open resets the view and fetches history.
func (m *Model) Open() tea.Cmd {
	m.mode = modeList
	m.statusMsg = ""
	m.loading = true
	m.entries = m.ctl.History().Entries(m.order)
	return m.load()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
		}
		m.entries = m.ctl.History().Entries(m.order)
		m.clampSelection()
		return m, nil

	case actionDoneMsg:
		m.mode = modeList
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.statusMsg = msg.status
		}
		m.entries = m.ctl.History().Entries(m.order)
		m.clampSelection()
		if msg.onBoard {
			return m, func() tea.Msg { return BoardChangedMsg{} }
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateConfirm(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.mode != modeList {
		return m.updateConfirm(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return CloseMsg{} }

	case key.Matches(msg, m.keys.Down):
		if len(m.entries) > 0 {
			m.selectedIdx = (m.selectedIdx + 1) % len(m.entries)
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if len(m.entries) > 0 {
			m.selectedIdx--
			if m.selectedIdx < 0 {
				m.selectedIdx = len(m.entries) - 1
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.ToggleOrder):
		if m.order == history.NewestFirst {
			m.order = history.OldestFirst
		} else {
			m.order = history.NewestFirst
		}
		m.entries = m.ctl.History().Entries(m.order)
		return m, nil

	case key.Matches(msg, m.keys.Restore):
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.restore(t.ID, t.Title)

	case key.Matches(msg, m.keys.RestoreAll):
		if len(m.entries) == 0 {
			return m, nil
		}
		return m, m.restoreAll()

	case key.Matches(msg, m.keys.HardDelete):
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.targetID = t.ID
		m.fb.confirm = false
		m.confirmForm = m.buildConfirmForm(
			fmt.Sprintf("Permanently delete %q?", t.Title),
			"This cannot be undone.",
		)
		m.mode = modeConfirmDelete
		return m, m.confirmForm.Init()

	case key.Matches(msg, m.keys.ClearAll):
		if len(m.entries) == 0 {
			return m, nil
		}
		m.fb.confirm = false
		m.confirmForm = m.buildConfirmForm(
			fmt.Sprintf("Permanently delete all %d tasks in history?", len(m.entries)),
			"This cannot be undone.",
		)
		m.mode = modeConfirmClear
		return m, m.confirmForm.Init()

	case key.Matches(msg, m.keys.Refresh):
		m.loading = true
		return m, m.load()
	}
	return m, nil
}

func (m Model) buildConfirmForm(title, description string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes, delete").
				Negative("Cancel").
				Value(&m.fb.confirm),
		),
	).WithWidth(m.formWidth())
}

func (m Model) updateConfirm(msg tea.Msg) (Model, tea.Cmd) {
	if m.confirmForm == nil || m.mode == modeList {
		return m, nil
	}
	mdl, cmd := m.confirmForm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.confirmForm = f
	}
	switch m.confirmForm.State {
	case huh.StateCompleted:
		confirmed := m.fb.confirm
		mode := m.mode
		m.mode = modeList
		if !confirmed {
			return m, nil
		}
		if mode == modeConfirmClear {
			return m, m.clear(confirmed)
		}
		return m, m.hardDelete(m.targetID, confirmed)
	case huh.StateAborted:
		m.mode = modeList
		return m, nil
	}
	return m, cmd
}

// View renders the history view.
func (m Model) View() string {
	if m.mode != modeList && m.confirmForm != nil {
		return lipgloss.NewStyle().Padding(1, 2).Render(m.confirmForm.View())
	}
	return m.viewList()
}

func (m Model) viewList() string {
	var b strings.Builder

	order := "newest first"
	if m.order == history.OldestFirst {
		order = "oldest first"
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).MarginBottom(1)
	b.WriteString(titleStyle.Render(fmt.Sprintf("History (%d, %s)", len(m.entries), order)))
	b.WriteString("\n\n")

	switch {
	case m.loading && len(m.entries) == 0:
		b.WriteString(theme.DimmedStyle.Render("Loading history..."))
	case len(m.entries) == 0:
		emptyStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Italic(true)
		b.WriteString(emptyStyle.Render("History is empty."))
	default:
		for i, t := range m.entries {
			when := "unknown"
			if t.CompletedAt != nil {
				when = humanize.Time(*t.CompletedAt)
			}
			label := fmt.Sprintf("%-40s %s  %s",
				truncate(t.Title, 40),
				theme.StatusStyle(t.Status).Render(t.Status.Label()),
				theme.DimmedStyle.Render(when),
			)
			if i == m.selectedIdx {
				b.WriteString(theme.SelectedCardStyle.Render(label))
			} else {
				b.WriteString(theme.CardStyle.Render(label))
			}
			b.WriteString("\n")
		}
	}

	if m.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorYellow).Italic(true).Render(m.statusMsg))
	}

	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorGray).Render(
		"enter restore | R restore all | D delete forever | X clear | o order | esc back",
	))

	return lipgloss.NewStyle().Padding(1, 2).Width(m.width).Height(m.height).Render(b.String())
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) selected() (model.Task, bool) {
	if m.selectedIdx < 0 || m.selectedIdx >= len(m.entries) {
		return model.Task{}, false
	}
	return m.entries[m.selectedIdx], true
}

func (m *Model) clampSelection() {
	if m.selectedIdx >= len(m.entries) {
		m.selectedIdx = len(m.entries) - 1
	}
	if m.selectedIdx < 0 {
		m.selectedIdx = 0
	}
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) load() tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		tasks, err := ctl.FetchHistory(context.Background())
		return historyLoadedMsg{tasks: tasks, err: err}
	}
}

func (m Model) restore(id, title string) tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		_, err := ctl.Restore(context.Background(), id)
		if errors.Is(err, history.ErrRestorePending) {
			return actionDoneMsg{status: "Restore already in progress"}
		}
		return actionDoneMsg{status: fmt.Sprintf("Restored %q", title), err: err, onBoard: true}
	}
}

func (m Model) restoreAll() tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		err := ctl.RestoreAll(context.Background())
		return actionDoneMsg{status: "Restored all tasks", err: err, onBoard: true}
	}
}

func (m Model) hardDelete(id string, confirmed bool) tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		err := ctl.HardDelete(context.Background(), id, confirmed)
		return actionDoneMsg{status: "Task permanently deleted", err: err}
	}
}

func (m Model) clear(confirmed bool) tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		err := ctl.ClearHistory(context.Background(), confirmed)
		return actionDoneMsg{status: "History cleared", err: err}
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
