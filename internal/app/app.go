package app

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/nhle/taskboard/internal/board"
	"github.com/nhle/taskboard/internal/controller"
	"github.com/nhle/taskboard/internal/keys"
	"github.com/nhle/taskboard/internal/model"
	appsync "github.com/nhle/taskboard/internal/sync"
	"github.com/nhle/taskboard/internal/theme"
	"github.com/nhle/taskboard/internal/ui"
	"github.com/nhle/taskboard/internal/ui/boardview"
	"github.com/nhle/taskboard/internal/ui/command"
	settingsview "github.com/nhle/taskboard/internal/ui/config"
	"github.com/nhle/taskboard/internal/ui/detail"
	helpview "github.com/nhle/taskboard/internal/ui/help"
	"github.com/nhle/taskboard/internal/ui/historyview"
	"github.com/nhle/taskboard/internal/ui/taskform"
	"github.com/nhle/taskboard/internal/ui/tasklist"
)

// toastTTL is how long a notification stays in the status bar.
const toastTTL = 5 * time.Second

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewBoard ViewState = iota
	ViewDetail
	ViewForm
	ViewHistory
	ViewHelp
	ViewCommand
	ViewList
	ViewSettings
)

// Model is the root Bubble Tea model that manages view routing,
// layout, and the link between the controller, the poller and the views.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	ctl          *controller.Controller
	poller       *appsync.Poller
	notes        *controller.ChanNotifier
	keys         *keys.KeyMap
	board        boardview.Model
	listView     tasklist.Model
	detail       detail.Model
	form         taskform.Model
	historyView  historyview.Model
	helpView     helpview.Model
	commandView  command.Model
	settings     settingsview.Model
	hasSettings  bool

	toast            *model.Notification
	lastUndo         string
	authErrorMessage string
	ready            bool
}

// New creates the root model. notes may be nil when notifications are
// not surfaced (tests).
func New(ctl *controller.Controller, p *appsync.Poller, notes *controller.ChanNotifier, sortMode board.SortMode) Model {
	k := keys.DefaultKeyMap()
	return Model{
		currentView: ViewBoard,
		ctl:         ctl,
		poller:      p,
		notes:       notes,
		keys:        k,
		board:       boardview.New(ctl, k, sortMode, 80, 24),
		listView:    tasklist.New(ctl.Board(), k, 80, 24),
		detail:      detail.New(k, 80, 24),
		form:        taskform.New(80, 24),
		historyView: historyview.New(ctl, k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
	}
}

// WithSettings enables the settings view, editing cfg and saving it to path.
func (m Model) WithSettings(path string, cfg *model.AppConfig, check settingsview.ConnChecker) Model {
	m.settings = settingsview.New(path, cfg, check, m.keys, m.layout.ContentWidth(), m.layout.ContentHeight())
	m.hasSettings = true
	return m
}

// Init starts polling and listening for notifications.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.poller.Start(),
		m.waitForNotification(),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.board.SetSize(w, h)
		m.listView.SetSize(w, h)
		m.detail.SetSize(w, h)
		m.form.SetSize(w, h)
		m.historyView.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		m.settings.SetSize(w, h)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case appsync.RefreshMsg:
		switch {
		case msg.AuthFailed:
			m.authErrorMessage = "Not authorized: run `taskboard token set` and restart"
		case msg.Err == nil:
			m.authErrorMessage = ""
			m.ctl.ApplyRefresh(context.Background(), msg.Tasks, msg.Started)
			m.refreshDetail()
		}
		return m, tea.Batch(m.poller.WaitForNextResult(), m.reloadList())

	case notificationMsg:
		n := msg.note
		m.toast = &n
		if n.HasUndo() {
			m.lastUndo = n.UndoTaskID
		}
		return m, tea.Batch(m.waitForNotification(), expireToast(n.ID))

	case toastExpiredMsg:
		if m.toast != nil && m.toast.ID == msg.id {
			m.toast = nil
		}
		return m, nil

	case taskOpDoneMsg:
		m.refreshDetail()
		return m, m.reloadList()

	// Board results update the board's own status line even when another
	// view is on top.
	case boardview.OpDoneMsg, boardview.PersistDoneMsg, boardview.BulkDoneMsg:
		var cmd tea.Cmd
		m.board, cmd = m.board.Update(msg)
		m.refreshDetail()
		return m, tea.Batch(cmd, m.reloadList())

	case boardview.OpenDetailMsg:
		m.openDetail(msg.TaskID)
		return m, nil

	case tasklist.SelectedTaskMsg:
		m.openDetail(msg.TaskID)
		return m, nil

	case tasklist.CloseMsg:
		m.currentView = ViewBoard
		return m, nil

	case boardview.NewTaskMsg:
		m.switchTo(ViewForm)
		return m, m.form.StartCreate(msg.Status)

	case boardview.EditTaskMsg:
		return m, m.startEdit(msg.TaskID)

	case detail.BackMsg:
		m.currentView = m.previousView
		if m.currentView == ViewDetail {
			m.currentView = ViewBoard
		}
		return m, m.reloadList()

	case detail.ActionMsg:
		return m, m.handleDetailAction(msg)

	case taskform.TaskCreatedMsg:
		m.currentView = m.previousView
		return m, m.createTask(msg.Task)

	case taskform.TaskUpdatedMsg:
		m.currentView = m.previousView
		return m, m.updateTask(msg.ID, msg.Patch)

	case taskform.FormCancelMsg:
		m.currentView = m.previousView
		return m, nil

	case historyview.CloseMsg:
		m.currentView = ViewBoard
		return m, nil

	case historyview.BoardChangedMsg:
		m.refreshDetail()
		return m, m.reloadList()

	case settingsview.ConfigDoneMsg:
		m.currentView = m.previousView
		if msg.Saved {
			m.ctl.Notify(model.NewNotification(model.LevelSuccess, "Settings saved, restart to apply"))
		}
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(string(msg))

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, m.quit()
		}
		if cmd, handled := m.handleGlobalKey(msg); handled {
			return m, cmd
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// handleGlobalKey processes keys that work across views. It reports
// false when the key belongs to the active view.
func (m *Model) handleGlobalKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch m.currentView {
	case ViewHelp:
		if msg.String() == "?" || msg.String() == "esc" || msg.String() == "q" {
			m.currentView = m.previousView
			return nil, true
		}
		return nil, false

	case ViewCommand:
		if msg.String() == "esc" {
			m.currentView = m.previousView
			return nil, true
		}
		return nil, false

	case ViewBoard:
		// Searching and dragging own the keyboard.
		if m.board.Searching() || m.board.Dragging() {
			return nil, false
		}
		if key.Matches(msg, m.keys.ListView) {
			m.switchTo(ViewList)
			return m.listView.Show(m.board.SortMode(), m.board.Query()), true
		}
	case ViewList:
	case ViewSettings:
		// The settings form owns the keyboard.
		return nil, false
	default:
		return nil, false
	}

	switch msg.String() {
	case "q":
		return m.quit(), true

	case "?":
		m.switchTo(ViewHelp)
		return nil, true

	case ":":
		m.switchTo(ViewCommand)
		return m.commandView.Focus(), true

	case "H":
		m.switchTo(ViewHistory)
		return m.historyView.Open(), true

	case "r":
		m.poller.Refresh()
		return nil, true

	case ",":
		return m.openSettings(), true

	case "u":
		if m.lastUndo == "" {
			return nil, true
		}
		id := m.lastUndo
		m.lastUndo = ""
		return m.undo(id), true
	}
	return nil, false
}

func (m *Model) switchTo(v ViewState) {
	if m.currentView == v {
		return
	}
	m.previousView = m.currentView
	m.currentView = v
}

func (m *Model) openSettings() tea.Cmd {
	if !m.hasSettings {
		return nil
	}
	m.switchTo(ViewSettings)
	return m.settings.Open()
}

func (m *Model) quit() tea.Cmd {
	m.poller.Stop()
	return tea.Quit
}

func (m *Model) openDetail(id string) {
	t, ok := m.ctl.Board().Get(id)
	if !ok {
		return
	}
	m.detail.SetTask(&t)
	m.switchTo(ViewDetail)
}

// reloadList rebuilds the list view rows when it is visible or under the
// detail view.
func (m *Model) reloadList() tea.Cmd {
	if m.currentView != ViewList && !(m.currentView == ViewDetail && m.previousView == ViewList) {
		return nil
	}
	return m.listView.Reload()
}

// refreshDetail re-reads the detail task from the board after a change.
func (m *Model) refreshDetail() {
	id := m.detail.TaskID()
	if id == "" {
		return
	}
	if t, ok := m.ctl.Board().Get(id); ok {
		m.detail.Refresh(&t)
		return
	}
	m.detail.Refresh(nil)
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewBoard:
		m.board, cmd = m.board.Update(msg)
	case ViewList:
		m.listView, cmd = m.listView.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewForm:
		m.form, cmd = m.form.Update(msg)
	case ViewHistory:
		m.historyView, cmd = m.historyView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewSettings:
		m.settings, cmd = m.settings.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(m.headerTitle(), m.syncStatus())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints())
	if m.toast != nil {
		statusBar = m.layout.RenderNotification(*m.toast)
	}

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewBoard:
		return m.board.View()
	case ViewList:
		return m.listView.View()
	case ViewDetail:
		return m.detail.View()
	case ViewForm:
		return m.form.View()
	case ViewHistory:
		return m.historyView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewSettings:
		return m.settings.View()
	default:
		return ""
	}
}

func (m Model) headerTitle() string {
	b := m.ctl.Board()
	return fmt.Sprintf("Task Board  %d tasks  %d in history", b.Len(), m.ctl.History().Len())
}

// syncStatus returns a short string describing the poller state.
func (m Model) syncStatus() string {
	if m.board.Dragging() {
		return "sync paused"
	}
	s := m.poller.Status()
	switch s.State {
	case appsync.SyncRunning:
		return "syncing..."
	case appsync.SyncError:
		if s.LastSync.IsZero() {
			return theme.OverdueStyle.Render("offline")
		}
		return theme.OverdueStyle.Render("offline, synced " + humanize.Time(s.LastSync))
	}
	if s.LastSync.IsZero() {
		return "idle"
	}
	return "synced " + humanize.Time(s.LastSync)
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.authErrorMessage != "" && m.currentView == ViewBoard {
		return m.authErrorMessage
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | esc back"
	case ViewDetail:
		return "esc back | e edit | x advance | s star | p priority | 1-9 subtask | d delete"
	case ViewForm:
		return "enter submit | esc cancel"
	case ViewHistory:
		return "enter restore | R restore all | D delete | X clear | o order | esc back"
	case ViewList:
		return "enter open | tab sort | v board | q quit"
	case ViewSettings:
		return "tab next field | enter confirm | esc discard"
	default:
		if m.board.Dragging() {
			return "h/l column | j/k position | space drop | esc cancel"
		}
		hints := "q quit | ? help | n new | space grab | / search | tab sort | v list | H history | , settings"
		if m.lastUndo != "" {
			hints += " | u undo"
		}
		return hints
	}
}
