package boardview

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/board"
	"github.com/nhle/taskboard/internal/controller"
	"github.com/nhle/taskboard/internal/drag"
	"github.com/nhle/taskboard/internal/keys"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/theme"
)

// OpenDetailMsg asks the parent to show a task's detail.
type OpenDetailMsg struct {
	TaskID string
}

// NewTaskMsg asks the parent to open the create form for a column.
type NewTaskMsg struct {
	Status model.Status
}

// EditTaskMsg asks the parent to open the edit form.
type EditTaskMsg struct {
	TaskID string
}

// OpDoneMsg is sent when a board edit finished.
type OpDoneMsg struct {
	Err error
}

// PersistDoneMsg is sent when a dropped task's status was saved.
type PersistDoneMsg struct {
	TaskID string
	Err    error
}

// BulkDoneMsg is sent when clearing the DONE column finished.
type BulkDoneMsg struct {
	Result controller.BulkResult
}

// Model is the kanban board view. Tasks are read from the controller's
// store on every render, except during a drag when the view shows the
// drag's working arrangement.
type Model struct {
	ctl         *controller.Controller
	keys        *keys.KeyMap
	sortMode    board.SortMode
	query       string
	searchMode  bool
	searchInput textinput.Model
	col         int
	row         int
	drag        drag.State
	working     []model.Task
	filtered    bool
	statusMsg   string
	width       int
	height      int
}

// New creates a board view.
func New(ctl *controller.Controller, k *keys.KeyMap, sortMode board.SortMode, width, height int) Model {
	si := textinput.New()
	si.Placeholder = "search tasks..."
	si.Prompt = "/ "
	si.Width = width - 4

	return Model{
		ctl:         ctl,
		keys:        k,
		sortMode:    sortMode,
		searchInput: si,
		drag:        drag.Idle(),
		width:       width,
		height:      height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the board view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case OpDoneMsg:
		if msg.Err != nil {
			m.statusMsg = msg.Err.Error()
		}
		return m, nil

	case PersistDoneMsg:
		if msg.Err != nil {
			m.statusMsg = "Move not saved: " + msg.Err.Error()
		}
		return m, nil

	case BulkDoneMsg:
		m.statusMsg = fmt.Sprintf("Cleared %d, failed %d", len(msg.Result.Deleted), len(msg.Result.Failed))
		return m, nil

	case tea.KeyMsg:
		switch {
		case m.searchMode:
			return m.handleSearchKeys(msg)
		case m.drag.Dragging():
			return m.handleDragKeys(msg)
		default:
			return m.handleNormalKeys(msg)
		}
	}
	return m, nil
}

// handleSearchKeys processes key input while in search mode.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.query = m.searchInput.Value()
		m.row = 0
		return m, nil

	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		m.query = ""
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// handleNormalKeys processes key input when no drag is in progress.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	m.statusMsg = ""

	switch {
	case key.Matches(msg, m.keys.Left):
		if m.col > 0 {
			m.col--
		}
		m.clampRow()
		return m, nil

	case key.Matches(msg, m.keys.Right):
		if m.col < len(model.Columns())-1 {
			m.col++
		}
		m.clampRow()
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.row > 0 {
			m.row--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.row++
		m.clampRow()
		return m, nil

	case key.Matches(msg, m.keys.Grab):
		return m.startDrag()

	case key.Matches(msg, m.keys.Select):
		if t, ok := m.Selected(); ok {
			return m, func() tea.Msg { return OpenDetailMsg{TaskID: t.ID} }
		}
		return m, nil

	case key.Matches(msg, m.keys.New):
		status := model.Columns()[m.col]
		return m, func() tea.Msg { return NewTaskMsg{Status: status} }

	case key.Matches(msg, m.keys.Edit):
		if t, ok := m.Selected(); ok {
			return m, func() tea.Msg { return EditTaskMsg{TaskID: t.ID} }
		}
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		cmd := m.op((*controller.Controller).StartDelete)
		m.clampRow()
		return m, cmd

	case key.Matches(msg, m.keys.Advance):
		cmd := m.op((*controller.Controller).StartAdvance)
		m.clampRow()
		return m, cmd

	case key.Matches(msg, m.keys.Star):
		return m, m.op((*controller.Controller).StartToggleImportant)

	case key.Matches(msg, m.keys.Priority):
		return m, m.op((*controller.Controller).StartCyclePriority)

	case key.Matches(msg, m.keys.ClearDone):
		cmd := ClearDone(m.ctl)
		m.clampRow()
		return m, cmd

	case key.Matches(msg, m.keys.CycleSort):
		m.sortMode = m.sortMode.Next()
		m.row = 0
		return m, nil

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.SetValue(m.query)
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.Back):
		if m.query != "" {
			m.query = ""
			m.searchInput.Reset()
		}
		return m, nil
	}
	return m, nil
}

// op applies a controller edit to the selected task now and returns the
// server call as a command, so the next render already shows the edit.
func (m Model) op(start func(*controller.Controller, string) (controller.Persist, error)) tea.Cmd {
	t, ok := m.Selected()
	if !ok {
		return nil
	}
	persist, err := start(m.ctl, t.ID)
	if err != nil {
		return func() tea.Msg { return OpDoneMsg{Err: err} }
	}
	return func() tea.Msg {
		return OpDoneMsg{Err: persist(context.Background())}
	}
}

// ClearDone takes the DONE column off the board now and returns the
// remote deletes as a command.
func ClearDone(ctl *controller.Controller) tea.Cmd {
	run := ctl.StartBulkClear()
	return func() tea.Msg {
		return BulkDoneMsg{Result: run(context.Background())}
	}
}

// startDrag picks up the selected card.
func (m Model) startDrag() (Model, tea.Cmd) {
	t, ok := m.Selected()
	if !ok {
		return m, nil
	}
	if m.sortMode != board.SortManual {
		m.statusMsg = "Switch to manual sort (tab) to reorder"
		return m, nil
	}

	tasks := m.ctl.Board().Tasks()
	m.filtered = m.query != ""
	if m.filtered {
		tasks = board.Search(tasks, m.query)
	}

	res, err := drag.Start(m.drag, tasks, t.ID)
	if err != nil {
		m.statusMsg = err.Error()
		return m, nil
	}
	m.ctl.Dispatch(context.Background(), res.Commands, m.filtered)
	m.drag = res.State
	m.working = res.Tasks
	return m, nil
}

// handleDragKeys moves the dragged card and ends or cancels the drag.
func (m Model) handleDragKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Left), key.Matches(msg, m.keys.Right):
		cols := model.Columns()
		next := m.col - 1
		if key.Matches(msg, m.keys.Right) {
			next = m.col + 1
		}
		if next < 0 || next >= len(cols) {
			return m, nil
		}
		m.hover(drag.ColumnTarget(cols[next]))
		return m, nil

	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
		column := board.ColumnOf(m.working, model.Columns()[m.col])
		i := board.IndexOf(column, m.drag.TaskID())
		j := i + 1
		if key.Matches(msg, m.keys.Up) {
			j = i - 1
		}
		if i < 0 || j < 0 || j >= len(column) {
			return m, nil
		}
		m.hover(drag.TaskTarget(column[j].ID))
		return m, nil

	case key.Matches(msg, m.keys.Drop):
		target := drag.ColumnTarget(model.Columns()[m.col])
		res := drag.End(m.drag, m.working, &target)
		persist := m.ctl.Dispatch(context.Background(), res.Commands, m.filtered)
		m.finishDrag(res)
		return m, m.persist(persist)

	case key.Matches(msg, m.keys.Back):
		res := drag.Cancel(m.drag, m.working)
		m.ctl.Dispatch(context.Background(), res.Commands, m.filtered)
		m.finishDrag(res)
		m.statusMsg = "Drag cancelled"
		return m, nil
	}
	return m, nil
}

// hover applies one drag-over step and writes the arrangement through so
// a cancelled drag keeps it.
func (m *Model) hover(target drag.Target) {
	res := drag.Over(m.drag, m.working, target)
	m.drag = res.State
	m.working = res.Tasks
	m.ctl.CommitArrangement(res.Tasks, m.filtered)
	m.followDragged()
}

func (m *Model) finishDrag(res drag.Result) {
	id := m.drag.TaskID()
	m.drag = res.State
	m.working = nil
	m.filtered = false
	m.focus(id)
}

func (m Model) persist(cmds []drag.PersistStatus) tea.Cmd {
	ctl := m.ctl
	var batch []tea.Cmd
	for _, p := range cmds {
		batch = append(batch, func() tea.Msg {
			err := ctl.PersistMove(context.Background(), p)
			return PersistDoneMsg{TaskID: p.TaskID, Err: err}
		})
	}
	return tea.Batch(batch...)
}

// followDragged moves the cursor onto the dragged card.
func (m *Model) followDragged() {
	id := m.drag.TaskID()
	i := board.IndexOf(m.working, id)
	if i < 0 {
		return
	}
	status := m.working[i].Status
	m.col = columnIndex(status)
	m.row = board.IndexOf(board.ColumnOf(m.working, status), id)
}

// focus puts the cursor on id if it is visible.
func (m *Model) focus(id string) {
	for c, column := range m.columns() {
		if r := board.IndexOf(column, id); r >= 0 {
			m.col, m.row = c, r
			return
		}
	}
	m.clampRow()
}

// visible returns the tasks shown, sorted and filtered.
func (m Model) visible() []model.Task {
	if m.drag.Dragging() {
		return m.working
	}
	tasks := board.Sort(m.ctl.Board().Tasks(), m.sortMode)
	return board.Search(tasks, m.query)
}

func (m Model) columns() [][]model.Task {
	tasks := m.visible()
	cols := model.Columns()
	out := make([][]model.Task, len(cols))
	for i, s := range cols {
		out[i] = board.ColumnOf(tasks, s)
	}
	return out
}

func (m *Model) clampRow() {
	n := len(m.columns()[m.col])
	if m.row >= n {
		m.row = n - 1
	}
	if m.row < 0 {
		m.row = 0
	}
}

// Selected returns the task under the cursor.
func (m Model) Selected() (model.Task, bool) {
	column := m.columns()[m.col]
	if m.row < 0 || m.row >= len(column) {
		return model.Task{}, false
	}
	return column[m.row], true
}

// Dragging reports whether a drag is in progress.
func (m Model) Dragging() bool { return m.drag.Dragging() }

// Searching reports whether the search input has focus.
func (m Model) Searching() bool { return m.searchMode }

// SortMode returns the active sort.
func (m Model) SortMode() board.SortMode { return m.sortMode }

// SetSortMode switches the column ordering. Ignored during a drag.
func (m *Model) SetSortMode(mode board.SortMode) {
	if m.drag.Dragging() {
		return
	}
	m.sortMode = mode
	m.row = 0
}

// Query returns the active search query.
func (m Model) Query() string { return m.query }

// SetSize updates the board dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.searchInput.Width = width - 4
}

// View renders the board.
func (m Model) View() string {
	cols := m.columns()
	statuses := model.Columns()

	height := m.height - 1
	if m.searchMode {
		height--
	}
	colWidth := (m.width - 2) / len(statuses)
	if colWidth < 20 {
		colWidth = 20
	}

	rendered := make([]string, len(statuses))
	for i, s := range statuses {
		rendered[i] = m.renderColumn(s, cols[i], i == m.col, colWidth, height)
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top, rendered...)

	parts := []string{}
	if m.searchMode {
		parts = append(parts, lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View()))
	}
	parts = append(parts, body, m.renderFooter())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderColumn(status model.Status, tasks []model.Task, focused bool, width, height int) string {
	style := theme.ColumnStyle
	if focused {
		style = theme.FocusedColumnStyle
	}
	inner := width - style.GetHorizontalFrameSize()
	innerHeight := height - style.GetVerticalFrameSize()

	header := theme.StatusStyle(status).Render(fmt.Sprintf("%s (%d)", status.Label(), len(tasks)))
	lines := []string{header, ""}

	perCard := cardHeight
	maxCards := (innerHeight - 2) / perCard
	if maxCards < 1 {
		maxCards = 1
	}
	start := 0
	if focused && m.row >= maxCards {
		start = m.row - maxCards + 1
	}

	if len(tasks) == 0 {
		lines = append(lines, theme.DimmedStyle.Render("  empty"))
	}
	for i := start; i < len(tasks) && i < start+maxCards; i++ {
		t := tasks[i]
		state := cardNormal
		switch {
		case m.drag.Dragging() && t.ID == m.drag.TaskID():
			state = cardDragging
		case focused && i == m.row:
			state = cardSelected
		}
		lines = append(lines, renderCard(t, state, inner))
	}

	return style.
		Width(inner).
		Height(innerHeight).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m Model) renderFooter() string {
	info := fmt.Sprintf("sort: %s", m.sortMode)
	if m.query != "" {
		info += fmt.Sprintf(" | search: %q", m.query)
	}
	if m.drag.Dragging() {
		info += " | moving: ←/→ column, ↑/↓ order, space drop, esc cancel"
	}
	if m.statusMsg != "" {
		info += " | " + m.statusMsg
	}
	return theme.HelpStyle.Render(info)
}

func columnIndex(s model.Status) int {
	for i, c := range model.Columns() {
		if c == s {
			return i
		}
	}
	return 0
}
