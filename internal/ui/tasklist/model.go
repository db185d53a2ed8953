// Package tasklist renders the board's tasks as one flat table with board
// statistics above it.
package tasklist

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/nhle/taskboard/internal/board"
	"github.com/nhle/taskboard/internal/keys"
	"github.com/nhle/taskboard/internal/theme"
)

// SelectedTaskMsg is sent when a user selects a task to view details.
type SelectedTaskMsg struct {
	TaskID string
}

// CloseMsg asks the parent to go back to the board.
type CloseMsg struct{}

// Model is the flat task list view.
type Model struct {
	list     list.Model
	store    *board.Store
	keys     *keys.KeyMap
	sortMode board.SortMode
	query    string
	stats    board.Stats
	now      func() time.Time
	width    int
	height   int
}

// New creates a list view over the live board.
func New(s *board.Store, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-statsHeight)
	l.Title = "All tasks"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.KeyMap.Quit.SetEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:   l,
		store:  s,
		keys:   k,
		now:    time.Now,
		width:  width,
		height: height,
	}
}

// statsHeight is the number of lines taken by the statistics header.
const statsHeight = 2

// Show rebuilds the rows using the board view's sort mode and query.
func (m *Model) Show(sortMode board.SortMode, query string) tea.Cmd {
	m.sortMode = sortMode
	m.query = query
	return m.Reload()
}

// Reload re-reads the board.
func (m *Model) Reload() tea.Cmd {
	all := m.store.Tasks()
	m.stats = board.ComputeStats(all, m.now())

	tasks := board.Search(board.Sort(all, m.sortMode), m.query)
	items := make([]list.Item, len(tasks))
	for i, t := range tasks {
		items[i] = TaskItem{Task: t}
	}
	if m.query != "" {
		m.list.Title = fmt.Sprintf("Tasks matching %q", m.query)
	} else {
		m.list.Title = "All tasks"
	}
	return m.list.SetItems(items)
}

// Update handles messages for the list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Select):
			item, ok := m.list.SelectedItem().(TaskItem)
			if !ok {
				return m, nil
			}
			return m, func() tea.Msg {
				return SelectedTaskMsg{TaskID: item.Task.ID}
			}

		case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.ListView):
			return m, func() tea.Msg { return CloseMsg{} }

		case key.Matches(msg, m.keys.CycleSort):
			m.sortMode = m.sortMode.Next()
			return m, m.Reload()
		}
	}

	// Delegate to the list for navigation keys (up/down/pgup/pgdn)
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the statistics header and the list.
func (m Model) View() string {
	header := m.renderStats()
	if len(m.list.Items()) == 0 {
		style := lipgloss.NewStyle().
			Width(m.width).
			Height(max(m.height-statsHeight, 1)).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray)
		msg := "No tasks on the board.\n\nPress v to go back and n to add one."
		if m.query != "" {
			msg = "No matching tasks."
		}
		return lipgloss.JoinVertical(lipgloss.Left, header, style.Render(msg))
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, m.list.View())
}

func (m Model) renderStats() string {
	st := m.stats
	label := theme.DimmedStyle
	value := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)

	cycle := "n/a"
	if st.AvgCycleTime > 0 {
		cycle = strings.TrimSpace(humanize.RelTime(time.Time{}, time.Time{}.Add(st.AvgCycleTime), "", ""))
	}

	cells := []string{
		label.Render("done ") + value.Render(fmt.Sprintf("%.0f%%", st.CompletionRate)),
		label.Render("avg cycle ") + value.Render(cycle),
		label.Render("checklists ") + value.Render(fmt.Sprintf("%.0f%%", st.ChecklistRate)),
		label.Render("completed 7d ") + value.Render(fmt.Sprint(st.CompletedRecently)),
	}
	if st.Overdue > 0 {
		cells = append(cells, theme.OverdueStyle.Render(fmt.Sprintf("%d overdue", st.Overdue)))
	}

	line := strings.Join(cells, "   ")
	return lipgloss.NewStyle().Padding(0, 1).Width(m.width).Render(line) + "\n"
}

// SortMode returns the active sort mode.
func (m Model) SortMode() board.SortMode { return m.sortMode }

// Len returns the number of rows.
func (m Model) Len() int { return len(m.list.Items()) }

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, max(height-statsHeight, 1))
}
