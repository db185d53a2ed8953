package detail

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/nhle/taskboard/internal/keys"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/theme"
)

// BackMsg signals the parent to navigate back to the board.
type BackMsg struct{}

// Action names an edit requested from the detail view.
type Action int

const (
	ActionEdit Action = iota
	ActionDelete
	ActionAdvance
	ActionStar
	ActionPriority
	ActionToggleSubtask
)

// ActionMsg signals the parent to execute an action on the current task.
type ActionMsg struct {
	Action Action
	TaskID string
	// Index is the subtask for ActionToggleSubtask.
	Index int
}

// Model is the task detail view component.
type Model struct {
	task     *model.Task
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
}

// New creates a new detail view model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the detail view.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if m.task == nil {
			if key.Matches(msg, m.keys.Back) {
				return m, func() tea.Msg { return BackMsg{} }
			}
			return m, nil
		}
		id := m.task.ID

		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return BackMsg{} }
		case key.Matches(msg, m.keys.Edit):
			return m, action(ActionEdit, id, 0)
		case key.Matches(msg, m.keys.Delete):
			return m, action(ActionDelete, id, 0)
		case key.Matches(msg, m.keys.Advance):
			return m, action(ActionAdvance, id, 0)
		case key.Matches(msg, m.keys.Star):
			return m, action(ActionStar, id, 0)
		case key.Matches(msg, m.keys.Priority):
			return m, action(ActionPriority, id, 0)
		}

		// 1-9 toggle the matching subtask.
		if s := msg.String(); len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
			i := int(s[0] - '1')
			if i < len(m.task.Subtasks) {
				return m, action(ActionToggleSubtask, id, i)
			}
			return m, nil
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func action(a Action, id string, index int) tea.Cmd {
	return func() tea.Msg {
		return ActionMsg{Action: a, TaskID: id, Index: index}
	}
}

// View renders the detail view.
func (m Model) View() string {
	if m.task == nil {
		emptyStyle := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray)
		return emptyStyle.Render("Task no longer on the board")
	}

	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.task == nil {
		return ""
	}

	task := m.task
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	title := task.Title
	if task.Important {
		title = theme.StarStyle.Render("★ ") + titleStyle.Render(title)
	} else {
		title = titleStyle.Render(title)
	}
	sections = append(sections, title)

	statusBadge := theme.StatusStyle(task.Status).Render(task.Status.Label())
	priBadge := theme.PriorityStyle(task.Priority).Render(task.Priority.String())
	badgeLine := lipgloss.JoinHorizontal(lipgloss.Top, statusBadge, "  ", priBadge)
	sections = append(sections, badgeLine, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	row := func(label, value string) string {
		return fmt.Sprintf("%s %s", metaStyle.Render(fmt.Sprintf("%-10s", label+":")), value)
	}

	due := valStyle.Render(fmt.Sprintf("%s (%s)", formatWhen(task.DueDate), humanize.Time(task.DueDate)))
	if task.Overdue {
		due = theme.OverdueStyle.Render(fmt.Sprintf("%s (overdue)", formatWhen(task.DueDate)))
	}
	sections = append(sections, row("Due", due))

	if task.ReminderEnabled && task.ReminderTime != nil {
		sections = append(sections, row("Reminder", valStyle.Render(formatWhen(*task.ReminderTime))))
	}
	sections = append(sections, row("Progress", valStyle.Render(fmt.Sprintf("%.0f%%", task.Progress))))
	if !task.CreatedAt.IsZero() {
		sections = append(sections, row("Created", valStyle.Render(humanize.Time(task.CreatedAt))))
	}
	if task.CompletedAt != nil {
		sections = append(sections, row("Completed", valStyle.Render(humanize.Time(*task.CompletedAt))))
	}

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.width-4, 80), 0)))
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)

	sections = append(sections, "", separator, "", headerStyle.Render("Description"))
	if task.Description == "" {
		sections = append(sections, lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No description"))
	} else {
		sections = append(sections, task.Description)
	}

	if len(task.Subtasks) > 0 {
		sections = append(sections, "", separator, "")
		sections = append(sections, headerStyle.Render(fmt.Sprintf(
			"Subtasks (%d/%d)", task.CompletedSubtasks(), len(task.Subtasks),
		)))
		for i, s := range task.Subtasks {
			mark := "[ ]"
			if s.Completed {
				mark = "[x]"
			}
			line := fmt.Sprintf("%d %s %s", i+1, mark, s.Title)
			if s.Completed {
				line = theme.DimmedStyle.Render(line)
			}
			sections = append(sections, line)
		}
	}

	if len(task.Activities) > 0 {
		sections = append(sections, "", separator, "")
		sections = append(sections, headerStyle.Render(fmt.Sprintf("Activity (%d)", len(task.Activities))))
		timeStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
		for i := len(task.Activities) - 1; i >= 0; i-- {
			a := task.Activities[i]
			sections = append(sections, fmt.Sprintf("%s  %s",
				timeStyle.Render(humanize.Time(a.Timestamp)), a.Message))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetTask updates the task being displayed and re-renders the content.
// A nil task shows a placeholder.
func (m *Model) SetTask(task *model.Task) {
	if task != nil {
		c := task.Clone()
		task = &c
	}
	m.task = task
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// Refresh re-renders the current task from a newer copy, keeping the
// scroll position.
func (m *Model) Refresh(task *model.Task) {
	if task != nil {
		c := task.Clone()
		task = &c
	}
	m.task = task
	m.viewport.SetContent(m.renderContent())
}

// TaskID returns the id of the displayed task.
func (m Model) TaskID() string {
	if m.task == nil {
		return ""
	}
	return m.task.ID
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	m.viewport.SetContent(m.renderContent())
}

func formatWhen(t time.Time) string {
	if model.IsDateOnly(t) {
		return t.Format("Mon Jan 2, 2006")
	}
	return t.Format("Mon Jan 2, 2006 15:04")
}
