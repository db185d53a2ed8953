package tasklist

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/theme"
)

// TaskItem wraps a model.Task so it can be used in a bubbles/list.
type TaskItem struct {
	Task model.Task
}

// FilterValue returns the string used for filtering.
func (i TaskItem) FilterValue() string { return i.Task.Title }

// Title returns the task title for the list.
func (i TaskItem) Title() string { return i.Task.Title }

// Description returns a short summary line for the list.
func (i TaskItem) Description() string {
	parts := []string{
		i.Task.Status.Label(),
		i.Task.Priority.String(),
		humanize.Time(i.Task.DueDate),
	}
	return strings.Join(parts, " | ")
}

// ItemDelegate implements list.ItemDelegate for rendering task rows.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single row: status, priority, star, title, due date and
// reminder marker.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ti, ok := item.(TaskItem)
	if !ok {
		return
	}
	t := ti.Task

	status := theme.StatusStyle(t.Status).Render(fmt.Sprintf("%-5s", t.Status))
	pri := theme.PriorityStyle(t.Priority).Render(fmt.Sprintf("%-6s", t.Priority))

	star := " "
	if t.Important {
		star = theme.StarStyle.Render("★")
	}

	due := theme.DimmedStyle.Render(humanize.Time(t.DueDate))
	if t.Overdue {
		due = theme.OverdueStyle.Render("overdue")
	}

	extra := ""
	if t.ReminderEnabled && t.ReminderTime != nil {
		extra += theme.DimmedStyle.Render(" ⏰")
	}
	if n := len(t.Subtasks); n > 0 {
		extra += theme.DimmedStyle.Render(fmt.Sprintf(" [%d/%d]", t.CompletedSubtasks(), n))
	}

	line := fmt.Sprintf("%s %s %s %s  %s%s", status, pri, star, t.Title, due, extra)

	if t.Status == model.StatusDone {
		line = theme.DimmedStyle.Render(line)
	}
	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}
