package boardview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/theme"
)

// cardHeight is the number of lines a rendered card takes.
const cardHeight = 3

type cardState int

const (
	cardNormal cardState = iota
	cardSelected
	cardDragging
)

// renderCard draws one task: title line, a badge line, and a spacer.
func renderCard(t model.Task, state cardState, width int) string {
	title := t.Title
	if t.Important {
		title = "★ " + title
	}
	title = truncate(title, width-3)

	badges := []string{theme.PriorityStyle(t.Priority).Render(t.Priority.String())}
	due := dueLabel(t)
	if t.Overdue {
		badges = append(badges, theme.OverdueStyle.Render(due))
	} else {
		badges = append(badges, theme.DimmedStyle.Render(due))
	}
	if n := len(t.Subtasks); n > 0 {
		badges = append(badges, theme.DimmedStyle.Render(fmt.Sprintf("☑ %d/%d", t.CompletedSubtasks(), n)))
	}
	meta := strings.Join(badges, " ")

	var style lipgloss.Style
	switch state {
	case cardSelected:
		style = theme.SelectedCardStyle
	case cardDragging:
		style = theme.DraggingCardStyle
	default:
		style = theme.CardStyle
	}
	return style.Render(title+"\n"+meta) + "\n"
}

func dueLabel(t model.Task) string {
	if t.DueDate.IsZero() {
		return "no due date"
	}
	return "due " + humanize.Time(t.DueDate)
}

func truncate(s string, n int) string {
	if n < 2 {
		n = 2
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
