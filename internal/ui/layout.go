package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/theme"
)

// Layout splits the terminal into a one-line header, the content area and
// a one-line status bar.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the rows left between header and status bar.
func (l Layout) ContentHeight() int {
	return max(l.Height-l.HeaderHeight-l.StatusBarHeight, 0)
}

// RenderHeader renders the title on the left and the sync status on the
// right. The title is cut first when both do not fit.
func (l Layout) RenderHeader(title, syncStatus string) string {
	right := theme.HeaderStyle.Render(syncStatus)
	room := max(l.Width-lipgloss.Width(right), 0)
	left := theme.HeaderStyle.MaxWidth(room).Render(title)
	return bar(theme.HeaderStyle, left, right, l.Width)
}

// RenderStatusBar renders keyboard hints, cut to the terminal width.
func (l Layout) RenderStatusBar(hints string) string {
	left := theme.StatusBarStyle.MaxWidth(max(l.Width, 0)).Render(hints)
	return bar(theme.StatusBarStyle, left, "", l.Width)
}

// RenderNotification renders a notification in place of the status bar.
func (l Layout) RenderNotification(n model.Notification) string {
	text := n.Message
	if n.HasUndo() {
		text += "  (u to undo)"
	}
	return theme.NotificationStyle(n.Level).
		Width(max(l.Width, 0)).
		MaxHeight(l.StatusBarHeight).
		Render(text)
}

// RenderWithFrame stacks header, content and status bar. Content is
// clipped or padded to ContentHeight so the status bar stays on the last
// row.
func (l Layout) RenderWithFrame(header, content, statusBar string) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		fitHeight(content, l.ContentHeight()),
		statusBar,
	)
}

// bar fills the gap between left and right with the style's background.
func bar(style lipgloss.Style, left, right string, width int) string {
	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	filler := lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")
	return lipgloss.JoinHorizontal(lipgloss.Top, left, filler, right)
}

func fitHeight(s string, h int) string {
	if h <= 0 {
		return ""
	}
	lines := strings.Split(s, "\n")
	if len(lines) > h {
		lines = lines[:h]
	}
	for len(lines) < h {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
