package app

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskboard/internal/board"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/ui/boardview"
)

// executeCommand handles a command string from the command palette.
func (m *Model) executeCommand(input string) tea.Cmd {
	fields := strings.Fields(strings.ToLower(input))
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "refresh", "sync":
		m.poller.Refresh()
		return nil
	case "quit", "q":
		return m.quit()
	case "help":
		m.switchTo(ViewHelp)
		return nil
	case "history":
		m.switchTo(ViewHistory)
		return m.historyView.Open()
	case "list":
		m.switchTo(ViewList)
		return m.listView.Show(m.board.SortMode(), m.board.Query())
	case "config", "settings":
		return m.openSettings()
	case "board":
		m.currentView = ViewBoard
		return nil
	case "clear-done", "clear":
		cmd := boardview.ClearDone(m.ctl)
		return tea.Batch(cmd, m.reloadList())
	case "undo":
		if m.lastUndo == "" {
			return nil
		}
		id := m.lastUndo
		m.lastUndo = ""
		return m.undo(id)
	case "sort":
		if len(fields) < 2 {
			m.board.SetSortMode(m.board.SortMode().Next())
			return nil
		}
		mode, err := board.ParseSortMode(fields[1])
		if err != nil {
			m.ctl.Notify(model.NewNotification(model.LevelError, err.Error()))
			return nil
		}
		m.board.SetSortMode(mode)
		return nil
	case "new":
		status := model.StatusTodo
		if len(fields) > 1 {
			if s, err := model.ParseStatus(fields[1]); err == nil {
				status = s
			}
		}
		m.switchTo(ViewForm)
		return m.form.StartCreate(status)
	default:
		m.ctl.Notify(model.NewNotification(model.LevelError, "Unknown command: "+input))
		return nil
	}
}
