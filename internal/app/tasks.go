package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskboard/internal/controller"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/ui/detail"
)

// taskOpDoneMsg is sent after a controller edit started by the root model.
// Failures were already reported through the notifier.
type taskOpDoneMsg struct{ err error }

// notificationMsg carries one notification from the controller.
type notificationMsg struct {
	note model.Notification
}

// toastExpiredMsg clears the toast with the given id.
type toastExpiredMsg struct {
	id string
}

// waitForNotification blocks on the notifier channel. Re-armed after
// every notification.
func (m Model) waitForNotification() tea.Cmd {
	if m.notes == nil {
		return nil
	}
	ch := m.notes.C()
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return notificationMsg{note: n}
	}
}

func expireToast(id string) tea.Cmd {
	return tea.Tick(toastTTL, func(time.Time) tea.Msg {
		return toastExpiredMsg{id: id}
	})
}

// createTask sends a new task to the server.
func (m *Model) createTask(draft model.Task) tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		_, err := ctl.CreateTask(context.Background(), draft)
		return taskOpDoneMsg{err: err}
	}
}

// updateTask applies an edit made in the form and sends it to the server.
func (m *Model) updateTask(id string, patch model.TaskPatch) tea.Cmd {
	if patch.IsEmpty() {
		return nil
	}
	return m.persist(m.ctl.StartUpdate(id, patch))
}

// persist refreshes the views from the local step of an edit and returns
// its remote step as a command.
func (m *Model) persist(p controller.Persist, err error) tea.Cmd {
	m.refreshDetail()
	if err != nil {
		return func() tea.Msg { return taskOpDoneMsg{err: err} }
	}
	return tea.Batch(m.reloadList(), func() tea.Msg {
		return taskOpDoneMsg{err: p(context.Background())}
	})
}

// undo restores the most recently deleted task.
func (m *Model) undo(id string) tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		return taskOpDoneMsg{err: ctl.Undo(context.Background(), id)}
	}
}

// startEdit opens the form for a task on the board.
func (m *Model) startEdit(id string) tea.Cmd {
	t, ok := m.ctl.Board().Get(id)
	if !ok {
		return nil
	}
	m.switchTo(ViewForm)
	return m.form.StartEdit(t)
}

// handleDetailAction runs an action requested from the detail view.
func (m *Model) handleDetailAction(msg detail.ActionMsg) tea.Cmd {
	ctl := m.ctl
	id := msg.TaskID

	switch msg.Action {
	case detail.ActionEdit:
		return m.startEdit(id)
	case detail.ActionDelete:
		m.currentView = m.previousView
		if m.currentView == ViewDetail {
			m.currentView = ViewBoard
		}
		return m.persist(ctl.StartDelete(id))
	case detail.ActionAdvance:
		return m.persist(ctl.StartAdvance(id))
	case detail.ActionStar:
		return m.persist(ctl.StartToggleImportant(id))
	case detail.ActionPriority:
		return m.persist(ctl.StartCyclePriority(id))
	case detail.ActionToggleSubtask:
		return m.persist(ctl.StartToggleSubtask(id, msg.Index))
	default:
		return nil
	}
}
