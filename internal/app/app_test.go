package app

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskboard/internal/board"
	"github.com/nhle/taskboard/internal/controller"
	"github.com/nhle/taskboard/internal/history"
	"github.com/nhle/taskboard/internal/model"
	appsync "github.com/nhle/taskboard/internal/sync"
	"github.com/nhle/taskboard/internal/ui/boardview"
	"github.com/nhle/taskboard/internal/ui/command"
	settingsview "github.com/nhle/taskboard/internal/ui/config"
	"github.com/nhle/taskboard/internal/ui/taskform"
	"github.com/nhle/taskboard/internal/ui/tasklist"
	"github.com/nhle/taskboard/tests/testutil"
)

func newTestApp(t *testing.T, tasks ...model.Task) (Model, *testutil.FakeRemote) {
	t.Helper()
	remote := testutil.NewFakeRemote(tasks...)
	b := board.New(tasks)
	logger, _ := test.NewNullLogger()
	h := history.New(remote, b, model.StatusTodo, logger)
	notes := controller.NewChanNotifier(16)
	ctl := controller.New(b, remote, h, notes, controller.WithLogger(logger))
	p := appsync.New(remote, time.Hour, logger)

	m := New(ctl, p, notes, board.SortManual)
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, remote
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func sample(id string, status model.Status) model.Task {
	return model.Task{
		ID:       id,
		Title:    "task " + id,
		Status:   status,
		Priority: model.PriorityMedium,
		DueDate:  time.Date(2026, 7, 1, 23, 59, 59, 0, time.UTC),
	}
}

func TestRefreshReplacesBoard(t *testing.T) {
	m, _ := newTestApp(t, sample("1", model.StatusTodo))

	next, cmd := m.Update(appsync.RefreshMsg{Tasks: []model.Task{
		sample("1", model.StatusDoing),
		sample("2", model.StatusTodo),
	}})
	m = next.(Model)

	assert.NotNil(t, cmd, "poller must be re-armed")
	assert.Equal(t, 2, m.ctl.Board().Len())
	got, ok := m.ctl.Board().Get("1")
	require.True(t, ok)
	assert.Equal(t, model.StatusDoing, got.Status)
}

func TestRefreshAuthFailureKeepsBoard(t *testing.T) {
	m, _ := newTestApp(t, sample("1", model.StatusTodo))

	m = update(t, m, appsync.RefreshMsg{AuthFailed: true})

	assert.Equal(t, 1, m.ctl.Board().Len())
	assert.Contains(t, m.keyHints(), "Not authorized")
}

func TestGlobalKeysSwitchViews(t *testing.T) {
	m, _ := newTestApp(t, sample("1", model.StatusTodo))

	m = update(t, m, runes("?"))
	assert.Equal(t, ViewHelp, m.currentView)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewBoard, m.currentView)

	m = update(t, m, runes(":"))
	assert.Equal(t, ViewCommand, m.currentView)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewBoard, m.currentView)

	m = update(t, m, runes("H"))
	assert.Equal(t, ViewHistory, m.currentView)
}

func TestSearchOwnsTheKeyboard(t *testing.T) {
	m, _ := newTestApp(t, sample("1", model.StatusTodo))

	m = update(t, m, runes("/"))
	require.True(t, m.board.Searching())

	_, handled := m.handleGlobalKey(runes("q"))
	assert.False(t, handled, "q is typed into the search box")
}

func TestQuitFromBoard(t *testing.T) {
	m, _ := newTestApp(t)

	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestUndoAfterDeleteNotification(t *testing.T) {
	m, remote := newTestApp(t, sample("1", model.StatusTodo), sample("2", model.StatusTodo))
	require.NoError(t, m.ctl.DeleteTask(context.Background(), "1"))
	require.False(t, m.ctl.Board().Contains("1"))

	note := model.NewNotification(model.LevelSuccess, `Deleted "task 1"`)
	note.UndoTaskID = "1"
	m = update(t, m, notificationMsg{note: note})
	assert.Contains(t, m.View(), "u to undo")

	next, cmd := m.Update(runes("u"))
	m = next.(Model)
	require.NotNil(t, cmd)
	msg := cmd()
	require.IsType(t, taskOpDoneMsg{}, msg)
	assert.NoError(t, msg.(taskOpDoneMsg).err)

	assert.True(t, m.ctl.Board().Contains("1"))
	assert.Len(t, remote.CallsTo("Restore"), 1)
	assert.Empty(t, m.lastUndo, "undo is offered once")
}

func TestToastExpires(t *testing.T) {
	m, _ := newTestApp(t)
	note := model.NewNotification(model.LevelError, "boom")

	m = update(t, m, notificationMsg{note: note})
	require.NotNil(t, m.toast)

	m = update(t, m, toastExpiredMsg{id: "other"})
	assert.NotNil(t, m.toast, "a stale timer leaves a newer toast alone")

	m = update(t, m, toastExpiredMsg{id: note.ID})
	assert.Nil(t, m.toast)
}

func TestSortCommand(t *testing.T) {
	m, _ := newTestApp(t)

	m = update(t, m, command.CommandMsg("sort due"))
	assert.Equal(t, board.SortDueDate, m.board.SortMode())

	m = update(t, m, command.CommandMsg("sort"))
	assert.Equal(t, board.SortCreated, m.board.SortMode())
}

func TestCreateFromFormSubmit(t *testing.T) {
	m, remote := newTestApp(t)

	m = update(t, m, boardview.NewTaskMsg{Status: model.StatusDoing})
	assert.Equal(t, ViewForm, m.currentView)

	draft := sample("", model.StatusDoing)
	draft.DueDate = time.Now().Add(72 * time.Hour)
	next, cmd := m.Update(taskform.TaskCreatedMsg{Task: draft})
	m = next.(Model)
	assert.Equal(t, ViewBoard, m.currentView)
	require.NotNil(t, cmd)
	cmd()

	require.Len(t, remote.CallsTo("Create"), 1)
	require.Equal(t, 1, m.ctl.Board().Len())
	assert.Equal(t, model.StatusDoing, m.ctl.Board().Tasks()[0].Status)
}

func TestDetailFollowsBoardChanges(t *testing.T) {
	m, _ := newTestApp(t, sample("1", model.StatusTodo))

	m = update(t, m, boardview.OpenDetailMsg{TaskID: "1"})
	require.Equal(t, ViewDetail, m.currentView)

	m = update(t, m, appsync.RefreshMsg{Tasks: []model.Task{sample("2", model.StatusTodo)}})
	assert.True(t, strings.Contains(m.View(), "no longer on the board"))
}

func TestListViewRoundTrip(t *testing.T) {
	m, _ := newTestApp(t, sample("1", model.StatusTodo), sample("2", model.StatusDone))

	m = update(t, m, runes("v"))
	require.Equal(t, ViewList, m.currentView)
	assert.Equal(t, 2, m.listView.Len())

	m = update(t, m, tasklist.SelectedTaskMsg{TaskID: "2"})
	require.Equal(t, ViewDetail, m.currentView)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	m = update(t, m, cmd())
	assert.Equal(t, ViewList, m.currentView, "esc from detail returns to the list")

	m = update(t, m, runes("v"))
	assert.Equal(t, ViewList, m.currentView, "the close request is a command")
	m = update(t, m, tasklist.CloseMsg{})
	assert.Equal(t, ViewBoard, m.currentView)
}

func TestSettingsOpenAndDiscard(t *testing.T) {
	m, _ := newTestApp(t)

	m = update(t, m, runes(","))
	assert.Equal(t, ViewBoard, m.currentView, "no settings without a config path")

	path := filepath.Join(t.TempDir(), "config.yaml")
	m = m.WithSettings(path, model.DefaultAppConfig(), nil)
	m = update(t, m, command.CommandMsg("config"))
	require.Equal(t, ViewSettings, m.currentView)
	assert.Contains(t, m.View(), "Server URL")

	_, handled := m.handleGlobalKey(runes("q"))
	assert.False(t, handled, "q is typed into the form")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	m = update(t, m, cmd())
	assert.Equal(t, ViewBoard, m.currentView)
	assert.NoFileExists(t, path)
}

func TestSettingsSavedNotifies(t *testing.T) {
	m, _ := newTestApp(t)
	m = m.WithSettings(filepath.Join(t.TempDir(), "config.yaml"), model.DefaultAppConfig(), nil)
	m = update(t, m, runes(","))
	require.Equal(t, ViewSettings, m.currentView)

	m = update(t, m, settingsview.ConfigDoneMsg{Saved: true})
	assert.Equal(t, ViewBoard, m.currentView)
	var last model.Notification
	for len(m.notes.C()) > 0 {
		last = <-m.notes.C()
	}
	assert.Equal(t, model.LevelSuccess, last.Level)
	assert.Contains(t, last.Message, "Settings saved")
}
