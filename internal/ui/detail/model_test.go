package detail

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskboard/internal/keys"
	"github.com/nhle/taskboard/internal/model"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func sampleTask() *model.Task {
	return &model.Task{
		ID:       "42",
		Title:    "ship release",
		Status:   model.StatusDoing,
		Priority: model.PriorityHigh,
		DueDate:  model.EndOfDay(time.Now().Add(48 * time.Hour)),
		Subtasks: []model.Subtask{{Title: "tag", Completed: true}, {Title: "announce"}},
		Activities: []model.Activity{
			{ID: "a1", Message: "Task created", Timestamp: time.Now().Add(-time.Hour)},
		},
	}
}

func TestRenderShowsChecklistAndActivity(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 40)
	m.SetTask(sampleTask())

	out := m.renderContent()
	assert.Contains(t, out, "ship release")
	assert.Contains(t, out, "Subtasks (1/2)")
	assert.Contains(t, out, "Task created")
	assert.Equal(t, "42", m.TaskID())
}

func TestDigitTogglesSubtask(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 40)
	m.SetTask(sampleTask())

	_, cmd := m.Update(runes("2"))
	require.NotNil(t, cmd)
	msg, ok := cmd().(ActionMsg)
	require.True(t, ok)
	assert.Equal(t, ActionToggleSubtask, msg.Action)
	assert.Equal(t, 1, msg.Index)

	_, cmd = m.Update(runes("9"))
	assert.Nil(t, cmd, "no ninth subtask")
}

func TestKeysMapToActions(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 40)
	m.SetTask(sampleTask())

	cases := map[string]Action{
		"d": ActionDelete,
		"e": ActionEdit,
		"x": ActionAdvance,
		"s": ActionStar,
		"p": ActionPriority,
	}
	for k, want := range cases {
		_, cmd := m.Update(runes(k))
		require.NotNil(t, cmd, k)
		msg, ok := cmd().(ActionMsg)
		require.True(t, ok, k)
		assert.Equal(t, want, msg.Action, k)
		assert.Equal(t, "42", msg.TaskID)
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, BackMsg{}, cmd())
}
