package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, s := range Columns() {
		got, err := ParseStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	got, err := ParseStatus(" doing ")
	require.NoError(t, err)
	assert.Equal(t, StatusDoing, got)

	_, err = ParseStatus("BLOCKED")
	assert.Error(t, err)
}

func TestStatusNextCycles(t *testing.T) {
	assert.Equal(t, StatusDoing, StatusTodo.Next())
	assert.Equal(t, StatusDone, StatusDoing.Next())
	assert.Equal(t, StatusTodo, StatusDone.Next())
}

func TestPriorityWeightOrdering(t *testing.T) {
	assert.Greater(t, PriorityHigh.Weight(), PriorityMedium.Weight())
	assert.Greater(t, PriorityMedium.Weight(), PriorityLow.Weight())
	assert.Equal(t, PriorityLow, PriorityHigh.Next())
}

func TestStatusJSONRejectsUnknown(t *testing.T) {
	var task Task
	err := json.Unmarshal([]byte(`{"id":"1","status":"ARCHIVED"}`), &task)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`{"id":"1","status":"DONE","priority":"HIGH"}`), &task)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, task.Status)
	assert.Equal(t, PriorityHigh, task.Priority)

	b, err := json.Marshal(task)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"status":"DONE"`)
}

func TestCloneIsDeep(t *testing.T) {
	rt := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	orig := Task{
		ID:           "1",
		Subtasks:     []Subtask{{Title: "a"}},
		ReminderTime: &rt,
	}
	c := orig.Clone()
	c.Subtasks[0].Completed = true
	*c.ReminderTime = rt.Add(time.Hour)

	assert.False(t, orig.Subtasks[0].Completed)
	assert.Equal(t, rt, *orig.ReminderTime)
}

func TestPatchApply(t *testing.T) {
	base := Task{ID: "1", Title: "old", Status: StatusTodo, Priority: PriorityLow}

	title := "new"
	got := TaskPatch{Title: &title}.Apply(base)
	assert.Equal(t, "new", got.Title)
	assert.Equal(t, StatusTodo, got.Status)
	assert.Equal(t, "old", base.Title)

	got = StatusPatch(StatusDone).Apply(base)
	assert.Equal(t, StatusDone, got.Status)

	got = SubtasksPatch(nil).Apply(Task{Subtasks: []Subtask{{Title: "x"}}})
	assert.Empty(t, got.Subtasks)

	rt := time.Date(2026, 6, 20, 9, 0, 0, 0, time.UTC)
	off := false
	got = TaskPatch{ReminderEnabled: &off}.Apply(Task{ReminderEnabled: true, ReminderTime: &rt})
	assert.False(t, got.ReminderEnabled)
	assert.Nil(t, got.ReminderTime)

	assert.True(t, TaskPatch{}.IsEmpty())
	assert.False(t, SubtasksPatch(nil).IsEmpty())
}

func TestPatchFromTaskRoundTrip(t *testing.T) {
	due := time.Date(2026, 3, 1, 23, 59, 59, 0, time.UTC)
	task := Task{
		ID:        "1",
		Title:     "write report",
		Status:    StatusDoing,
		Priority:  PriorityHigh,
		DueDate:   due,
		Important: true,
		Subtasks:  []Subtask{{Title: "outline", Completed: true}},
	}
	got := PatchFromTask(task).Apply(Task{ID: "1"})
	assert.Equal(t, task, got)
}

func TestEndOfDay(t *testing.T) {
	d := EndOfDay(time.Date(2026, 5, 4, 8, 30, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 5, 4, 23, 59, 59, 0, time.UTC), d)
	assert.True(t, IsDateOnly(d))
}

func TestDiffCoversOnlyChangedFields(t *testing.T) {
	due := time.Date(2026, 7, 1, 23, 59, 59, 0, time.UTC)
	from := Task{ID: "1", Title: "a", Status: StatusTodo, DueDate: due,
		Subtasks: []Subtask{{Title: "x"}}}

	to := from.Clone()
	to.Title = "b"
	to.Subtasks[0].Completed = true

	p := Diff(from, to)
	require.NotNil(t, p.Title)
	assert.Equal(t, "b", *p.Title)
	assert.True(t, p.SetSubtasks)
	assert.Nil(t, p.Status)
	assert.Nil(t, p.DueDate)
	assert.Equal(t, to, p.Apply(from))

	assert.True(t, Diff(from, from.Clone()).IsEmpty())
}

func TestNeedsValidation(t *testing.T) {
	assert.False(t, StatusPatch(StatusDone).NeedsValidation())
	title := "x"
	assert.True(t, TaskPatch{Title: &title}.NeedsValidation())
}
