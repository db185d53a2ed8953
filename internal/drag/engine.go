// Package drag computes board arrangements for a drag gesture.
//
// Every transition is a pure function of the current state, the current
// task order and one event. Side effects are returned as Commands for the
// caller to execute, so replaying the same events against the same tasks
// always yields the same arrangement.
package drag

import (
	"errors"
	"fmt"

	"github.com/nhle/taskboard/internal/model"
)

var (
	ErrAlreadyDragging = errors.New("a drag is already in progress")
	ErrUnknownTask     = errors.New("task is not on the board")
)

// State is the engine state: idle, or dragging one task.
type State struct {
	dragging bool
	taskID   string
	origin   model.Status
}

// Idle is the resting state.
func Idle() State { return State{} }

// Dragging reports whether a gesture is in progress.
func (s State) Dragging() bool { return s.dragging }

// TaskID is the dragged task, empty when idle.
func (s State) TaskID() string { return s.taskID }

// Origin is the column the dragged task was picked up from.
func (s State) Origin() model.Status { return s.origin }

func (s State) String() string {
	if !s.dragging {
		return "idle"
	}
	return fmt.Sprintf("dragging(%s from %s)", s.taskID, s.origin)
}

// TargetKind says whether a drop target is a column or a task.
type TargetKind int

const (
	TargetColumn TargetKind = iota
	TargetTask
)

// Target is the element currently hovered.
type Target struct {
	Kind   TargetKind
	Status model.Status
	TaskID string
}

// ColumnTarget hovers an entire column.
func ColumnTarget(s model.Status) Target {
	return Target{Kind: TargetColumn, Status: s}
}

// TaskTarget hovers another task card.
func TaskTarget(id string) Target {
	return Target{Kind: TargetTask, TaskID: id}
}

// Result is the outcome of a transition.
type Result struct {
	State    State
	Tasks    []model.Task
	Commands []Command
}

// Start picks up a task.
func Start(s State, tasks []model.Task, id string) (Result, error) {
	if s.dragging {
		return Result{State: s, Tasks: tasks}, ErrAlreadyDragging
	}
	i := indexOf(tasks, id)
	if i < 0 {
		return Result{State: s, Tasks: tasks}, fmt.Errorf("start %s: %w", id, ErrUnknownTask)
	}
	next := State{dragging: true, taskID: id, origin: tasks[i].Status}
	return Result{
		State:    next,
		Tasks:    tasks,
		Commands: []Command{FreezeSync{}},
	}, nil
}

// Over applies a hover over target. It returns tasks unchanged when the
// event has no effect.
func Over(s State, tasks []model.Task, target Target) Result {
	unchanged := Result{State: s, Tasks: tasks}
	if !s.dragging {
		return unchanged
	}
	active := indexOf(tasks, s.taskID)
	if active < 0 {
		return unchanged
	}

	switch target.Kind {
	case TargetColumn:
		if tasks[active].Status == target.Status {
			return unchanged
		}
		out := clone(tasks)
		out[active].Status = target.Status
		dest := columnTail(out, target.Status, active)
		return Result{State: s, Tasks: Move(out, active, dest)}

	case TargetTask:
		if target.TaskID == s.taskID {
			return unchanged
		}
		over := indexOf(tasks, target.TaskID)
		if over < 0 {
			return unchanged
		}
		out := clone(tasks)
		if out[active].Status != out[over].Status {
			out[active].Status = out[over].Status
		}
		return Result{State: s, Tasks: Move(out, active, over)}
	}
	return unchanged
}

// End drops the dragged task onto target. Hover events have already
// produced the arrangement, so the target only decides between a drop
// and a cancel: a nil target cancels the gesture. A valid drop commits
// the arrangement and persists the task's final status.
func End(s State, tasks []model.Task, target *Target) Result {
	if target == nil {
		return Cancel(s, tasks)
	}
	if !s.dragging {
		return Result{State: s, Tasks: tasks}
	}
	cmds := []Command{ResumeSync{}, CommitArrangement{Tasks: tasks}}
	if i := indexOf(tasks, s.taskID); i >= 0 {
		cmds = append(cmds, PersistStatus{
			TaskID: s.taskID,
			From:   s.origin,
			To:     tasks[i].Status,
		})
	}
	return Result{State: Idle(), Tasks: tasks, Commands: cmds}
}

// Cancel abandons the gesture. The arrangement reached so far is kept and
// nothing is persisted.
func Cancel(s State, tasks []model.Task) Result {
	if !s.dragging {
		return Result{State: s, Tasks: tasks}
	}
	return Result{
		State:    Idle(),
		Tasks:    tasks,
		Commands: []Command{ResumeSync{}},
	}
}

// Move removes the element at from and reinserts it at to, preserving the
// relative order of every other element. It returns a new slice.
func Move[T any](items []T, from, to int) []T {
	out := make([]T, len(items))
	copy(out, items)
	if from < 0 || from >= len(out) || from == to {
		return out
	}
	if to < 0 {
		to = 0
	}
	if to >= len(out) {
		to = len(out) - 1
	}
	item := out[from]
	if from < to {
		copy(out[from:to], out[from+1:to+1])
	} else {
		copy(out[to+1:from+1], out[to:from])
	}
	out[to] = item
	return out
}

// columnTail is the index the active task should move to so it becomes
// the last task of status. tasks already carries the new status on the
// active task.
func columnTail(tasks []model.Task, status model.Status, active int) int {
	last := -1
	for i, t := range tasks {
		if i != active && t.Status == status {
			last = i
		}
	}
	if last < 0 {
		return active
	}
	if last < active {
		return last + 1
	}
	return last
}

func indexOf(tasks []model.Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func clone(tasks []model.Task) []model.Task {
	out := make([]model.Task, len(tasks))
	copy(out, tasks)
	return out
}
