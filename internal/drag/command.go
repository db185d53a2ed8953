package drag

import (
	"fmt"

	"github.com/nhle/taskboard/internal/model"
)

// Command is a side effect requested by a transition.
type Command interface {
	isCommand()
}

// FreezeSync suspends store-replacing refreshes for the gesture.
type FreezeSync struct{}

// ResumeSync lifts FreezeSync and applies any refresh deferred meanwhile.
type ResumeSync struct{}

// CommitArrangement makes the dropped arrangement authoritative locally.
type CommitArrangement struct {
	Tasks []model.Task
}

// PersistStatus asks for exactly one remote update of the dragged task.
type PersistStatus struct {
	TaskID string
	From   model.Status
	To     model.Status
}

func (FreezeSync) isCommand()        {}
func (ResumeSync) isCommand()        {}
func (CommitArrangement) isCommand() {}
func (PersistStatus) isCommand()     {}

func (c PersistStatus) String() string {
	return fmt.Sprintf("persist %s: %s -> %s", c.TaskID, c.From, c.To)
}

// Moved reports whether the drop changed the task's column.
func (c PersistStatus) Moved() bool {
	return c.From != c.To
}
