package board

import (
	"time"

	"github.com/nhle/taskboard/internal/model"
)

// velocityWindow is the period CompletedRecently counts over.
const velocityWindow = 7 * 24 * time.Hour

// Stats summarizes a set of live tasks.
type Stats struct {
	Total   int
	Done    int
	Overdue int

	// CompletionRate is Done/Total in percent, 0 for an empty board.
	CompletionRate float64

	// AvgCycleTime is the mean time from creation to completion of DONE
	// tasks that carry both timestamps.
	AvgCycleTime time.Duration

	// ChecklistRate is the share of completed subtasks across tasks that
	// have any, in percent. 100 when no task has subtasks.
	ChecklistRate float64

	// CompletedRecently counts DONE tasks completed in the last seven days.
	CompletedRecently int
}

// ComputeStats derives board statistics at time now.
func ComputeStats(tasks []model.Task, now time.Time) Stats {
	st := Stats{Total: len(tasks), ChecklistRate: 100}

	var cycle time.Duration
	var cycled, subs, subsDone int
	for _, t := range tasks {
		if t.Overdue {
			st.Overdue++
		}
		subs += len(t.Subtasks)
		subsDone += t.CompletedSubtasks()

		if t.Status != model.StatusDone {
			continue
		}
		st.Done++
		if t.CompletedAt == nil {
			continue
		}
		if now.Sub(*t.CompletedAt) < velocityWindow {
			st.CompletedRecently++
		}
		if !t.CreatedAt.IsZero() && t.CompletedAt.After(t.CreatedAt) {
			cycle += t.CompletedAt.Sub(t.CreatedAt)
			cycled++
		}
	}

	if st.Total > 0 {
		st.CompletionRate = float64(st.Done) * 100 / float64(st.Total)
	}
	if cycled > 0 {
		st.AvgCycleTime = cycle / time.Duration(cycled)
	}
	if subs > 0 {
		st.ChecklistRate = float64(subsDone) * 100 / float64(subs)
	}
	return st
}
