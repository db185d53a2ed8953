package controller

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/nhle/taskboard/internal/drag"
	"github.com/nhle/taskboard/internal/model"
)

// FreezeSync holds the board so refreshes are deferred during a drag.
func (c *Controller) FreezeSync() {
	c.board.Hold()
}

// ResumeSync releases the board, applying any refresh that arrived
// during the drag, and drops ids that history owns or that were removed
// locally after that refresh was fetched.
func (c *Controller) ResumeSync(ctx context.Context) {
	applied := c.board.Release()
	c.board.RemoveByIDs(c.history.IDs()...)
	c.board.RemoveByIDs(c.removedIDs()...)
	if applied {
		c.saveSnapshot(ctx)
	}
}

// CommitArrangement writes a drag result into the board. When the drag
// ran over a filtered view only the tasks it touched are merged.
func (c *Controller) CommitArrangement(tasks []model.Task, filtered bool) {
	if filtered {
		c.board.MergePatch(tasks)
		return
	}
	if err := c.board.Rearrange(tasks); err != nil {
		c.log.WithError(err).Debug("arrangement no longer matches board, merging instead")
		c.board.MergePatch(tasks)
	}
}

// PersistMove sends a dropped task's status to the server. Failures are
// logged and not rolled back.
func (c *Controller) PersistMove(ctx context.Context, cmd drag.PersistStatus) error {
	updated, err := c.remote.Update(ctx, cmd.TaskID, model.StatusPatch(cmd.To))
	if err != nil {
		c.log.WithError(err).WithFields(log.Fields{
			"task_id": cmd.TaskID,
			"status":  cmd.To.String(),
		}).Error("persisting drag failed")
		return fmt.Errorf("persisting %s: %w", cmd, err)
	}
	c.board.MergePatch([]model.Task{updated})
	c.saveSnapshot(ctx)
	return nil
}

// Dispatch runs the synchronous drag commands in order and returns the
// status updates for the caller to persist off the UI goroutine.
func (c *Controller) Dispatch(ctx context.Context, cmds []drag.Command, filtered bool) []drag.PersistStatus {
	var persist []drag.PersistStatus
	for _, cmd := range cmds {
		switch cmd := cmd.(type) {
		case drag.FreezeSync:
			c.FreezeSync()
		case drag.ResumeSync:
			c.ResumeSync(ctx)
		case drag.CommitArrangement:
			c.CommitArrangement(cmd.Tasks, filtered)
		case drag.PersistStatus:
			persist = append(persist, cmd)
		}
	}
	return persist
}
