package controller

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nhle/taskboard/internal/model"
)

// BulkResult lists the ids a batch operation deleted and the ones whose
// delete failed.
type BulkResult struct {
	Deleted []string
	Failed  []string
}

// BulkClearCompleted soft-deletes every task in the DONE column. Tasks
// leave the board up front; failed deletes are logged and not retried,
// and history is refreshed once after the whole batch.
func (c *Controller) BulkClearCompleted(ctx context.Context) BulkResult {
	return c.StartBulkClear()(ctx)
}

// StartBulkClear takes the DONE column off the board at once and returns
// the batch of remote deletes.
func (c *Controller) StartBulkClear() func(context.Context) BulkResult {
	done := c.board.Column(model.StatusDone)
	if len(done) == 0 {
		return func(context.Context) BulkResult { return BulkResult{} }
	}

	ids := make([]string, len(done))
	for i, t := range done {
		ids[i] = t.ID
	}
	c.board.RemoveByIDs(ids...)
	c.markRemoved(ids...)

	return func(ctx context.Context) BulkResult {
		return c.clearBatch(ctx, done)
	}
}

func (c *Controller) clearBatch(ctx context.Context, done []model.Task) BulkResult {
	var (
		mu  sync.Mutex
		res BulkResult
		g   errgroup.Group
	)
	g.SetLimit(c.bulkLimit)

	for _, t := range done {
		g.Go(func() error {
			err := c.remote.Delete(ctx, t.ID)
			c.settle(t.ID)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				c.log.WithError(err).WithField("task_id", t.ID).Warn("bulk delete failed")
				res.Failed = append(res.Failed, t.ID)
				return nil
			}
			res.Deleted = append(res.Deleted, t.ID)
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(res.Deleted)
	sort.Strings(res.Failed)

	if len(res.Deleted) > 0 {
		if _, err := c.history.Fetch(ctx); err != nil {
			c.log.WithError(err).Warn("history refresh after bulk delete failed")
		}
	}
	c.saveSnapshot(ctx)

	switch {
	case len(res.Failed) == 0:
		c.notify.Notify(model.NewNotification(model.LevelSuccess,
			fmt.Sprintf("Cleared %d completed tasks", len(res.Deleted))))
	default:
		c.notify.Notify(model.NewNotification(model.LevelError,
			fmt.Sprintf("Cleared %d completed tasks, %d failed", len(res.Deleted), len(res.Failed))))
	}
	return res
}
