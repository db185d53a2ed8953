// Package controller applies board edits optimistically and reconciles
// them with the server.
//
// Every mutation follows the same policy: change the local board first,
// call the server, merge the canonical response on success, and on
// failure notify once and reload from the server. Drag persistence is the
// exception: it is fire-and-forget and only logged.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/nhle/taskboard/internal/api"
	"github.com/nhle/taskboard/internal/board"
	"github.com/nhle/taskboard/internal/history"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/store"
)

// ErrUnknownTask is returned for edits to an id that is not on the board.
var ErrUnknownTask = errors.New("task is not on the board")

// Persist is the remote half of an optimistic edit. By the time a Start
// method returns one, the local change is already on the board; the UI
// runs it off the event loop.
type Persist func(ctx context.Context) error

func persistNothing(context.Context) error { return nil }

// defaultBulkLimit bounds concurrent deletes in BulkClearCompleted.
const defaultBulkLimit = 4

// Controller coordinates the board, the remote service and history.
type Controller struct {
	board   *board.Store
	remote  api.Remote
	history *history.Manager
	cache   store.Cache
	notify  Notifier
	log     log.FieldLogger

	bulkLimit int
	now       func() time.Time

	// removedAt holds ids taken off the board locally. A fetch that
	// started before the removal, or while the delete is pending, must
	// not bring them back.
	mu        sync.Mutex
	removedAt map[string]time.Time
	pending   map[string]bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithCache saves a snapshot of the board and history after each
// successful sync.
func WithCache(c store.Cache) Option {
	return func(ctl *Controller) { ctl.cache = c }
}

// WithLogger sets the logger.
func WithLogger(l log.FieldLogger) Option {
	return func(ctl *Controller) { ctl.log = l }
}

// WithBulkLimit sets how many deletes BulkClearCompleted runs at once.
func WithBulkLimit(n int) Option {
	return func(ctl *Controller) {
		if n > 0 {
			ctl.bulkLimit = n
		}
	}
}

// WithClock overrides the reference time used for validation.
func WithClock(now func() time.Time) Option {
	return func(ctl *Controller) { ctl.now = now }
}

// New creates a controller. A nil notifier discards notifications.
func New(b *board.Store, remote api.Remote, h *history.Manager, n Notifier, opts ...Option) *Controller {
	c := &Controller{
		board:     b,
		remote:    remote,
		history:   h,
		notify:    n,
		log:       log.StandardLogger(),
		bulkLimit: defaultBulkLimit,
		now:       time.Now,
		removedAt: make(map[string]time.Time),
		pending:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.notify == nil {
		c.notify = NotifierFunc(func(model.Notification) {})
	}
	c.log = c.log.WithField("component", "controller")
	return c
}

// Board returns the live task store.
func (c *Controller) Board() *board.Store { return c.board }

// History returns the history manager.
func (c *Controller) History() *history.Manager { return c.history }

// Notify forwards a notification raised outside the controller, e.g. by
// the command palette.
func (c *Controller) Notify(n model.Notification) { c.notify.Notify(n) }

// LoadCached seeds an empty board and history from the snapshot cache so
// something is visible before the first fetch.
func (c *Controller) LoadCached(ctx context.Context) error {
	if c.cache == nil || c.board.Len() > 0 {
		return nil
	}
	tasks, err := c.cache.LoadBoard(ctx)
	if err != nil {
		return fmt.Errorf("loading cached board: %w", err)
	}
	c.board.ReplaceAll(tasks)

	hist, err := c.cache.LoadHistory(ctx)
	if err != nil {
		return fmt.Errorf("loading cached history: %w", err)
	}
	c.history.Replace(hist)
	c.log.WithField("tasks", len(tasks)).Debug("board seeded from cache")
	return nil
}

// Reload fetches every page of live tasks and replaces the board.
func (c *Controller) Reload(ctx context.Context) error {
	started := time.Now()
	tasks, err := c.remote.ListAll(ctx)
	if err != nil {
		c.log.WithError(err).WithField("op", "reload").Error("remote call failed")
		c.notify.Notify(model.NewNotification(model.LevelError, "Could not load tasks: "+err.Error()))
		return fmt.Errorf("reloading board: %w", err)
	}
	c.ApplyRefresh(ctx, tasks, started)
	return nil
}

// ApplyRefresh reconciles a list of live tasks whose fetch began at
// started; a zero started means now. Tasks removed locally after that
// point, or whose delete is still in flight, stay off the board. While a
// drag holds the board the snapshot is deferred until ResumeSync. It
// reports whether the board was replaced immediately.
func (c *Controller) ApplyRefresh(ctx context.Context, tasks []model.Task, started time.Time) bool {
	tasks = c.dropRemoved(tasks, started)
	applied := c.board.ReplaceAll(tasks)

	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	c.history.Forget(ids...)

	if applied {
		c.saveSnapshot(ctx)
	}
	return applied
}

// FetchHistory refreshes the history cache from the server.
func (c *Controller) FetchHistory(ctx context.Context) ([]model.Task, error) {
	tasks, err := c.history.Fetch(ctx)
	if err != nil {
		c.failed(ctx, err, "fetch_history", "", "Could not load history")
		return nil, err
	}
	c.saveSnapshot(ctx)
	return tasks, nil
}

// CreateTask validates draft and creates it on the server.
func (c *Controller) CreateTask(ctx context.Context, draft model.Task) (model.Task, error) {
	if err := model.ValidateTask(draft, c.now()); err != nil {
		c.notify.Notify(model.NewNotification(model.LevelError, err.Error()))
		return model.Task{}, err
	}

	created, err := c.remote.Create(ctx, draft)
	if err != nil {
		c.failed(ctx, err, "create", "", "Could not create task")
		return model.Task{}, fmt.Errorf("creating task: %w", err)
	}

	c.board.Upsert(created)
	c.saveSnapshot(ctx)
	c.notify.Notify(model.NewNotification(model.LevelSuccess, fmt.Sprintf("Created %q", created.Title)))
	return created, nil
}

// UpdateTask applies patch locally, sends it to the server and merges the
// server's copy back in.
func (c *Controller) UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (model.Task, error) {
	current, err := c.applyUpdate(id, patch)
	if err != nil || patch.IsEmpty() {
		return current, err
	}
	return c.persistUpdate(ctx, id, patch)
}

// StartUpdate validates patch and applies it to the board at once. The
// returned Persist sends it to the server.
func (c *Controller) StartUpdate(id string, patch model.TaskPatch) (Persist, error) {
	if _, err := c.applyUpdate(id, patch); err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return persistNothing, nil
	}
	return func(ctx context.Context) error {
		_, err := c.persistUpdate(ctx, id, patch)
		return err
	}, nil
}

// applyUpdate is the local step of an update. An empty patch changes
// nothing and returns the current task.
func (c *Controller) applyUpdate(id string, patch model.TaskPatch) (model.Task, error) {
	current, ok := c.board.Get(id)
	if !ok {
		err := fmt.Errorf("update %s: %w", id, ErrUnknownTask)
		c.notify.Notify(model.NewNotification(model.LevelError, err.Error()))
		return model.Task{}, err
	}
	if patch.IsEmpty() {
		return current, nil
	}
	if patch.NeedsValidation() {
		if err := model.ValidateTask(patch.Apply(current), c.now()); err != nil {
			c.notify.Notify(model.NewNotification(model.LevelError, err.Error()))
			return model.Task{}, err
		}
	}
	updated, _ := c.board.UpdateFields(id, patch)
	return updated, nil
}

func (c *Controller) persistUpdate(ctx context.Context, id string, patch model.TaskPatch) (model.Task, error) {
	updated, err := c.remote.Update(ctx, id, patch)
	if err != nil {
		c.failed(ctx, err, "update", id, "Could not update task")
		return model.Task{}, fmt.Errorf("updating %s: %w", id, err)
	}

	c.board.MergePatch([]model.Task{updated})
	c.saveSnapshot(ctx)
	return updated, nil
}

// AdvanceStatus moves a task to the next column.
func (c *Controller) AdvanceStatus(ctx context.Context, id string) (model.Task, error) {
	return c.UpdateTask(ctx, id, c.advancePatch(id))
}

// StartAdvance is AdvanceStatus split into its local and remote steps.
func (c *Controller) StartAdvance(id string) (Persist, error) {
	return c.StartUpdate(id, c.advancePatch(id))
}

// ToggleImportant flips the star on a task.
func (c *Controller) ToggleImportant(ctx context.Context, id string) (model.Task, error) {
	return c.UpdateTask(ctx, id, c.starPatch(id))
}

// StartToggleImportant is ToggleImportant split into its local and remote
// steps.
func (c *Controller) StartToggleImportant(id string) (Persist, error) {
	return c.StartUpdate(id, c.starPatch(id))
}

// CyclePriority moves a task to the next priority.
func (c *Controller) CyclePriority(ctx context.Context, id string) (model.Task, error) {
	return c.UpdateTask(ctx, id, c.priorityPatch(id))
}

// StartCyclePriority is CyclePriority split into its local and remote
// steps.
func (c *Controller) StartCyclePriority(id string) (Persist, error) {
	return c.StartUpdate(id, c.priorityPatch(id))
}

// ToggleSubtask flips the completion of one checklist item.
func (c *Controller) ToggleSubtask(ctx context.Context, id string, index int) (model.Task, error) {
	patch, err := c.subtaskPatch(id, index)
	if err != nil {
		return model.Task{}, err
	}
	return c.UpdateTask(ctx, id, patch)
}

// StartToggleSubtask is ToggleSubtask split into its local and remote
// steps.
func (c *Controller) StartToggleSubtask(id string, index int) (Persist, error) {
	patch, err := c.subtaskPatch(id, index)
	if err != nil {
		return nil, err
	}
	return c.StartUpdate(id, patch)
}

// The patch builders return an empty patch for unknown ids so the update
// reports ErrUnknownTask.

func (c *Controller) advancePatch(id string) model.TaskPatch {
	t, ok := c.board.Get(id)
	if !ok {
		return model.TaskPatch{}
	}
	return model.StatusPatch(t.Status.Next())
}

func (c *Controller) starPatch(id string) model.TaskPatch {
	t, ok := c.board.Get(id)
	if !ok {
		return model.TaskPatch{}
	}
	important := !t.Important
	return model.TaskPatch{Important: &important}
}

func (c *Controller) priorityPatch(id string) model.TaskPatch {
	t, ok := c.board.Get(id)
	if !ok {
		return model.TaskPatch{}
	}
	p := t.Priority.Next()
	return model.TaskPatch{Priority: &p}
}

func (c *Controller) subtaskPatch(id string, index int) (model.TaskPatch, error) {
	t, ok := c.board.Get(id)
	if !ok {
		return model.TaskPatch{}, nil
	}
	if index < 0 || index >= len(t.Subtasks) {
		return model.TaskPatch{}, fmt.Errorf("subtask %d of %s: index out of range", index, id)
	}
	subs := append([]model.Subtask(nil), t.Subtasks...)
	subs[index].Completed = !subs[index].Completed
	return model.SubtasksPatch(subs), nil
}

// DeleteTask soft-deletes a task. The success notification offers undo.
func (c *Controller) DeleteTask(ctx context.Context, id string) error {
	persist, err := c.StartDelete(id)
	if err != nil {
		return err
	}
	return persist(ctx)
}

// StartDelete takes a task off the board at once. The returned Persist
// soft-deletes it on the server and records it in history.
func (c *Controller) StartDelete(id string) (Persist, error) {
	task, ok := c.board.Get(id)
	if !ok {
		err := fmt.Errorf("delete %s: %w", id, ErrUnknownTask)
		c.notify.Notify(model.NewNotification(model.LevelError, err.Error()))
		return nil, err
	}

	c.board.RemoveByIDs(id)
	c.markRemoved(id)

	return func(ctx context.Context) error {
		if err := c.remote.Delete(ctx, id); err != nil {
			// Settled first so the recovery reload can put it back.
			c.settle(id)
			c.failed(ctx, err, "delete", id, "Could not delete task")
			return fmt.Errorf("deleting %s: %w", id, err)
		}

		if task.CompletedAt == nil {
			now := c.now()
			task.CompletedAt = &now
		}
		c.history.Record(task)
		c.settle(id)
		if _, err := c.history.Fetch(ctx); err != nil {
			c.log.WithError(err).WithField("task_id", id).Warn("history refresh after delete failed")
		}
		c.saveSnapshot(ctx)

		n := model.NewNotification(model.LevelSuccess, fmt.Sprintf("Deleted %q", task.Title))
		n.UndoTaskID = id
		c.notify.Notify(n)
		return nil
	}, nil
}

// Undo restores a just-deleted task and reloads the board.
func (c *Controller) Undo(ctx context.Context, id string) error {
	if _, err := c.remote.Restore(ctx, id); err != nil {
		c.failed(ctx, err, "undo", id, "Could not undo delete")
		return fmt.Errorf("undoing delete of %s: %w", id, err)
	}
	c.history.Forget(id)
	c.unremove(id)
	if err := c.Reload(ctx); err != nil {
		return err
	}
	c.notify.Notify(model.NewNotification(model.LevelInfo, "Delete undone"))
	return nil
}

// Restore moves a history entry back onto the board.
func (c *Controller) Restore(ctx context.Context, id string) (model.Task, error) {
	task, err := c.history.Restore(ctx, id)
	switch {
	case errors.Is(err, history.ErrRestorePending):
		return model.Task{}, err
	case err != nil:
		c.failed(ctx, err, "restore", id, "Could not restore task")
		return task, err
	}
	c.unremove(id)
	c.saveSnapshot(ctx)
	c.notify.Notify(model.NewNotification(model.LevelSuccess, fmt.Sprintf("Restored %q", task.Title)))
	return task, nil
}

// RestoreAll restores every history entry and reloads the board.
func (c *Controller) RestoreAll(ctx context.Context) error {
	restored := c.history.IDs()
	if err := c.history.RestoreAll(ctx); err != nil {
		c.failed(ctx, err, "restore_all", "", "Could not restore history")
		return err
	}
	c.unremove(restored...)
	if err := c.Reload(ctx); err != nil {
		return err
	}
	c.notify.Notify(model.NewNotification(model.LevelSuccess, "Restored all tasks"))
	return nil
}

// HardDelete permanently removes one history entry.
func (c *Controller) HardDelete(ctx context.Context, id string, confirmed bool) error {
	if err := c.history.HardDelete(ctx, id, confirmed); err != nil {
		if errors.Is(err, history.ErrNotConfirmed) {
			return err
		}
		c.failed(ctx, err, "hard_delete", id, "Could not delete task permanently")
		return err
	}
	c.saveSnapshot(ctx)
	c.notify.Notify(model.NewNotification(model.LevelSuccess, "Task permanently deleted"))
	return nil
}

// ClearHistory permanently removes every history entry.
func (c *Controller) ClearHistory(ctx context.Context, confirmed bool) error {
	if err := c.history.Clear(ctx, confirmed); err != nil {
		if errors.Is(err, history.ErrNotConfirmed) {
			return err
		}
		c.failed(ctx, err, "clear_history", "", "Could not clear history")
		return err
	}
	c.saveSnapshot(ctx)
	c.notify.Notify(model.NewNotification(model.LevelSuccess, "History cleared"))
	return nil
}

// failed logs a remote failure, surfaces it once and reloads the board
// and history from the server.
func (c *Controller) failed(ctx context.Context, err error, op, id, msg string) {
	entry := c.log.WithError(err).WithField("op", op)
	if id != "" {
		entry = entry.WithField("task_id", id)
	}
	entry.Error("remote call failed")
	c.notify.Notify(model.NewNotification(model.LevelError, msg+": "+err.Error()))
	c.recover(ctx)
}

// recover reloads without notifying again.
func (c *Controller) recover(ctx context.Context) {
	started := time.Now()
	tasks, err := c.remote.ListAll(ctx)
	if err != nil {
		c.log.WithError(err).Warn("reload after failure failed")
		return
	}
	c.ApplyRefresh(ctx, tasks, started)
	if _, err := c.history.Fetch(ctx); err != nil {
		c.log.WithError(err).Warn("history reload after failure failed")
	}
}

func (c *Controller) markRemoved(ids ...string) {
	at := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		c.removedAt[id] = at
		c.pending[id] = true
	}
}

// settle ends the pending state of a delete, successful or not.
func (c *Controller) settle(ids ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.pending, id)
	}
}

// unremove drops the removal record of tasks that came back.
func (c *Controller) unremove(ids ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.removedAt, id)
		delete(c.pending, id)
	}
}

func (c *Controller) removedIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.removedAt))
	for id := range c.removedAt {
		ids = append(ids, id)
	}
	return ids
}

func (c *Controller) dropRemoved(tasks []model.Task, started time.Time) []model.Task {
	if started.IsZero() {
		started = time.Now()
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	// A fetch that began after a settled removal is server truth.
	for id, at := range c.removedAt {
		if !at.After(started) && !c.pending[id] {
			delete(c.removedAt, id)
		}
	}
	if len(c.removedAt) == 0 {
		return tasks
	}

	kept := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if _, ok := c.removedAt[t.ID]; ok {
			c.log.WithField("task_id", t.ID).Debug("stale fetch still lists a removed task")
			continue
		}
		kept = append(kept, t)
	}
	return kept
}

func (c *Controller) saveSnapshot(ctx context.Context) {
	if c.cache == nil {
		return
	}
	if err := c.cache.SaveBoard(ctx, c.board.Tasks()); err != nil {
		c.log.WithError(err).Warn("saving board snapshot failed")
	}
	if err := c.cache.SaveHistory(ctx, c.history.Entries(history.NewestFirst)); err != nil {
		c.log.WithError(err).Warn("saving history snapshot failed")
	}
}
