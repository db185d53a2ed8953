package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/nhle/taskboard/internal/model"
)

// Remote is the set of task service operations the board depends on.
type Remote interface {
	List(ctx context.Context, status *model.Status, page, size int) (Page, error)
	ListAll(ctx context.Context) ([]model.Task, error)
	Get(ctx context.Context, id string) (model.Task, error)
	Create(ctx context.Context, task model.Task) (model.Task, error)
	Update(ctx context.Context, id string, patch model.TaskPatch) (model.Task, error)
	Delete(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) (model.Task, error)
	HardDelete(ctx context.Context, id string) error
	History(ctx context.Context) ([]model.Task, error)
	ClearHistory(ctx context.Context) error
	RestoreAll(ctx context.Context) error
}

var _ Remote = (*Client)(nil)

// maxPages caps ListAll so a misbehaving server cannot loop it forever.
const maxPages = 1000

func taskPath(id string) string {
	return "/tasks/" + url.PathEscape(id)
}

// List fetches one page of live tasks, optionally filtered by status.
func (c *Client) List(ctx context.Context, status *model.Status, page, size int) (Page, error) {
	q := url.Values{}
	if status != nil {
		q.Set("status", status.String())
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))

	var resp pageDTO
	if err := c.get(ctx, "/tasks?"+q.Encode(), &resp); err != nil {
		return Page{}, fmt.Errorf("listing tasks: %w", err)
	}
	return Page{
		Tasks:         toTasks(resp.Content),
		TotalPages:    resp.TotalPages,
		TotalElements: resp.TotalElements,
		Size:          resp.Size,
		Number:        resp.Number,
	}, nil
}

// ListAll walks every page of the task list.
func (c *Client) ListAll(ctx context.Context) ([]model.Task, error) {
	var all []model.Task
	for page := 0; page < maxPages; page++ {
		p, err := c.List(ctx, nil, page, c.pageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, p.Tasks...)
		if !p.HasNext() || len(p.Tasks) == 0 {
			break
		}
	}
	return all, nil
}

// Get fetches a single task.
func (c *Client) Get(ctx context.Context, id string) (model.Task, error) {
	var resp taskDTO
	if err := c.get(ctx, taskPath(id), &resp); err != nil {
		return model.Task{}, fmt.Errorf("getting task %s: %w", id, err)
	}
	return toTask(resp), nil
}

// Create posts a new task and returns it with server-assigned fields.
func (c *Client) Create(ctx context.Context, task model.Task) (model.Task, error) {
	var resp taskDTO
	if err := c.post(ctx, "/tasks", fromTask(task), &resp); err != nil {
		return model.Task{}, fmt.Errorf("creating task: %w", err)
	}
	return toTask(resp), nil
}

// Update sends the set fields of patch and returns the canonical task.
func (c *Client) Update(ctx context.Context, id string, patch model.TaskPatch) (model.Task, error) {
	var resp taskDTO
	if err := c.put(ctx, taskPath(id), fromPatch(patch), &resp); err != nil {
		return model.Task{}, fmt.Errorf("updating task %s: %w", id, err)
	}
	return toTask(resp), nil
}

// Delete soft-deletes a task into history.
func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.delete(ctx, taskPath(id)); err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	return nil
}

// Restore clears the tombstone of a soft-deleted task.
func (c *Client) Restore(ctx context.Context, id string) (model.Task, error) {
	var resp taskDTO
	if err := c.post(ctx, taskPath(id)+"/restore", nil, &resp); err != nil {
		return model.Task{}, fmt.Errorf("restoring task %s: %w", id, err)
	}
	return toTask(resp), nil
}

// HardDelete permanently removes a task from history.
func (c *Client) HardDelete(ctx context.Context, id string) error {
	if err := c.delete(ctx, taskPath(id)+"/hard"); err != nil {
		return fmt.Errorf("permanently deleting task %s: %w", id, err)
	}
	return nil
}

// History lists the soft-deleted tasks.
func (c *Client) History(ctx context.Context) ([]model.Task, error) {
	var resp []taskDTO
	if err := c.get(ctx, "/tasks/history", &resp); err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	return toTasks(resp), nil
}

// ClearHistory permanently removes every history entry.
func (c *Client) ClearHistory(ctx context.Context) error {
	if err := c.delete(ctx, "/tasks/history"); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}

// RestoreAll restores every history entry.
func (c *Client) RestoreAll(ctx context.Context) error {
	if err := c.post(ctx, "/tasks/history/restore", nil, nil); err != nil {
		return fmt.Errorf("restoring history: %w", err)
	}
	return nil
}

// CheckConnection checks that baseURL serves the task API and accepts token by
// fetching one row. It returns the number of live tasks reported.
func CheckConnection(ctx context.Context, baseURL, token string) (int, error) {
	c := NewClient(baseURL, WithToken(token), WithTimeout(10*time.Second))
	p, err := c.List(ctx, nil, 0, 1)
	if err != nil {
		return 0, err
	}
	return p.TotalElements, nil
}
