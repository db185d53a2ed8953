package testutil

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/nhle/taskboard/internal/api"
	"github.com/nhle/taskboard/internal/model"
)

// Call records one invocation of a FakeRemote method.
type Call struct {
	Op    string
	ID    string
	Patch model.TaskPatch
}

// FakeRemote is an in-memory task service with soft-delete semantics.
// Failures can be injected per operation or per operation and task id.
type FakeRemote struct {
	mu       sync.Mutex
	live     []model.Task
	deleted  []model.Task
	nextID   int
	failures map[string]error
	calls    []Call

	// Now is the server clock.
	Now func() time.Time
}

var _ api.Remote = (*FakeRemote)(nil)

// NewFakeRemote creates a fake seeded with live tasks.
func NewFakeRemote(tasks ...model.Task) *FakeRemote {
	f := &FakeRemote{
		failures: make(map[string]error),
		Now:      func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) },
	}
	for _, t := range tasks {
		f.live = append(f.live, t.Clone())
	}
	return f
}

// SeedHistory puts tasks straight into the server-side history.
func (f *FakeRemote) SeedHistory(tasks ...model.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range tasks {
		f.deleted = append(f.deleted, t.Clone())
	}
}

// Fail makes every call to op return err until cleared with a nil err.
func (f *FakeRemote) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, op)
		return
	}
	f.failures[op] = err
}

// FailFor makes calls to op for one task id return err.
func (f *FakeRemote) FailFor(op, id string, err error) {
	f.Fail(op+":"+id, err)
}

// Calls returns every recorded call.
func (f *FakeRemote) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsTo returns the recorded calls of one operation.
func (f *FakeRemote) CallsTo(op string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Live returns the server's live tasks.
func (f *FakeRemote) Live() []model.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneTasks(f.live)
}

// Deleted returns the server's history.
func (f *FakeRemote) Deleted() []model.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneTasks(f.deleted)
}

// record logs the call and returns any injected failure. Caller holds mu.
func (f *FakeRemote) record(op, id string, patch model.TaskPatch) error {
	f.calls = append(f.calls, Call{Op: op, ID: id, Patch: patch})
	if err, ok := f.failures[op+":"+id]; ok {
		return err
	}
	return f.failures[op]
}

func (f *FakeRemote) List(_ context.Context, status *model.Status, page, size int) (api.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("List", "", model.TaskPatch{}); err != nil {
		return api.Page{}, err
	}

	var matching []model.Task
	for _, t := range f.live {
		if status == nil || t.Status == *status {
			matching = append(matching, f.derive(t))
		}
	}
	if size <= 0 {
		size = 20
	}
	totalPages := (len(matching) + size - 1) / size
	start := page * size
	end := start + size
	if start > len(matching) {
		start = len(matching)
	}
	if end > len(matching) {
		end = len(matching)
	}
	return api.Page{
		Tasks:         cloneTasks(matching[start:end]),
		TotalPages:    totalPages,
		TotalElements: len(matching),
		Size:          size,
		Number:        page,
	}, nil
}

func (f *FakeRemote) ListAll(ctx context.Context) ([]model.Task, error) {
	var all []model.Task
	for page := 0; ; page++ {
		p, err := f.List(ctx, nil, page, 2)
		if err != nil {
			return nil, err
		}
		all = append(all, p.Tasks...)
		if !p.HasNext() {
			return all, nil
		}
	}
}

func (f *FakeRemote) Get(_ context.Context, id string) (model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Get", id, model.TaskPatch{}); err != nil {
		return model.Task{}, err
	}
	i := index(f.live, id)
	if i < 0 {
		return model.Task{}, notFound("GET", id)
	}
	return f.derive(f.live[i]), nil
}

func (f *FakeRemote) Create(_ context.Context, task model.Task) (model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Create", "", model.PatchFromTask(task)); err != nil {
		return model.Task{}, err
	}
	f.nextID++
	t := task.Clone()
	t.ID = fmt.Sprintf("srv-%d", f.nextID)
	t.CreatedAt = f.Now()
	t.Activities = []model.Activity{{ID: t.ID + "-a0", Message: "Task created", Timestamp: f.Now()}}
	t = f.stampCompletion(t)
	f.live = append(f.live, t)
	return f.derive(t), nil
}

func (f *FakeRemote) Update(_ context.Context, id string, patch model.TaskPatch) (model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Update", id, patch); err != nil {
		return model.Task{}, err
	}
	i := index(f.live, id)
	if i < 0 {
		return model.Task{}, notFound("PUT", id)
	}
	before := f.live[i].Status
	t := f.stampCompletion(patch.Apply(f.live[i]))
	if t.Status != before {
		t.Activities = append(t.Activities, model.Activity{
			ID:        fmt.Sprintf("%s-a%d", id, len(t.Activities)),
			Message:   fmt.Sprintf("Status changed from %s to %s", before, t.Status),
			Timestamp: f.Now(),
		})
	}
	f.live[i] = t
	return f.derive(t), nil
}

func (f *FakeRemote) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Delete", id, model.TaskPatch{}); err != nil {
		return err
	}
	i := index(f.live, id)
	if i < 0 {
		return notFound("DELETE", id)
	}
	t := f.live[i]
	if t.CompletedAt == nil {
		now := f.Now()
		t.CompletedAt = &now
	}
	f.live = append(f.live[:i], f.live[i+1:]...)
	f.deleted = append(f.deleted, t)
	return nil
}

func (f *FakeRemote) Restore(_ context.Context, id string) (model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Restore", id, model.TaskPatch{}); err != nil {
		return model.Task{}, err
	}
	if i := index(f.live, id); i >= 0 {
		return f.derive(f.live[i]), nil
	}
	i := index(f.deleted, id)
	if i < 0 {
		return model.Task{}, notFound("POST", id)
	}
	t := f.deleted[i]
	f.deleted = append(f.deleted[:i], f.deleted[i+1:]...)
	f.live = append(f.live, t)
	return f.derive(t), nil
}

func (f *FakeRemote) HardDelete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("HardDelete", id, model.TaskPatch{}); err != nil {
		return err
	}
	i := index(f.deleted, id)
	if i < 0 {
		return notFound("DELETE", id)
	}
	f.deleted = append(f.deleted[:i], f.deleted[i+1:]...)
	return nil
}

func (f *FakeRemote) History(_ context.Context) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("History", "", model.TaskPatch{}); err != nil {
		return nil, err
	}
	return cloneTasks(f.deleted), nil
}

func (f *FakeRemote) ClearHistory(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ClearHistory", "", model.TaskPatch{}); err != nil {
		return err
	}
	f.deleted = nil
	return nil
}

func (f *FakeRemote) RestoreAll(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("RestoreAll", "", model.TaskPatch{}); err != nil {
		return err
	}
	f.live = append(f.live, f.deleted...)
	f.deleted = nil
	return nil
}

// stampCompletion sets completedAt when a task enters DONE and clears it
// when it leaves.
func (f *FakeRemote) stampCompletion(t model.Task) model.Task {
	switch {
	case t.Status == model.StatusDone && t.CompletedAt == nil:
		now := f.Now()
		t.CompletedAt = &now
	case t.Status != model.StatusDone:
		t.CompletedAt = nil
	}
	return t
}

// derive fills the server-computed fields.
func (f *FakeRemote) derive(t model.Task) model.Task {
	out := t.Clone()
	out.Overdue = out.Status != model.StatusDone && !out.DueDate.IsZero() && out.DueDate.Before(f.Now())
	if n := len(out.Subtasks); n > 0 {
		out.Progress = float64(out.CompletedSubtasks()) * 100 / float64(n)
	} else if out.Status == model.StatusDone {
		out.Progress = 100
	} else {
		out.Progress = 0
	}
	return out
}

func notFound(method, id string) error {
	return &api.StatusError{
		Code:    http.StatusNotFound,
		Method:  method,
		Path:    "/tasks/" + id,
		Message: "Task not found",
	}
}

func index(tasks []model.Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func cloneTasks(tasks []model.Task) []model.Task {
	out := make([]model.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}
