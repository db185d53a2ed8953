// Package board holds the in-memory ordered collection of live tasks.
//
// Display order inside a column is the order of the tasks in the
// collection. Every read returns copies so callers can never alias the
// stored slice.
package board

import (
	"fmt"
	"sync"

	"github.com/nhle/taskboard/internal/model"
)

// Store is the authoritative local view of non-deleted tasks.
type Store struct {
	mu    sync.RWMutex
	tasks []model.Task

	// held is set while a drag gesture is in progress.
	held bool
	// deferred is the latest snapshot that arrived while held.
	deferred []model.Task
	hasDefer bool
}

// New creates a Store seeded with tasks (deduplicated by id).
func New(tasks []model.Task) *Store {
	return &Store{tasks: dedupe(tasks)}
}

// Tasks returns a copy of every task in display order.
func (s *Store) Tasks() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.tasks)
}

// Len returns the number of tasks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// Get returns the task with the given id.
func (s *Store) Get(id string) (model.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.tasks, id); i >= 0 {
		return s.tasks[i].Clone(), true
	}
	return model.Task{}, false
}

// Contains reports whether id is on the board.
func (s *Store) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return indexOf(s.tasks, id) >= 0
}

// IDs returns the ids in display order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, len(s.tasks))
	for i, t := range s.tasks {
		ids[i] = t.ID
	}
	return ids
}

// Column returns the tasks with the given status in display order.
func (s *Store) Column(status model.Status) []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ColumnOf(s.tasks, status)
}

// ReplaceAll swaps in a full snapshot. While the store is held the
// snapshot is parked (latest wins) and applied on Release; false is
// returned in that case.
func (s *Store) ReplaceAll(tasks []model.Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held {
		s.deferred = dedupe(tasks)
		s.hasDefer = true
		return false
	}
	s.tasks = dedupe(tasks)
	return true
}

// MergePatch replaces each local task that has a counterpart in updated.
// Tasks missing from updated are untouched and unknown ids are ignored.
// It returns the number of tasks replaced.
func (s *Store) MergePatch(updated []model.Task) int {
	if len(updated) == 0 {
		return 0
	}
	byID := make(map[string]model.Task, len(updated))
	for _, t := range updated {
		byID[t.ID] = t
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i, t := range s.tasks {
		if u, ok := byID[t.ID]; ok {
			s.tasks[i] = u.Clone()
			n++
		}
	}
	return n
}

// RemoveByIDs drops the matching tasks and returns them.
func (s *Store) RemoveByIDs(ids ...string) []model.Task {
	if len(ids) == 0 {
		return nil
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []model.Task
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		if drop[t.ID] {
			removed = append(removed, t)
			continue
		}
		kept = append(kept, t)
	}
	// Clear the tail so removed tasks are not retained by the backing array.
	for i := len(kept); i < len(s.tasks); i++ {
		s.tasks[i] = model.Task{}
	}
	s.tasks = kept
	return removed
}

// UpdateFields shallow-merges patch into the task with the given id and
// returns the result.
func (s *Store) UpdateFields(id string, patch model.TaskPatch) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.tasks, id)
	if i < 0 {
		return model.Task{}, false
	}
	s.tasks[i] = patch.Apply(s.tasks[i])
	return s.tasks[i].Clone(), true
}

// Upsert replaces the task with the same id or appends it.
func (s *Store) Upsert(task model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexOf(s.tasks, task.ID); i >= 0 {
		s.tasks[i] = task.Clone()
		return
	}
	s.tasks = append(s.tasks, task.Clone())
}

// Rearrange installs an arrangement produced by a drag. It must contain
// exactly the ids currently on the board.
func (s *Store) Rearrange(tasks []model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(tasks) != len(s.tasks) {
		return fmt.Errorf("rearrange: got %d tasks, board has %d", len(tasks), len(s.tasks))
	}
	seen := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if seen[t.ID] {
			return fmt.Errorf("rearrange: duplicate task %s", t.ID)
		}
		if indexOf(s.tasks, t.ID) < 0 {
			return fmt.Errorf("rearrange: unknown task %s", t.ID)
		}
		seen[t.ID] = true
	}
	s.tasks = cloneAll(tasks)
	return nil
}

// Hold suspends ReplaceAll until Release.
func (s *Store) Hold() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.held = true
}

// Held reports whether the store is held.
func (s *Store) Held() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.held
}

// Release lifts a Hold and applies the snapshot deferred meanwhile, if
// any. It reports whether a deferred snapshot was applied.
func (s *Store) Release() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.held = false
	if !s.hasDefer {
		return false
	}
	s.tasks = s.deferred
	s.deferred = nil
	s.hasDefer = false
	return true
}

// ColumnOf filters tasks by status, preserving order.
func ColumnOf(tasks []model.Task, status model.Status) []model.Task {
	var out []model.Task
	for _, t := range tasks {
		if t.Status == status {
			out = append(out, t.Clone())
		}
	}
	return out
}

// IndexOf returns the position of id in tasks, or -1.
func IndexOf(tasks []model.Task, id string) int {
	return indexOf(tasks, id)
}

func indexOf(tasks []model.Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func dedupe(tasks []model.Task) []model.Task {
	seen := make(map[string]bool, len(tasks))
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		out = append(out, t.Clone())
	}
	return out
}

func cloneAll(tasks []model.Task) []model.Task {
	out := make([]model.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}
