// Package history manages soft-deleted tasks separately from the live board.
package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/nhle/taskboard/internal/api"
	"github.com/nhle/taskboard/internal/board"
	"github.com/nhle/taskboard/internal/model"
)

var (
	// ErrNotConfirmed is returned by irreversible operations invoked
	// without explicit confirmation.
	ErrNotConfirmed = errors.New("irreversible action requires confirmation")

	// ErrRestorePending is returned when the same id is already being
	// restored.
	ErrRestorePending = errors.New("restore already in progress")

	// ErrNotInHistory is returned when an id is neither in history nor
	// on the board.
	ErrNotInHistory = errors.New("task is not in history")
)

// Order selects how Entries are sorted.
type Order int

const (
	NewestFirst Order = iota
	OldestFirst
)

// Manager holds the local history cache and keeps it disjoint from the
// board: an id is removed from one side whenever it is placed on the
// other.
type Manager struct {
	remote        api.Remote
	board         *board.Store
	restoreStatus model.Status
	log           log.FieldLogger

	mu      sync.Mutex
	entries []model.Task
	pending map[string]bool
}

// New creates a history manager. restoreStatus is the column restored
// tasks are reopened into.
func New(remote api.Remote, b *board.Store, restoreStatus model.Status, logger log.FieldLogger) *Manager {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Manager{
		remote:        remote,
		board:         b,
		restoreStatus: restoreStatus,
		log:           logger.WithField("component", "history"),
		pending:       make(map[string]bool),
	}
}

// RestoreStatus is the column restored tasks are moved into.
func (m *Manager) RestoreStatus() model.Status {
	return m.restoreStatus
}

// Fetch replaces the cache with the server's history and drops those ids
// from the board.
func (m *Manager) Fetch(ctx context.Context) ([]model.Task, error) {
	tasks, err := m.remote.History(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}
	m.Replace(tasks)
	return m.Entries(NewestFirst), nil
}

// Replace installs a history snapshot, e.g. one loaded from the local
// cache at startup.
func (m *Manager) Replace(tasks []model.Task) {
	m.mu.Lock()
	seen := make(map[string]bool, len(tasks))
	m.entries = m.entries[:0]
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		m.entries = append(m.entries, t.Clone())
		ids = append(ids, t.ID)
	}
	m.mu.Unlock()

	m.board.RemoveByIDs(ids...)
}

// Record patches a just-deleted task into the cache ahead of the next
// Fetch.
func (m *Manager) Record(task model.Task) {
	m.mu.Lock()
	if indexOf(m.entries, task.ID) < 0 {
		m.entries = append(m.entries, task.Clone())
	}
	m.mu.Unlock()

	m.board.RemoveByIDs(task.ID)
}

// Forget drops ids from the cache without a remote call. Used when the
// server reports them live again.
func (m *Manager) Forget(ids ...string) {
	if len(ids) == 0 {
		return
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.entries[:0]
	for _, t := range m.entries {
		if !drop[t.ID] {
			kept = append(kept, t)
		}
	}
	m.entries = kept
}

// Entries returns the cache sorted by completion time. Entries without a
// completion time sort last.
func (m *Manager) Entries(order Order) []model.Task {
	m.mu.Lock()
	out := make([]model.Task, len(m.entries))
	for i, t := range m.entries {
		out[i] = t.Clone()
	}
	m.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].CompletedAt, out[j].CompletedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		case order == OldestFirst:
			return a.Before(*b)
		default:
			return a.After(*b)
		}
	})
	return out
}

// Contains reports whether id is in the cache.
func (m *Manager) Contains(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return indexOf(m.entries, id) >= 0
}

// IDs returns the cached ids.
func (m *Manager) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, len(m.entries))
	for i, t := range m.entries {
		ids[i] = t.ID
	}
	return ids
}

// Len returns the number of cached entries.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Restore brings a task back onto the board in the configured restore
// column. Restoring an id that is already live returns the live task
// without a remote call, and a restore racing another restore of the same
// id is rejected, so one id never lands on the board twice.
func (m *Manager) Restore(ctx context.Context, id string) (model.Task, error) {
	m.mu.Lock()
	if m.pending[id] {
		m.mu.Unlock()
		return model.Task{}, ErrRestorePending
	}
	if indexOf(m.entries, id) < 0 {
		m.mu.Unlock()
		if live, ok := m.board.Get(id); ok {
			return live, nil
		}
		return model.Task{}, fmt.Errorf("restore %s: %w", id, ErrNotInHistory)
	}
	m.pending[id] = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.pending, id)
		m.mu.Unlock()
	}()

	restored, err := m.remote.Restore(ctx, id)
	if err != nil {
		return model.Task{}, fmt.Errorf("restoring %s: %w", id, err)
	}

	// The tombstone is gone server-side from here on, so the task moves
	// to the board even if forcing the column fails.
	task, updErr := m.remote.Update(ctx, id, model.StatusPatch(m.restoreStatus))
	if updErr != nil {
		m.log.WithError(updErr).WithField("task_id", id).
			Warn("restored task kept its previous status")
		task = restored
	}

	m.Forget(id)
	m.board.Upsert(task)

	if updErr != nil {
		return task, fmt.Errorf("moving restored task %s to %s: %w", id, m.restoreStatus, updErr)
	}
	return task, nil
}

// RestoreAll restores every entry through the bulk endpoint and clears
// the cache. The caller reloads the board afterwards.
func (m *Manager) RestoreAll(ctx context.Context) error {
	if err := m.remote.RestoreAll(ctx); err != nil {
		return fmt.Errorf("restoring all history: %w", err)
	}
	m.mu.Lock()
	m.entries = nil
	m.mu.Unlock()
	return nil
}

// HardDelete permanently removes one entry. It does nothing unless
// confirmed is true.
func (m *Manager) HardDelete(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	if err := m.remote.HardDelete(ctx, id); err != nil {
		return fmt.Errorf("permanently deleting %s: %w", id, err)
	}
	m.Forget(id)
	return nil
}

// Clear permanently removes every entry. It does nothing unless
// confirmed is true.
func (m *Manager) Clear(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	if err := m.remote.ClearHistory(ctx); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	m.mu.Lock()
	m.entries = nil
	m.mu.Unlock()
	return nil
}

func indexOf(tasks []model.Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
