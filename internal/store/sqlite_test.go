package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/store"
	"github.com/nhle/taskboard/tests/testutil"
)

func sample() []model.Task {
	due := time.Date(2026, 7, 1, 23, 59, 59, 0, time.UTC)
	return []model.Task{
		{ID: "b", Title: "second", Status: model.StatusDoing, Priority: model.PriorityHigh, DueDate: due},
		{ID: "a", Title: "first", Status: model.StatusTodo, DueDate: due,
			Subtasks: []model.Subtask{{Title: "x", Completed: true}}},
	}
}

func TestMigrationsApplied(t *testing.T) {
	s := testutil.NewTestStore(t)
	v, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestBoardRoundTripKeepsOrder(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	_, ok, err := s.LastSynced(ctx, store.SyncKeyBoard)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SaveBoard(ctx, sample()))
	got, err := s.LoadBoard(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, model.StatusDoing, got[0].Status)
	assert.Equal(t, 1, got[1].CompletedSubtasks())

	_, ok, err = s.LastSynced(ctx, store.SyncKeyBoard)
	require.NoError(t, err)
	assert.True(t, ok)

	// Saving again replaces rather than appends.
	require.NoError(t, s.SaveBoard(ctx, sample()[1:]))
	got, err = s.LoadBoard(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestHistoryRoundTripNewestFirst(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := old.Add(72 * time.Hour)
	require.NoError(t, s.SaveHistory(ctx, []model.Task{
		{ID: "old", Status: model.StatusDone, CompletedAt: &old},
		{ID: "none", Status: model.StatusTodo},
		{ID: "recent", Status: model.StatusDone, CompletedAt: &recent},
	}))

	got, err := s.LoadHistory(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"recent", "old", "none"}, []string{got[0].ID, got[1].ID, got[2].ID})
	require.NotNil(t, got[0].CompletedAt)
	assert.True(t, recent.Equal(*got[0].CompletedAt))
}

func TestReopenFileKeepsCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveBoard(ctx, sample()))
	require.NoError(t, s.Close())

	s, err = store.NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.LoadBoard(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	v, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}
