package history_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskboard/internal/board"
	"github.com/nhle/taskboard/internal/history"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/tests/testutil"
)

func at(day int) *time.Time {
	t := time.Date(2026, 5, day, 10, 0, 0, 0, time.UTC)
	return &t
}

func done(id string, day int) model.Task {
	return model.Task{ID: id, Title: "task " + id, Status: model.StatusDone, CompletedAt: at(day)}
}

func setup(t *testing.T, live []model.Task, deleted []model.Task) (*history.Manager, *board.Store, *testutil.FakeRemote, *test.Hook) {
	t.Helper()
	remote := testutil.NewFakeRemote(live...)
	remote.SeedHistory(deleted...)
	b := board.New(live)
	logger, hook := test.NewNullLogger()
	return history.New(remote, b, model.StatusTodo, logger), b, remote, hook
}

func TestFetchReplacesCacheAndKeepsBoardDisjoint(t *testing.T) {
	m, b, remote, _ := setup(t, []model.Task{done("1", 1), done("2", 2)}, []model.Task{done("9", 3)})

	// The board still shows 2 locally although the server moved it to history.
	require.NoError(t, remote.Delete(context.Background(), "2"))

	entries, err := m.Fetch(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"2", "9"}, idsOf(entries))
	assert.Equal(t, []string{"1"}, b.IDs())

	for _, id := range m.IDs() {
		assert.False(t, b.Contains(id))
	}
}

func TestEntriesSortByCompletion(t *testing.T) {
	m, _, _, _ := setup(t, nil, []model.Task{done("a", 2), {ID: "b"}, done("c", 5), done("d", 1)})
	_, err := m.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"c", "a", "d", "b"}, idsOf(m.Entries(history.NewestFirst)))
	assert.Equal(t, []string{"d", "a", "c", "b"}, idsOf(m.Entries(history.OldestFirst)))
}

func TestRecordMovesTaskOffTheBoard(t *testing.T) {
	m, b, _, _ := setup(t, []model.Task{done("1", 1)}, nil)

	m.Record(done("1", 1))
	m.Record(done("1", 1))

	assert.Equal(t, 1, m.Len())
	assert.False(t, b.Contains("1"))
}

func TestRestoreForcesConfiguredStatus(t *testing.T) {
	m, b, remote, _ := setup(t, nil, []model.Task{done("5", 1)})
	_, err := m.Fetch(context.Background())
	require.NoError(t, err)

	task, err := m.Restore(context.Background(), "5")
	require.NoError(t, err)

	assert.Equal(t, model.StatusTodo, task.Status)
	assert.False(t, m.Contains("5"))
	assert.Equal(t, []string{"5"}, b.IDs())

	updates := remote.CallsTo("Update")
	require.Len(t, updates, 1)
	require.NotNil(t, updates[0].Patch.Status)
	assert.Equal(t, model.StatusTodo, *updates[0].Patch.Status)
}

func TestRestoreStatusIsConfigurable(t *testing.T) {
	remote := testutil.NewFakeRemote()
	remote.SeedHistory(done("5", 1))
	b := board.New(nil)
	m := history.New(remote, b, model.StatusDone, logrus.New())
	_, err := m.Fetch(context.Background())
	require.NoError(t, err)

	task, err := m.Restore(context.Background(), "5")
	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, task.Status)
	assert.Equal(t, model.StatusDone, m.RestoreStatus())
}

func TestRestoreTwiceYieldsOneCopy(t *testing.T) {
	m, b, remote, _ := setup(t, nil, []model.Task{done("5", 1)})
	_, err := m.Fetch(context.Background())
	require.NoError(t, err)

	_, err = m.Restore(context.Background(), "5")
	require.NoError(t, err)
	again, err := m.Restore(context.Background(), "5")
	require.NoError(t, err)

	assert.Equal(t, "5", again.ID)
	assert.Equal(t, []string{"5"}, b.IDs())
	assert.Len(t, remote.CallsTo("Restore"), 1)
}

func TestRestoreUnknownID(t *testing.T) {
	m, _, _, _ := setup(t, nil, nil)
	_, err := m.Restore(context.Background(), "nope")
	assert.ErrorIs(t, err, history.ErrNotInHistory)
}

func TestRestoreFailureLeavesCacheIntact(t *testing.T) {
	m, b, remote, _ := setup(t, nil, []model.Task{done("5", 1)})
	_, err := m.Fetch(context.Background())
	require.NoError(t, err)
	remote.Fail("Restore", errors.New("connection refused"))

	_, err = m.Restore(context.Background(), "5")
	require.Error(t, err)
	assert.True(t, m.Contains("5"))
	assert.False(t, b.Contains("5"))

	// Nothing stays pending after a failure.
	remote.Fail("Restore", nil)
	_, err = m.Restore(context.Background(), "5")
	assert.NoError(t, err)
}

func TestRestoreStatusFailureStillMovesTask(t *testing.T) {
	m, b, remote, hook := setup(t, nil, []model.Task{done("5", 1)})
	_, err := m.Fetch(context.Background())
	require.NoError(t, err)
	remote.Fail("Update", errors.New("boom"))

	task, err := m.Restore(context.Background(), "5")
	require.Error(t, err)
	assert.Equal(t, "5", task.ID)
	assert.False(t, m.Contains("5"))
	assert.True(t, b.Contains("5"))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestRestoreAllClearsCache(t *testing.T) {
	m, _, remote, _ := setup(t, nil, []model.Task{done("5", 1), done("6", 2)})
	_, err := m.Fetch(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.RestoreAll(context.Background()))
	assert.Zero(t, m.Len())
	assert.ElementsMatch(t, []string{"5", "6"}, idsOf(remote.Live()))
}

func TestIrreversibleActionsNeedConfirmation(t *testing.T) {
	m, _, remote, _ := setup(t, nil, []model.Task{done("5", 1), done("6", 2)})
	_, err := m.Fetch(context.Background())
	require.NoError(t, err)
	ctx := context.Background()

	assert.ErrorIs(t, m.HardDelete(ctx, "5", false), history.ErrNotConfirmed)
	assert.ErrorIs(t, m.Clear(ctx, false), history.ErrNotConfirmed)
	assert.Empty(t, remote.CallsTo("HardDelete"))
	assert.Empty(t, remote.CallsTo("ClearHistory"))
	assert.Equal(t, 2, m.Len())

	require.NoError(t, m.HardDelete(ctx, "5", true))
	assert.Equal(t, []string{"6"}, m.IDs())
	assert.Equal(t, []string{"6"}, idsOf(remote.Deleted()))

	require.NoError(t, m.Clear(ctx, true))
	assert.Zero(t, m.Len())
	assert.Empty(t, remote.Deleted())
}

func idsOf(tasks []model.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}
