package sync_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskboard/internal/api"
	"github.com/nhle/taskboard/internal/model"
	tbsync "github.com/nhle/taskboard/internal/sync"
)

type countingFetcher struct {
	calls atomic.Int32
	err   error
}

func (f *countingFetcher) ListAll(context.Context) ([]model.Task, error) {
	n := f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return []model.Task{{ID: string(rune('0' + n)), Title: "t"}}, nil
}

func receive(t *testing.T, cmd func() interface{}) tbsync.RefreshMsg {
	t.Helper()
	done := make(chan interface{}, 1)
	go func() { done <- cmd() }()
	select {
	case msg := <-done:
		rm, ok := msg.(tbsync.RefreshMsg)
		require.True(t, ok, "unexpected message %T", msg)
		return rm
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for poll result")
		return tbsync.RefreshMsg{}
	}
}

func TestPollerFetchesOnStartAndOnRefresh(t *testing.T) {
	f := &countingFetcher{}
	p := tbsync.New(f, time.Hour, nil)
	defer p.Stop()

	start := p.Start()
	require.NotNil(t, start)
	assert.Nil(t, p.Start(), "second Start is a no-op")

	first := receive(t, func() interface{} { return start() })
	require.NoError(t, first.Err)
	require.Len(t, first.Tasks, 1)

	p.Refresh()
	next := p.WaitForNextResult()
	second := receive(t, func() interface{} { return next() })
	require.NoError(t, second.Err)
	assert.Equal(t, int32(2), f.calls.Load())
	assert.Equal(t, tbsync.SyncIdle, p.Status().State)
	assert.False(t, p.Status().LastSync.IsZero())
}

func TestPollerReportsAuthFailure(t *testing.T) {
	f := &countingFetcher{err: &api.AuthError{Code: 401, Message: "token expired"}}
	p := tbsync.New(f, time.Hour, nil)
	defer p.Stop()

	start := p.Start()
	msg := receive(t, func() interface{} { return start() })
	require.Error(t, msg.Err)
	assert.True(t, msg.AuthFailed)
	assert.Equal(t, tbsync.SyncError, p.Status().State)
}

func TestPollerPlainFailure(t *testing.T) {
	f := &countingFetcher{err: errors.New("connection refused")}
	p := tbsync.New(f, time.Hour, nil)
	defer p.Stop()

	start := p.Start()
	msg := receive(t, func() interface{} { return start() })
	require.Error(t, msg.Err)
	assert.False(t, msg.AuthFailed)
}

func TestStoppedPollerUnblocksWaiters(t *testing.T) {
	p := tbsync.New(&countingFetcher{}, time.Hour, nil)
	start := p.Start()
	_ = start()
	p.Stop()

	done := make(chan struct{})
	go func() {
		_ = p.WaitForNextResult()()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("waiter not released by Stop")
	}
}
