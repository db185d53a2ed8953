package store

import (
	"context"
	"time"

	"github.com/nhle/taskboard/internal/model"
)

// Cache persists the last known board and history so the board can be
// shown before the first fetch completes. It is a convenience cache, not
// a source of truth.
type Cache interface {
	SaveBoard(ctx context.Context, tasks []model.Task) error
	LoadBoard(ctx context.Context) ([]model.Task, error)
	SaveHistory(ctx context.Context, tasks []model.Task) error
	LoadHistory(ctx context.Context) ([]model.Task, error)
	LastSynced(ctx context.Context, key string) (time.Time, bool, error)
}

// Keys for LastSynced.
const (
	SyncKeyBoard   = "board"
	SyncKeyHistory = "history"
)
