package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/taskboard/internal/model"
)

// SQLiteStore implements Cache using a local SQLite database.
type SQLiteStore struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ Cache = (*SQLiteStore)(nil)

// cachedRow is one serialized task.
type cachedRow struct {
	ID      string `db:"id"`
	Payload string `db:"payload"`
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// A single connection keeps ":memory:" databases alive across calls
	// and serializes writers.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SchemaVersion returns the highest applied migration.
func (s *SQLiteStore) SchemaVersion() (int, error) {
	var v int
	if err := s.db.Get(&v, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		currentVersion, err = s.SchemaVersion()
		if err != nil {
			return err
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// SaveBoard replaces the cached board with tasks, keeping their order.
func (s *SQLiteStore) SaveBoard(ctx context.Context, tasks []model.Task) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM board_tasks"); err != nil {
		return fmt.Errorf("clearing board cache: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT OR REPLACE INTO board_tasks (id, position, status, payload, cached_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing board insert: %w", err)
	}
	defer stmt.Close()

	now := s.now().UTC()
	for i, t := range tasks {
		payload, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("marshaling task %s: %w", t.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, t.ID, i, t.Status.String(), string(payload), now); err != nil {
			return fmt.Errorf("caching task %s: %w", t.ID, err)
		}
	}

	if err := markSynced(ctx, tx, SyncKeyBoard, now); err != nil {
		return err
	}
	return tx.Commit()
}

// LoadBoard returns the cached board in its saved order.
func (s *SQLiteStore) LoadBoard(ctx context.Context) ([]model.Task, error) {
	var rows []cachedRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT id, payload FROM board_tasks ORDER BY position ASC")
	if err != nil {
		return nil, fmt.Errorf("querying board cache: %w", err)
	}
	return decodeRows(rows)
}

// SaveHistory replaces the cached history.
func (s *SQLiteStore) SaveHistory(ctx context.Context, tasks []model.Task) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM history_tasks"); err != nil {
		return fmt.Errorf("clearing history cache: %w", err)
	}

	now := s.now().UTC()
	for _, t := range tasks {
		payload, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("marshaling task %s: %w", t.ID, err)
		}
		var completed interface{}
		if t.CompletedAt != nil {
			completed = t.CompletedAt.UTC()
		}
		_, err = tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO history_tasks (id, completed_at, payload, cached_at)
			VALUES (?, ?, ?, ?)`,
			t.ID, completed, string(payload), now,
		)
		if err != nil {
			return fmt.Errorf("caching history task %s: %w", t.ID, err)
		}
	}

	if err := markSynced(ctx, tx, SyncKeyHistory, now); err != nil {
		return err
	}
	return tx.Commit()
}

// LoadHistory returns the cached history, most recently completed first.
func (s *SQLiteStore) LoadHistory(ctx context.Context) ([]model.Task, error) {
	var rows []cachedRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, payload FROM history_tasks
		ORDER BY completed_at IS NULL, completed_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("querying history cache: %w", err)
	}
	return decodeRows(rows)
}

// LastSynced reports when key was last saved.
func (s *SQLiteStore) LastSynced(ctx context.Context, key string) (time.Time, bool, error) {
	var at time.Time
	err := s.db.GetContext(ctx, &at, "SELECT synced_at FROM sync_state WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("reading sync state %s: %w", key, err)
	}
	return at, true, nil
}

func markSynced(ctx context.Context, tx *sqlx.Tx, key string, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO sync_state (key, synced_at) VALUES (?, ?)", key, at)
	if err != nil {
		return fmt.Errorf("recording sync state %s: %w", key, err)
	}
	return nil
}

func decodeRows(rows []cachedRow) ([]model.Task, error) {
	tasks := make([]model.Task, 0, len(rows))
	for _, r := range rows {
		var t model.Task
		if err := json.Unmarshal([]byte(r.Payload), &t); err != nil {
			return nil, fmt.Errorf("decoding cached task %s: %w", r.ID, err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}
