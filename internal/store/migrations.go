package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS board_tasks (
	id        TEXT PRIMARY KEY,
	position  INTEGER NOT NULL,
	status    TEXT NOT NULL CHECK(status IN ('TODO', 'DOING', 'DONE')),
	payload   TEXT NOT NULL,
	cached_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS history_tasks (
	id           TEXT PRIMARY KEY,
	completed_at DATETIME,
	payload      TEXT NOT NULL,
	cached_at    DATETIME NOT NULL
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_board_tasks_position ON board_tasks(position);
CREATE INDEX IF NOT EXISTS idx_board_tasks_status ON board_tasks(status);
CREATE INDEX IF NOT EXISTS idx_history_tasks_completed ON history_tasks(completed_at);

CREATE TABLE IF NOT EXISTS sync_state (
	key       TEXT PRIMARY KEY,
	synced_at DATETIME NOT NULL
);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
