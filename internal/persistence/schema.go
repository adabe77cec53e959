package persistence

import (
	"context"
)

// initSchema creates all required tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		asset_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		duration INTEGER NOT NULL,
		owner TEXT NOT NULL DEFAULT '',
		dependencies TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_asset_position ON tasks(asset_id, position);

	CREATE TABLE IF NOT EXISTS holidays (
		date TEXT PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS schedules (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		asset_id TEXT NOT NULL,
		path TEXT NOT NULL,
		project_start TEXT NOT NULL,
		project_end TEXT NOT NULL,
		project_duration INTEGER NOT NULL DEFAULT 0,
		critical_path TEXT NOT NULL DEFAULT '[]',
		tasks TEXT NOT NULL,
		warnings TEXT NOT NULL DEFAULT '[]',
		computed_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_schedules_asset_seq ON schedules(asset_id, seq);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}
