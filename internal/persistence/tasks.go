package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aristath/timeline/internal/scheduler"
)

// queryer is the subset of *sql.DB and *sql.Tx the task helpers need.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SaveTask saves or updates a task. A new task is appended after every
// stored task; an existing one keeps its position.
func (s *SQLiteStore) SaveTask(ctx context.Context, task *scheduler.Task) error {
	return s.SaveTasks(ctx, []scheduler.Task{*task})
}

// SaveTasks upserts tasks in order within one transaction.
func (s *SQLiteStore) SaveTasks(ctx context.Context, tasks []scheduler.Task) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range tasks {
		if err := upsertTask(ctx, tx, &tasks[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func upsertTask(ctx context.Context, q queryer, task *scheduler.Task) error {
	if task.ID == "" {
		return fmt.Errorf("task %q has no id", task.Name)
	}

	deps, err := scheduler.EncodeDependencies(task.Dependencies)
	if err != nil {
		return fmt.Errorf("failed to encode dependencies of %s: %w", task.ID, err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO tasks (id, asset_id, position, name, duration, owner, dependencies, created_at, updated_at)
		VALUES (?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM tasks), ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			asset_id = excluded.asset_id,
			name = excluded.name,
			duration = excluded.duration,
			owner = excluded.owner,
			dependencies = excluded.dependencies,
			updated_at = CURRENT_TIMESTAMP
	`, task.ID, task.AssetID, task.Name, task.Duration, task.Owner, string(deps))
	if err != nil {
		return fmt.Errorf("failed to upsert task %s: %w", task.ID, err)
	}
	return nil
}

func scanTask(row interface{ Scan(...any) error }) (scheduler.Task, error) {
	var (
		task scheduler.Task
		deps string
	)
	if err := row.Scan(&task.ID, &task.AssetID, &task.Name, &task.Duration, &task.Owner, &deps); err != nil {
		return task, err
	}
	// Stored dependencies were written by EncodeDependencies, so there is
	// nothing to warn about on the way back.
	decoded, _, err := scheduler.DecodeDependencies([]byte(deps))
	if err != nil {
		return task, fmt.Errorf("failed to decode dependencies of %s: %w", task.ID, err)
	}
	task.Dependencies = decoded
	return task, nil
}

// GetTask retrieves a task by ID.
func (s *SQLiteStore) GetTask(ctx context.Context, taskID string) (*scheduler.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	task, err := scanTask(s.db.QueryRowContext(ctx, `
		SELECT id, asset_id, name, duration, owner, dependencies
		FROM tasks
		WHERE id = ?
	`, taskID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query task: %w", err)
	}
	return &task, nil
}

// ListTasks returns the tasks of one asset, or of every asset when assetID
// is empty, in input order.
func (s *SQLiteStore) ListTasks(ctx context.Context, assetID string) ([]scheduler.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return listTasks(ctx, s.db, assetID)
}

func listTasks(ctx context.Context, q queryer, assetID string) ([]scheduler.Task, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, asset_id, name, duration, owner, dependencies
		FROM tasks
		WHERE ? = '' OR asset_id = ?
		ORDER BY position
	`, assetID, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []scheduler.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

// ListAssets returns every asset that has tasks, in order of first appearance.
func (s *SQLiteStore) ListAssets(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT asset_id
		FROM tasks
		GROUP BY asset_id
		ORDER BY MIN(position)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	var assets []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assets: %w", err)
	}
	return assets, nil
}

// DeleteTask removes a task and every dependency other tasks declare on it.
func (s *SQLiteStore) DeleteTask(ctx context.Context, taskID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, taskID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}

	remaining, err := listTasks(ctx, tx, "")
	if err != nil {
		return err
	}
	for i := range remaining {
		t := &remaining[i]
		kept := t.Dependencies[:0]
		for _, d := range t.Dependencies {
			if d.PredecessorID != taskID {
				kept = append(kept, d)
			}
		}
		if len(kept) == len(t.Dependencies) {
			continue
		}
		t.Dependencies = kept
		if err := upsertTask(ctx, tx, t); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
