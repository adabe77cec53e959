package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/timeline/internal/timeline"
	"github.com/google/uuid"
)

// SaveSchedule stores a successful result as the asset's newest snapshot and
// returns the snapshot id. Failed results are rejected.
func (s *SQLiteStore) SaveSchedule(ctx context.Context, assetID string, result *timeline.Result) (string, error) {
	if result == nil || !result.Success {
		return "", fmt.Errorf("refusing to save failed schedule for asset %s", assetID)
	}

	tasks, err := json.Marshal(result.Tasks)
	if err != nil {
		return "", fmt.Errorf("failed to encode tasks: %w", err)
	}
	critical, err := json.Marshal(nonNil(result.CriticalPath))
	if err != nil {
		return "", fmt.Errorf("failed to encode critical path: %w", err)
	}
	warnings, err := json.Marshal(nonNil(result.Warnings))
	if err != nil {
		return "", fmt.Errorf("failed to encode warnings: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO schedules (id, asset_id, path, project_start, project_end, project_duration, critical_path, tasks, warnings, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, assetID, string(result.Path), result.ProjectStart, result.ProjectEnd, result.ProjectDuration,
		string(critical), string(tasks), string(warnings), s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("failed to save schedule: %w", err)
	}
	return id, nil
}

// LatestSchedule returns the most recently saved snapshot for an asset.
func (s *SQLiteStore) LatestSchedule(ctx context.Context, assetID string) (*Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		snap                      Snapshot
		path, critical, tasks, ws string
		computedAt                string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, asset_id, path, project_start, project_end, project_duration, critical_path, tasks, warnings, computed_at
		FROM schedules
		WHERE asset_id = ?
		ORDER BY seq DESC
		LIMIT 1
	`, assetID).Scan(&snap.ID, &snap.AssetID, &path, &snap.ProjectStart, &snap.ProjectEnd, &snap.Duration, &critical, &tasks, &ws, &computedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("schedule for asset %s: %w", assetID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule: %w", err)
	}

	snap.Path = timeline.Path(path)
	if err := json.Unmarshal([]byte(tasks), &snap.Tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks of snapshot %s: %w", snap.ID, err)
	}
	if err := json.Unmarshal([]byte(critical), &snap.CriticalPath); err != nil {
		return nil, fmt.Errorf("failed to decode critical path of snapshot %s: %w", snap.ID, err)
	}
	if err := json.Unmarshal([]byte(ws), &snap.Warnings); err != nil {
		return nil, fmt.Errorf("failed to decode warnings of snapshot %s: %w", snap.ID, err)
	}
	if snap.ComputedAt, err = time.Parse(time.RFC3339Nano, computedAt); err != nil {
		return nil, fmt.Errorf("failed to parse computed_at of snapshot %s: %w", snap.ID, err)
	}
	return &snap, nil
}

// Result rebuilds a successful calculator result from the snapshot.
func (s *Snapshot) Result() *timeline.Result {
	return &timeline.Result{
		Tasks:           s.Tasks,
		Path:            s.Path,
		ProjectStart:    s.ProjectStart,
		ProjectEnd:      s.ProjectEnd,
		CriticalPath:    s.CriticalPath,
		ProjectDuration: s.Duration,
		Success:         true,
		Warnings:        s.Warnings,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
