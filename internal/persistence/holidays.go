package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aristath/timeline/internal/calendar"
)

// SaveHolidays replaces the stored holiday set. Every date must be a valid
// ISO date.
func (s *SQLiteStore) SaveHolidays(ctx context.Context, dates []string) error {
	h, err := calendar.NewHolidays(dates...)
	if err != nil {
		return fmt.Errorf("invalid holidays: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM holidays`); err != nil {
		return fmt.Errorf("failed to clear holidays: %w", err)
	}
	for _, d := range h.Dates() {
		if _, err := tx.ExecContext(ctx, `INSERT INTO holidays (date) VALUES (?)`, d); err != nil {
			return fmt.Errorf("failed to insert holiday %s: %w", d, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListHolidays returns the stored holidays in date order.
func (s *SQLiteStore) ListHolidays(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT date FROM holidays ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holidays: %w", err)
	}
	return dates, nil
}
