package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"smartbin/internal/models"

	"github.com/google/uuid"
)

type LogSQLite struct {
	db *sql.DB
}

func NewLogSQLite(db *sql.DB) *LogSQLite { return &LogSQLite{db: db} }

var _ LogRepo = (*LogSQLite)(nil)

// Append inserts a new log entry. If ID or CreatedAt are empty, they're set.
func (r *LogSQLite) Append(ctx context.Context, e models.LogEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	} else {
		e.CreatedAt = e.CreatedAt.UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO unit_logs (id, unit_id, action, detail, created_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		e.ID,
		e.UnitID,
		e.Action,
		e.Detail,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert log for unit %d: %w", e.UnitID, err)
	}
	return nil
}

// ListRecent returns the newest entries first, bounded to limit rows.
func (r *LogSQLite) ListRecent(ctx context.Context, limit int) ([]models.LogEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, unit_id, action, detail, created_at
		FROM unit_logs ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("select recent logs: %w", err)
	}
	defer rows.Close()

	out := make([]models.LogEntry, 0, limit)
	for rows.Next() {
		var e models.LogEntry
		if err := rows.Scan(&e.ID, &e.UnitID, &e.Action, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
