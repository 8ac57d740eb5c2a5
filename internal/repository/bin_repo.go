package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"smartbin/internal/models"
)

type BinSQLite struct {
	db *sql.DB
}

func NewBinSQLite(db *sql.DB) *BinSQLite { return &BinSQLite{db: db} }

var _ BinRepo = (*BinSQLite)(nil)

const (
	selectBinsSQL = `
		SELECT id, distance_cm, lid_status, mode, manual_open, threshold_cm, device_last_seen, updated_at
		FROM bins ORDER BY id
	`
	selectBinSQL = `
		SELECT id, distance_cm, lid_status, mode, manual_open, threshold_cm, device_last_seen, updated_at
		FROM bins WHERE id = ?
	`
	selectBinCommandsSQL = `SELECT id, mode, threshold_cm, manual_open FROM bins ORDER BY id`
)

func scanBin(scan func(dest ...any) error) (models.Bin, error) {
	var b models.Bin
	var lastSeen sql.NullTime
	if err := scan(
		&b.ID,
		&b.DistanceCM,
		&b.LidStatus,
		&b.Mode,
		&b.ManualOpen,
		&b.ThresholdCM,
		&lastSeen,
		&b.UpdatedAt,
	); err != nil {
		return models.Bin{}, err
	}
	if lastSeen.Valid {
		b.DeviceLastSeen = lastSeen.Time.UTC()
	}
	b.UpdatedAt = b.UpdatedAt.UTC()
	return b, nil
}

// List returns every bin ordered by id.
func (r *BinSQLite) List(ctx context.Context) ([]models.Bin, error) {
	rows, err := r.db.QueryContext(ctx, selectBinsSQL)
	if err != nil {
		return nil, fmt.Errorf("select bins: %w", err)
	}
	defer rows.Close()

	out := make([]models.Bin, 0, 8)
	for rows.Next() {
		b, err := scanBin(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Get fetches one bin. Returns (nil, nil) if the id is not provisioned.
func (r *BinSQLite) Get(ctx context.Context, id int) (*models.Bin, error) {
	b, err := scanBin(r.db.QueryRowContext(ctx, selectBinSQL, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select bin %d: %w", id, err)
	}
	return &b, nil
}

func (r *BinSQLite) SetMode(ctx context.Context, id int, mode string, clearManual bool, now time.Time) error {
	if clearManual {
		_, err := r.db.ExecContext(ctx,
			`UPDATE bins SET mode = ?, manual_open = 0, updated_at = ? WHERE id = ?`,
			mode, now.UTC(), id)
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE bins SET mode = ?, updated_at = ? WHERE id = ?`,
		mode, now.UTC(), id)
	return err
}

func (r *BinSQLite) SetAllModes(ctx context.Context, mode string, clearManual bool, now time.Time) error {
	if clearManual {
		_, err := r.db.ExecContext(ctx,
			`UPDATE bins SET mode = ?, manual_open = 0, updated_at = ?`,
			mode, now.UTC())
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE bins SET mode = ?, updated_at = ?`,
		mode, now.UTC())
	return err
}

func (r *BinSQLite) SetThreshold(ctx context.Context, id int, thresholdCM float64, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE bins SET threshold_cm = ?, updated_at = ? WHERE id = ?`,
		thresholdCM, now.UTC(), id)
	return err
}

func (r *BinSQLite) SetManualOpen(ctx context.Context, id int, open bool, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE bins SET manual_open = ?, updated_at = ? WHERE id = ?`,
		open, now.UTC(), id)
	return err
}

// RecordReading writes a device-reported distance and derived lid status and
// stamps both timestamps. The bool reports whether a row matched; an unknown
// id is a silent no-op at this layer.
func (r *BinSQLite) RecordReading(ctx context.Context, id int, distanceCM float64, lidStatus string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bins SET distance_cm = ?, lid_status = ?, device_last_seen = ?, updated_at = ? WHERE id = ?`,
		distanceCM, lidStatus, now.UTC(), now.UTC(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListCommands returns the slice of per-bin state the device polls for.
func (r *BinSQLite) ListCommands(ctx context.Context) ([]models.BinCommand, error) {
	rows, err := r.db.QueryContext(ctx, selectBinCommandsSQL)
	if err != nil {
		return nil, fmt.Errorf("select bin commands: %w", err)
	}
	defer rows.Close()

	out := make([]models.BinCommand, 0, 8)
	for rows.Next() {
		var c models.BinCommand
		if err := rows.Scan(&c.ID, &c.Mode, &c.ThresholdCM, &c.ManualOpen); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// LastSeen maps bin id to the last device report time; bins never reported
// against are omitted.
func (r *BinSQLite) LastSeen(ctx context.Context) (map[int]time.Time, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, device_last_seen FROM bins WHERE device_last_seen IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("select bin last seen: %w", err)
	}
	defer rows.Close()

	out := make(map[int]time.Time)
	for rows.Next() {
		var id int
		var t time.Time
		if err := rows.Scan(&id, &t); err != nil {
			return nil, err
		}
		out[id] = t.UTC()
	}
	return out, rows.Err()
}
