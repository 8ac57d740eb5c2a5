package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"smartbin/internal/models"
)

//
// Sensors
//

type SensorSQLite struct {
	db *sql.DB
}

func NewSensorSQLite(db *sql.DB) *SensorSQLite { return &SensorSQLite{db: db} }

var _ SensorRepo = (*SensorSQLite)(nil)

const selectSensorsSQL = `
	SELECT id, distance_cm, lid_status, mode, threshold_cm, device_last_seen, updated_at
	FROM sensors ORDER BY id
`

func scanSensor(scan func(dest ...any) error) (models.Sensor, error) {
	var s models.Sensor
	var lastSeen sql.NullTime
	if err := scan(
		&s.ID,
		&s.DistanceCM,
		&s.LidStatus,
		&s.Mode,
		&s.ThresholdCM,
		&lastSeen,
		&s.UpdatedAt,
	); err != nil {
		return models.Sensor{}, err
	}
	if lastSeen.Valid {
		s.DeviceLastSeen = lastSeen.Time.UTC()
	}
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}

func (r *SensorSQLite) List(ctx context.Context) ([]models.Sensor, error) {
	rows, err := r.db.QueryContext(ctx, selectSensorsSQL)
	if err != nil {
		return nil, fmt.Errorf("select sensors: %w", err)
	}
	defer rows.Close()

	out := make([]models.Sensor, 0, 8)
	for rows.Next() {
		s, err := scanSensor(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Get fetches one sensor. Returns (nil, nil) if the id is not provisioned.
func (r *SensorSQLite) Get(ctx context.Context, id int) (*models.Sensor, error) {
	s, err := scanSensor(r.db.QueryRowContext(ctx,
		`SELECT id, distance_cm, lid_status, mode, threshold_cm, device_last_seen, updated_at
		 FROM sensors WHERE id = ?`, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select sensor %d: %w", id, err)
	}
	return &s, nil
}

func (r *SensorSQLite) SetMode(ctx context.Context, id int, mode string, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sensors SET mode = ?, updated_at = ? WHERE id = ?`,
		mode, now.UTC(), id)
	return err
}

func (r *SensorSQLite) SetAllModes(ctx context.Context, mode string, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sensors SET mode = ?, updated_at = ?`,
		mode, now.UTC())
	return err
}

func (r *SensorSQLite) SetThreshold(ctx context.Context, id int, thresholdCM float64, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sensors SET threshold_cm = ?, updated_at = ? WHERE id = ?`,
		thresholdCM, now.UTC(), id)
	return err
}

func (r *SensorSQLite) RecordReading(ctx context.Context, id int, distanceCM float64, lidStatus string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sensors SET distance_cm = ?, lid_status = ?, device_last_seen = ?, updated_at = ? WHERE id = ?`,
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

func (r *SensorSQLite) LastSeen(ctx context.Context) (map[int]time.Time, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, device_last_seen FROM sensors WHERE device_last_seen IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("select sensor last seen: %w", err)
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

//
// Servos
//

type ServoSQLite struct {
	db *sql.DB
}

func NewServoSQLite(db *sql.DB) *ServoSQLite { return &ServoSQLite{db: db} }

var _ ServoRepo = (*ServoSQLite)(nil)

func (r *ServoSQLite) List(ctx context.Context) ([]models.Servo, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, angle, enabled, updated_at FROM servos ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select servos: %w", err)
	}
	defer rows.Close()

	out := make([]models.Servo, 0, 8)
	for rows.Next() {
		var s models.Servo
		if err := rows.Scan(&s.ID, &s.Angle, &s.Enabled, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.UpdatedAt = s.UpdatedAt.UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// Update writes only the supplied fields; nil pointers leave the stored
// value untouched.
func (r *ServoSQLite) Update(ctx context.Context, id int, angle *int, enabled *bool, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE servos SET
			angle = COALESCE(?, angle),
			enabled = COALESCE(?, enabled),
			updated_at = ?
		 WHERE id = ?`,
		angle, enabled, now.UTC(), id)
	return err
}

//
// Device record (singleton)
//

type DeviceSQLite struct {
	db *sql.DB
}

func NewDeviceSQLite(db *sql.DB) *DeviceSQLite { return &DeviceSQLite{db: db} }

var _ DeviceRepo = (*DeviceSQLite)(nil)

const deviceRecordRowID = 1

// Load fetches the singleton record; a missing row yields a zero record
// rather than an error so a fresh store behaves.
func (r *DeviceSQLite) Load(ctx context.Context) (models.DeviceRecord, error) {
	var d models.DeviceRecord
	var lastSeen sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT id, mode, last_seen, updated_at FROM device_record WHERE id = ?`,
		deviceRecordRowID).Scan(&d.ID, &d.Mode, &lastSeen, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DeviceRecord{}, nil
		}
		return models.DeviceRecord{}, fmt.Errorf("select device record: %w", err)
	}
	if lastSeen.Valid {
		d.LastSeen = lastSeen.Time.UTC()
	}
	d.UpdatedAt = d.UpdatedAt.UTC()
	return d, nil
}

func (r *DeviceSQLite) SetMode(ctx context.Context, mode string, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO device_record (id, mode, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET mode = excluded.mode, updated_at = excluded.updated_at
	`, deviceRecordRowID, mode, now.UTC())
	return err
}

func (r *DeviceSQLite) Touch(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO device_record (id, last_seen, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET last_seen = excluded.last_seen, updated_at = excluded.updated_at
	`, deviceRecordRowID, now.UTC(), now.UTC())
	return err
}
