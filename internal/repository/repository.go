package repository

import (
	"context"
	"database/sql"
	"time"

	"smartbin/internal/models"
	dbpkg "smartbin/internal/repository/db"
)

// BinRepo covers the fixed bin-array deployment. Mutations stamp updated_at
// from the caller-supplied time; concurrent writers are last-write-wins.
type BinRepo interface {
	List(ctx context.Context) ([]models.Bin, error)
	Get(ctx context.Context, id int) (*models.Bin, error)
	SetMode(ctx context.Context, id int, mode string, clearManual bool, now time.Time) error
	SetAllModes(ctx context.Context, mode string, clearManual bool, now time.Time) error
	SetThreshold(ctx context.Context, id int, thresholdCM float64, now time.Time) error
	SetManualOpen(ctx context.Context, id int, open bool, now time.Time) error
	RecordReading(ctx context.Context, id int, distanceCM float64, lidStatus string, now time.Time) (bool, error)
	ListCommands(ctx context.Context) ([]models.BinCommand, error)
	LastSeen(ctx context.Context) (map[int]time.Time, error)
}

// SensorRepo covers the sensor side of the farm deployment.
type SensorRepo interface {
	List(ctx context.Context) ([]models.Sensor, error)
	Get(ctx context.Context, id int) (*models.Sensor, error)
	SetMode(ctx context.Context, id int, mode string, now time.Time) error
	SetAllModes(ctx context.Context, mode string, now time.Time) error
	SetThreshold(ctx context.Context, id int, thresholdCM float64, now time.Time) error
	RecordReading(ctx context.Context, id int, distanceCM float64, lidStatus string, now time.Time) (bool, error)
	LastSeen(ctx context.Context) (map[int]time.Time, error)
}

// ServoRepo covers the actuator side of the farm deployment.
type ServoRepo interface {
	List(ctx context.Context) ([]models.Servo, error)
	Update(ctx context.Context, id int, angle *int, enabled *bool, now time.Time) error
}

// DeviceRepo owns the singleton device record of the farm deployment.
type DeviceRepo interface {
	Load(ctx context.Context) (models.DeviceRecord, error)
	SetMode(ctx context.Context, mode string, now time.Time) error
	Touch(ctx context.Context, now time.Time) error
}

// LogRepo is the append-only transition/command log shared by both
// deployments.
type LogRepo interface {
	Append(ctx context.Context, e models.LogEntry) error
	ListRecent(ctx context.Context, limit int) ([]models.LogEntry, error)
}

type Repository struct {
	Bins    BinRepo
	Sensors SensorRepo
	Servos  ServoRepo
	Device  DeviceRepo
	Logs    LogRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Bins:    NewBinSQLite(db),
		Sensors: NewSensorSQLite(db),
		Servos:  NewServoSQLite(db),
		Device:  NewDeviceSQLite(db),
		Logs:    NewLogSQLite(db),
	}
}

// InitDB re-exports the db package opener so main wires one import.
func InitDB(path string) (*sql.DB, error) { return dbpkg.InitDB(path) }

// SeedUnits re-exports bring-up seeding.
func SeedUnits(db *sql.DB, n int) error { return dbpkg.SeedUnits(db, n) }
