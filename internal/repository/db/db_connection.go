package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"

// InitDB opens/creates a SQLite DB file and ensures tables exist.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// Conservative pool settings for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	// Fail fast if the DB cannot be reached
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}

const schemaBins = `
CREATE TABLE IF NOT EXISTS bins (
    id INTEGER PRIMARY KEY,
    distance_cm REAL NOT NULL DEFAULT 0,
    lid_status TEXT NOT NULL DEFAULT 'closed',
    mode TEXT NOT NULL DEFAULT 'auto',
    manual_open BOOLEAN NOT NULL DEFAULT 0,
    threshold_cm REAL NOT NULL DEFAULT 30,
    device_last_seen TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

const schemaSensors = `
CREATE TABLE IF NOT EXISTS sensors (
    id INTEGER PRIMARY KEY,
    distance_cm REAL NOT NULL DEFAULT 0,
    lid_status TEXT NOT NULL DEFAULT 'closed',
    mode TEXT NOT NULL DEFAULT 'auto',
    threshold_cm REAL NOT NULL DEFAULT 30,
    device_last_seen TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

const schemaServos = `
CREATE TABLE IF NOT EXISTS servos (
    id INTEGER PRIMARY KEY,
    angle INTEGER NOT NULL DEFAULT 0,
    enabled BOOLEAN NOT NULL DEFAULT 0,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

const schemaDeviceRecord = `
CREATE TABLE IF NOT EXISTS device_record (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    mode TEXT NOT NULL DEFAULT 'auto',
    last_seen TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

const schemaUnitLogs = `
CREATE TABLE IF NOT EXISTS unit_logs (
    id TEXT PRIMARY KEY,
    unit_id INTEGER NOT NULL,
    action TEXT NOT NULL,
    detail TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);
`

func ensureSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() {
		// In case of panic, rollback to avoid leaving an open transaction
		_ = tx.Rollback()
	}()

	for i, stmt := range []string{
		schemaBins,
		schemaSensors,
		schemaServos,
		schemaDeviceRecord,
		schemaUnitLogs,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}

// SeedUnits provisions n default units (and the singleton device record) for
// local bring-up. Unit ids are normally assigned out-of-band; INSERT OR
// IGNORE keeps this from touching rows a real provisioning step created.
func SeedUnits(db *sql.DB, n int) error {
	for i := 1; i <= n; i++ {
		if _, err := db.Exec(`INSERT OR IGNORE INTO bins (id) VALUES (?)`, i); err != nil {
			return fmt.Errorf("seed bin %d: %w", i, err)
		}
		if _, err := db.Exec(`INSERT OR IGNORE INTO sensors (id) VALUES (?)`, i); err != nil {
			return fmt.Errorf("seed sensor %d: %w", i, err)
		}
		if _, err := db.Exec(`INSERT OR IGNORE INTO servos (id) VALUES (?)`, i); err != nil {
			return fmt.Errorf("seed servo %d: %w", i, err)
		}
	}
	if _, err := db.Exec(`INSERT OR IGNORE INTO device_record (id) VALUES (1)`); err != nil {
		return fmt.Errorf("seed device record: %w", err)
	}
	return nil
}
