package repository_test

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"smartbin/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
)

// utcTime matches any driver value that is a time.Time in UTC.
type utcTime struct{}

func (utcTime) Match(v driver.Value) bool {
	tm, ok := v.(time.Time)
	return ok && tm.Location() == time.UTC
}

func TestBinSQLite_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func() { _ = db.Close() }()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "distance_cm", "lid_status", "mode", "manual_open", "threshold_cm", "device_last_seen", "updated_at",
	}).
		AddRow(1, 42.5, "closed", "auto", false, 30, now, now).
		AddRow(2, 10.0, "open", "manual", true, 25, nil, now)

	mock.ExpectQuery(regexp.QuoteMeta("FROM bins ORDER BY id")).WillReturnRows(rows)

	repo := repository.NewBinSQLite(db)
	bins, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List(): %v", err)
	}
	if len(bins) != 2 {
		t.Fatalf("expected 2 bins, got %d", len(bins))
	}
	if bins[0].DistanceCM != 42.5 || bins[0].LidStatus != "closed" {
		t.Fatalf("bad first row: %+v", bins[0])
	}
	// NULL device_last_seen stays the zero time
	if !bins[1].DeviceLastSeen.IsZero() {
		t.Fatalf("expected zero last-seen, got %v", bins[1].DeviceLastSeen)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBinSQLite_Get_MissingRowIsNil(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta("FROM bins WHERE id = ?")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := repository.NewBinSQLite(db)
	bin, err := repo.Get(context.Background(), 7)
	if err != nil {
		t.Fatalf("Get(): %v", err)
	}
	if bin != nil {
		t.Fatalf("expected nil for a missing row, got %+v", bin)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBinSQLite_SetMode_AutoClearsManual(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE bins SET mode = ?, manual_open = 0, updated_at = ? WHERE id = ?")).
		WithArgs("auto", utcTime{}, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := repository.NewBinSQLite(db)
	if err := repo.SetMode(context.Background(), 1, "auto", true, time.Now()); err != nil {
		t.Fatalf("SetMode(): %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBinSQLite_SetMode_ManualKeepsFlag(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE bins SET mode = ?, updated_at = ? WHERE id = ?")).
		WithArgs("manual", utcTime{}, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := repository.NewBinSQLite(db)
	if err := repo.SetMode(context.Background(), 2, "manual", false, time.Now()); err != nil {
		t.Fatalf("SetMode(): %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBinSQLite_SetThreshold_KeepsFraction(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE bins SET threshold_cm = ?, updated_at = ? WHERE id = ?")).
		WithArgs(7.5, utcTime{}, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := repository.NewBinSQLite(db)
	if err := repo.SetThreshold(context.Background(), 3, 7.5, time.Now()); err != nil {
		t.Fatalf("SetThreshold(): %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBinSQLite_RecordReading_ReportsMatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := repository.NewBinSQLite(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE bins SET distance_cm = ?")).
		WithArgs(33.0, "open", utcTime{}, utcTime{}, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	matched, err := repo.RecordReading(context.Background(), 1, 33.0, "open", time.Now())
	if err != nil || !matched {
		t.Fatalf("RecordReading(): matched=%v err=%v", matched, err)
	}

	// unknown id → zero rows affected → no match
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bins SET distance_cm = ?")).
		WithArgs(33.0, "open", utcTime{}, utcTime{}, 99).
		WillReturnResult(sqlmock.NewResult(0, 0))
	matched, err = repo.RecordReading(context.Background(), 99, 33.0, "open", time.Now())
	if err != nil || matched {
		t.Fatalf("expected no match for unknown id: matched=%v err=%v", matched, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBinSQLite_ListCommands(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func() { _ = db.Close() }()

	rows := sqlmock.NewRows([]string{"id", "mode", "threshold_cm", "manual_open"}).
		AddRow(1, "auto", 30, false).
		AddRow(2, "manual", 20, true)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, mode, threshold_cm, manual_open FROM bins ORDER BY id")).
		WillReturnRows(rows)

	repo := repository.NewBinSQLite(db)
	cmds, err := repo.ListCommands(context.Background())
	if err != nil {
		t.Fatalf("ListCommands(): %v", err)
	}
	if len(cmds) != 2 || !cmds[1].ManualOpen || cmds[1].ThresholdCM != 20 {
		t.Fatalf("bad commands: %+v", cmds)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
