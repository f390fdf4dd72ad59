package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"pipeline-workers/domain"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}

	dialector := postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		DriverName:           "postgres",
		Conn:                 db,
		PreferSimpleProtocol: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open gorm db: %v", err)
	}

	return gormDB, mock
}

func TestPostgresLedger_Record(t *testing.T) {
	db, mock := newMockDB(t)
	ledger := NewPostgresLedger(db)
	event := domain.ProcessingEvent{
		RunID:      "run-1",
		Stage:      domain.StageIngest,
		File:       "a.csv",
		Status:     domain.StatusDone,
		OccurredAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "processing_events"`).
		WithArgs("run-1", "ingest", "a.csv", "done", "", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	assert.NoError(t, ledger.Record(context.Background(), event))
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestPostgresLedger_RecordError(t *testing.T) {
	db, mock := newMockDB(t)
	ledger := NewPostgresLedger(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "processing_events"`).
		WillReturnError(errors.New("db error"))
	mock.ExpectRollback()

	err := ledger.Record(context.Background(), domain.ProcessingEvent{File: "a.csv"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert processing event")
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestPostgresLedger_Recent(t *testing.T) {
	db, mock := newMockDB(t)
	ledger := NewPostgresLedger(db)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT \* FROM "processing_events" ORDER BY occurred_at DESC,id DESC LIMIT`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "run_id", "stage", "file", "status", "message", "occurred_at"}).
			AddRow(2, "run-2", "clean", "raw_a.csv", "error", "bad csv", at).
			AddRow(1, "run-1", "ingest", "a.csv", "done", "", at.Add(-time.Minute)))

	events, err := ledger.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.StageClean, events[0].Stage)
	assert.Equal(t, "bad csv", events[0].Message)
	assert.Equal(t, domain.StatusDone, events[1].Status)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestNopLedger(t *testing.T) {
	var l Ledger = NopLedger{}
	assert.NoError(t, l.Record(context.Background(), domain.ProcessingEvent{}))
	events, err := l.Recent(context.Background(), 5)
	assert.NoError(t, err)
	assert.Empty(t, events)
}
