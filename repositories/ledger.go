package repositories

import (
	"context"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"

	"pipeline-workers/domain"
	"pipeline-workers/models"
)

// Ledger keeps the history of status transitions. The registry only holds
// the latest state of each file.
type Ledger interface {
	Record(ctx context.Context, event domain.ProcessingEvent) error
	Recent(ctx context.Context, limit int) ([]domain.ProcessingEvent, error)
}

type PostgresLedger struct {
	DB *gorm.DB
}

func NewPostgresLedger(db *gorm.DB) *PostgresLedger {
	return &PostgresLedger{DB: db}
}

// Migrate creates or updates the processing_events table.
func (l *PostgresLedger) Migrate() error {
	return errors.Wrap(l.DB.AutoMigrate(&models.ProcessingEvent{}), "migrate processing_events")
}

func (l *PostgresLedger) Record(ctx context.Context, event domain.ProcessingEvent) error {
	row := models.ProcessingEvent{
		RunID:      event.RunID,
		Stage:      string(event.Stage),
		File:       event.File,
		Status:     string(event.Status),
		Message:    event.Message,
		OccurredAt: event.OccurredAt.UTC(),
	}
	if err := l.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return errors.Wrapf(err, "failed to insert processing event for %s", event.File)
	}
	return nil
}

// Recent returns the newest events first.
func (l *PostgresLedger) Recent(ctx context.Context, limit int) ([]domain.ProcessingEvent, error) {
	var rows []models.ProcessingEvent
	err := l.DB.WithContext(ctx).
		Order("occurred_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to query processing events")
	}
	out := make([]domain.ProcessingEvent, len(rows))
	for i, r := range rows {
		out[i] = domain.ProcessingEvent{
			RunID:      r.RunID,
			Stage:      domain.Stage(r.Stage),
			File:       r.File,
			Status:     domain.Status(r.Status),
			Message:    r.Message,
			OccurredAt: r.OccurredAt.UTC(),
		}
	}
	return out, nil
}

// NopLedger is used when no database is configured.
type NopLedger struct{}

func (NopLedger) Record(context.Context, domain.ProcessingEvent) error { return nil }

func (NopLedger) Recent(context.Context, int) ([]domain.ProcessingEvent, error) { return nil, nil }
