package models

import (
	"time"
)

// ProcessingEvent is one status transition of a file in a stage.
type ProcessingEvent struct {
	ID         int       `gorm:"primaryKey;autoIncrement"`
	RunID      string    `gorm:"type:text;not null;index"`
	Stage      string    `gorm:"type:text;not null;index:idx_processing_events_stage_file"`
	File       string    `gorm:"type:text;not null;index:idx_processing_events_stage_file"`
	Status     string    `gorm:"type:text;not null"`
	Message    string    `gorm:"type:text"`
	OccurredAt time.Time `gorm:"type:timestamp with time zone;not null;index"`
}

// TableName overrides the table name
func (ProcessingEvent) TableName() string {
	return "processing_events"
}
