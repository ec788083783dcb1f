package model

import (
	"time"

	"github.com/google/uuid"
)

// OutboxEntryModel is the GORM-specific struct for the 'sync_outbox' table.
// NextAttemptAt is stored as Unix milliseconds so due checks compare integers on every driver.
type OutboxEntryModel struct {
	ID              uuid.UUID `gorm:"type:varchar(36);primaryKey"`
	SampleTimestamp int64     `gorm:"not null;index:idx_outbox_sample"`
	Status          string    `gorm:"type:varchar(16);not null;index:idx_outbox_due,priority:1"`
	NextAttemptAt   int64     `gorm:"not null;index:idx_outbox_due,priority:2"`
	Attempts        int       `gorm:"not null"`
	LastError       string    `gorm:"type:text;not null"`
	RemoteObjectID  *int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeliveredAt     *time.Time
}

// TableName explicitly sets the table name for GORM.
func (OutboxEntryModel) TableName() string {
	return "sync_outbox"
}

// StatusCount is a scan target for per-status tallies.
type StatusCount struct {
	Status string
	Count  int
}
