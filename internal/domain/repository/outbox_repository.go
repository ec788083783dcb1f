package repository

import (
	"context"
	"time"

	"fieldtrack/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrOutboxEntryNotFound is returned when an outbox entry does not exist.
var ErrOutboxEntryNotFound = errors.New("outbox entry not found")

// OutboxRepository persists pending remote deliveries.
type OutboxRepository interface {
	// Enqueue schedules delivery of a sample. An existing pending or failed entry for
	// the same sample is reset instead of duplicated.
	Enqueue(ctx context.Context, sampleTimestamp int64, now time.Time) (*entity.OutboxEntry, error)

	// FindDue returns up to limit pending entries due at or before now, oldest first.
	FindDue(ctx context.Context, now time.Time, limit int) ([]*entity.OutboxEntry, error)

	// Get returns an entry by id or ErrOutboxEntryNotFound.
	Get(ctx context.Context, id uuid.UUID) (*entity.OutboxEntry, error)

	// FindPendingBySample returns the pending entry of a sample or ErrOutboxEntryNotFound.
	FindPendingBySample(ctx context.Context, sampleTimestamp int64) (*entity.OutboxEntry, error)

	// Update persists the bookkeeping fields of an entry.
	Update(ctx context.Context, entry *entity.OutboxEntry) error

	// CountByStatus tallies entries per status.
	CountByStatus(ctx context.Context) (map[entity.OutboxStatus]int, error)
}
