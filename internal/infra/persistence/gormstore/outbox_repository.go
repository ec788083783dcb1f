package gormstore

import (
	"context"
	"time"

	"fieldtrack/internal/domain/entity"
	domainerrors "fieldtrack/internal/domain/errors"
	"fieldtrack/internal/domain/repository"
	"fieldtrack/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// outboxRepository implements the domain.OutboxRepository interface.
type outboxRepository struct {
	db   *gorm.DB
	gate *WriteGate
}

// NewOutboxRepository is the constructor for outboxRepository.
func NewOutboxRepository(db *gorm.DB, gate *WriteGate) repository.OutboxRepository {
	return &outboxRepository{
		db:   db,
		gate: gate,
	}
}

// Enqueue creates a pending entry or revives the sample's undelivered one.
func (repo *outboxRepository) Enqueue(ctx context.Context, sampleTimestamp int64, now time.Time) (*entity.OutboxEntry, error) {
	defer repo.gate.acquire()()

	var existing model.OutboxEntryModel
	err := repo.db.WithContext(ctx).
		Where("sample_timestamp = ? AND status IN ?", sampleTimestamp,
			[]string{string(entity.OutboxStatusPending), string(entity.OutboxStatusFailed)}).
		Order("created_at DESC").
		Take(&existing).Error

	switch {
	case err == nil:
		entry := toOutboxDomain(&existing)
		entry.Reset(now)
		if err := repo.db.WithContext(ctx).Save(fromOutboxDomain(entry)).Error; err != nil {
			return nil, domainerrors.NewStorageError("reset outbox entry", err)
		}

		return entry, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		entry := entity.NewOutboxEntry(sampleTimestamp, now)
		entryM := fromOutboxDomain(entry)
		if err := repo.db.WithContext(ctx).Create(entryM).Error; err != nil {
			return nil, domainerrors.NewStorageError("create outbox entry", err)
		}
		entry.CreatedAt = entryM.CreatedAt
		entry.UpdatedAt = entryM.UpdatedAt

		return entry, nil
	default:
		return nil, domainerrors.NewStorageError("find outbox entry", err)
	}
}

// FindDue returns pending entries whose next attempt is due, oldest schedule first.
func (repo *outboxRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*entity.OutboxEntry, error) {
	var entryModels []*model.OutboxEntryModel
	err := repo.db.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", string(entity.OutboxStatusPending), now.UnixMilli()).
		Order("next_attempt_at ASC").
		Order("sample_timestamp ASC").
		Limit(limit).
		Find(&entryModels).Error
	if err != nil {
		return nil, domainerrors.NewStorageError("find due outbox entries", err)
	}

	entries := make([]*entity.OutboxEntry, 0, len(entryModels))
	for _, entryM := range entryModels {
		entries = append(entries, toOutboxDomain(entryM))
	}

	return entries, nil
}

// Get returns an entry by id.
func (repo *outboxRepository) Get(ctx context.Context, id uuid.UUID) (*entity.OutboxEntry, error) {
	var entryM model.OutboxEntryModel
	err := repo.db.WithContext(ctx).Where("id = ?", id).Take(&entryM).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrOutboxEntryNotFound
		}

		return nil, domainerrors.NewStorageError("get outbox entry", err)
	}

	return toOutboxDomain(&entryM), nil
}

// FindPendingBySample returns the pending entry of a sample.
func (repo *outboxRepository) FindPendingBySample(ctx context.Context, sampleTimestamp int64) (*entity.OutboxEntry, error) {
	var entryM model.OutboxEntryModel
	err := repo.db.WithContext(ctx).
		Where("sample_timestamp = ? AND status = ?", sampleTimestamp, string(entity.OutboxStatusPending)).
		Take(&entryM).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrOutboxEntryNotFound
		}

		return nil, domainerrors.NewStorageError("find pending outbox entry", err)
	}

	return toOutboxDomain(&entryM), nil
}

// Update persists an entry's bookkeeping fields.
func (repo *outboxRepository) Update(ctx context.Context, entry *entity.OutboxEntry) error {
	defer repo.gate.acquire()()

	entryM := fromOutboxDomain(entry)
	result := repo.db.WithContext(ctx).
		Model(&model.OutboxEntryModel{}).
		Where("id = ?", entry.ID).
		Select("status", "attempts", "next_attempt_at", "last_error", "remote_object_id", "delivered_at", "updated_at").
		Updates(entryM)
	if result.Error != nil {
		return domainerrors.NewStorageError("update outbox entry", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrOutboxEntryNotFound
	}

	return nil
}

// CountByStatus tallies entries per status.
func (repo *outboxRepository) CountByStatus(ctx context.Context) (map[entity.OutboxStatus]int, error) {
	var rows []model.StatusCount
	err := repo.db.WithContext(ctx).
		Model(&model.OutboxEntryModel{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, domainerrors.NewStorageError("count outbox entries", err)
	}

	counts := make(map[entity.OutboxStatus]int, len(rows))
	for _, row := range rows {
		counts[entity.OutboxStatus(row.Status)] = row.Count
	}

	return counts, nil
}

// toOutboxDomain converts a GORM model to a domain entity.
func toOutboxDomain(data *model.OutboxEntryModel) *entity.OutboxEntry {
	return &entity.OutboxEntry{
		ID:              data.ID,
		SampleTimestamp: data.SampleTimestamp,
		Status:          entity.OutboxStatus(data.Status),
		Attempts:        data.Attempts,
		NextAttemptAt:   time.UnixMilli(data.NextAttemptAt),
		LastError:       data.LastError,
		RemoteObjectID:  data.RemoteObjectID,
		CreatedAt:       data.CreatedAt,
		UpdatedAt:       data.UpdatedAt,
		DeliveredAt:     data.DeliveredAt,
	}
}

// fromOutboxDomain converts a domain entity to a GORM model.
func fromOutboxDomain(data *entity.OutboxEntry) *model.OutboxEntryModel {
	return &model.OutboxEntryModel{
		ID:              data.ID,
		SampleTimestamp: data.SampleTimestamp,
		Status:          string(data.Status),
		Attempts:        data.Attempts,
		NextAttemptAt:   data.NextAttemptAt.UnixMilli(),
		LastError:       data.LastError,
		RemoteObjectID:  data.RemoteObjectID,
		CreatedAt:       data.CreatedAt,
		UpdatedAt:       data.UpdatedAt,
		DeliveredAt:     data.DeliveredAt,
	}
}
