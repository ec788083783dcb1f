package gormstore

import (
	"context"

	"fieldtrack/internal/domain/entity"
	domainerrors "fieldtrack/internal/domain/errors"
	"fieldtrack/internal/domain/repository"
	"fieldtrack/internal/infra/persistence/model"
	"fieldtrack/internal/util"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const searchClause = `LOWER(name) LIKE ? ESCAPE '\' OR LOWER(category) LIKE ? ESCAPE '\' OR CAST(rating AS TEXT) LIKE ? ESCAPE '\' OR LOWER(note) LIKE ? ESCAPE '\'`

// sampleRepository implements the domain.SampleRepository interface.
type sampleRepository struct {
	db   *gorm.DB
	gate *WriteGate
}

// NewSampleRepository is the constructor for sampleRepository.
func NewSampleRepository(db *gorm.DB, gate *WriteGate) repository.SampleRepository {
	return &sampleRepository{
		db:   db,
		gate: gate,
	}
}

// Create inserts a new sample and refuses to overwrite an existing timestamp.
func (repo *sampleRepository) Create(ctx context.Context, sample *entity.LocationSample) error {
	defer repo.gate.acquire()()

	sampleM := fromSampleDomain(sample)
	result := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "timestamp_ms"}}, DoNothing: true}).
		Create(sampleM)
	if result.Error != nil {
		return translateWriteError("create sample", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrSampleAlreadyExists
	}

	sample.CreatedAt = sampleM.CreatedAt
	sample.UpdatedAt = sampleM.UpdatedAt

	return nil
}

// Put inserts the sample or replaces every column of the stored one.
func (repo *sampleRepository) Put(ctx context.Context, sample *entity.LocationSample) error {
	defer repo.gate.acquire()()

	sampleM := fromSampleDomain(sample)
	err := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "timestamp_ms"}}, UpdateAll: true}).
		Create(sampleM).Error
	if err != nil {
		return translateWriteError("put sample", err)
	}

	sample.CreatedAt = sampleM.CreatedAt
	sample.UpdatedAt = sampleM.UpdatedAt

	return nil
}

// Get retrieves a sample by timestamp.
func (repo *sampleRepository) Get(ctx context.Context, timestamp int64) (*entity.LocationSample, error) {
	var sampleM model.LocationSampleModel
	err := repo.db.WithContext(ctx).
		Where("timestamp_ms = ?", timestamp).
		Take(&sampleM).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSampleNotFound
		}

		return nil, domainerrors.NewStorageError("get sample", err)
	}

	return toSampleDomain(&sampleM), nil
}

// List returns all samples in capture order.
func (repo *sampleRepository) List(ctx context.Context) ([]*entity.LocationSample, error) {
	return repo.find("list samples", repo.db.WithContext(ctx).Order("timestamp_ms ASC"))
}

// ListSince returns samples captured at or after timestamp in capture order.
func (repo *sampleRepository) ListSince(ctx context.Context, timestamp int64) ([]*entity.LocationSample, error) {
	return repo.find("list samples since", repo.db.WithContext(ctx).
		Where("timestamp_ms >= ?", timestamp).
		Order("timestamp_ms ASC"))
}

// Delete removes a sample by timestamp.
func (repo *sampleRepository) Delete(ctx context.Context, timestamp int64) error {
	defer repo.gate.acquire()()

	result := repo.db.WithContext(ctx).
		Where("timestamp_ms = ?", timestamp).
		Delete(&model.LocationSampleModel{})
	if result.Error != nil {
		return domainerrors.NewStorageError("delete sample", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrSampleNotFound
	}

	return nil
}

// DeleteUnannotated removes every sample without a category.
func (repo *sampleRepository) DeleteUnannotated(ctx context.Context) (int64, error) {
	defer repo.gate.acquire()()

	result := repo.db.WithContext(ctx).
		Where("category = ?", "").
		Delete(&model.LocationSampleModel{})
	if result.Error != nil {
		return 0, domainerrors.NewStorageError("delete unannotated samples", result.Error)
	}

	return result.RowsAffected, nil
}

// FindByName looks samples up through idx_samples_name.
func (repo *sampleRepository) FindByName(ctx context.Context, name string) ([]*entity.LocationSample, error) {
	return repo.find("find samples by name", repo.db.WithContext(ctx).
		Where("name = ?", name).
		Order("timestamp_ms ASC"))
}

// FindByCategory looks samples up through idx_samples_category.
func (repo *sampleRepository) FindByCategory(ctx context.Context, category string) ([]*entity.LocationSample, error) {
	return repo.find("find samples by category", repo.db.WithContext(ctx).
		Where("category = ?", category).
		Order("timestamp_ms ASC"))
}

// FindByRating looks samples up through idx_samples_rating.
func (repo *sampleRepository) FindByRating(ctx context.Context, rating int) ([]*entity.LocationSample, error) {
	return repo.find("find samples by rating", repo.db.WithContext(ctx).
		Where("rating = ?", rating).
		Order("timestamp_ms ASC"))
}

// Search matches the query as a literal, case-insensitive substring.
func (repo *sampleRepository) Search(ctx context.Context, query string) ([]*entity.LocationSample, error) {
	pattern := util.ContainsPattern(query)

	return repo.find("search samples", repo.db.WithContext(ctx).
		Where(searchClause, pattern, pattern, pattern, pattern).
		Order("name ASC").
		Order("timestamp_ms ASC"))
}

// CountByRating tallies samples per rating in one pass.
func (repo *sampleRepository) CountByRating(ctx context.Context) (map[int]int, error) {
	var rows []model.RatingCount
	err := repo.db.WithContext(ctx).
		Model(&model.LocationSampleModel{}).
		Select("rating, COUNT(*) AS count").
		Group("rating").
		Scan(&rows).Error
	if err != nil {
		return nil, domainerrors.NewStorageError("count samples by rating", err)
	}

	histogram := make(map[int]int, len(rows))
	for _, row := range rows {
		histogram[row.Rating] = row.Count
	}

	return histogram, nil
}

// MaxObjectID returns the highest stored object id or 0.
func (repo *sampleRepository) MaxObjectID(ctx context.Context) (int64, error) {
	var maxID int64
	err := repo.db.WithContext(ctx).
		Model(&model.LocationSampleModel{}).
		Select("COALESCE(MAX(object_id), 0)").
		Scan(&maxID).Error
	if err != nil {
		return 0, domainerrors.NewStorageError("max object id", err)
	}

	return maxID, nil
}

func (repo *sampleRepository) find(op string, query *gorm.DB) ([]*entity.LocationSample, error) {
	var sampleModels []*model.LocationSampleModel
	if err := query.Find(&sampleModels).Error; err != nil {
		return nil, domainerrors.NewStorageError(op, err)
	}

	samples := make([]*entity.LocationSample, 0, len(sampleModels))
	for _, sampleM := range sampleModels {
		samples = append(samples, toSampleDomain(sampleM))
	}

	return samples, nil
}

func translateWriteError(op string, err error) error {
	if isUniqueConstraintViolation(err) {
		return repository.ErrSampleAlreadyExists
	}
	if isCheckConstraintViolation(err) {
		return domainerrors.ErrValidationFailed.WithDetails("rating must be between 0 and 5")
	}

	return domainerrors.NewStorageError(op, err)
}

// toSampleDomain converts a GORM model to a domain entity.
func toSampleDomain(data *model.LocationSampleModel) *entity.LocationSample {
	return &entity.LocationSample{
		Timestamp: data.Timestamp,
		ObjectID:  data.ObjectID,
		Latitude:  data.Latitude,
		Longitude: data.Longitude,
		Name:      data.Name,
		Category:  data.Category,
		Rating:    data.Rating,
		Note:      data.Note,
		Synced:    data.Synced,
		SyncedAt:  data.SyncedAt,
		CreatedAt: data.CreatedAt,
		UpdatedAt: data.UpdatedAt,
	}
}

// fromSampleDomain converts a domain entity to a GORM model.
func fromSampleDomain(data *entity.LocationSample) *model.LocationSampleModel {
	return &model.LocationSampleModel{
		Timestamp: data.Timestamp,
		ObjectID:  data.ObjectID,
		Latitude:  data.Latitude,
		Longitude: data.Longitude,
		Name:      data.Name,
		Category:  data.Category,
		Rating:    data.Rating,
		Note:      data.Note,
		Synced:    data.Synced,
		SyncedAt:  data.SyncedAt,
		CreatedAt: data.CreatedAt,
		UpdatedAt: data.UpdatedAt,
	}
}
