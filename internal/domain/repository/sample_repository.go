// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"

	"fieldtrack/internal/domain/entity"

	"github.com/pkg/errors"
)

// Domain-specific errors for sample persistence.
var (
	// ErrSampleNotFound is returned when no sample exists for a timestamp.
	ErrSampleNotFound = errors.New("location sample not found")
	// ErrSampleAlreadyExists is returned when admitting a sample whose timestamp is taken.
	ErrSampleAlreadyExists = errors.New("location sample already exists")
)

// SampleRepository is the durable keyed store of location samples.
// Every mutating call is atomic. Failures other than the sentinels above are
// reported as *errors.StorageError from the domain errors package.
type SampleRepository interface {
	// Create inserts a new sample. Returns ErrSampleAlreadyExists when the timestamp is taken.
	Create(ctx context.Context, sample *entity.LocationSample) error

	// Put inserts or fully replaces the sample stored under its timestamp.
	Put(ctx context.Context, sample *entity.LocationSample) error

	// Get returns the sample for a timestamp or ErrSampleNotFound.
	Get(ctx context.Context, timestamp int64) (*entity.LocationSample, error)

	// List returns every sample ordered by timestamp.
	List(ctx context.Context) ([]*entity.LocationSample, error)

	// ListSince returns samples captured at or after the timestamp, ordered by timestamp.
	ListSince(ctx context.Context, timestamp int64) ([]*entity.LocationSample, error)

	// Delete removes a sample. Returns ErrSampleNotFound when absent.
	Delete(ctx context.Context, timestamp int64) error

	// DeleteUnannotated removes every sample with an empty category and returns how many were removed.
	DeleteUnannotated(ctx context.Context) (int64, error)

	// FindByName returns samples whose name equals the argument, via the name index.
	FindByName(ctx context.Context, name string) ([]*entity.LocationSample, error)

	// FindByCategory returns samples whose category equals the argument, via the category index.
	FindByCategory(ctx context.Context, category string) ([]*entity.LocationSample, error)

	// FindByRating returns samples with the given rating, via the rating index.
	FindByRating(ctx context.Context, rating int) ([]*entity.LocationSample, error)

	// Search returns samples whose name, category, rating or note contains the query,
	// case-insensitively, ordered by name then timestamp.
	Search(ctx context.Context, query string) ([]*entity.LocationSample, error)

	// CountByRating tallies samples per rating value.
	CountByRating(ctx context.Context) (map[int]int, error)

	// MaxObjectID returns the highest object id stored, 0 for an empty store.
	MaxObjectID(ctx context.Context) (int64, error)
}
