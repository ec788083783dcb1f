package usecase

import (
	"context"

	"fieldtrack/internal/domain/entity"

	"github.com/paulmach/orb"
)

// SampleFilter selects samples by exact field values. Nil fields do not filter.
type SampleFilter struct {
	Name     *string
	Category *string
	Rating   *int
}

// Route is the ordered path through a set of samples
type Route struct {
	Line         orb.LineString
	LengthMeters float64
	Samples      int
}

// QueryUsecase answers read-only questions about the sample store
type QueryUsecase interface {
	// Samples returns every sample ordered by timestamp.
	Samples(ctx context.Context) ([]*entity.LocationSample, error)

	// Get returns one sample.
	Get(ctx context.Context, timestamp int64) (*entity.LocationSample, error)

	// Search matches a case-insensitive substring across name, category, rating and note.
	// An empty query returns every sample.
	Search(ctx context.Context, query string) ([]*entity.LocationSample, error)

	// Filter intersects exact matches on the filter's set fields.
	Filter(ctx context.Context, filter *SampleFilter) ([]*entity.LocationSample, error)

	// RatingHistogram counts samples per rating.
	RatingHistogram(ctx context.Context) (map[int]int, error)

	// Route builds the path through samples captured at or after since (ms).
	Route(ctx context.Context, since int64) (*Route, error)
}
