package impl

import (
	"context"
	"strconv"
	"strings"

	"fieldtrack/internal/domain/entity"
	domainerrors "fieldtrack/internal/domain/errors"
	"fieldtrack/internal/domain/repository"
	"fieldtrack/internal/usecase"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/pkg/errors"
)

type queryService struct {
	sampleRepo repository.SampleRepository
}

// NewQueryService creates the read-only query use case
func NewQueryService(sampleRepo repository.SampleRepository) usecase.QueryUsecase {
	return &queryService{sampleRepo: sampleRepo}
}

func (s *queryService) Samples(ctx context.Context) ([]*entity.LocationSample, error) {
	return s.sampleRepo.List(ctx)
}

func (s *queryService) Get(ctx context.Context, timestamp int64) (*entity.LocationSample, error) {
	sample, err := s.sampleRepo.Get(ctx, timestamp)
	if err != nil {
		if errors.Is(err, repository.ErrSampleNotFound) {
			return nil, domainerrors.ErrSampleNotFound.WithDetails(strconv.FormatInt(timestamp, 10))
		}

		return nil, err
	}

	return sample, nil
}

func (s *queryService) Search(ctx context.Context, query string) ([]*entity.LocationSample, error) {
	if strings.TrimSpace(query) == "" {
		return s.sampleRepo.List(ctx)
	}

	return s.sampleRepo.Search(ctx, query)
}

// Filter looks up the most selective set field through its index and narrows the
// result by the remaining fields.
func (s *queryService) Filter(ctx context.Context, filter *usecase.SampleFilter) ([]*entity.LocationSample, error) {
	if filter == nil {
		filter = &usecase.SampleFilter{}
	}
	if filter.Rating != nil && (*filter.Rating < 0 || *filter.Rating > entity.MaxRating) {
		return nil, domainerrors.ErrValidationFailed.WithDetails("rating must be between 0 and 5")
	}

	var (
		samples []*entity.LocationSample
		err     error
	)
	switch {
	case filter.Name != nil:
		samples, err = s.sampleRepo.FindByName(ctx, *filter.Name)
	case filter.Category != nil:
		samples, err = s.sampleRepo.FindByCategory(ctx, *filter.Category)
	case filter.Rating != nil:
		samples, err = s.sampleRepo.FindByRating(ctx, *filter.Rating)
	default:
		samples, err = s.sampleRepo.List(ctx)
	}
	if err != nil {
		return nil, err
	}

	matched := samples[:0]
	for _, sample := range samples {
		if filter.Category != nil && sample.Category != *filter.Category {
			continue
		}
		if filter.Rating != nil && sample.Rating != *filter.Rating {
			continue
		}
		matched = append(matched, sample)
	}

	return matched, nil
}

// RatingHistogram counts samples per rating in a single pass over the store.
func (s *queryService) RatingHistogram(ctx context.Context) (map[int]int, error) {
	return s.sampleRepo.CountByRating(ctx)
}

// Route orders the samples captured since the given time into a line.
func (s *queryService) Route(ctx context.Context, since int64) (*usecase.Route, error) {
	samples, err := s.sampleRepo.ListSince(ctx, since)
	if err != nil {
		return nil, err
	}

	line := make(orb.LineString, 0, len(samples))
	for _, sample := range samples {
		line = append(line, orb.Point{sample.Longitude, sample.Latitude})
	}

	route := &usecase.Route{Line: line, Samples: len(samples)}
	if len(line) > 1 {
		route.LengthMeters = geo.Length(line)
	}

	return route, nil
}
