package usecase

import (
	"context"

	"fieldtrack/internal/domain/entity"
)

// AnnotationInput carries the four user editable fields of a sample
type AnnotationInput struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Rating   int    `json:"rating" validate:"gte=0,lte=5"`
	Note     string `json:"note"`
}

// AnnotationUsecase records annotations locally and schedules their remote delivery
type AnnotationUsecase interface {
	// Annotate overwrites the sample's annotation and enqueues it for delivery in one
	// transaction. Returns the updated sample once committed.
	Annotate(ctx context.Context, timestamp int64, input *AnnotationInput) (*entity.LocationSample, error)
}
