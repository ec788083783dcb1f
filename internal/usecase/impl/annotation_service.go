package impl

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"fieldtrack/config"
	deliverycontext "fieldtrack/internal/delivery/context"
	"fieldtrack/internal/domain/constants"
	"fieldtrack/internal/domain/entity"
	domainerrors "fieldtrack/internal/domain/errors"
	"fieldtrack/internal/domain/repository"
	"fieldtrack/internal/domain/service"
	"fieldtrack/internal/infra/metrics"
	"fieldtrack/internal/usecase"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

type annotationService struct {
	cfg       *config.AnnotationConfig
	logger    *slog.Logger
	txManager repository.TransactionManager
	notifier  service.ChangeNotifier
	sync      usecase.SyncUsecase
	metrics   *metrics.Metrics
	validate  *validator.Validate
	now       func() time.Time
}

// NewAnnotationService creates the annotation use case
func NewAnnotationService(
	cfg *config.Config,
	logger *slog.Logger,
	txManager repository.TransactionManager,
	notifier service.ChangeNotifier,
	syncUsecase usecase.SyncUsecase,
	m *metrics.Metrics,
) usecase.AnnotationUsecase {
	return &annotationService{
		cfg:       cfg.Annotation,
		logger:    logger,
		txManager: txManager,
		notifier:  notifier,
		sync:      syncUsecase,
		metrics:   m,
		validate:  validator.New(),
		now:       time.Now,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (s *annotationService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.Logger(ctx, s.logger)
}

// Annotate validates the input, then overwrites the sample and enqueues its delivery
// in one transaction. Nothing is attempted remotely before the commit.
func (s *annotationService) Annotate(ctx context.Context, timestamp int64, input *usecase.AnnotationInput) (*entity.LocationSample, error) {
	annotation, err := s.validateInput(input)
	if err != nil {
		return nil, err
	}

	var sample *entity.LocationSample
	err = s.txManager.Execute(ctx, func(factory repository.RepositoryFactory) error {
		sampleRepo := factory.NewSampleRepository()

		var err error
		sample, err = sampleRepo.Get(ctx, timestamp)
		if err != nil {
			if errors.Is(err, repository.ErrSampleNotFound) {
				return domainerrors.ErrSampleNotFound.WithDetails(strconv.FormatInt(timestamp, 10))
			}

			return err
		}

		sample.Annotate(annotation)
		if err := sampleRepo.Put(ctx, sample); err != nil {
			return err
		}

		_, err = factory.NewOutboxRepository().Enqueue(ctx, timestamp, s.now())

		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.SamplesAnnotated.Inc()
	s.log(ctx).Info("Sample annotated",
		slog.Int64("timestamp", timestamp),
		slog.String("category", sample.Category),
		slog.Int("rating", sample.Rating),
	)
	publishEvent(ctx, s.notifier, s.logger, &service.ChangeEvent{
		Type:      constants.EventSampleAnnotated,
		Timestamp: timestamp,
		Latitude:  sample.Latitude,
		Longitude: sample.Longitude,
	}, s.now())
	s.sync.Kick()

	return sample, nil
}

func (s *annotationService) validateInput(input *usecase.AnnotationInput) (entity.Annotation, error) {
	if input == nil {
		return entity.Annotation{}, domainerrors.ErrValidationFailed.WithDetails("annotation body is required")
	}

	if err := s.validate.Struct(input); err != nil {
		return entity.Annotation{}, domainerrors.ErrValidationFailed.WithDetails("rating must be between 0 and 5")
	}

	annotation := entity.Annotation{
		Name:     strings.TrimSpace(input.Name),
		Category: strings.TrimSpace(input.Category),
		Rating:   input.Rating,
		Note:     input.Note,
	}

	if annotation.Category != "" && len(s.cfg.Categories) > 0 && !slices.Contains(s.cfg.Categories, annotation.Category) {
		return entity.Annotation{}, domainerrors.ErrValidationFailed.WithDetails(
			"category must be one of: " + strings.Join(s.cfg.Categories, ", "))
	}
	if utf8.RuneCountInString(annotation.Name) > s.cfg.MaxNameLen {
		return entity.Annotation{}, domainerrors.ErrValidationFailed.WithDetails(
			"name exceeds " + strconv.Itoa(s.cfg.MaxNameLen) + " characters")
	}
	if utf8.RuneCountInString(annotation.Note) > s.cfg.MaxNoteLen {
		return entity.Annotation{}, domainerrors.ErrValidationFailed.WithDetails(
			"note exceeds " + strconv.Itoa(s.cfg.MaxNoteLen) + " characters")
	}

	return annotation, nil
}
