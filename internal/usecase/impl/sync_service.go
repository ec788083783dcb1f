package impl

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"fieldtrack/config"
	"fieldtrack/internal/domain/constants"
	"fieldtrack/internal/domain/entity"
	"fieldtrack/internal/domain/repository"
	"fieldtrack/internal/domain/service"
	"fieldtrack/internal/infra/metrics"
	"fieldtrack/internal/usecase"
	"fieldtrack/internal/util"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

const abandonedReason = "sample no longer exists"

// SyncParams declares the dependencies of the sync service
type SyncParams struct {
	fx.In

	Config     *config.Config
	Logger     *slog.Logger
	SampleRepo repository.SampleRepository
	OutboxRepo repository.OutboxRepository
	TxManager  repository.TransactionManager
	Features   service.FeatureService
	Notifier   service.ChangeNotifier
	Metrics    *metrics.Metrics
}

type syncService struct {
	cfg        *config.OutboxConfig
	enabled    bool
	logger     *slog.Logger
	sampleRepo repository.SampleRepository
	outboxRepo repository.OutboxRepository
	txManager  repository.TransactionManager
	features   service.FeatureService
	notifier   service.ChangeNotifier
	metrics    *metrics.Metrics
	now        func() time.Time

	kick       chan struct{}
	dispatchMu sync.Mutex
}

// NewSyncService creates the outbox dispatcher
func NewSyncService(p SyncParams) usecase.SyncUsecase {
	return newSyncService(p, time.Now)
}

func newSyncService(p SyncParams, now func() time.Time) *syncService {
	return &syncService{
		cfg:        p.Config.Outbox,
		enabled:    p.Config.FeatureService.Enabled,
		logger:     p.Logger,
		sampleRepo: p.SampleRepo,
		outboxRepo: p.OutboxRepo,
		txManager:  p.TxManager,
		features:   p.Features,
		notifier:   p.Notifier,
		metrics:    p.Metrics,
		now:        now,
		kick:       make(chan struct{}, 1),
	}
}

// Kick requests a dispatch pass. Requests made while one is already queued coalesce.
func (s *syncService) Kick() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Run dispatches once at startup, then on every poll interval and kick.
func (s *syncService) Run(ctx context.Context) error {
	if !s.enabled {
		s.logger.Info("Sync dispatcher idle, feature service disabled")

		return nil
	}

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-s.kick:
		}
		s.runOnce(ctx)
	}
}

func (s *syncService) runOnce(ctx context.Context) {
	report, err := s.DispatchDue(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("Outbox dispatch failed", slog.Any("error", err))
		}

		return
	}
	if report.Dispatched > 0 {
		s.logger.Info("Outbox dispatch finished",
			slog.Int("dispatched", report.Dispatched),
			slog.Int("delivered", report.Delivered),
			slog.Int("retried", report.Retried),
			slog.Int("failed", report.Failed),
			slog.Int("abandoned", report.Abandoned),
		)
	}
}

// DispatchDue attempts every due entry once. Passes never overlap.
func (s *syncService) DispatchDue(ctx context.Context) (*usecase.SyncReport, error) {
	report := &usecase.SyncReport{}
	if !s.enabled {
		return report, nil
	}

	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	entries, err := s.outboxRepo.FindDue(ctx, s.now(), s.cfg.BatchSize)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Dispatched++
		if err := s.deliver(ctx, entry, report); err != nil {
			return report, err
		}
	}

	s.refreshBacklog(ctx)

	return report, nil
}

// deliver makes one attempt for an entry and books its outcome. Only local
// storage failures are returned; remote failures are recorded on the entry.
func (s *syncService) deliver(ctx context.Context, entry *entity.OutboxEntry, report *usecase.SyncReport) error {
	logger := s.logger.With(slog.String("entry_id", entry.ID.String()), slog.Int64("timestamp", entry.SampleTimestamp))

	sample, err := s.sampleRepo.Get(ctx, entry.SampleTimestamp)
	if err != nil {
		if !errors.Is(err, repository.ErrSampleNotFound) {
			return err
		}

		entry.MarkAbandoned(abandonedReason)
		if err := s.outboxRepo.Update(ctx, entry); err != nil {
			return err
		}
		report.Abandoned++
		s.metrics.SyncAttempts.WithLabelValues(metrics.SyncResultAbandoned).Inc()
		logger.Warn("Outbox entry abandoned", slog.String("reason", abandonedReason))

		return nil
	}

	started := s.now()
	result, err := s.features.AddFeature(ctx, &service.Feature{
		Latitude:  sample.Latitude,
		Longitude: sample.Longitude,
		Name:      sample.Name,
		Category:  sample.Category,
		Rating:    sample.Rating,
		Note:      sample.Note,
	})
	s.metrics.SyncDurationMs.Observe(float64(s.now().Sub(started).Milliseconds()))

	if err != nil {
		if ctx.Err() != nil {
			// Shutdown interrupted the attempt; it stays due.
			return ctx.Err()
		}

		backoff := util.ExponentialBackoff(s.cfg.BaseBackoff, s.cfg.MaxBackoff, entry.Attempts+1)
		booked, bookErr := s.recordFailure(ctx, entry, sample, err, backoff)
		if bookErr != nil {
			return bookErr
		}
		if !booked {
			logger.Info("Sample re-annotated during delivery, newer annotation stays queued", slog.Any("error", err))

			return nil
		}

		if entry.Status == entity.OutboxStatusFailed {
			report.Failed++
			s.metrics.SyncAttempts.WithLabelValues(metrics.SyncResultFailed).Inc()
			logger.Error("Outbox entry failed permanently",
				slog.Int("attempts", entry.Attempts),
				slog.Any("error", err),
			)

			return nil
		}

		report.Retried++
		s.metrics.SyncAttempts.WithLabelValues(metrics.SyncResultRetry).Inc()
		logger.Warn("Remote delivery failed, will retry",
			slog.Int("attempts", entry.Attempts),
			slog.String("backoff", util.FormatDuration(backoff)),
			slog.Time("next_attempt_at", entry.NextAttemptAt),
			slog.Any("error", err),
		)

		return nil
	}

	delivered, err := s.confirm(ctx, entry, sample, result.ObjectID)
	if err != nil {
		return err
	}
	if !delivered {
		logger.Info("Sample re-annotated during delivery, newer annotation stays queued")

		return nil
	}

	report.Delivered++
	s.metrics.SyncAttempts.WithLabelValues(metrics.SyncResultDelivered).Inc()
	logger.Info("Sample synced", slog.Int64("remote_object_id", result.ObjectID))
	publishEvent(ctx, s.notifier, s.logger, &service.ChangeEvent{
		Type:      constants.EventSampleSynced,
		Timestamp: sample.Timestamp,
		Latitude:  sample.Latitude,
		Longitude: sample.Longitude,
	}, s.now())

	return nil
}

// confirm books a successful remote write in one transaction. When the sample's
// annotation changed since it was submitted, the entry has already been reset for
// the newer annotation and nothing is booked.
func (s *syncService) confirm(ctx context.Context, entry *entity.OutboxEntry, submitted *entity.LocationSample, remoteObjectID int64) (bool, error) {
	delivered := false

	err := s.txManager.Execute(ctx, func(factory repository.RepositoryFactory) error {
		sampleRepo := factory.NewSampleRepository()
		now := s.now()

		current, err := sampleRepo.Get(ctx, entry.SampleTimestamp)
		switch {
		case errors.Is(err, repository.ErrSampleNotFound):
			current = nil
		case err != nil:
			return err
		}

		if current != nil {
			if annotationOf(current) != annotationOf(submitted) {
				return nil
			}
			current.MarkSynced(now)
			if err := sampleRepo.Put(ctx, current); err != nil {
				return err
			}
		}

		entry.MarkDelivered(remoteObjectID, now)
		if err := factory.NewOutboxRepository().Update(ctx, entry); err != nil {
			return err
		}
		delivered = true

		return nil
	})

	return delivered, err
}

// recordFailure books a failed attempt in one transaction. Nothing is booked when
// the entry or the sample's annotation changed while the attempt was in flight.
func (s *syncService) recordFailure(ctx context.Context, entry *entity.OutboxEntry, submitted *entity.LocationSample, cause error, backoff time.Duration) (bool, error) {
	booked := false

	err := s.txManager.Execute(ctx, func(factory repository.RepositoryFactory) error {
		outboxRepo := factory.NewOutboxRepository()

		current, err := outboxRepo.Get(ctx, entry.ID)
		switch {
		case errors.Is(err, repository.ErrOutboxEntryNotFound):
			return nil
		case err != nil:
			return err
		}
		if current.Status != entry.Status || current.Attempts != entry.Attempts || !current.UpdatedAt.Equal(entry.UpdatedAt) {
			return nil
		}

		sample, err := factory.NewSampleRepository().Get(ctx, entry.SampleTimestamp)
		switch {
		case errors.Is(err, repository.ErrSampleNotFound):
		case err != nil:
			return err
		case annotationOf(sample) != annotationOf(submitted):
			return nil
		}

		entry.RecordFailure(cause, s.now(), backoff, s.cfg.MaxAttempts)
		if err := outboxRepo.Update(ctx, entry); err != nil {
			return err
		}
		booked = true

		return nil
	})

	return booked, err
}

func annotationOf(sample *entity.LocationSample) entity.Annotation {
	return entity.Annotation{
		Name:     sample.Name,
		Category: sample.Category,
		Rating:   sample.Rating,
		Note:     sample.Note,
	}
}

func (s *syncService) refreshBacklog(ctx context.Context) {
	counts, err := s.outboxRepo.CountByStatus(ctx)
	if err != nil {
		s.logger.Warn("Failed to count outbox entries", slog.Any("error", err))

		return
	}

	for _, status := range []entity.OutboxStatus{
		entity.OutboxStatusPending,
		entity.OutboxStatusDelivered,
		entity.OutboxStatusFailed,
		entity.OutboxStatusAbandoned,
	} {
		s.metrics.OutboxEntries.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}

// Pending reports outbox counts per status.
func (s *syncService) Pending(ctx context.Context) (*usecase.SyncStatus, error) {
	counts, err := s.outboxRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	return &usecase.SyncStatus{Enabled: s.enabled, Counts: counts}, nil
}
