package impl

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"fieldtrack/config"
	"fieldtrack/internal/domain/constants"
	"fieldtrack/internal/domain/entity"
	domainerrors "fieldtrack/internal/domain/errors"
	"fieldtrack/internal/domain/geofence"
	"fieldtrack/internal/domain/repository"
	"fieldtrack/internal/domain/service"
	"fieldtrack/internal/infra/metrics"
	"fieldtrack/internal/usecase"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

const (
	violationAlertTitle = "Geofence violation"
	violationAlertBody  = "You have moved out of the allowed area!"
	alertTimeout        = 10 * time.Second
)

// session is the mutable state of one tracking run. generation changes on every
// start and stop so an in-flight tick can tell it has been superseded.
type session struct {
	active        bool
	generation    uint64
	cancel        context.CancelFunc
	done          chan struct{}
	driftLat      float64
	driftLon      float64
	firstFix      bool
	startedAt     time.Time
	admitted      int
	lastSample    *int64
	lastViolation *entity.Position
}

// TrackingParams declares the dependencies of the tracking service
type TrackingParams struct {
	fx.In

	Config        *config.Config
	Logger        *slog.Logger
	Geofence      *geofence.Evaluator
	SampleRepo    repository.SampleRepository
	TxManager     repository.TransactionManager
	Position      service.PositionSource
	Notifier      service.ChangeNotifier
	Notifications service.NotificationService
	Metrics       *metrics.Metrics
}

type trackingService struct {
	cfg         *config.TrackingConfig
	alertTokens []string
	logger      *slog.Logger
	fence       *geofence.Evaluator
	sampleRepo  repository.SampleRepository
	txManager   repository.TransactionManager
	position    service.PositionSource
	notifier    service.ChangeNotifier
	alerts      service.NotificationService
	metrics     *metrics.Metrics
	now         func() time.Time

	mu         sync.Mutex
	session    session
	rng        *rand.Rand
	nextObject int64
	seeded     bool
}

// NewTrackingService creates the tracking service. The session starts idle.
func NewTrackingService(p TrackingParams) usecase.TrackingUsecase {
	return newTrackingService(p, time.Now)
}

func newTrackingService(p TrackingParams, now func() time.Time) *trackingService {
	seed := p.Config.Tracking.Seed
	if seed == 0 {
		seed = uint64(now().UnixNano())
	}

	var alertTokens []string
	if p.Config.Firebase != nil {
		alertTokens = p.Config.Firebase.DeviceTokens
	}

	return &trackingService{
		cfg:         p.Config.Tracking,
		alertTokens: alertTokens,
		logger:      p.Logger,
		fence:       p.Geofence,
		sampleRepo:  p.SampleRepo,
		txManager:   p.TxManager,
		position:    p.Position,
		notifier:    p.Notifier,
		alerts:      p.Notifications,
		metrics:     p.Metrics,
		now:         now,
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Start activates the session and launches the tick loop.
func (s *trackingService) Start(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.session.active {
		s.mu.Unlock()

		return false, nil
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s.session = session{
		active:     true,
		generation: s.session.generation + 1,
		cancel:     cancel,
		done:       make(chan struct{}),
		firstFix:   true,
		startedAt:  s.now(),
	}
	generation, done := s.session.generation, s.session.done
	s.mu.Unlock()

	s.metrics.TrackingActive.Set(1)
	s.logger.Info("Tracking started",
		slog.Uint64("generation", generation),
		slog.Duration("interval", s.cfg.Interval),
	)
	s.publish(ctx, &service.ChangeEvent{Type: constants.EventTrackingStarted})

	go s.loop(loopCtx, done)

	return true, nil
}

// loop ticks on the configured interval until its context is cancelled or a
// violation stops the session.
func (s *trackingService) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, err := s.Tick(ctx)
			switch {
			case err == nil:
			case errors.Is(err, domainerrors.ErrTrackingStopped):
				return
			default:
				var violation *domainerrors.GeofenceViolation
				if errors.As(err, &violation) {
					return
				}
				s.logger.Warn("Tracking tick failed", slog.Any("error", err))
			}
		}
	}
}

// Stop deactivates the session and waits for the loop to exit.
func (s *trackingService) Stop(ctx context.Context) bool {
	s.mu.Lock()
	done, stopped := s.stopLocked()
	s.mu.Unlock()

	if !stopped {
		return false
	}

	s.afterStop(ctx, "requested")

	select {
	case <-done:
	case <-ctx.Done():
	}

	return true
}

// stopLocked flips the session to idle. Callers hold s.mu.
func (s *trackingService) stopLocked() (chan struct{}, bool) {
	if !s.session.active {
		return nil, false
	}

	s.session.active = false
	s.session.generation++
	s.session.cancel()

	return s.session.done, true
}

func (s *trackingService) afterStop(ctx context.Context, reason string) {
	s.metrics.TrackingActive.Set(0)
	s.logger.Info("Tracking stopped", slog.String("reason", reason))
	s.publish(ctx, &service.ChangeEvent{Type: constants.EventTrackingStopped, Reason: reason})
}

// Status returns a snapshot of the session.
func (s *trackingService) Status(_ context.Context) *entity.TrackingStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := &entity.TrackingStatus{
		Active:          s.session.active,
		DriftLatitude:   s.session.driftLat,
		DriftLongitude:  s.session.driftLon,
		SamplesAdmitted: s.session.admitted,
		LastViolation:   s.session.lastViolation,
	}
	if !s.session.startedAt.IsZero() {
		startedAt := s.session.startedAt
		status.StartedAt = &startedAt
	}
	if s.session.lastSample != nil {
		last := *s.session.lastSample
		status.LastSample = &last
	}

	return status
}

// Tick acquires one fix for the active session and gates it.
func (s *trackingService) Tick(ctx context.Context) (*entity.TickResult, error) {
	started := s.now()
	defer func() {
		s.metrics.TickDurationMs.Observe(float64(s.now().Sub(started).Milliseconds()))
	}()

	s.mu.Lock()
	if !s.session.active {
		s.mu.Unlock()

		return nil, domainerrors.ErrTrackingStopped
	}
	generation := s.session.generation
	s.mu.Unlock()

	lat, lon, err := s.acquire(ctx, generation)
	if err != nil {
		return nil, err
	}

	return s.gate(ctx, lat, lon, &generation)
}

// Admit gates a manually supplied fix. It does not need an active session, but a
// violation stops one that is running.
func (s *trackingService) Admit(ctx context.Context, lat, lon float64) (*entity.TickResult, error) {
	if !geofence.ValidCoordinate(lat, lon) {
		s.metrics.SamplesRejected.WithLabelValues("invalid_coordinate").Inc()

		return nil, domainerrors.ErrInvalidCoordinate
	}

	return s.gate(ctx, lat, lon, nil)
}

// acquire returns the fix for this tick. A live fix is used as is unless simulation
// is on; otherwise the cumulative drift is applied to the live or base position and
// then advanced.
func (s *trackingService) acquire(ctx context.Context, generation uint64) (float64, float64, error) {
	lat, lon, err := s.position.Current(ctx)
	live := err == nil
	if err != nil && !errors.Is(err, service.ErrPositionUnavailable) {
		s.logger.Warn("Position source failed, using base position", slog.Any("error", err))
	}
	if live && !s.cfg.Simulate {
		return lat, lon, nil
	}
	if !live {
		lat, lon = s.cfg.BaseLatitude, s.cfg.BaseLongitude
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.session.active || s.session.generation != generation {
		return 0, 0, domainerrors.ErrTrackingStopped
	}

	lat += s.session.driftLat
	lon += s.session.driftLon
	s.session.driftLat += s.uniform(s.cfg.LatJitterMin, s.cfg.LatJitterMax)
	s.session.driftLon += s.uniform(s.cfg.LonJitterMin, s.cfg.LonJitterMax)

	return lat, lon, nil
}

// uniform draws from [lo, hi). Callers hold s.mu.
func (s *trackingService) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

// gate admits a contained fix or handles a violation. With a non-nil generation
// the admission only happens if that session generation is still current.
func (s *trackingService) gate(ctx context.Context, lat, lon float64, generation *uint64) (*entity.TickResult, error) {
	if !s.fence.Contains(lat, lon) {
		return nil, s.violation(ctx, lat, lon, generation)
	}

	result, err := s.admit(ctx, lat, lon, generation)
	if err != nil {
		return nil, err
	}

	s.metrics.SamplesAdmitted.Inc()
	s.logger.Debug("Sample admitted",
		slog.Int64("timestamp", result.Sample.Timestamp),
		slog.Int64("object_id", result.Sample.ObjectID),
		slog.Float64("latitude", lat),
		slog.Float64("longitude", lon),
		slog.Bool("first_fix", result.FirstFix),
	)
	s.publish(ctx, &service.ChangeEvent{
		Type:      constants.EventSampleAdmitted,
		Timestamp: result.Sample.Timestamp,
		Latitude:  lat,
		Longitude: lon,
		FirstFix:  result.FirstFix,
	})

	return result, nil
}

// admit persists the sample while holding the session lock, so a stop that
// happens first always wins.
func (s *trackingService) admit(ctx context.Context, lat, lon float64, generation *uint64) (*entity.TickResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != nil && (!s.session.active || s.session.generation != *generation) {
		s.metrics.SamplesRejected.WithLabelValues("stale_tick").Inc()

		return nil, domainerrors.ErrTrackingStopped
	}

	objectID, err := s.nextObjectIDLocked(ctx)
	if err != nil {
		return nil, err
	}

	sample := entity.NewLocationSample(s.now().UnixMilli(), objectID, lat, lon)
	if err := s.sampleRepo.Create(ctx, sample); err != nil {
		if errors.Is(err, repository.ErrSampleAlreadyExists) {
			s.metrics.SamplesRejected.WithLabelValues("duplicate_timestamp").Inc()

			return nil, domainerrors.ErrSampleAlreadyExists.WithDetails(strconv.FormatInt(sample.Timestamp, 10))
		}

		return nil, err
	}

	result := &entity.TickResult{Sample: sample}
	if s.session.active {
		result.FirstFix = s.session.firstFix
		s.session.firstFix = false
		s.session.admitted++
		ts := sample.Timestamp
		s.session.lastSample = &ts
	}

	return result, nil
}

// nextObjectIDLocked hands out the next object id, seeding the counter from the
// store on first use so ids stay unique across restarts. Callers hold s.mu.
func (s *trackingService) nextObjectIDLocked(ctx context.Context) (int64, error) {
	if !s.seeded {
		maxID, err := s.sampleRepo.MaxObjectID(ctx)
		if err != nil {
			return 0, err
		}
		s.nextObject = maxID + 1
		s.seeded = true
	}

	id := s.nextObject
	s.nextObject++

	return id, nil
}

// violation stops the matching session, records the offending fix and raises alerts.
func (s *trackingService) violation(ctx context.Context, lat, lon float64, generation *uint64) error {
	s.mu.Lock()
	stale := generation != nil && (!s.session.active || s.session.generation != *generation)
	if stale {
		s.mu.Unlock()

		return domainerrors.ErrTrackingStopped
	}

	s.session.lastViolation = &entity.Position{Latitude: lat, Longitude: lon}
	_, stopped := s.stopLocked()
	s.mu.Unlock()

	s.metrics.GeofenceViolations.Inc()
	s.logger.Warn("Fix outside geofence",
		slog.Float64("latitude", lat),
		slog.Float64("longitude", lon),
		slog.Bool("session_stopped", stopped),
	)
	s.publish(ctx, &service.ChangeEvent{
		Type:      constants.EventGeofenceViolation,
		Latitude:  lat,
		Longitude: lon,
	})
	if stopped {
		s.afterStop(ctx, "geofence_violation")
	}
	s.alert(ctx, lat, lon)

	return domainerrors.NewGeofenceViolation(lat, lon)
}

func (s *trackingService) alert(ctx context.Context, lat, lon float64) {
	if len(s.alertTokens) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertTimeout)
	defer cancel()

	data := map[string]string{
		"type":      constants.EventGeofenceViolation,
		"latitude":  strconv.FormatFloat(lat, 'f', 6, 64),
		"longitude": strconv.FormatFloat(lon, 'f', 6, 64),
	}
	success, failure, invalid, err := s.alerts.SendBatchNotification(ctx, s.alertTokens, violationAlertTitle, violationAlertBody, data)
	if err != nil {
		s.logger.Error("Failed to send geofence alert", slog.Any("error", err))

		return
	}
	s.logger.Info("Geofence alert sent",
		slog.Int("success", success),
		slog.Int("failure", failure),
		slog.Int("invalid_tokens", len(invalid)),
	)
}

// Reconcile removes unannotated samples in one transaction and returns the rest.
func (s *trackingService) Reconcile(ctx context.Context) ([]*entity.LocationSample, error) {
	var (
		deleted   int64
		survivors []*entity.LocationSample
	)

	err := s.txManager.Execute(ctx, func(factory repository.RepositoryFactory) error {
		repo := factory.NewSampleRepository()

		var err error
		if deleted, err = repo.DeleteUnannotated(ctx); err != nil {
			return err
		}
		survivors, err = repo.List(ctx)

		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.SamplesReconciled.Add(float64(deleted))
	s.logger.Warn("Reconcile removed unannotated samples",
		slog.Int64("deleted", deleted),
		slog.Int("remaining", len(survivors)),
	)
	s.publish(ctx, &service.ChangeEvent{Type: constants.EventSamplesReconciled, Count: int(deleted)})

	return survivors, nil
}

func (s *trackingService) publish(ctx context.Context, event *service.ChangeEvent) {
	publishEvent(ctx, s.notifier, s.logger, event, s.now())
}
