package impl

import (
	"context"
	"testing"
	"time"

	"fieldtrack/config"
	deliverycontext "fieldtrack/internal/delivery/context"
	"fieldtrack/internal/domain/constants"
	"fieldtrack/internal/domain/entity"
	domainerrors "fieldtrack/internal/domain/errors"
	"fieldtrack/internal/domain/service"
	"fieldtrack/internal/infra/position"
	mockSvc "fieldtrack/internal/mocks/service"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func createTestTrackingService(t *testing.T, f *fixture, source service.PositionSource, alerts service.NotificationService) (*trackingService, *testClock) {
	t.Helper()

	if source == nil {
		source = position.None{}
	}
	if alerts == nil {
		alerts = mockSvc.NewMockNotificationService(t)
	}
	clock := newTestClock(time.Millisecond)

	svc := newTrackingService(TrackingParams{
		Config:        f.cfg,
		Logger:        f.logger,
		Geofence:      f.fence,
		SampleRepo:    f.sampleRepo,
		TxManager:     f.txManager,
		Position:      source,
		Notifier:      f.notifier,
		Notifications: alerts,
		Metrics:       f.metrics,
	}, clock.Now)
	t.Cleanup(func() { svc.Stop(context.Background()) })

	return svc, clock
}

func TestTrackingService_StartStop(t *testing.T) {
	f := newFixture(t)
	svc, _ := createTestTrackingService(t, f, nil, nil)
	ctx := context.Background()

	assert.False(t, svc.Stop(ctx), "stopping an idle session is a no-op")

	started, err := svc.Start(ctx)
	require.NoError(t, err)
	assert.True(t, started)
	assert.True(t, svc.Status(ctx).Active)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.TrackingActive))

	started, err = svc.Start(ctx)
	require.NoError(t, err)
	assert.False(t, started, "second start is a no-op")

	assert.True(t, svc.Stop(ctx))
	assert.False(t, svc.Stop(ctx), "stop is idempotent")
	assert.False(t, svc.Status(ctx).Active)
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.TrackingActive))

	assert.Equal(t, []string{constants.EventTrackingStarted, constants.EventTrackingStopped}, f.notifier.types())
}

func TestTrackingService_LoopTicksOnInterval(t *testing.T) {
	f := newFixture(t)
	f.cfg.Tracking.Interval = 10 * time.Millisecond
	svc, _ := createTestTrackingService(t, f, position.Static{Latitude: 29.0, Longitude: -97.0}, nil)
	ctx := deliverycontext.WithRequestID(context.Background(), "req-start")

	_, err := svc.Start(ctx)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return svc.Status(context.Background()).SamplesAdmitted > 0
	}, 5*time.Second, 5*time.Millisecond)
	assert.True(t, svc.Stop(context.Background()))

	stored, err := f.sampleRepo.List(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, stored)
	assert.Equal(t, 29.0, stored[0].Latitude)
	assert.Equal(t, -97.0, stored[0].Longitude)

	started := f.notifier.last(constants.EventTrackingStarted)
	require.NotNil(t, started)
	assert.Equal(t, "req-start", started.RequestID)

	admitted := f.notifier.last(constants.EventSampleAdmitted)
	require.NotNil(t, admitted)
	assert.Empty(t, admitted.RequestID, "ticks do not inherit the starting request")
}

func TestTrackingService_StopBeforeTickAdmitsNothing(t *testing.T) {
	f := newFixture(t)
	svc, _ := createTestTrackingService(t, f, nil, nil)
	ctx := context.Background()

	_, err := svc.Start(ctx)
	require.NoError(t, err)
	svc.Stop(ctx)

	_, err = svc.Tick(ctx)
	assert.True(t, errors.Is(err, domainerrors.ErrTrackingStopped))

	samples, err := f.sampleRepo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestTrackingService_TickWithoutSession(t *testing.T) {
	f := newFixture(t)
	svc, _ := createTestTrackingService(t, f, nil, nil)

	_, err := svc.Tick(context.Background())
	assert.True(t, errors.Is(err, domainerrors.ErrTrackingStopped))
}

func TestTrackingService_TickAdmitsDriftedFixes(t *testing.T) {
	f := newFixture(t)
	svc, _ := createTestTrackingService(t, f, nil, nil)
	ctx := context.Background()

	_, err := svc.Start(ctx)
	require.NoError(t, err)

	first, err := svc.Tick(ctx)
	require.NoError(t, err)
	assert.True(t, first.FirstFix)
	// Drift starts at zero, so the first fix is the base position.
	assert.Equal(t, f.cfg.Tracking.BaseLatitude, first.Sample.Latitude)
	assert.Equal(t, f.cfg.Tracking.BaseLongitude, first.Sample.Longitude)
	assert.Equal(t, int64(1), first.Sample.ObjectID)

	second, err := svc.Tick(ctx)
	require.NoError(t, err)
	assert.False(t, second.FirstFix)
	assert.Equal(t, int64(2), second.Sample.ObjectID)
	assert.Greater(t, second.Sample.Timestamp, first.Sample.Timestamp)

	dLat := second.Sample.Latitude - first.Sample.Latitude
	dLon := second.Sample.Longitude - first.Sample.Longitude
	assert.GreaterOrEqual(t, dLat, f.cfg.Tracking.LatJitterMin)
	assert.Less(t, dLat, f.cfg.Tracking.LatJitterMax)
	assert.GreaterOrEqual(t, dLon, f.cfg.Tracking.LonJitterMin)
	assert.Less(t, dLon, f.cfg.Tracking.LonJitterMax)

	status := svc.Status(ctx)
	assert.Equal(t, 2, status.SamplesAdmitted)
	require.NotNil(t, status.LastSample)
	assert.Equal(t, second.Sample.Timestamp, *status.LastSample)

	stored, err := f.sampleRepo.List(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Empty(t, stored[0].Category)
	assert.Equal(t, 0, stored[0].Rating)

	admitted := f.notifier.last(constants.EventSampleAdmitted)
	require.NotNil(t, admitted)
	assert.Equal(t, second.Sample.Timestamp, admitted.Timestamp)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.SamplesAdmitted))
}

func TestTrackingService_LiveFixUsedWithoutSimulation(t *testing.T) {
	f := newFixture(t)
	source := mockSvc.NewMockPositionSource(t)
	source.EXPECT().Current(mock.Anything).Return(29.0, -97.0, nil)
	svc, _ := createTestTrackingService(t, f, source, nil)
	ctx := context.Background()

	_, err := svc.Start(ctx)
	require.NoError(t, err)

	for range 3 {
		result, err := svc.Tick(ctx)
		require.NoError(t, err)
		assert.Equal(t, 29.0, result.Sample.Latitude)
		assert.Equal(t, -97.0, result.Sample.Longitude)
	}
}

func TestTrackingService_ViolationStopsSession(t *testing.T) {
	f := newFixture(t)
	f.cfg.Firebase = &config.FirebaseConfig{DeviceTokens: []string{"device-1"}}

	source := mockSvc.NewMockPositionSource(t)
	source.EXPECT().Current(mock.Anything).Return(29.0, -70.0, nil)
	alerts := mockSvc.NewMockNotificationService(t)
	alerts.EXPECT().
		SendBatchNotification(mock.Anything, []string{"device-1"}, violationAlertTitle, violationAlertBody, mock.Anything).
		Return(1, 0, nil, nil)

	svc, _ := createTestTrackingService(t, f, source, alerts)
	ctx := context.Background()

	_, err := svc.Start(ctx)
	require.NoError(t, err)

	_, err = svc.Tick(ctx)
	var violation *domainerrors.GeofenceViolation
	require.True(t, errors.As(err, &violation))
	assert.Equal(t, 29.0, violation.Latitude)
	assert.Equal(t, -70.0, violation.Longitude)

	status := svc.Status(ctx)
	assert.False(t, status.Active)
	require.NotNil(t, status.LastViolation)
	assert.Equal(t, entity.Position{Latitude: 29.0, Longitude: -70.0}, *status.LastViolation)

	samples, err := f.sampleRepo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, samples, "violating fixes are never persisted")

	assert.Contains(t, f.notifier.types(), constants.EventGeofenceViolation)
	assert.Contains(t, f.notifier.types(), constants.EventTrackingStopped)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.GeofenceViolations))

	assert.False(t, svc.Stop(ctx), "session already stopped by the violation")
}

func TestTrackingService_StaleTickAdmitsNothing(t *testing.T) {
	f := newFixture(t)
	source := mockSvc.NewMockPositionSource(t)
	ctx := context.Background()

	var svc *trackingService
	source.EXPECT().Current(mock.Anything).RunAndReturn(func(context.Context) (float64, float64, error) {
		// The session is stopped while the fix is being acquired.
		svc.Stop(ctx)

		return 29.0, -97.0, nil
	})
	svc, _ = createTestTrackingService(t, f, source, nil)

	_, err := svc.Start(ctx)
	require.NoError(t, err)

	_, err = svc.Tick(ctx)
	assert.True(t, errors.Is(err, domainerrors.ErrTrackingStopped))

	samples, err := f.sampleRepo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestTrackingService_RestartResetsSession(t *testing.T) {
	f := newFixture(t)
	svc, _ := createTestTrackingService(t, f, nil, nil)
	ctx := context.Background()

	_, err := svc.Start(ctx)
	require.NoError(t, err)
	_, err = svc.Tick(ctx)
	require.NoError(t, err)
	_, err = svc.Tick(ctx)
	require.NoError(t, err)
	svc.Stop(ctx)

	_, err = svc.Start(ctx)
	require.NoError(t, err)
	status := svc.Status(ctx)
	assert.Zero(t, status.DriftLatitude)
	assert.Zero(t, status.DriftLongitude)
	assert.Zero(t, status.SamplesAdmitted)

	result, err := svc.Tick(ctx)
	require.NoError(t, err)
	assert.True(t, result.FirstFix)
	assert.Equal(t, int64(3), result.Sample.ObjectID, "object ids keep increasing across sessions")
}

func TestTrackingService_Admit(t *testing.T) {
	f := newFixture(t)
	f.seedSample(t, 1_600_000_000_000, 41, 29.0, -97.0, entity.Annotation{Category: "Monument"})
	svc, _ := createTestTrackingService(t, f, nil, nil)
	ctx := context.Background()

	t.Run("inside without a session", func(t *testing.T) {
		result, err := svc.Admit(ctx, 28.0, -97.0)
		require.NoError(t, err)
		assert.False(t, result.FirstFix)
		assert.Equal(t, int64(42), result.Sample.ObjectID, "counter is seeded from the store")
	})

	t.Run("invalid coordinate", func(t *testing.T) {
		_, err := svc.Admit(ctx, 95.0, -97.0)
		assert.True(t, errors.Is(err, domainerrors.ErrInvalidCoordinate))
	})

	t.Run("outside stops the running session", func(t *testing.T) {
		_, err := svc.Start(ctx)
		require.NoError(t, err)

		_, err = svc.Admit(ctx, 29.0, -70.0)
		var violation *domainerrors.GeofenceViolation
		require.True(t, errors.As(err, &violation))
		assert.False(t, svc.Status(ctx).Active)
	})
}

func TestTrackingService_Reconcile(t *testing.T) {
	f := newFixture(t)
	f.seedSample(t, 1, 1, 29.0, -97.0, entity.Annotation{})
	f.seedSample(t, 2, 2, 29.0, -97.0, entity.Annotation{Name: "Bob", Category: "Restaraunt", Rating: 4})
	f.seedSample(t, 3, 3, 29.0, -97.0, entity.Annotation{Name: "only a name"})
	f.seedSample(t, 4, 4, 29.0, -97.0, entity.Annotation{Category: "Monument"})
	svc, _ := createTestTrackingService(t, f, nil, nil)
	ctx := context.Background()

	survivors, err := svc.Reconcile(ctx)
	require.NoError(t, err)
	require.Len(t, survivors, 2)
	assert.Equal(t, int64(2), survivors[0].Timestamp)
	assert.Equal(t, int64(4), survivors[1].Timestamp)

	stored, err := f.sampleRepo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	event := f.notifier.last(constants.EventSamplesReconciled)
	require.NotNil(t, event)
	assert.Equal(t, 2, event.Count)
}
