package impl

import (
	"context"
	"testing"
	"time"

	"fieldtrack/internal/domain/constants"
	"fieldtrack/internal/domain/entity"
	domainerrors "fieldtrack/internal/domain/errors"
	"fieldtrack/internal/domain/service"
	"fieldtrack/internal/infra/metrics"
	mockSvc "fieldtrack/internal/mocks/service"
	"fieldtrack/internal/usecase"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func createTestSyncService(t *testing.T, f *fixture, features service.FeatureService) (*syncService, *testClock) {
	t.Helper()

	clock := newTestClock(0)
	svc := newSyncService(SyncParams{
		Config:     f.cfg,
		Logger:     f.logger,
		SampleRepo: f.sampleRepo,
		OutboxRepo: f.outboxRepo,
		TxManager:  f.txManager,
		Features:   features,
		Notifier:   f.notifier,
		Metrics:    f.metrics,
	}, clock.Now)

	return svc, clock
}

func enabledSyncFixture(t *testing.T) (*fixture, *mockSvc.MockFeatureService) {
	t.Helper()

	f := newFixture(t)
	f.cfg.FeatureService.Enabled = true
	f.cfg.Outbox.BaseBackoff = 5 * time.Second
	f.cfg.Outbox.MaxBackoff = time.Minute
	f.cfg.Outbox.MaxAttempts = 3

	return f, mockSvc.NewMockFeatureService(t)
}

func TestSyncService_DispatchDelivers(t *testing.T) {
	f, features := enabledSyncFixture(t)
	f.seedSample(t, 100, 1, 29.0, -97.0, entity.Annotation{Name: "Bob", Category: "Restaraunt", Rating: 4, Note: "tacos"})
	svc, clock := createTestSyncService(t, f, features)
	ctx := context.Background()

	_, err := f.outboxRepo.Enqueue(ctx, 100, clock.Now())
	require.NoError(t, err)

	features.EXPECT().AddFeature(mock.Anything, &service.Feature{
		Latitude:  29.0,
		Longitude: -97.0,
		Name:      "Bob",
		Category:  "Restaraunt",
		Rating:    4,
		Note:      "tacos",
	}).Return(&service.FeatureResult{ObjectID: 99}, nil).Once()

	report, err := svc.DispatchDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, &usecase.SyncReport{Dispatched: 1, Delivered: 1}, report)

	sample, err := f.sampleRepo.Get(ctx, 100)
	require.NoError(t, err)
	assert.True(t, sample.Synced)
	assert.NotNil(t, sample.SyncedAt)

	status, err := svc.Pending(ctx)
	require.NoError(t, err)
	assert.True(t, status.Enabled)
	assert.Equal(t, 1, status.Counts[entity.OutboxStatusDelivered])
	assert.Zero(t, status.Counts[entity.OutboxStatusPending])

	event := f.notifier.last(constants.EventSampleSynced)
	require.NotNil(t, event)
	assert.Equal(t, int64(100), event.Timestamp)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SyncAttempts.WithLabelValues(metrics.SyncResultDelivered)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.OutboxEntries.WithLabelValues(string(entity.OutboxStatusDelivered))))

	report, err = svc.DispatchDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Dispatched, "delivered entries are not retried")
}

func TestSyncService_BackoffThenFailure(t *testing.T) {
	f, features := enabledSyncFixture(t)
	f.seedSample(t, 100, 1, 29.0, -97.0, entity.Annotation{Category: "Monument"})
	svc, clock := createTestSyncService(t, f, features)
	ctx := context.Background()

	_, err := f.outboxRepo.Enqueue(ctx, 100, clock.Now())
	require.NoError(t, err)

	features.EXPECT().AddFeature(mock.Anything, mock.Anything).
		Return(nil, domainerrors.NewRemoteSubmitError(503, "service unavailable", nil)).Times(3)

	report, err := svc.DispatchDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Retried)

	// Not due before the first backoff elapses.
	clock.Advance(4 * time.Second)
	report, err = svc.DispatchDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Dispatched)

	clock.Advance(time.Second)
	report, err = svc.DispatchDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Retried)

	entry, err := f.outboxRepo.FindPendingBySample(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, entry.Attempts)
	assert.Equal(t, clock.Now().Add(10*time.Second).UnixMilli(), entry.NextAttemptAt.UnixMilli(), "backoff doubles")
	assert.NotEmpty(t, entry.LastError)

	clock.Advance(10 * time.Second)
	report, err = svc.DispatchDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)

	status, err := svc.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Counts[entity.OutboxStatusFailed])

	sample, err := f.sampleRepo.Get(ctx, 100)
	require.NoError(t, err)
	assert.False(t, sample.Synced)
	assert.Equal(t, "Monument", sample.Category, "local annotation survives remote failure")

	clock.Advance(time.Hour)
	report, err = svc.DispatchDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Dispatched, "failed entries are not retried")
}

func TestSyncService_AbandonsDeletedSample(t *testing.T) {
	f, features := enabledSyncFixture(t)
	svc, clock := createTestSyncService(t, f, features)
	ctx := context.Background()

	_, err := f.outboxRepo.Enqueue(ctx, 404, clock.Now())
	require.NoError(t, err)

	report, err := svc.DispatchDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Abandoned)

	status, err := svc.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Counts[entity.OutboxStatusAbandoned])
}

func TestSyncService_Disabled(t *testing.T) {
	f := newFixture(t)
	f.seedSample(t, 100, 1, 29.0, -97.0, entity.Annotation{Category: "Monument"})
	features := mockSvc.NewMockFeatureService(t)
	svc, clock := createTestSyncService(t, f, features)
	ctx := context.Background()

	_, err := f.outboxRepo.Enqueue(ctx, 100, clock.Now())
	require.NoError(t, err)

	report, err := svc.DispatchDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Dispatched)
	require.NoError(t, svc.Run(ctx), "run returns at once when disabled")

	status, err := svc.Pending(ctx)
	require.NoError(t, err)
	assert.False(t, status.Enabled)
	assert.Equal(t, 1, status.Counts[entity.OutboxStatusPending], "entries wait for the service to be enabled")
}

func TestSyncService_ReannotatedDuringDelivery(t *testing.T) {
	f, features := enabledSyncFixture(t)
	f.seedSample(t, 100, 1, 29.0, -97.0, entity.Annotation{Category: "Monument", Rating: 2})
	svc, clock := createTestSyncService(t, f, features)
	annotations := createTestAnnotationService(t, f)
	ctx := context.Background()

	_, err := f.outboxRepo.Enqueue(ctx, 100, clock.Now())
	require.NoError(t, err)

	features.EXPECT().AddFeature(mock.Anything, mock.Anything).
		RunAndReturn(func(ctx context.Context, _ *service.Feature) (*service.FeatureResult, error) {
			_, err := annotations.Annotate(ctx, 100, &usecase.AnnotationInput{Category: "Monument", Rating: 5})
			require.NoError(t, err)

			return &service.FeatureResult{ObjectID: 7}, nil
		}).Once()

	report, err := svc.DispatchDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Dispatched)
	assert.Zero(t, report.Delivered)

	sample, err := f.sampleRepo.Get(ctx, 100)
	require.NoError(t, err)
	assert.False(t, sample.Synced, "the newer annotation is not confirmed yet")
	assert.Equal(t, 5, sample.Rating)

	entry, err := f.outboxRepo.FindPendingBySample(ctx, 100)
	require.NoError(t, err)
	assert.Zero(t, entry.Attempts)
}

func TestSyncService_RunDispatchesOnKick(t *testing.T) {
	f, features := enabledSyncFixture(t)
	f.cfg.Outbox.PollInterval = time.Hour
	f.seedSample(t, 100, 1, 29.0, -97.0, entity.Annotation{Category: "Monument"})
	svc, clock := createTestSyncService(t, f, features)

	features.EXPECT().AddFeature(mock.Anything, mock.Anything).
		Return(&service.FeatureResult{ObjectID: 1}, nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	_, err := f.outboxRepo.Enqueue(context.Background(), 100, clock.Now())
	require.NoError(t, err)
	svc.Kick()

	assert.Eventually(t, func() bool {
		status, err := svc.Pending(context.Background())

		return err == nil && status.Counts[entity.OutboxStatusDelivered] == 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

func TestSyncService_ReannotatedDuringFailedDelivery(t *testing.T) {
	f, features := enabledSyncFixture(t)
	f.cfg.Outbox.MaxAttempts = 1
	f.seedSample(t, 100, 1, 29.0, -97.0, entity.Annotation{Category: "Monument", Rating: 2})
	svc, clock := createTestSyncService(t, f, features)
	annotations := createTestAnnotationService(t, f)
	ctx := context.Background()

	_, err := f.outboxRepo.Enqueue(ctx, 100, clock.Now())
	require.NoError(t, err)

	features.EXPECT().AddFeature(mock.Anything, mock.Anything).
		RunAndReturn(func(ctx context.Context, _ *service.Feature) (*service.FeatureResult, error) {
			_, err := annotations.Annotate(ctx, 100, &usecase.AnnotationInput{Category: "Monument", Rating: 5})
			require.NoError(t, err)

			return nil, domainerrors.NewRemoteSubmitError(503, "service unavailable", nil)
		}).Once()

	report, err := svc.DispatchDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Dispatched)
	assert.Zero(t, report.Failed)
	assert.Zero(t, report.Retried)

	counts, err := f.outboxRepo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[entity.OutboxStatus]int{entity.OutboxStatusPending: 1}, counts)

	entry, err := f.outboxRepo.FindPendingBySample(ctx, 100)
	require.NoError(t, err)
	assert.Zero(t, entry.Attempts, "the newer annotation keeps a fresh attempt budget")
	assert.Empty(t, entry.LastError)
	assert.False(t, entry.NextAttemptAt.After(clock.Now()), "the newer annotation is due at once")
}
