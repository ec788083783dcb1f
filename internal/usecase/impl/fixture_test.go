package impl

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"fieldtrack/config"
	"fieldtrack/internal/domain/entity"
	"fieldtrack/internal/domain/geofence"
	"fieldtrack/internal/domain/repository"
	"fieldtrack/internal/domain/service"
	"fieldtrack/internal/infra/metrics"
	"fieldtrack/internal/infra/persistence/gormstore"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testClock returns a fixed time that tests advance explicitly. With step set,
// every read also moves it forward so consecutive admissions get distinct timestamps.
type testClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func newTestClock(step time.Duration) *testClock {
	return &testClock{t: time.UnixMilli(1_700_000_000_000), step: step}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.t = c.t.Add(c.step)

	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []*service.ChangeEvent
}

func (r *recordingNotifier) Publish(_ context.Context, event *service.ChangeEvent) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()

	return nil
}

func (r *recordingNotifier) Close() error { return nil }

func (r *recordingNotifier) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	types := make([]string, 0, len(r.events))
	for _, e := range r.events {
		types = append(types, e.Type)
	}

	return types
}

func (r *recordingNotifier) last(eventType string) *service.ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == eventType {
			return r.events[i]
		}
	}

	return nil
}

type fixture struct {
	cfg        *config.Config
	logger     *slog.Logger
	db         *gorm.DB
	sampleRepo repository.SampleRepository
	outboxRepo repository.OutboxRepository
	txManager  repository.TransactionManager
	fence      *geofence.Evaluator
	metrics    *metrics.Metrics
	notifier   *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := &config.Config{}
	cfg.ApplyDefaults()
	cfg.Tracking.Interval = time.Hour
	cfg.Tracking.Seed = 42
	cfg.Annotation.Categories = []string{"Restaraunt", "Monument"}

	db, err := gormstore.OpenSQLite(filepath.Join(t.TempDir(), "fieldtrack.db"), time.Second)
	require.NoError(t, err)
	db = db.Session(&gorm.Session{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, gormstore.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	fence, err := geofence.FromCoordinates(config.DefaultGeofenceRing())
	require.NoError(t, err)

	gate := gormstore.NewWriteGate()

	return &fixture{
		cfg:        cfg,
		logger:     slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug})),
		db:         db,
		sampleRepo: gormstore.NewSampleRepository(db, gate),
		outboxRepo: gormstore.NewOutboxRepository(db, gate),
		txManager:  gormstore.NewTransactionManager(db, gate),
		fence:      fence,
		metrics:    metrics.New(),
		notifier:   &recordingNotifier{},
	}
}

// seedSample stores a sample directly, bypassing the geofence.
func (f *fixture) seedSample(t *testing.T, timestamp, objectID int64, lat, lon float64, a entity.Annotation) *entity.LocationSample {
	t.Helper()

	sample := entity.NewLocationSample(timestamp, objectID, lat, lon)
	sample.Annotate(a)
	require.NoError(t, f.sampleRepo.Create(context.Background(), sample))

	return sample
}
