package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fieldtrack/config"
	"fieldtrack/internal/delivery/api/middleware"
	"fieldtrack/internal/delivery/api/response"
	"fieldtrack/internal/delivery/api/router"
	"fieldtrack/internal/delivery/api/router/handler"
	"fieldtrack/internal/domain/entity"
	"fieldtrack/internal/domain/geofence"
	"fieldtrack/internal/domain/repository"
	"fieldtrack/internal/domain/service"
	"fieldtrack/internal/infra/arcgis"
	"fieldtrack/internal/infra/auth"
	"fieldtrack/internal/infra/metrics"
	"fieldtrack/internal/infra/notification"
	"fieldtrack/internal/infra/persistence/gormstore"
	"fieldtrack/internal/infra/position"
	"fieldtrack/internal/infra/pubsub"
	"fieldtrack/internal/infra/qrcode"
	"fieldtrack/internal/infra/tokencache"
	"fieldtrack/internal/usecase/impl"

	"github.com/labstack/echo/v4"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type envelope struct {
	Data  json.RawMessage   `json:"data"`
	Error *response.Problem `json:"error"`
	Meta  *response.Meta    `json:"meta"`
}

type testAPI struct {
	echo       *echo.Echo
	sampleRepo repository.SampleRepository
	tokens     service.TokenService
}

func newTestAPI(t *testing.T, configure func(cfg *config.Config)) *testAPI {
	t.Helper()

	cfg := &config.Config{}
	cfg.ApplyDefaults()
	cfg.Tracking.Interval = time.Hour
	cfg.Tracking.Seed = 7
	cfg.Annotation.Categories = []string{"Restaraunt", "Monument"}
	if configure != nil {
		configure(cfg)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := gormstore.OpenSQLite(filepath.Join(t.TempDir(), "api.db"), time.Second)
	require.NoError(t, err)
	db = db.Session(&gorm.Session{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, gormstore.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	gate := gormstore.NewWriteGate()
	sampleRepo := gormstore.NewSampleRepository(db, gate)
	outboxRepo := gormstore.NewOutboxRepository(db, gate)
	txManager := gormstore.NewTransactionManager(db, gate)

	fence, err := geofence.FromCoordinates(cfg.Geofence.Ring)
	require.NoError(t, err)

	m := metrics.New()
	notifier := pubsub.NewNoopNotifier(log)
	alerts, err := notification.NewNotificationService(context.Background(), cfg, log)
	require.NoError(t, err)
	features := arcgis.New(arcgis.Params{Config: cfg, Cache: tokencache.NewMemoryCache(), Logger: log})

	tracking := impl.NewTrackingService(impl.TrackingParams{
		Config:        cfg,
		Logger:        log,
		Geofence:      fence,
		SampleRepo:    sampleRepo,
		TxManager:     txManager,
		Position:      position.None{},
		Notifier:      notifier,
		Notifications: alerts,
		Metrics:       m,
	})
	t.Cleanup(func() { tracking.Stop(context.Background()) })

	syncUC := impl.NewSyncService(impl.SyncParams{
		Config:     cfg,
		Logger:     log,
		SampleRepo: sampleRepo,
		OutboxRepo: outboxRepo,
		TxManager:  txManager,
		Features:   features,
		Notifier:   notifier,
		Metrics:    m,
	})
	annotations := impl.NewAnnotationService(cfg, log, txManager, notifier, syncUC, m)
	queries := impl.NewQueryService(sampleRepo)

	var tokens service.TokenService
	if cfg.Auth.Enabled {
		tokens, err = auth.NewJWTService(cfg)
		require.NoError(t, err)
	}

	e := NewEcho(cfg, log, router.RouterParams{
		TrackingHandler: handler.NewTrackingHandler(handler.TrackingHandlerParams{TrackingUC: tracking, Logger: log}),
		SampleHandler: handler.NewSampleHandler(handler.SampleHandlerParams{
			QueryUC:      queries,
			AnnotationUC: annotations,
			QRCodeSvc:    qrcode.NewQRCodeService(cfg.QRCode.Size, cfg.QRCode.ErrorCorrectionLevel),
			Logger:       log,
		}),
		ReportHandler:  handler.NewReportHandler(handler.ReportHandlerParams{QueryUC: queries, TrackingUC: tracking, Geofence: fence}),
		SyncHandler:    handler.NewSyncHandler(syncUC),
		AuthMiddleware: middleware.NewAuthMiddleware(middleware.AuthMiddlewareParams{Config: cfg, TokenSvc: tokens}),
		Metrics:        m,
	})

	return &testAPI{echo: e, sampleRepo: sampleRepo, tokens: tokens}
}

func (a *testAPI) seed(t *testing.T, timestamp, objectID int64, lat, lon float64, annotation entity.Annotation) {
	t.Helper()

	sample := entity.NewLocationSample(timestamp, objectID, lat, lon)
	sample.Annotate(annotation)
	require.NoError(t, a.sampleRepo.Create(context.Background(), sample))
}

func (a *testAPI) do(t *testing.T, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range header {
		req.Header[k] = v
	}

	rec := httptest.NewRecorder()
	a.echo.ServeHTTP(rec, req)

	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) *envelope {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())

	return &env
}

func TestAPI_Health(t *testing.T) {
	a := newTestAPI(t, nil)

	rec := a.do(t, http.MethodGet, "/health", "", http.Header{"X-Request-Id": {"req-1"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-Id"))

	env := decode(t, rec)
	assert.JSONEq(t, `{"status":"ok"}`, string(env.Data))
	require.NotNil(t, env.Meta)
	assert.Equal(t, "req-1", env.Meta.RequestID)
}

func TestAPI_Metrics(t *testing.T) {
	a := newTestAPI(t, nil)

	rec := a.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fieldtrack_tracking_active")
}

func TestAPI_TrackingStartStop(t *testing.T) {
	a := newTestAPI(t, nil)

	rec := a.do(t, http.MethodPost, "/api/v1/tracking/start", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `true`, string(extract(t, decode(t, rec).Data, "changed")))

	rec = a.do(t, http.MethodPost, "/api/v1/tracking/start", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `false`, string(extract(t, decode(t, rec).Data, "changed")))

	rec = a.do(t, http.MethodGet, "/api/v1/tracking", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status entity.TrackingStatus
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &status))
	assert.True(t, status.Active)

	rec = a.do(t, http.MethodPost, "/api/v1/tracking/stop", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `true`, string(extract(t, decode(t, rec).Data, "changed")))

	rec = a.do(t, http.MethodPost, "/api/v1/tracking/stop", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `false`, string(extract(t, decode(t, rec).Data, "changed")))
}

func TestAPI_SubmitFix(t *testing.T) {
	a := newTestAPI(t, nil)

	t.Run("inside is admitted", func(t *testing.T) {
		rec := a.do(t, http.MethodPost, "/api/v1/tracking/fix", `{"latitude":29.0,"longitude":-97.0}`, nil)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var tick handler.TickResponse
		require.NoError(t, json.Unmarshal(decode(t, rec).Data, &tick))
		require.NotNil(t, tick.Sample)
		assert.Equal(t, 29.0, tick.Sample.Latitude)
		assert.Equal(t, -97.0, tick.Sample.Longitude)
		assert.Empty(t, tick.Sample.Category)

		_, err := a.sampleRepo.Get(context.Background(), tick.Sample.Timestamp)
		assert.NoError(t, err)
	})

	t.Run("outside is a violation", func(t *testing.T) {
		rec := a.do(t, http.MethodPost, "/api/v1/tracking/fix", `{"latitude":29.0,"longitude":-70.0}`, nil)
		require.Equal(t, http.StatusConflict, rec.Code)

		env := decode(t, rec)
		require.NotNil(t, env.Error)
		assert.Equal(t, "GEOFENCE_VIOLATION", env.Error.Code)
	})

	t.Run("missing longitude", func(t *testing.T) {
		rec := a.do(t, http.MethodPost, "/api/v1/tracking/fix", `{"latitude":29.0}`, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_FAILED", decode(t, rec).Error.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := a.do(t, http.MethodPost, "/api/v1/tracking/fix", `{"latitude":`, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_INPUT", decode(t, rec).Error.Code)
	})

	samples, err := a.sampleRepo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, samples, 1, "only the contained fix is stored")
}

func TestAPI_Annotate(t *testing.T) {
	a := newTestAPI(t, nil)
	a.seed(t, 1_700_000_000_000, 1, 29.0, -97.0, entity.Annotation{})

	tests := []struct {
		name     string
		path     string
		body     string
		wantCode int
		wantErr  string
	}{
		{
			name:     "annotates",
			path:     "/api/v1/samples/1700000000000/annotation",
			body:     `{"name":"Bob","category":"Restaraunt","rating":4,"note":"tacos"}`,
			wantCode: http.StatusOK,
		},
		{
			name:     "missing sample",
			path:     "/api/v1/samples/1700000000001/annotation",
			body:     `{"name":"Bob","category":"Restaraunt","rating":4}`,
			wantCode: http.StatusNotFound,
			wantErr:  "SAMPLE_NOT_FOUND",
		},
		{
			name:     "rating out of range",
			path:     "/api/v1/samples/1700000000000/annotation",
			body:     `{"category":"Monument","rating":9}`,
			wantCode: http.StatusBadRequest,
			wantErr:  "VALIDATION_FAILED",
		},
		{
			name:     "unknown category",
			path:     "/api/v1/samples/1700000000000/annotation",
			body:     `{"category":"Casino","rating":3}`,
			wantCode: http.StatusBadRequest,
			wantErr:  "VALIDATION_FAILED",
		},
		{
			name:     "bad timestamp",
			path:     "/api/v1/samples/yesterday/annotation",
			body:     `{"category":"Monument"}`,
			wantCode: http.StatusBadRequest,
			wantErr:  "INVALID_TIMESTAMP",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(t, http.MethodPut, tt.path, tt.body, nil)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			env := decode(t, rec)
			if tt.wantErr != "" {
				require.NotNil(t, env.Error)
				assert.Equal(t, tt.wantErr, env.Error.Code)

				return
			}
			assert.Nil(t, env.Error)
		})
	}

	rec := a.do(t, http.MethodGet, "/api/v1/samples/1700000000000", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sample handler.SampleResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &sample))
	assert.Equal(t, "Bob", sample.Name)
	assert.Equal(t, "Restaraunt", sample.Category)
	assert.Equal(t, 4, sample.Rating)
	assert.Equal(t, "tacos", sample.Note)
	assert.False(t, sample.Synced)

	_, err := a.sampleRepo.Get(context.Background(), 1_700_000_000_001)
	assert.ErrorIs(t, err, repository.ErrSampleNotFound, "annotating a missing key creates nothing")
}

func TestAPI_ListAndReports(t *testing.T) {
	a := newTestAPI(t, nil)
	a.seed(t, 1, 1, 29.00, -97.00, entity.Annotation{})
	a.seed(t, 2, 2, 29.01, -97.00, entity.Annotation{Name: "Bob", Category: "Restaraunt", Rating: 4})
	a.seed(t, 3, 3, 29.02, -97.01, entity.Annotation{Name: "Alamo", Category: "Monument", Rating: 4})
	a.seed(t, 4, 4, 29.03, -97.02, entity.Annotation{Name: "Diner", Category: "Restaraunt", Rating: 3})
	a.seed(t, 5, 5, 29.04, -97.02, entity.Annotation{Name: "Bob", Category: "Monument", Rating: 4})
	a.seed(t, 6, 6, 29.05, -97.03, entity.Annotation{})

	timestamps := func(t *testing.T, rec *httptest.ResponseRecorder) []int64 {
		t.Helper()
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var samples []handler.SampleResponse
		require.NoError(t, json.Unmarshal(decode(t, rec).Data, &samples))

		out := make([]int64, 0, len(samples))
		for _, s := range samples {
			out = append(out, s.Timestamp)
		}

		return out
	}

	t.Run("list", func(t *testing.T) {
		assert.Equal(t, []int64{1, 2, 3, 4, 5, 6}, timestamps(t, a.do(t, http.MethodGet, "/api/v1/samples", "", nil)))
		assert.ElementsMatch(t, []int64{2, 4},
			timestamps(t, a.do(t, http.MethodGet, "/api/v1/samples?category=Restaraunt", "", nil)))
		assert.ElementsMatch(t, []int64{5},
			timestamps(t, a.do(t, http.MethodGet, "/api/v1/samples?name=Bob&rating=4&category=Monument", "", nil)))
	})

	t.Run("invalid rating filter", func(t *testing.T) {
		rec := a.do(t, http.MethodGet, "/api/v1/samples?rating=high", "", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_RATING", decode(t, rec).Error.Code)

		rec = a.do(t, http.MethodGet, "/api/v1/samples?rating=7", "", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_FAILED", decode(t, rec).Error.Code)
	})

	t.Run("search", func(t *testing.T) {
		assert.ElementsMatch(t, []int64{2, 4},
			timestamps(t, a.do(t, http.MethodGet, "/api/v1/samples/search?q=taraun", "", nil)))
	})

	t.Run("histogram", func(t *testing.T) {
		rec := a.do(t, http.MethodGet, "/api/v1/reports/ratings", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"0":2,"3":1,"4":3}`, string(decode(t, rec).Data))
	})

	t.Run("route", func(t *testing.T) {
		rec := a.do(t, http.MethodGet, "/api/v1/route?since=3", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		feature, err := geojson.UnmarshalFeature(decode(t, rec).Data)
		require.NoError(t, err)
		line, ok := feature.Geometry.(orb.LineString)
		require.True(t, ok)
		assert.Len(t, line, 4)
		assert.InDelta(t, 4070, feature.Properties.MustFloat64("length_meters"), 100)
	})

	t.Run("geofence", func(t *testing.T) {
		rec := a.do(t, http.MethodGet, "/api/v1/geofence", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		feature, err := geojson.UnmarshalFeature(decode(t, rec).Data)
		require.NoError(t, err)
		_, ok := feature.Geometry.(orb.Polygon)
		assert.True(t, ok)
	})

	t.Run("qrcode", func(t *testing.T) {
		rec := a.do(t, http.MethodGet, "/api/v1/samples/2/qrcode", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
		assert.True(t, strings.HasPrefix(rec.Body.String(), "\x89PNG"))

		rec = a.do(t, http.MethodGet, "/api/v1/samples/99/qrcode", "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("reconcile", func(t *testing.T) {
		assert.Equal(t, []int64{2, 3, 4, 5},
			timestamps(t, a.do(t, http.MethodPost, "/api/v1/samples/reconcile", "", nil)))
	})
}

func TestAPI_SyncStatus(t *testing.T) {
	a := newTestAPI(t, nil)
	a.seed(t, 10, 1, 29.0, -97.0, entity.Annotation{})

	rec := a.do(t, http.MethodPut, "/api/v1/samples/10/annotation", `{"category":"Monument","rating":5}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/v1/sync", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `false`, string(extract(t, decode(t, rec).Data, "enabled")))

	rec = a.do(t, http.MethodPost, "/api/v1/sync/dispatch", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, "dispatch is a no-op while the feature service is disabled")
}

func TestAPI_Auth(t *testing.T) {
	a := newTestAPI(t, func(cfg *config.Config) {
		cfg.Auth.Enabled = true
		cfg.SecretKey.Access = "test-secret"
	})

	t.Run("reads stay public", func(t *testing.T) {
		rec := a.do(t, http.MethodGet, "/api/v1/tracking", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		rec := a.do(t, http.MethodPost, "/api/v1/tracking/start", "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "MISSING_TOKEN", decode(t, rec).Error.Code)
	})

	t.Run("not a bearer token", func(t *testing.T) {
		rec := a.do(t, http.MethodPost, "/api/v1/tracking/start", "", http.Header{"Authorization": {"Basic abc"}})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "INVALID_TOKEN_FORMAT", decode(t, rec).Error.Code)
	})

	t.Run("forged token", func(t *testing.T) {
		rec := a.do(t, http.MethodPost, "/api/v1/tracking/start", "", http.Header{"Authorization": {"Bearer not.a.jwt"}})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "INVALID_TOKEN", decode(t, rec).Error.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := a.tokens.GenerateAccessToken("operator", []string{"operator"})
		require.NoError(t, err)

		rec := a.do(t, http.MethodPost, "/api/v1/tracking/start", "", http.Header{"Authorization": {"Bearer " + token}})
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestAPI_UnknownRoute(t *testing.T) {
	a := newTestAPI(t, nil)

	rec := a.do(t, http.MethodGet, "/api/v1/nowhere", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	env := decode(t, rec)
	require.NotNil(t, env.Error)
	assert.NotEmpty(t, env.Meta.RequestID)
}

func extract(t *testing.T, data json.RawMessage, key string) json.RawMessage {
	t.Helper()

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &fields))

	return fields[key]
}
