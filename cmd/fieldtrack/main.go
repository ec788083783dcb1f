package main

import (
	"context"
	"log/slog"
	"os"

	"fieldtrack/config"
	"fieldtrack/internal/delivery"
	"fieldtrack/internal/delivery/api"
	"fieldtrack/internal/delivery/api/middleware"
	"fieldtrack/internal/delivery/api/router/handler"
	"fieldtrack/internal/delivery/worker"
	"fieldtrack/internal/domain/geofence"
	"fieldtrack/internal/domain/service"
	"fieldtrack/internal/infra/arcgis"
	"fieldtrack/internal/infra/auth"
	logs "fieldtrack/internal/infra/log"
	"fieldtrack/internal/infra/metrics"
	"fieldtrack/internal/infra/notification"
	"fieldtrack/internal/infra/persistence/gormstore"
	"fieldtrack/internal/infra/position"
	"fieldtrack/internal/infra/pubsub"
	"fieldtrack/internal/infra/qrcode"
	"fieldtrack/internal/infra/tokencache"
	"fieldtrack/internal/usecase"
	"fieldtrack/internal/usecase/impl"
	"fieldtrack/internal/util"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			startTracking,
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		metrics.New,
		newGeofence,
	)
}

func injectRepo() fx.Option {
	return gormstore.Module
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			position.New,
			tokencache.New,
			arcgis.New,
			pubsub.NewChangeNotifier,
			notification.NewNotificationService,
			newTokenService,
			newQRCodeService,
		),
	)
}

// newGeofence loads the region from a GeoJSON file when one is configured,
// otherwise from the configured ring.
func newGeofence(cfg *config.Config, logger *slog.Logger) (*geofence.Evaluator, error) {
	path := cfg.Geofence.GeoJSONPath
	if path == "" {
		return geofence.FromCoordinates(cfg.Geofence.Ring)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read geofence %s", path)
	}

	logger.Info("Loaded geofence",
		slog.String("path", path),
		slog.String("sha256", util.Checksum(data)),
	)

	return geofence.FromGeoJSON(data)
}

// newTokenService returns nil when API auth is off so no signing secret is required
func newTokenService(cfg *config.Config) (service.TokenService, error) {
	if !cfg.Auth.Enabled {
		return nil, nil
	}

	return auth.NewJWTService(cfg)
}

func newQRCodeService(cfg *config.Config) service.QRCodeService {
	if cfg.QRCode == nil {
		return qrcode.NewQRCodeService(256, "M")
	}

	return qrcode.NewQRCodeService(cfg.QRCode.Size, cfg.QRCode.ErrorCorrectionLevel)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewTrackingService,
			impl.NewAnnotationService,
			impl.NewSyncService,
			impl.NewQueryService,
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			middleware.NewAuthMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewTrackingHandler,
			handler.NewSampleHandler,
			handler.NewReportHandler,
			handler.NewSyncHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				api.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
			fx.Annotate(
				worker.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

// startTracking starts the session on boot when configured and always stops it on shutdown.
func startTracking(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger, tracking usecase.TrackingUsecase) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if !cfg.Tracking.AutoStart {
				return nil
			}
			if _, err := tracking.Start(ctx); err != nil {
				return errors.Wrap(err, "failed to start tracking")
			}
			logger.Info("Tracking started on boot", slog.Duration("interval", cfg.Tracking.Interval))

			return nil
		},
		OnStop: func(ctx context.Context) error {
			tracking.Stop(ctx)

			return nil
		},
	})
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
