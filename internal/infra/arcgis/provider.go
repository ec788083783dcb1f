package arcgis

import (
	"context"
	"log/slog"

	"fieldtrack/config"
	domainerrors "fieldtrack/internal/domain/errors"
	"fieldtrack/internal/domain/service"

	"go.uber.org/fx"
)

// Params declares the dependencies of the feature service provider
type Params struct {
	fx.In

	Config *config.Config
	Cache  service.TokenCache
	Logger *slog.Logger
}

// New returns the remote feature service client, or a disabled stand-in when
// featureService.enabled is false. Outbox entries stay pending while disabled.
func New(p Params) service.FeatureService {
	if !p.Config.FeatureService.Enabled {
		p.Logger.Info("Feature service disabled, annotated samples stay queued locally")

		return disabledService{}
	}

	p.Logger.Info("Feature service enabled", slog.String("features_url", p.Config.FeatureService.FeaturesURL))

	return NewClient(p.Config.FeatureService, p.Cache, p.Logger)
}

type disabledService struct{}

func (disabledService) AddFeature(context.Context, *service.Feature) (*service.FeatureResult, error) {
	return nil, domainerrors.NewRemoteSubmitError(0, "feature service disabled", nil)
}
