package pubsub

import (
	"context"
	"log/slog"

	"fieldtrack/config"
	"fieldtrack/internal/domain/constants"
	"fieldtrack/internal/domain/service"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// noopNotifier drops events when no change feed is configured
type noopNotifier struct {
	logger *slog.Logger
}

func (p *noopNotifier) Publish(_ context.Context, event *service.ChangeEvent) error {
	p.logger.Debug("change feed disabled, dropping event",
		slog.String("type", event.Type),
		slog.Int64("timestamp", event.Timestamp),
	)

	return nil
}

func (p *noopNotifier) Close() error {
	return nil
}

// NewNoopNotifier returns a notifier that only logs at debug level
func NewNoopNotifier(logger *slog.Logger) service.ChangeNotifier {
	return &noopNotifier{logger: logger}
}

// NotifierParams holds dependencies for ChangeNotifier, injected by Fx
type NotifierParams struct {
	fx.In

	Lc     fx.Lifecycle
	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

// NewChangeNotifier creates a ChangeNotifier based on configuration
func NewChangeNotifier(params NotifierParams) (service.ChangeNotifier, error) {
	cfg := params.Config.PubSub
	logger := params.Logger

	if cfg == nil || cfg.Provider == "" {
		logger.Info("change feed not configured, using no-op notifier")

		return NewNoopNotifier(logger), nil
	}

	var notifier service.ChangeNotifier
	var err error

	switch cfg.Provider {
	case constants.PubSubProviderLocal:
		if cfg.LocalEndpoint == "" {
			return nil, errors.New("local endpoint is required for local provider")
		}
		logger.Info("Using local HTTP webhook for change feed",
			slog.String("endpoint", cfg.LocalEndpoint),
		)

		notifier = NewLocalHTTPNotifier(cfg.LocalEndpoint, logger)

	case constants.PubSubProviderGoogle:
		if cfg.ProjectID == "" {
			return nil, errors.New("project ID is required for google provider")
		}
		if cfg.TopicID == "" {
			return nil, errors.New("topic ID is required for google provider")
		}
		logger.Info("Using Google Pub/Sub for change feed",
			slog.String("project_id", cfg.ProjectID),
			slog.String("topic_id", cfg.TopicID),
		)

		notifier, err = NewGooglePubSubNotifier(params.Ctx, cfg.ProjectID, cfg.TopicID, logger)
		if err != nil {
			return nil, err
		}

	default:
		return nil, errors.Errorf("unknown pubsub provider: %s", cfg.Provider)
	}

	params.Lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("Closing ChangeNotifier")

			return notifier.Close()
		},
	})

	return notifier, nil
}

// Module provides the change feed FX module
//
//nolint:gochecknoglobals
var Module = fx.Options(
	fx.Provide(NewChangeNotifier),
)
