package tokencache

import (
	"context"
	"log/slog"

	"fieldtrack/config"
	"fieldtrack/internal/domain/constants"
	"fieldtrack/internal/domain/service"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// Params declares the dependencies of the token cache provider
type Params struct {
	fx.In

	Config    *config.Config
	Logger    *slog.Logger
	Lifecycle fx.Lifecycle
}

// New returns the token cache selected by tokenCache.provider.
// A Redis cache is pinged at startup and closed on shutdown.
func New(p Params) (service.TokenCache, error) {
	cfg := p.Config.TokenCache

	switch cfg.Provider {
	case "", constants.TokenCacheProviderMemory:
		p.Logger.Info("Using in-memory token cache")

		return NewMemoryCache(), nil
	case constants.TokenCacheProviderRedis:
		client := OpenRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if client == nil {
			return nil, errors.New("tokenCache.redisAddr is required for the redis provider")
		}

		p.Lifecycle.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := client.Ping(ctx).Err(); err != nil {
					return errors.Wrap(err, "ping redis")
				}
				p.Logger.Info("Using redis token cache", slog.String("addr", cfg.RedisAddr), slog.Int("db", cfg.RedisDB))

				return nil
			},
			OnStop: func(context.Context) error {
				return client.Close()
			},
		})

		return NewRedisCache(client, cfg.KeyPrefix), nil
	default:
		return nil, errors.Errorf("unknown token cache provider %q", cfg.Provider)
	}
}
