package middleware

import (
	"log/slog"
	"strings"

	"fieldtrack/config"
	deliverycontext "fieldtrack/internal/delivery/context"

	"github.com/labstack/echo/v4"
	slogecho "github.com/samber/slog-echo"
)

// LoggerMiddleware writes one access log line per request through slog-echo
type LoggerMiddleware struct {
	handler echo.MiddlewareFunc
}

// NewLoggerMiddleware creates the access log middleware. Debug mode adds user
// agents and logs health and metrics probes too.
func NewLoggerMiddleware(logger *slog.Logger, cfg *config.Config) *LoggerMiddleware {
	debug := cfg.Env.Debug

	slogCfg := slogecho.Config{
		DefaultLevel:     slog.LevelInfo,
		ClientErrorLevel: slog.LevelWarn,
		ServerErrorLevel: slog.LevelError,
		WithUserAgent:    debug,
	}
	if !debug {
		slogCfg.Filters = []slogecho.Filter{
			func(c echo.Context) bool {
				path := c.Request().URL.Path

				return path != "/health" && !strings.HasPrefix(path, "/metrics")
			},
		}
	}

	return &LoggerMiddleware{handler: slogecho.NewWithConfig(logger, slogCfg)}
}

// Handle tags the log line with the request id, then delegates to slog-echo
func (m *LoggerMiddleware) Handle(next echo.HandlerFunc) echo.HandlerFunc {
	logged := m.handler(next)

	return func(c echo.Context) error {
		slogecho.AddCustomAttributes(c, slog.String("request_id", deliverycontext.RequestID(c)))

		return logged(c)
	}
}
