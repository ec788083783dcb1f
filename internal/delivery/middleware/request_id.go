package middleware

import (
	"log/slog"

	deliverycontext "fieldtrack/internal/delivery/context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const maxClientRequestIDLen = 64

// RequestID tags each request with an id and a logger carrying it. A client
// supplied X-Request-Id is kept when it is short printable ASCII.
func RequestID(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(deliverycontext.HeaderXRequestID)
			if !acceptableRequestID(id) {
				id = uuid.NewString()
			}

			deliverycontext.SetRequestID(c, id)
			c.Response().Header().Set(deliverycontext.HeaderXRequestID, id)

			ctx := deliverycontext.WithRequestID(c.Request().Context(), id)
			ctx = deliverycontext.WithLogger(ctx, logger.With(slog.String("request_id", id)))
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

func acceptableRequestID(id string) bool {
	if id == "" || len(id) > maxClientRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}

	return true
}
