// Package context carries the request id and the request-scoped logger from the
// HTTP layer down to the use cases, which only ever see a context.Context.
package context

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
)

type key int

const (
	requestIDKey key = iota
	loggerKey
)

// HeaderXRequestID is read from the client and echoed on every response.
const HeaderXRequestID = echo.HeaderXRequestID

// echoRequestID is the echo.Context store key, visible to echo middleware.
const echoRequestID = "request_id"

// RequestID returns the id assigned by the request id middleware, or the one
// already written to the response when the store was bypassed.
func RequestID(c echo.Context) string {
	if id, ok := c.Get(echoRequestID).(string); ok && id != "" {
		return id
	}

	return c.Response().Header().Get(HeaderXRequestID)
}

// SetRequestID stores id on the echo context.
func SetRequestID(c echo.Context, id string) {
	c.Set(echoRequestID, id)
}

// WithRequestID returns ctx carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFrom returns the id carried by ctx, or "" outside a request.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)

	return id
}

// WithLogger returns ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// Logger returns the request logger carried by ctx, or fallback.
func Logger(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok && logger != nil {
		return logger
	}

	return fallback
}
