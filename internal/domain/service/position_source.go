package service

import (
	"context"

	"github.com/pkg/errors"
)

// ErrPositionUnavailable is returned when the device cannot produce a fix right now.
var ErrPositionUnavailable = errors.New("position unavailable")

// PositionSource yields the device's current WGS84 position.
type PositionSource interface {
	Current(ctx context.Context) (lat, lon float64, err error)
}
