package usecase

import (
	"context"

	"fieldtrack/internal/domain/entity"
)

// TrackingUsecase drives the sampling session: it acquires fixes on an interval,
// gates them through the geofence and admits the contained ones to the store.
type TrackingUsecase interface {
	// Start activates the session and schedules ticks. Reports false when already active.
	Start(ctx context.Context) (bool, error)

	// Stop deactivates the session. Reports false when already idle.
	Stop(ctx context.Context) bool

	// Status returns a snapshot of the session.
	Status(ctx context.Context) *entity.TrackingStatus

	// Tick runs one iteration: acquire a fix, gate it and admit it.
	// Returns a *errors.GeofenceViolation when the fix is outside the region.
	Tick(ctx context.Context) (*entity.TickResult, error)

	// Admit gates and admits a manually supplied fix.
	Admit(ctx context.Context, lat, lon float64) (*entity.TickResult, error)

	// Reconcile deletes every unannotated sample and returns the survivors.
	Reconcile(ctx context.Context) ([]*entity.LocationSample, error)
}
