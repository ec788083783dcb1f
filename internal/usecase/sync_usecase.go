package usecase

import (
	"context"

	"fieldtrack/internal/domain/entity"
)

// SyncReport summarizes one dispatch pass
type SyncReport struct {
	Dispatched int `json:"dispatched"`
	Delivered  int `json:"delivered"`
	Retried    int `json:"retried"`
	Failed     int `json:"failed"`
	Abandoned  int `json:"abandoned"`
}

// SyncStatus is the outbox backlog as seen by operators
type SyncStatus struct {
	Enabled bool                        `json:"enabled"`
	Counts  map[entity.OutboxStatus]int `json:"counts"`
}

// SyncUsecase delivers queued annotations to the remote feature service
type SyncUsecase interface {
	// DispatchDue attempts every due outbox entry once.
	DispatchDue(ctx context.Context) (*SyncReport, error)

	// Run dispatches on the poll interval and whenever kicked, until ctx is done.
	Run(ctx context.Context) error

	// Kick requests a dispatch pass without blocking.
	Kick()

	// Pending reports the outbox backlog.
	Pending(ctx context.Context) (*SyncStatus, error)
}
