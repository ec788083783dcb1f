package service

import (
	"context"
	"time"
)

// ChangeEvent describes a mutation of the sample store or the tracking session.
// Renderers subscribe to these instead of polling.
type ChangeEvent struct {
	RequestID string    `json:"request_id,omitempty"` // For distributed tracing
	Type      string    `json:"type"`
	Timestamp int64     `json:"timestamp,omitempty"` // Sample timestamp the event is about
	Latitude  float64   `json:"latitude,omitempty"`
	Longitude float64   `json:"longitude,omitempty"`
	FirstFix  bool      `json:"first_fix,omitempty"`
	Count     int       `json:"count,omitempty"` // Affected samples for bulk events
	Reason    string    `json:"reason,omitempty"`
	EmittedAt time.Time `json:"emitted_at"`
}

// ChangeNotifier publishes store change events to a message queue or webhook.
type ChangeNotifier interface {
	// Publish delivers one event. Delivery is best effort; the store is the source of truth.
	Publish(ctx context.Context, event *ChangeEvent) error

	// Close releases any resources held by the publisher
	Close() error
}
