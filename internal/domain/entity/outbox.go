package entity

import (
	"time"

	"github.com/google/uuid"
)

// OutboxStatus is the delivery state of an outbox entry.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusDelivered OutboxStatus = "delivered"
	OutboxStatusFailed    OutboxStatus = "failed"
	OutboxStatusAbandoned OutboxStatus = "abandoned"
)

// OutboxEntry is a durable request to push a sample's current annotation to the
// remote feature service. The payload is rebuilt from the sample at dispatch time.
type OutboxEntry struct {
	ID              uuid.UUID
	SampleTimestamp int64
	Status          OutboxStatus
	Attempts        int
	NextAttemptAt   time.Time
	LastError       string
	RemoteObjectID  *int64 // Object id assigned by the remote on success.
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeliveredAt     *time.Time
}

// NewOutboxEntry creates a pending entry due immediately.
func NewOutboxEntry(sampleTimestamp int64, now time.Time) *OutboxEntry {
	return &OutboxEntry{
		ID:              uuid.New(),
		SampleTimestamp: sampleTimestamp,
		Status:          OutboxStatusPending,
		NextAttemptAt:   now,
	}
}

// Reset makes a pending entry due again with a fresh attempt budget.
func (e *OutboxEntry) Reset(now time.Time) {
	e.Status = OutboxStatusPending
	e.Attempts = 0
	e.NextAttemptAt = now
	e.LastError = ""
}

// RecordFailure books a failed attempt. The entry becomes failed once maxAttempts
// is reached, otherwise it is rescheduled at now+backoff.
func (e *OutboxEntry) RecordFailure(err error, now time.Time, backoff time.Duration, maxAttempts int) {
	e.Attempts++
	e.LastError = err.Error()
	if e.Attempts >= maxAttempts {
		e.Status = OutboxStatusFailed

		return
	}
	e.NextAttemptAt = now.Add(backoff)
}

// MarkDelivered books a confirmed remote write.
func (e *OutboxEntry) MarkDelivered(remoteObjectID int64, now time.Time) {
	e.Attempts++
	e.Status = OutboxStatusDelivered
	e.RemoteObjectID = &remoteObjectID
	e.DeliveredAt = &now
	e.LastError = ""
}

// MarkAbandoned books an entry whose sample no longer exists.
func (e *OutboxEntry) MarkAbandoned(reason string) {
	e.Status = OutboxStatusAbandoned
	e.LastError = reason
}
