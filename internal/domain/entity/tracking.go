package entity

import "time"

// TrackingStatus is a snapshot of the tracking session.
type TrackingStatus struct {
	Active          bool       `json:"active"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	DriftLatitude   float64    `json:"drift_latitude"`
	DriftLongitude  float64    `json:"drift_longitude"`
	SamplesAdmitted int        `json:"samples_admitted"`
	LastSample      *int64     `json:"last_sample,omitempty"`
	LastViolation   *Position  `json:"last_violation,omitempty"`
}

// Position is a bare WGS84 fix.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// TickResult is the outcome of one tracking iteration that admitted a sample.
type TickResult struct {
	Sample   *LocationSample
	FirstFix bool // First admitted sample of the session, renderers recentre on it.
}
