// Package entity contains the core business objects of the project.
package entity

import (
	"time"
)

// MaxRating is the upper bound of the annotation rating scale.
const MaxRating = 5

// LocationSample is one admitted position fix plus its user editable annotation.
// Timestamp is the identity; the position never changes after admission.
type LocationSample struct {
	Timestamp int64   // Milliseconds since the Unix epoch at capture time, unique.
	ObjectID  int64   // Monotonic per-process sequence number assigned at admission.
	Latitude  float64 // WGS84 latitude in degrees.
	Longitude float64 // WGS84 longitude in degrees.
	Name      string
	Category  string
	Rating    int // 0-5, 0 means unrated.
	Note      string
	Synced    bool       // True once the current annotation is confirmed by the remote.
	SyncedAt  *time.Time // When the current annotation was confirmed, nil otherwise.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewLocationSample builds an unannotated sample for an admitted fix.
func NewLocationSample(timestamp, objectID int64, lat, lon float64) *LocationSample {
	return &LocationSample{
		Timestamp: timestamp,
		ObjectID:  objectID,
		Latitude:  lat,
		Longitude: lon,
	}
}

// Annotation holds the four user editable fields of a sample.
type Annotation struct {
	Name     string
	Category string
	Rating   int
	Note     string
}

// Annotate overwrites the editable fields and marks the sample as not yet synced.
func (s *LocationSample) Annotate(a Annotation) {
	s.Name = a.Name
	s.Category = a.Category
	s.Rating = a.Rating
	s.Note = a.Note
	s.Synced = false
	s.SyncedAt = nil
}

// MarkSynced records a confirmed remote write.
func (s *LocationSample) MarkSynced(at time.Time) {
	s.Synced = true
	s.SyncedAt = &at
}

// IsAnnotated reports whether the sample carries a category, the field the
// reconcile pass uses to decide what to keep.
func (s *LocationSample) IsAnnotated() bool {
	return s.Category != ""
}

// Time returns the capture time.
func (s *LocationSample) Time() time.Time {
	return time.UnixMilli(s.Timestamp)
}
