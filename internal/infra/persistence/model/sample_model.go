package model

import (
	"time"
)

// LocationSampleModel is the GORM-specific struct for the 'location_samples' table.
// No column carries a default so upserts always overwrite every field.
type LocationSampleModel struct {
	Timestamp int64      `gorm:"column:timestamp_ms;primaryKey;autoIncrement:false"`
	ObjectID  int64      `gorm:"not null;index:idx_samples_object_id"`
	Latitude  float64    `gorm:"not null"`
	Longitude float64    `gorm:"not null"`
	Name      string     `gorm:"type:varchar(255);not null;index:idx_samples_name"`
	Category  string     `gorm:"type:varchar(255);not null;index:idx_samples_category"`
	Rating    int        `gorm:"not null;index:idx_samples_rating;check:chk_samples_rating,rating >= 0 AND rating <= 5"`
	Note      string     `gorm:"type:text;not null"`
	Synced    bool       `gorm:"not null"`
	SyncedAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName explicitly sets the table name for GORM.
func (LocationSampleModel) TableName() string {
	return "location_samples"
}

// RatingCount is a scan target for per-rating tallies.
type RatingCount struct {
	Rating int
	Count  int
}
