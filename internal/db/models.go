package db

import (
	"time"

	"gorm.io/datatypes"
)

// Kinds of view events reported by the embed script.
const (
	EventView     = "view"     // widget loaded a tour
	EventStep     = "step"     // viewer advanced to a step
	EventComplete = "complete" // viewer finished the tour
)

// ViewEvent represents a single analytics event reported by the embed
// script (tour loaded, step advanced, tour completed). The schema is
// intentionally compact but flexible and can evolve as the product grows.
type ViewEvent struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time

	// ExpiresAt is the timestamp after which this event is eligible
	// for deletion by the retention worker. A nil value means the
	// event does not currently expire.
	ExpiresAt *time.Time `gorm:"index"`

	// UserID is the owning tenant, denormalized from the API key that
	// authorized the ingest.
	UserID uint `gorm:"index"`

	TourPublicID string `gorm:"index;size:64"`
	Kind         string `gorm:"index;size:16"`
	StepPosition int

	RemoteIP string

	// Attributes holds arbitrary key/value pairs for this event, so
	// the embed can attach context (page path, viewport, referrer)
	// without schema changes.
	Attributes datatypes.JSONMap `gorm:"type:json"`
}

// MetricBucket stores pre-aggregated hourly view metrics per
// (tenant, tour) for fast dashboard charts. Filled by the aggregation
// worker.
type MetricBucket struct {
	ID uint `gorm:"primaryKey"`

	UserID       uint      `gorm:"uniqueIndex:idx_metric_bucket_unique,priority:1;not null"`
	TourPublicID string    `gorm:"uniqueIndex:idx_metric_bucket_unique,priority:2;size:64;not null"`
	BucketStart  time.Time `gorm:"uniqueIndex:idx_metric_bucket_unique,priority:3;not null"` // start of the hour (UTC)

	ViewCount     int64 `gorm:"not null"` // tour loads in this hour
	StepCount     int64 `gorm:"not null"` // step advances in this hour
	CompleteCount int64 `gorm:"not null"` // completions in this hour
}
