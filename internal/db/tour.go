package db

import (
	"time"
)

// Tour is an AI-authored interactive product tour. The embed script
// fetches a published tour by PublicID and walks its steps in order.
type Tour struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time
	UpdatedAt time.Time

	// PublicID is the opaque identifier baked into embed snippets.
	// Unlike the numeric ID it is safe to expose cross-origin.
	PublicID string `gorm:"uniqueIndex;size:64;not null"`

	// UserID links the tour to its owning tenant. Embed requests must
	// carry an API key belonging to the same tenant.
	UserID uint `gorm:"index;not null"`

	Name      string `gorm:"size:128;not null"`
	SourceURL string `gorm:"size:1024"`

	// Theme is the embed widget theme ("light", "dark", "auto").
	Theme string `gorm:"size:32;default:auto"`

	// VoiceID is the ElevenLabs voice used for narration. Empty means
	// the configured default voice.
	VoiceID string `gorm:"size:64"`

	// Published controls whether the embed endpoint serves this tour.
	Published bool `gorm:"default:false"`

	Steps []TourStep `gorm:"foreignKey:TourID;constraint:OnDelete:CASCADE"`
}

// TourStep is one stop of a tour: a target element plus the copy and
// narration the widget shows when it gets there.
type TourStep struct {
	ID uint `gorm:"primaryKey"`

	TourID   uint `gorm:"index;not null"`
	Position int  `gorm:"not null"`

	// Selector is the CSS selector for the highlighted element, as
	// produced by generation or vision-locate.
	Selector string `gorm:"size:512"`

	// X/Y are fallback viewport coordinates (percent of page size)
	// from vision-locate, used when the selector no longer resolves.
	X float64
	Y float64

	Title     string `gorm:"size:256"`
	Body      string `gorm:"type:text"`
	Narration string `gorm:"type:text"`
}
