package db

import (
	"strconv"
	"time"

	"gorm.io/datatypes"

	"narrify/internal/gate"
)

// APIKey is an embed/API credential for a tenant. The key value is the
// bearer secret the embed script sends with every request; validation
// semantics (activation, quota, domain allow-list) live in the gate
// package, this row is just their persisted state.
type APIKey struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time
	UpdatedAt time.Time

	// UserID links this key to the tenant who owns it.
	UserID uint `gorm:"index;not null"`

	// Name is a user-friendly identifier for this key (e.g. "marketing-site").
	Name string `gorm:"size:128;not null"`

	// Key is the bearer secret ("nr_live_" + 64 hex chars, unique).
	Key string `gorm:"uniqueIndex;size:255;not null"`

	// Active indicates whether this key is currently enabled. Toggled
	// from the settings page; a disabled key fails all validations.
	Active bool `gorm:"default:true"`

	// Domains is the optional allow-list of hostnames/suffixes that may
	// use this key. Empty means no restriction.
	Domains datatypes.JSONSlice[string] `gorm:"type:json"`

	// UsageCount is incremented once per successful validation.
	UsageCount int64 `gorm:"not null;default:0"`

	// UsageLimit caps successful validations over the key's lifetime.
	// NULL means unlimited.
	UsageLimit *int64

	// LastUsedAt is the time of the most recent successful validation.
	LastUsedAt *time.Time

	// User is the owner of this API key.
	User User `gorm:"foreignKey:UserID"`
}

// LimitDisplay renders the usage limit for the settings table. Empty
// means unlimited.
func (k APIKey) LimitDisplay() string {
	if k.UsageLimit == nil {
		return ""
	}
	return strconv.FormatInt(*k.UsageLimit, 10)
}

// Record converts the row into the gate package's validation view.
func (k *APIKey) Record() *gate.KeyRecord {
	return &gate.KeyRecord{
		ID:         k.ID,
		ClientID:   k.UserID,
		Key:        k.Key,
		Active:     k.Active,
		Domains:    []string(k.Domains),
		UsageCount: k.UsageCount,
		UsageLimit: k.UsageLimit,
		LastUsedAt: k.LastUsedAt,
	}
}
