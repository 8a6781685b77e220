package db

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"narrify/internal/gate"
)

// KeyStore adapts the api_keys table to the gate.KeyStore contract.
type KeyStore struct {
	db *gorm.DB
}

func NewKeyStore(db *gorm.DB) *KeyStore {
	return &KeyStore{db: db}
}

// FindByKey fetches the key record with the given bearer value.
// Key values are unique so at most one row matches.
func (s *KeyStore) FindByKey(key string) (*gate.KeyRecord, error) {
	var row APIKey
	if err := s.db.Where("key = ?", key).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gate.ErrKeyNotFound
		}
		return nil, err
	}
	return row.Record(), nil
}

// UpdateUsage persists the usage counter and last-used timestamp after a
// successful validation.
func (s *KeyStore) UpdateUsage(id uint, usageCount int64, lastUsedAt time.Time) error {
	return s.db.Model(&APIKey{}).Where("id = ?", id).Updates(map[string]interface{}{
		"usage_count":  usageCount,
		"last_used_at": lastUsedAt,
	}).Error
}
