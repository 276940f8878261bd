package models

import (
	"time"
)

// CacheEntry is a key/value row used by the database cache store. A zero
// ExpiresAt means the entry never expires.
type CacheEntry struct {
	Key       string `gorm:"primaryKey;size:256"`
	Value     []byte
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CacheEntry) TableName() string {
	return "cache_entries"
}
