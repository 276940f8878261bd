package database

import (
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/chatrelay/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.ChatRoom{},
		&models.ChatMessage{},
		&models.CacheEntry{},
	)
}

// SeedRooms ensures the named rooms exist in the room directory.
func SeedRooms(db *gorm.DB, names ...string) error {
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		room := models.ChatRoom{Name: name, IsGroup: true}
		if err := db.Where(models.ChatRoom{Name: name}).Attrs(room).FirstOrCreate(&models.ChatRoom{}).Error; err != nil {
			return err
		}
	}
	return nil
}
