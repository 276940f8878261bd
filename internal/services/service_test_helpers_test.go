package services

import (
	"testing"

	"gorm.io/gorm"

	"github.com/charlesng35/chatrelay/internal/database/testutil"
)

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
}
