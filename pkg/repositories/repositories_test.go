package repositories

import (
	"path/filepath"
	"testing"

	"github.com/caldera-store/caldera/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Profile{}, &models.Identity{},
		&models.Channel{}, &models.Package{},
		&models.ChannelMember{}, &models.PackageMember{}, &models.PackageVersion{},
		&models.ApiKey{}, &models.ApiKeyRole{},
	))

	return db
}

func createUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{
		UserId:   uuid.New().String(),
		Username: username,
		Profile:  models.Profile{Name: username},
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}
