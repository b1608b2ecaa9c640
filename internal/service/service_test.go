package service

import (
	"fmt"
	"testing"
	"time"

	"agora/internal/cache"
	"agora/internal/database"
	"agora/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestCache backs the package-level cache client with miniredis for the
// duration of one test. Without it the cache layer is pass-through.
func setupTestCache(t *testing.T) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A single connection keeps the in-memory database alive and avoids
	// sqlite write lock errors when tests spawn goroutines.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	user := &models.User{
		Username: username,
		Email:    fmt.Sprintf("%s@example.com", username),
		Password: "hashed-password",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestCommunity(t *testing.T, db *gorm.DB, name string, privacy models.CommunityPrivacy, creatorID uint) *models.Community {
	t.Helper()

	community := &models.Community{
		Name:            name,
		Slug:            name,
		Privacy:         privacy,
		CreatedByUserID: &creatorID,
	}
	require.NoError(t, db.Create(community).Error)
	require.NoError(t, db.Create(&models.CommunityModerator{
		CommunityID: community.ID,
		UserID:      creatorID,
	}).Error)
	return community
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
