package services

import (
	"testing"

	"github.com/Keyzen2/spamguard-v2/internal/database"
	"github.com/Keyzen2/spamguard-v2/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrate(db))

	return db
}

func seedUser(t *testing.T, db *gorm.DB, plan models.Plan) *models.APIUser {
	t.Helper()

	user := &models.APIUser{
		Email:    uuid.NewString() + "@example.com",
		Plan:     plan,
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}
