package repository

import (
	"context"
	"testing"
	"time"

	"github.com/Keyzen2/spamguard-v2/internal/models"
	"github.com/Keyzen2/spamguard-v2/internal/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedUserWithKey(t *testing.T, db *gorm.DB, keyHash string) (*models.APIUser, *models.APIKey) {
	t.Helper()

	user := &models.APIUser{
		Email:    uuid.NewString() + "@example.com",
		Plan:     models.FreePlan,
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)

	key := &models.APIKey{
		UserID:    user.ID,
		KeyHash:   keyHash,
		KeyPrefix: "sg_test_abcd",
		Name:      "test key",
		Scopes:    models.StringArray{models.ScopeAnalyze},
		IsActive:  true,
	}
	require.NoError(t, db.Create(key).Error)

	return user, key
}

func TestCreatePersistsInactiveFlags(t *testing.T) {
	db := newTestDB(t)
	repo := NewAPIKeyRepository(db)
	ctx := context.Background()

	user := &models.APIUser{
		Email:    uuid.NewString() + "@example.com",
		Plan:     models.FreePlan,
		IsActive: false,
	}
	require.NoError(t, db.Create(user).Error)

	key := &models.APIKey{
		UserID:    user.ID,
		KeyHash:   "hash-inactive",
		KeyPrefix: "sg_test_abcd",
		Scopes:    models.StringArray{models.ScopeAnalyze},
		IsActive:  false,
	}
	require.NoError(t, repo.Create(ctx, key))

	// A false flag must survive the INSERT; a column default would roll
	// the key (and its owner) back to active.
	reloaded, err := repo.GetByHash(ctx, "hash-inactive")
	require.NoError(t, err)
	assert.False(t, reloaded.IsActive)
	assert.False(t, reloaded.User.IsActive)
}

func TestGetByHashPreloadsOwner(t *testing.T) {
	db := newTestDB(t)
	repo := NewAPIKeyRepository(db)
	user, _ := seedUserWithKey(t, db, "hash-1")

	key, err := repo.GetByHash(context.Background(), "hash-1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, key.UserID)
	assert.Equal(t, user.Email, key.User.Email)
	assert.True(t, key.User.IsActive)
}

func TestGetByHashMiss(t *testing.T) {
	db := newTestDB(t)
	repo := NewAPIKeyRepository(db)
	seedUserWithKey(t, db, "hash-1")

	_, err := repo.GetByHash(context.Background(), "no-such-hash")
	assert.ErrorIs(t, err, errors.ErrKeyNotFound)
}

func TestTouchBumpsCountersAtomically(t *testing.T) {
	db := newTestDB(t)
	repo := NewAPIKeyRepository(db)
	_, key := seedUserWithKey(t, db, "hash-1")

	before := time.Now().Add(-time.Second)
	require.NoError(t, repo.Touch(context.Background(), key.ID))
	require.NoError(t, repo.Touch(context.Background(), key.ID))

	var reloaded models.APIKey
	require.NoError(t, db.First(&reloaded, "id = ?", key.ID).Error)
	assert.Equal(t, int64(2), reloaded.TotalRequests)
	require.NotNil(t, reloaded.LastUsedAt)
	assert.True(t, reloaded.LastUsedAt.After(before))
}

func TestTouchUnknownKey(t *testing.T) {
	db := newTestDB(t)
	repo := NewAPIKeyRepository(db)

	err := repo.Touch(context.Background(), uuid.New())
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestDeactivateScopedToOwner(t *testing.T) {
	db := newTestDB(t)
	repo := NewAPIKeyRepository(db)
	_, key := seedUserWithKey(t, db, "hash-1")

	err := repo.Deactivate(context.Background(), key.ID, uuid.New())
	assert.ErrorIs(t, err, errors.ErrNotFound)

	require.NoError(t, repo.Deactivate(context.Background(), key.ID, key.UserID))

	var reloaded models.APIKey
	require.NoError(t, db.First(&reloaded, "id = ?", key.ID).Error)
	assert.False(t, reloaded.IsActive)
}
