package repository

import (
	"context"
	"time"

	"github.com/Keyzen2/spamguard-v2/internal/models"
	"github.com/Keyzen2/spamguard-v2/internal/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type APIKeyRepository interface {
	Create(ctx context.Context, apiKey *models.APIKey) error
	// GetByHash looks a key up by the sha256 digest of its secret, with the
	// owning user preloaded for the usability check.
	GetByHash(ctx context.Context, keyHash string) (*models.APIKey, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.APIKey, error)
	CountActiveByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
	// Touch atomically bumps total_requests and stamps last_used_at.
	Touch(ctx context.Context, keyID uuid.UUID) error
	Deactivate(ctx context.Context, keyID, userID uuid.UUID) error
}

type apiKeyRepository struct {
	db *gorm.DB
}

func NewAPIKeyRepository(db *gorm.DB) APIKeyRepository {
	return &apiKeyRepository{db: db}
}

func (r *apiKeyRepository) Create(ctx context.Context, apiKey *models.APIKey) error {
	result := r.db.WithContext(ctx).Create(apiKey)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to create API key")
	}
	return nil
}

func (r *apiKeyRepository) GetByHash(ctx context.Context, keyHash string) (*models.APIKey, error) {
	var apiKey models.APIKey
	result := r.db.WithContext(ctx).
		Preload("User").
		First(&apiKey, "key_hash = ?", keyHash)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, errors.ErrKeyNotFound
		}
		return nil, errors.Wrap(result.Error, "failed to get API key by hash")
	}

	return &apiKey, nil
}

func (r *apiKeyRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.APIKey, error) {
	var keys []models.APIKey
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&keys)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to list API keys")
	}

	return keys, nil
}

func (r *apiKeyRepository) CountActiveByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).
		Model(&models.APIKey{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Count(&count)

	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to count API keys")
	}

	return count, nil
}

func (r *apiKeyRepository) Touch(ctx context.Context, keyID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.APIKey{}).
		Where("id = ?", keyID).
		Updates(map[string]interface{}{
			"total_requests": gorm.Expr("total_requests + 1"),
			"last_used_at":   time.Now(),
		})

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to touch API key")
	}

	if result.RowsAffected == 0 {
		return errors.ErrNotFound
	}

	return nil
}

func (r *apiKeyRepository) Deactivate(ctx context.Context, keyID, userID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.APIKey{}).
		Where("id = ? AND user_id = ?", keyID, userID).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to deactivate API key")
	}

	if result.RowsAffected == 0 {
		return errors.ErrNotFound
	}

	return nil
}
