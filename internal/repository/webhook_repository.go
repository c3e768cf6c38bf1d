package repository

import (
	"context"
	"time"

	"github.com/Keyzen2/spamguard-v2/internal/models"
	"github.com/Keyzen2/spamguard-v2/internal/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WebhookRepository interface {
	Create(ctx context.Context, webhook *models.Webhook) error
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.Webhook, error)
	ListActive(ctx context.Context, userID uuid.UUID) ([]models.Webhook, error)
	Delete(ctx context.Context, webhookID, userID uuid.UUID) error
	// RecordResult bumps exactly one of success_count/failure_count and
	// stamps last_triggered_at after a delivery attempt completes.
	RecordResult(ctx context.Context, webhookID uuid.UUID, success bool) error
}

type webhookRepository struct {
	db *gorm.DB
}

func NewWebhookRepository(db *gorm.DB) WebhookRepository {
	return &webhookRepository{db: db}
}

func (r *webhookRepository) Create(ctx context.Context, webhook *models.Webhook) error {
	result := r.db.WithContext(ctx).Create(webhook)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to create webhook")
	}
	return nil
}

func (r *webhookRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.Webhook, error) {
	var webhooks []models.Webhook
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&webhooks)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to list webhooks")
	}

	return webhooks, nil
}

func (r *webhookRepository) ListActive(ctx context.Context, userID uuid.UUID) ([]models.Webhook, error) {
	var webhooks []models.Webhook
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Find(&webhooks)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to list active webhooks")
	}

	return webhooks, nil
}

func (r *webhookRepository) Delete(ctx context.Context, webhookID, userID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Delete(&models.Webhook{}, "id = ? AND user_id = ?", webhookID, userID)

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete webhook")
	}

	if result.RowsAffected == 0 {
		return errors.ErrNotFound
	}

	return nil
}

func (r *webhookRepository) RecordResult(ctx context.Context, webhookID uuid.UUID, success bool) error {
	column := "failure_count"
	if success {
		column = "success_count"
	}

	result := r.db.WithContext(ctx).
		Model(&models.Webhook{}).
		Where("id = ?", webhookID).
		Updates(map[string]interface{}{
			column:              gorm.Expr(column+" + 1"),
			"last_triggered_at": time.Now(),
		})

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to record webhook result")
	}

	return nil
}
