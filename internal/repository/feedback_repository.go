package repository

import (
	"context"

	"github.com/Keyzen2/spamguard-v2/internal/models"
	"github.com/Keyzen2/spamguard-v2/internal/pkg/errors"
	"gorm.io/gorm"
)

type FeedbackRepository interface {
	Create(ctx context.Context, feedback *models.Feedback) error
	ListUnprocessed(ctx context.Context, limit int) ([]models.Feedback, error)
}

type feedbackRepository struct {
	db *gorm.DB
}

func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

func (r *feedbackRepository) Create(ctx context.Context, feedback *models.Feedback) error {
	result := r.db.WithContext(ctx).Create(feedback)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to create feedback")
	}
	return nil
}

func (r *feedbackRepository) ListUnprocessed(ctx context.Context, limit int) ([]models.Feedback, error) {
	var feedback []models.Feedback
	result := r.db.WithContext(ctx).
		Where("processed = ?", false).
		Order("created_at ASC").
		Limit(limit).
		Find(&feedback)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to list unprocessed feedback")
	}

	return feedback, nil
}
