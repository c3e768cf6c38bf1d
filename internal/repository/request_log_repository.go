package repository

import (
	"context"
	"time"

	"github.com/Keyzen2/spamguard-v2/internal/models"
	"github.com/Keyzen2/spamguard-v2/internal/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CategoryCount is one row of the per-category stats aggregation.
type CategoryCount struct {
	Category string
	Count    int64
}

type RequestLogRepository interface {
	// Create appends one audit row. Rows are immutable once written.
	Create(ctx context.Context, log *models.APIRequest) error
	GetUserRequests(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.APIRequest, error)
	CountByCategory(ctx context.Context, userID uuid.UUID, since time.Time) ([]CategoryCount, error)
}

type requestLogRepository struct {
	db *gorm.DB
}

func NewRequestLogRepository(db *gorm.DB) RequestLogRepository {
	return &requestLogRepository{db: db}
}

func (r *requestLogRepository) Create(ctx context.Context, log *models.APIRequest) error {
	result := r.db.WithContext(ctx).Create(log)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to create request log")
	}
	return nil
}

func (r *requestLogRepository) GetUserRequests(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.APIRequest, error) {
	var logs []models.APIRequest
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND created_at BETWEEN ? AND ?", userID, from, to).
		Order("created_at DESC").
		Find(&logs)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to get user requests")
	}

	return logs, nil
}

func (r *requestLogRepository) CountByCategory(ctx context.Context, userID uuid.UUID, since time.Time) ([]CategoryCount, error) {
	var counts []CategoryCount
	result := r.db.WithContext(ctx).
		Model(&models.APIRequest{}).
		Select("category, COUNT(*) as count").
		Where("user_id = ? AND created_at >= ? AND category <> ''", userID, since).
		Group("category").
		Scan(&counts)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to count requests by category")
	}

	return counts, nil
}
