package repository

import (
	"context"
	"time"

	"github.com/Keyzen2/spamguard-v2/internal/models"
	"github.com/Keyzen2/spamguard-v2/internal/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UsageRepository interface {
	// IncrementAndGet applies one increment to the (user, year, month)
	// counter and returns the count after it. Insert-or-increment runs as a
	// single upsert statement, so concurrent first requests of a period
	// create exactly one row and no increment is lost.
	IncrementAndGet(ctx context.Context, userID uuid.UUID, year, month int, category string) (int64, error)

	// CurrentCount returns the counter for the period, 0 when no row exists.
	CurrentCount(ctx context.Context, userID uuid.UUID, year, month int) (int64, error)

	GetPeriod(ctx context.Context, userID uuid.UUID, year, month int) (*models.MonthlyUsage, error)
}

type usageRepository struct {
	db *gorm.DB
}

func NewUsageRepository(db *gorm.DB) UsageRepository {
	return &usageRepository{db: db}
}

func (r *usageRepository) IncrementAndGet(ctx context.Context, userID uuid.UUID, year, month int, category string) (int64, error) {
	usage := models.MonthlyUsage{
		UserID:        userID,
		Year:          year,
		Month:         month,
		RequestsCount: 1,
	}

	assignments := map[string]interface{}{
		"requests_count": gorm.Expr("monthly_usage.requests_count + 1"),
		"updated_at":     time.Now(),
	}

	switch category {
	case models.ScopeAnalyze:
		usage.AnalyzeRequests = 1
		assignments["analyze_requests"] = gorm.Expr("monthly_usage.analyze_requests + 1")
	case models.ScopeFeedback:
		usage.FeedbackRequests = 1
		assignments["feedback_requests"] = gorm.Expr("monthly_usage.feedback_requests + 1")
	}

	result := r.db.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"},
				{Name: "year"},
				{Name: "month"},
			},
			DoUpdates: clause.Assignments(assignments),
		},
		clause.Returning{Columns: []clause.Column{{Name: "requests_count"}}},
	).Create(&usage)

	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to increment monthly usage")
	}

	return usage.RequestsCount, nil
}

func (r *usageRepository) CurrentCount(ctx context.Context, userID uuid.UUID, year, month int) (int64, error) {
	usage, err := r.GetPeriod(ctx, userID, year, month)
	if err != nil {
		return 0, err
	}
	if usage == nil {
		return 0, nil
	}
	return usage.RequestsCount, nil
}

func (r *usageRepository) GetPeriod(ctx context.Context, userID uuid.UUID, year, month int) (*models.MonthlyUsage, error) {
	var usage models.MonthlyUsage
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND year = ? AND month = ?", userID, year, month).
		First(&usage)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get monthly usage")
	}

	return &usage, nil
}
