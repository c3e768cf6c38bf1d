package services

import (
	"context"
	"time"

	"github.com/Keyzen2/spamguard-v2/internal/config"
	"github.com/Keyzen2/spamguard-v2/internal/logger"
	"github.com/Keyzen2/spamguard-v2/internal/models"
	"github.com/Keyzen2/spamguard-v2/internal/pkg/errors"
	"github.com/Keyzen2/spamguard-v2/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type QuotaService interface {
	// Admit decides whether a request may proceed: it reads the current
	// period's count without incrementing and admits iff count < limit.
	//
	// This check is a soft limit. Two concurrent requests near the
	// boundary can both observe count == limit-1 and both be admitted;
	// the ledger upsert remains the authoritative billing record. Strict
	// enforcement would need a conditional increment in the ledger itself.
	Admit(ctx context.Context, userID uuid.UUID, plan models.Plan) error

	CurrentUsage(ctx context.Context, userID uuid.UUID, plan models.Plan) (*UsageStats, error)
}

type UsageStats struct {
	CurrentCount int64     `json:"current"`
	Limit        int64     `json:"limit"`
	Remaining    int64     `json:"remaining"`
	Year         int       `json:"year"`
	Month        int       `json:"month"`
	PeriodEnd    time.Time `json:"period_end"`
}

type quotaService struct {
	usageRepo repository.UsageRepository
	catalog   *config.PlanCatalog
}

func NewQuotaService(usageRepo repository.UsageRepository, catalog *config.PlanCatalog) QuotaService {
	return &quotaService{
		usageRepo: usageRepo,
		catalog:   catalog,
	}
}

// currentPeriod returns the UTC billing window of the moment.
func currentPeriod(now time.Time) (year, month int, periodEnd time.Time) {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return now.Year(), int(now.Month()), start.AddDate(0, 1, 0)
}

func (s *quotaService) Admit(ctx context.Context, userID uuid.UUID, plan models.Plan) error {
	if !s.catalog.Known(plan) {
		logger.Logger.WithFields(logrus.Fields{
			"user_id": userID,
			"plan":    plan,
		}).Warn("Unrecognized plan tier, admitting as unlimited")
	}

	year, month, _ := currentPeriod(time.Now())
	count, err := s.usageRepo.CurrentCount(ctx, userID, year, month)
	if err != nil {
		return err
	}

	if count >= s.catalog.LimitFor(plan) {
		return errors.ErrQuotaExceeded
	}

	return nil
}

func (s *quotaService) CurrentUsage(ctx context.Context, userID uuid.UUID, plan models.Plan) (*UsageStats, error) {
	year, month, periodEnd := currentPeriod(time.Now())
	count, err := s.usageRepo.CurrentCount(ctx, userID, year, month)
	if err != nil {
		return nil, err
	}

	limit := s.catalog.LimitFor(plan)
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	return &UsageStats{
		CurrentCount: count,
		Limit:        limit,
		Remaining:    remaining,
		Year:         year,
		Month:        month,
		PeriodEnd:    periodEnd,
	}, nil
}
