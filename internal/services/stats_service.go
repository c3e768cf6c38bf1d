package services

import (
	"context"
	"time"

	"github.com/Keyzen2/spamguard-v2/internal/repository"
	"github.com/google/uuid"
)

type UserStats struct {
	TotalRequests    int64 `json:"total_requests"`
	SpamDetected     int64 `json:"spam_detected"`
	HamDetected      int64 `json:"ham_detected"`
	PhishingDetected int64 `json:"phishing_detected"`
	PeriodDays       int   `json:"period_days"`
}

type StatsService interface {
	GetUserStats(ctx context.Context, userID uuid.UUID, periodDays int) (*UserStats, error)
}

type statsService struct {
	logRepo repository.RequestLogRepository
}

func NewStatsService(logRepo repository.RequestLogRepository) StatsService {
	return &statsService{logRepo: logRepo}
}

func (s *statsService) GetUserStats(ctx context.Context, userID uuid.UUID, periodDays int) (*UserStats, error) {
	if periodDays <= 0 {
		periodDays = 30
	}

	since := time.Now().AddDate(0, 0, -periodDays)
	counts, err := s.logRepo.CountByCategory(ctx, userID, since)
	if err != nil {
		return nil, err
	}

	stats := &UserStats{PeriodDays: periodDays}
	for _, c := range counts {
		stats.TotalRequests += c.Count
		switch c.Category {
		case CategorySpam:
			stats.SpamDetected = c.Count
		case CategoryHam:
			stats.HamDetected = c.Count
		case CategoryPhishing:
			stats.PhishingDetected = c.Count
		}
	}

	return stats, nil
}
