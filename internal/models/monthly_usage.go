package models

import (
	"time"

	"github.com/google/uuid"
)

// MonthlyUsage is the per-tenant billing counter for one calendar month.
// Exactly one row exists per (user, year, month); the row is created lazily
// by the first increment of the period and its counts only ever grow.
type MonthlyUsage struct {
	ID               uint      `gorm:"primarykey" json:"-"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_usage_period" json:"user_id"`
	Year             int       `gorm:"not null;uniqueIndex:idx_usage_period" json:"year"`
	Month            int       `gorm:"not null;uniqueIndex:idx_usage_period" json:"month"`
	RequestsCount    int64     `gorm:"not null;default:0" json:"requests_count"`
	AnalyzeRequests  int64     `gorm:"not null;default:0" json:"analyze_requests"`
	FeedbackRequests int64     `gorm:"not null;default:0" json:"feedback_requests"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (MonthlyUsage) TableName() string {
	return "monthly_usage"
}
