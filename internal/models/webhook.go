package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	EventSpamDetected     = "spam_detected"
	EventPhishingDetected = "phishing_detected"
)

// Webhook is a tenant-configured callback. Success/failure counters are
// mutated only after a delivery attempt completes.
type Webhook struct {
	ID              uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID   `gorm:"type:uuid;not null;index" json:"user_id"`
	TargetURL       string      `gorm:"type:varchar(512);not null" json:"target_url"`
	Events          StringArray `gorm:"type:jsonb" json:"events"`
	Secret          string      `gorm:"type:varchar(64);not null" json:"-"`
	// No column default: gorm drops zero-valued fields carrying a default
	// tag from the INSERT, which would persist a disabled webhook as active.
	IsActive        bool        `gorm:"not null" json:"is_active"`
	SuccessCount    int64       `gorm:"not null;default:0" json:"success_count"`
	FailureCount    int64       `gorm:"not null;default:0" json:"failure_count"`
	LastTriggeredAt *time.Time  `gorm:"default:null" json:"last_triggered_at,omitempty"`
	CreatedAt       time.Time   `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time   `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	User            APIUser     `gorm:"foreignKey:UserID" json:"-"`
}

func (w *Webhook) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

func (Webhook) TableName() string {
	return "webhooks"
}

func (w *Webhook) SubscribedTo(event string) bool {
	for _, e := range w.Events {
		if e == event {
			return true
		}
	}
	return false
}
