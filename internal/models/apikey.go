package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ScopeAnalyze  = "analyze"
	ScopeFeedback = "feedback"
	ScopeStats    = "stats"
)

// APIKey stores only the sha256 digest of the secret. KeyPrefix is the
// non-secret leading part of the key, kept for display only.
type APIKey struct {
	ID            uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID   `gorm:"type:uuid;not null;index" json:"user_id"`
	KeyHash       string      `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	KeyPrefix     string      `gorm:"type:varchar(16);not null" json:"key_prefix"`
	Name          string      `gorm:"type:varchar(255)" json:"name"`
	Scopes        StringArray `gorm:"type:jsonb" json:"scopes"`
	IsActive      bool        `gorm:"not null" json:"is_active"`
	ExpiresAt     *time.Time  `gorm:"default:null" json:"expires_at,omitempty"`
	TotalRequests int64       `gorm:"not null;default:0" json:"total_requests"`
	LastUsedAt    *time.Time  `gorm:"default:null" json:"last_used_at,omitempty"`
	CreatedAt     time.Time   `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time   `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	User          APIUser     `gorm:"foreignKey:UserID" json:"-"`
}

func (k *APIKey) BeforeCreate(tx *gorm.DB) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}

	now := time.Now()
	if k.CreatedAt.IsZero() {
		k.CreatedAt = now
	}
	if k.UpdatedAt.IsZero() {
		k.UpdatedAt = now
	}

	return nil
}

func (APIKey) TableName() string {
	return "api_keys"
}

func (k *APIKey) HasScope(scope string) bool {
	for _, s := range k.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// IsUsable reports whether the key may authenticate requests: the key must
// be active, not expired, and its owning user must be active. The owner has
// to be loaded alongside the key.
func (k *APIKey) IsUsable(now time.Time) bool {
	if !k.IsActive {
		return false
	}
	if k.ExpiresAt != nil && !k.ExpiresAt.After(now) {
		return false
	}
	return k.User.IsActive
}
