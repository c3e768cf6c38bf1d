package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Plan string

const (
	FreePlan       Plan = "free"
	ProPlan        Plan = "pro"
	BusinessPlan   Plan = "business"
	EnterprisePlan Plan = "enterprise"
)

// APIUser is a billed tenant of the API. Deactivating a user denies all of
// its keys without touching historical usage rows.
type APIUser struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	FullName  string         `gorm:"type:varchar(255)" json:"full_name,omitempty"`
	SiteURL   string         `gorm:"type:varchar(255)" json:"site_url,omitempty"`
	Plan      Plan           `gorm:"type:varchar(20);not null;default:'free'" json:"plan"`
	IsActive  bool           `gorm:"not null" json:"is_active"`
	APIKeys   []APIKey       `gorm:"foreignKey:UserID" json:"api_keys,omitempty"`
	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *APIUser) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}

	return nil
}

func (u *APIUser) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}

func (APIUser) TableName() string {
	return "api_users"
}
