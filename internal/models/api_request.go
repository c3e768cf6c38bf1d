package models

import (
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	StatusSuccess RequestStatus = "SUCCESS"
	StatusError   RequestStatus = "ERROR"
)

// APIRequest is the append-only audit trail: one row per admitted or
// rejected request. User and key references are nullable so the trail
// survives account deletion.
type APIRequest struct {
	ID               uint          `gorm:"primarykey" json:"id"`
	UserID           *uuid.UUID    `gorm:"type:uuid;index" json:"user_id,omitempty"`
	APIKeyID         *uuid.UUID    `gorm:"type:uuid;index" json:"api_key_id,omitempty"`
	Endpoint         string        `gorm:"type:varchar(255);index" json:"endpoint"`
	Method           string        `gorm:"type:varchar(10)" json:"method"`
	Status           RequestStatus `gorm:"type:varchar(10)" json:"status"`
	StatusCode       int           `json:"status_code"`
	TextLength       int           `json:"text_length"`
	Category         string        `gorm:"type:varchar(20);index" json:"category,omitempty"`
	Confidence       float64       `json:"confidence,omitempty"`
	ProcessingTimeMs int64         `json:"processing_time_ms"`
	ErrorMessage     string        `gorm:"type:text" json:"error_message,omitempty"`
	RequestID        string        `gorm:"type:varchar(32);index" json:"request_id"`
	IPAddress        string        `gorm:"type:varchar(45)" json:"ip_address,omitempty"`
	UserAgent        string        `gorm:"type:varchar(255)" json:"user_agent,omitempty"`
	CreatedAt        time.Time     `gorm:"index" json:"created_at"`
	User             *APIUser      `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"-"`
	APIKey           *APIKey       `gorm:"foreignKey:APIKeyID;constraint:OnDelete:SET NULL" json:"-"`
}

func (APIRequest) TableName() string {
	return "api_requests"
}
