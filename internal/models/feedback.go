package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Feedback is a user-reported label correction queued for model retraining.
type Feedback struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Text              string    `gorm:"type:text" json:"text"`
	PredictedCategory string    `gorm:"type:varchar(20)" json:"predicted_category"`
	CorrectCategory   string    `gorm:"type:varchar(20)" json:"correct_category"`
	Processed         bool      `gorm:"not null;default:false" json:"processed"`
	CreatedAt         time.Time `json:"created_at"`
}

func (f *Feedback) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

func (Feedback) TableName() string {
	return "feedback_queue"
}
