package model

import (
	"time"

	"github.com/google/uuid"
)

// FeedbackRecord is one durable feedback entry. Append-only, keyed by session.
type FeedbackRecord struct {
	Id                   uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionId            string    `gorm:"type:varchar(64);not null;index"`
	TurnId               string    `gorm:"type:varchar(64);not null"`
	Verdict              string    `gorm:"type:varchar(16);not null;index"`
	JudgedMessageExcerpt string    `gorm:"type:text"`
	JudgedAt             time.Time `gorm:"not null"`
	CreatedAt            time.Time `gorm:"autoCreateTime"`
}

func (FeedbackRecord) TableName() string {
	return "feedback_records"
}
