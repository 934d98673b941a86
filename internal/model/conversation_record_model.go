package model

import (
	"time"

	"gorm.io/datatypes"
)

// ConversationRecord is the durable snapshot of one session's full ordered
// turn sequence. One row per session, replaced on every flush.
type ConversationRecord struct {
	SessionId string         `gorm:"type:varchar(64);primaryKey"`
	Turns     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

func (ConversationRecord) TableName() string {
	return "conversation_records"
}
