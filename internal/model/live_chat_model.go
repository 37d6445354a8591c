package model

import (
	"time"

	"github.com/google/uuid"
)

type LiveChatSession struct {
	Id              uuid.UUID `gorm:"type:uuid;primaryKey"`
	ChatSessionId   string    `gorm:"type:varchar(64);not null;index:idx_live_chat_session_created,priority:1"`
	CustomerName    string    `gorm:"type:varchar(100);not null"`
	CustomerContact string    `gorm:"type:varchar(200);not null"`
	InquiryType     string    `gorm:"type:varchar(50)"`
	Description     string    `gorm:"type:text"`
	Status          string    `gorm:"type:varchar(20);not null;index"`
	AgentId         *string   `gorm:"type:varchar(100)"`
	ConnectedAt     *time.Time
	EndedAt         *time.Time
	CreatedAt       time.Time `gorm:"not null;index:idx_live_chat_session_created,priority:2"`
}

func (LiveChatSession) TableName() string {
	return "live_chat_sessions"
}
