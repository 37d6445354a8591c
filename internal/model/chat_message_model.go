package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ChatMessage struct {
	Id        uuid.UUID      `gorm:"type:uuid;primaryKey"`
	SessionId string         `gorm:"type:varchar(64);not null;index:idx_chat_messages_session_created,priority:1"`
	Role      string         `gorm:"type:varchar(20);not null;index"`
	Content   datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time      `gorm:"not null;index:idx_chat_messages_session_created,priority:2"`
	ReadAt    *time.Time
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}

// MessageContent is the JSON shape stored in chat_messages.content.
type MessageContent struct {
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	Intent string `json:"intent,omitempty"`
	Status string `json:"status,omitempty"`
}
