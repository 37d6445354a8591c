package model

import "time"

type ChatSession struct {
	Id                     string    `gorm:"type:varchar(64);primaryKey"`
	CreatedAt              time.Time `gorm:"not null"`
	LastSeenAssistantCount int       `gorm:"not null;default:0"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}
