package model

import "time"

type ChatChipIntent struct {
	Id           uint      `gorm:"primaryKey;autoIncrement"`
	Intent       string    `gorm:"type:varchar(50);uniqueIndex;not null"`
	ResponseText string    `gorm:"type:text;not null"`
	IsActive     bool      `gorm:"not null"`
	DisplayOrder int       `gorm:"not null;default:0"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

func (ChatChipIntent) TableName() string {
	return "chat_chip_intents"
}

type ChatChipPattern struct {
	Id           uint      `gorm:"primaryKey;autoIncrement"`
	IntentId     uint      `gorm:"not null;index"`
	PatternRegex string    `gorm:"type:text;not null"`
	IsActive     bool      `gorm:"not null"`
	DisplayOrder int       `gorm:"not null;default:0"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

func (ChatChipPattern) TableName() string {
	return "chat_chip_patterns"
}
