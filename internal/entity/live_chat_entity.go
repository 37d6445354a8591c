package entity

import (
	"time"

	"github.com/google/uuid"
)

type LiveChatStatus string

const (
	LiveChatStatusWaiting   LiveChatStatus = "waiting"
	LiveChatStatusConnected LiveChatStatus = "connected"
	LiveChatStatusEnded     LiveChatStatus = "ended"
)

// CanTransition reports whether the status may move from s to next.
// The progression is waiting -> connected -> ended, with waiting -> ended
// allowed for requests that are abandoned before an agent picks them up.
func (s LiveChatStatus) CanTransition(next LiveChatStatus) bool {
	switch s {
	case LiveChatStatusWaiting:
		return next == LiveChatStatusConnected || next == LiveChatStatusEnded
	case LiveChatStatusConnected:
		return next == LiveChatStatusEnded
	}
	return false
}

type LiveChatRequest struct {
	Id              uuid.UUID
	ChatSessionId   string
	CustomerName    string
	CustomerContact string
	InquiryType     string
	Description     string
	Status          LiveChatStatus
	AgentId         *string
	ConnectedAt     *time.Time
	EndedAt         *time.Time
	CreatedAt       time.Time
}
