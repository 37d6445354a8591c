package dto

import (
	"time"

	"github.com/google/uuid"
)

// Requests

type CreateSessionRequest struct {
	SessionId string `json:"sessionId" validate:"omitempty,max=64"`
}

type SendMessageRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

type QuickMenuRequest struct {
	Intent string `json:"intent" validate:"required,max=50"`
}

type SubmitFormRequest struct {
	Data map[string]interface{} `json:"data" validate:"required"`
}

type FollowUpRequest struct {
	Action string `json:"action" validate:"required,oneof=more_help end"`
}

type AgentMessageRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

// Responses

type SessionStateResponse struct {
	SessionId     string `json:"sessionId"`
	State         string `json:"state"`
	ShowQuickMenu bool   `json:"showQuickMenu"`
	ShowFollowUp  bool   `json:"showFollowUp"`
	OpenForm      string `json:"openForm,omitempty"`
}

type ChatMessageResponse struct {
	Id        uuid.UUID  `json:"id"`
	SessionId string     `json:"sessionId"`
	Role      string     `json:"role"`
	Type      string     `json:"type"`
	Text      string     `json:"text,omitempty"`
	Intent    string     `json:"intent,omitempty"`
	Status    string     `json:"status,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
}

type SessionOverviewResponse struct {
	Id              string    `json:"id"`
	CreatedAt       time.Time `json:"createdAt"`
	LastMessageAt   time.Time `json:"lastMessageAt"`
	LastMessageText *string   `json:"lastMessageText"`
	UnreadCount     int64     `json:"unreadCount"`
}

type SubmitFormResponse struct {
	Intent  string               `json:"intent"`
	Session SessionStateResponse `json:"session"`
}

type MarkReadResponse struct {
	SeenCount int64 `json:"seenCount"`
}

type LiveChatRequestResponse struct {
	Id              uuid.UUID  `json:"id"`
	SessionId       string     `json:"sessionId"`
	CustomerName    string     `json:"customerName"`
	CustomerContact string     `json:"customerContact"`
	InquiryType     string     `json:"inquiryType"`
	Description     string     `json:"description,omitempty"`
	Status          string     `json:"status"`
	AgentId         *string    `json:"agentId,omitempty"`
	ConnectedAt     *time.Time `json:"connectedAt,omitempty"`
	EndedAt         *time.Time `json:"endedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

type HandoffStatusResponse struct {
	Session SessionStateResponse     `json:"session"`
	Request *LiveChatRequestResponse `json:"request"`
}

// RevealEventMessage is one websocket frame pushed to a chat window.
type RevealEventMessage struct {
	Kind          string               `json:"kind"`
	SessionId     string               `json:"sessionId"`
	Message       *ChatMessageResponse `json:"message,omitempty"`
	Text          string               `json:"text,omitempty"`
	State         string               `json:"state"`
	ShowQuickMenu bool                 `json:"showQuickMenu"`
	ShowFollowUp  bool                 `json:"showFollowUp"`
	OpenForm      string               `json:"openForm,omitempty"`
}

// OperatorEventMessage is pushed to operator dashboards.
type OperatorEventMessage struct {
	Kind string                 `json:"kind"`
	Data map[string]interface{} `json:"data"`
}
