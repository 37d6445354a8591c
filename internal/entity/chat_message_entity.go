package entity

import (
	"time"

	"github.com/google/uuid"
)

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

func (r MessageRole) Valid() bool {
	return r == MessageRoleUser || r == MessageRoleAssistant
}

type PayloadType string

const (
	PayloadTypeText         PayloadType = "text"
	PayloadTypeForm         PayloadType = "form"
	PayloadTypeAgentConnect PayloadType = "agent_connect"
)

type AgentConnectStatus string

const (
	AgentConnectConnecting AgentConnectStatus = "connecting"
	AgentConnectConnected  AgentConnectStatus = "connected"
	AgentConnectFailed     AgentConnectStatus = "failed"
)

// Payload is the closed set of message contents. Only TextPayload,
// FormPayload and AgentConnectPayload implement it.
type Payload interface {
	Type() PayloadType
	Empty() bool
	payload()
}

type TextPayload struct {
	Text string
}

func (TextPayload) Type() PayloadType { return PayloadTypeText }
func (p TextPayload) Empty() bool     { return p.Text == "" }
func (TextPayload) payload()          {}

type FormPayload struct {
	Intent string
}

func (FormPayload) Type() PayloadType { return PayloadTypeForm }
func (p FormPayload) Empty() bool     { return p.Intent == "" }
func (FormPayload) payload()          {}

type AgentConnectPayload struct {
	Status AgentConnectStatus
}

func (AgentConnectPayload) Type() PayloadType { return PayloadTypeAgentConnect }
func (AgentConnectPayload) Empty() bool       { return false }
func (AgentConnectPayload) payload()          {}

// PayloadText returns the display text of p, or "" for non-text payloads.
func PayloadText(p Payload) string {
	if t, ok := p.(TextPayload); ok {
		return t.Text
	}
	return ""
}

type ChatMessage struct {
	Id        uuid.UUID
	SessionId string
	Role      MessageRole
	Payload   Payload
	CreatedAt time.Time
	ReadAt    *time.Time
}

func (m *ChatMessage) IsAssistant() bool {
	return m.Role == MessageRoleAssistant
}
