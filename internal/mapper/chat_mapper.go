package mapper

import (
	"encoding/json"
	"fmt"
	"time"

	"support-chat-be/internal/entity"
	"support-chat-be/internal/model"

	"gorm.io/datatypes"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// Session Mappers

func (m *ChatMapper) ChatSessionToEntity(s *model.ChatSession) *entity.ChatSession {
	if s == nil {
		return nil
	}
	return &entity.ChatSession{
		Id:                     s.Id,
		CreatedAt:              s.CreatedAt,
		LastSeenAssistantCount: s.LastSeenAssistantCount,
	}
}

func (m *ChatMapper) ChatSessionToModel(s *entity.ChatSession) *model.ChatSession {
	if s == nil {
		return nil
	}
	return &model.ChatSession{
		Id:                     s.Id,
		CreatedAt:              s.CreatedAt.UTC(),
		LastSeenAssistantCount: s.LastSeenAssistantCount,
	}
}

// Message Mappers

func (m *ChatMapper) ChatMessageToEntity(msg *model.ChatMessage) *entity.ChatMessage {
	if msg == nil {
		return nil
	}
	return &entity.ChatMessage{
		Id:        msg.Id,
		SessionId: msg.SessionId,
		Role:      entity.MessageRole(msg.Role),
		Payload:   m.DecodePayload(msg.Content),
		CreatedAt: msg.CreatedAt,
		ReadAt:    msg.ReadAt,
	}
}

func (m *ChatMapper) ChatMessageToModel(msg *entity.ChatMessage) (*model.ChatMessage, error) {
	if msg == nil {
		return nil, nil
	}
	content, err := m.EncodePayload(msg.Payload)
	if err != nil {
		return nil, err
	}
	var readAt *time.Time
	if msg.ReadAt != nil {
		t := msg.ReadAt.UTC()
		readAt = &t
	}
	return &model.ChatMessage{
		Id:        msg.Id,
		SessionId: msg.SessionId,
		Role:      string(msg.Role),
		Content:   content,
		CreatedAt: msg.CreatedAt.UTC(),
		ReadAt:    readAt,
	}, nil
}

func (m *ChatMapper) ChatMessagesToEntities(models []*model.ChatMessage) []*entity.ChatMessage {
	entities := make([]*entity.ChatMessage, len(models))
	for i, msg := range models {
		entities[i] = m.ChatMessageToEntity(msg)
	}
	return entities
}

func (m *ChatMapper) EncodePayload(p entity.Payload) (datatypes.JSON, error) {
	var content model.MessageContent
	switch v := p.(type) {
	case entity.TextPayload:
		content = model.MessageContent{Type: string(entity.PayloadTypeText), Text: v.Text}
	case entity.FormPayload:
		content = model.MessageContent{Type: string(entity.PayloadTypeForm), Intent: v.Intent}
	case entity.AgentConnectPayload:
		content = model.MessageContent{Type: string(entity.PayloadTypeAgentConnect), Status: string(v.Status)}
	default:
		return nil, fmt.Errorf("unsupported payload %T", p)
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// DecodePayload never fails: rows written by older clients without a
// recognised type are surfaced as text.
func (m *ChatMapper) DecodePayload(raw datatypes.JSON) entity.Payload {
	var content model.MessageContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return entity.TextPayload{}
	}
	switch entity.PayloadType(content.Type) {
	case entity.PayloadTypeForm:
		return entity.FormPayload{Intent: content.Intent}
	case entity.PayloadTypeAgentConnect:
		return entity.AgentConnectPayload{Status: entity.AgentConnectStatus(content.Status)}
	default:
		return entity.TextPayload{Text: content.Text}
	}
}

// Chip Mappers

func (m *ChatMapper) ChipIntentToEntity(c *model.ChatChipIntent) *entity.ChipIntent {
	if c == nil {
		return nil
	}
	return &entity.ChipIntent{
		Id:           c.Id,
		Intent:       c.Intent,
		ResponseText: c.ResponseText,
		IsActive:     c.IsActive,
		DisplayOrder: c.DisplayOrder,
	}
}

func (m *ChatMapper) ChipIntentToModel(c *entity.ChipIntent) *model.ChatChipIntent {
	if c == nil {
		return nil
	}
	return &model.ChatChipIntent{
		Id:           c.Id,
		Intent:       c.Intent,
		ResponseText: c.ResponseText,
		IsActive:     c.IsActive,
		DisplayOrder: c.DisplayOrder,
	}
}

func (m *ChatMapper) ChipPatternToEntity(p *model.ChatChipPattern) *entity.ChipPattern {
	if p == nil {
		return nil
	}
	return &entity.ChipPattern{
		Id:           p.Id,
		IntentId:     p.IntentId,
		PatternRegex: p.PatternRegex,
		IsActive:     p.IsActive,
		DisplayOrder: p.DisplayOrder,
	}
}

func (m *ChatMapper) ChipPatternToModel(p *entity.ChipPattern) *model.ChatChipPattern {
	if p == nil {
		return nil
	}
	return &model.ChatChipPattern{
		Id:           p.Id,
		IntentId:     p.IntentId,
		PatternRegex: p.PatternRegex,
		IsActive:     p.IsActive,
		DisplayOrder: p.DisplayOrder,
	}
}

// Live Chat Mappers

func (m *ChatMapper) LiveChatToEntity(l *model.LiveChatSession) *entity.LiveChatRequest {
	if l == nil {
		return nil
	}
	return &entity.LiveChatRequest{
		Id:              l.Id,
		ChatSessionId:   l.ChatSessionId,
		CustomerName:    l.CustomerName,
		CustomerContact: l.CustomerContact,
		InquiryType:     l.InquiryType,
		Description:     l.Description,
		Status:          entity.LiveChatStatus(l.Status),
		AgentId:         l.AgentId,
		ConnectedAt:     l.ConnectedAt,
		EndedAt:         l.EndedAt,
		CreatedAt:       l.CreatedAt,
	}
}

func (m *ChatMapper) LiveChatToModel(l *entity.LiveChatRequest) *model.LiveChatSession {
	if l == nil {
		return nil
	}
	return &model.LiveChatSession{
		Id:              l.Id,
		ChatSessionId:   l.ChatSessionId,
		CustomerName:    l.CustomerName,
		CustomerContact: l.CustomerContact,
		InquiryType:     l.InquiryType,
		Description:     l.Description,
		Status:          string(l.Status),
		AgentId:         l.AgentId,
		ConnectedAt:     l.ConnectedAt,
		EndedAt:         l.EndedAt,
		CreatedAt:       l.CreatedAt.UTC(),
	}
}
