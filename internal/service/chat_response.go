package service

import (
	"support-chat-be/internal/dto"
	"support-chat-be/internal/entity"
	"support-chat-be/pkg/chat/conversation"
)

func toStateResponse(s conversation.Snapshot) dto.SessionStateResponse {
	return dto.SessionStateResponse{
		SessionId:     s.SessionID,
		State:         string(s.State),
		ShowQuickMenu: s.ShowQuickMenu,
		ShowFollowUp:  s.ShowFollowUp,
		OpenForm:      s.OpenForm,
	}
}

func toMessageResponse(m *entity.ChatMessage) *dto.ChatMessageResponse {
	if m == nil {
		return nil
	}
	res := &dto.ChatMessageResponse{
		Id:        m.Id,
		SessionId: m.SessionId,
		Role:      string(m.Role),
		CreatedAt: m.CreatedAt,
		ReadAt:    m.ReadAt,
	}
	if m.Payload == nil {
		return res
	}
	res.Type = string(m.Payload.Type())
	switch p := m.Payload.(type) {
	case entity.TextPayload:
		res.Text = p.Text
	case entity.FormPayload:
		res.Intent = p.Intent
	case entity.AgentConnectPayload:
		res.Status = string(p.Status)
	}
	return res
}

func toMessageResponses(msgs []*entity.ChatMessage) []*dto.ChatMessageResponse {
	res := make([]*dto.ChatMessageResponse, 0, len(msgs))
	for _, m := range msgs {
		res = append(res, toMessageResponse(m))
	}
	return res
}

func toLiveChatResponse(r *entity.LiveChatRequest) *dto.LiveChatRequestResponse {
	if r == nil {
		return nil
	}
	return &dto.LiveChatRequestResponse{
		Id:              r.Id,
		SessionId:       r.ChatSessionId,
		CustomerName:    r.CustomerName,
		CustomerContact: r.CustomerContact,
		InquiryType:     r.InquiryType,
		Description:     r.Description,
		Status:          string(r.Status),
		AgentId:         r.AgentId,
		ConnectedAt:     r.ConnectedAt,
		EndedAt:         r.EndedAt,
		CreatedAt:       r.CreatedAt,
	}
}

func toRevealMessage(ev conversation.RevealEvent) dto.RevealEventMessage {
	return dto.RevealEventMessage{
		Kind:          string(ev.Kind),
		SessionId:     ev.SessionID,
		Message:       toMessageResponse(ev.Message),
		Text:          ev.Text,
		State:         string(ev.State),
		ShowQuickMenu: ev.ShowQuickMenu,
		ShowFollowUp:  ev.ShowFollowUp,
		OpenForm:      ev.OpenForm,
	}
}
