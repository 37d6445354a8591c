package service

import (
	"context"
	"encoding/json"
	"time"

	"support-chat-be/internal/dto"
	"support-chat-be/internal/entity"
	"support-chat-be/internal/pkg/logger"
	"support-chat-be/internal/pkg/mailer"
	"support-chat-be/pkg/chat/conversation"
	"support-chat-be/pkg/chat/form"
	"support-chat-be/pkg/chat/handoff"
	"support-chat-be/pkg/chat/message"
	"support-chat-be/pkg/chat/session"
	"support-chat-be/pkg/events"
)

type IChatService interface {
	EnsureSession(ctx context.Context, req *dto.CreateSessionRequest) (*dto.SessionStateResponse, error)
	SubmitUserText(ctx context.Context, sessionID string, req *dto.SendMessageRequest) (*dto.ChatMessageResponse, error)
	SubmitQuickMenu(ctx context.Context, sessionID string, req *dto.QuickMenuRequest) (*dto.SessionStateResponse, error)
	SubmitForm(ctx context.Context, sessionID, intent string, req *dto.SubmitFormRequest) (*dto.SubmitFormResponse, error)
	SubmitFollowUp(ctx context.Context, sessionID string, req *dto.FollowUpRequest) (*dto.SessionStateResponse, error)
	PollHandoffStatus(ctx context.Context, sessionID string) (*dto.HandoffStatusResponse, error)
	MarkRead(ctx context.Context, sessionID string) (*dto.MarkReadResponse, error)
	Close(ctx context.Context, sessionID string) error
	GetHistory(ctx context.Context, sessionID string) ([]*dto.ChatMessageResponse, error)
	GetOverview(ctx context.Context) ([]*dto.SessionOverviewResponse, error)
}

type chatService struct {
	manager       *conversation.Manager
	sessions      *session.Registry
	messages      *message.Store
	handoff       *handoff.Coordinator
	publisher     events.Publisher
	mailer        mailer.IEmailService
	operatorInbox string
	logger        logger.ILogger
}

type ChatServiceDeps struct {
	Manager       *conversation.Manager
	Sessions      *session.Registry
	Messages      *message.Store
	Handoff       *handoff.Coordinator
	Publisher     events.Publisher
	Mailer        mailer.IEmailService
	OperatorInbox string
	Logger        logger.ILogger
}

func NewChatService(deps ChatServiceDeps) IChatService {
	pub := deps.Publisher
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &chatService{
		manager:       deps.Manager,
		sessions:      deps.Sessions,
		messages:      deps.Messages,
		handoff:       deps.Handoff,
		publisher:     pub,
		mailer:        deps.Mailer,
		operatorInbox: deps.OperatorInbox,
		logger:        deps.Logger,
	}
}

func (s *chatService) EnsureSession(ctx context.Context, req *dto.CreateSessionRequest) (*dto.SessionStateResponse, error) {
	snap, err := s.manager.Open(ctx, req.SessionId)
	if err != nil {
		return nil, err
	}
	res := toStateResponse(snap)
	return &res, nil
}

func (s *chatService) SubmitUserText(ctx context.Context, sessionID string, req *dto.SendMessageRequest) (*dto.ChatMessageResponse, error) {
	msg, err := s.manager.SubmitText(ctx, sessionID, req.Text)
	if err != nil {
		return nil, err
	}
	return toMessageResponse(msg), nil
}

func (s *chatService) SubmitQuickMenu(ctx context.Context, sessionID string, req *dto.QuickMenuRequest) (*dto.SessionStateResponse, error) {
	if err := s.manager.SubmitQuickMenu(ctx, sessionID, req.Intent); err != nil {
		return nil, err
	}
	return s.state(ctx, sessionID)
}

func (s *chatService) SubmitForm(ctx context.Context, sessionID, intent string, req *dto.SubmitFormRequest) (*dto.SubmitFormResponse, error) {
	sub, err := s.manager.SubmitForm(ctx, sessionID, intent, req.Data)
	if err != nil {
		return nil, err
	}

	if sub.Intent() == form.IntentAgentConnect {
		s.announceHandoff(ctx, sessionID)
	} else {
		s.publish(ctx, events.FormSubmitted, map[string]interface{}{
			"session_id": sessionID,
			"intent":     sub.Intent(),
			"fields":     formFields(sub),
		})
	}

	state, err := s.state(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &dto.SubmitFormResponse{Intent: sub.Intent(), Session: *state}, nil
}

// announceHandoff tells operators about a new waiting request. Failures are
// logged; the request already exists and shows up in the waiting list.
func (s *chatService) announceHandoff(ctx context.Context, sessionID string) {
	req, err := s.handoff.Latest(ctx, sessionID)
	if err != nil || req == nil {
		s.logger.Warn("ChatService", "Could not read new live chat request", map[string]interface{}{
			"session_id": sessionID,
		})
		return
	}

	s.publish(ctx, events.LiveChatRequested, liveChatEventData(req))

	if s.mailer != nil && s.operatorInbox != "" {
		go func() {
			_ = s.mailer.SendHandoffAlert(s.operatorInbox, req)
		}()
	}
}

func (s *chatService) SubmitFollowUp(ctx context.Context, sessionID string, req *dto.FollowUpRequest) (*dto.SessionStateResponse, error) {
	if err := s.manager.SubmitFollowUp(ctx, sessionID, conversation.FollowUpAction(req.Action)); err != nil {
		return nil, err
	}
	return s.state(ctx, sessionID)
}

func (s *chatService) PollHandoffStatus(ctx context.Context, sessionID string) (*dto.HandoffStatusResponse, error) {
	snap, err := s.manager.PollHandoff(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	req, err := s.handoff.Latest(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &dto.HandoffStatusResponse{
		Session: toStateResponse(snap),
		Request: toLiveChatResponse(req),
	}, nil
}

func (s *chatService) MarkRead(ctx context.Context, sessionID string) (*dto.MarkReadResponse, error) {
	if _, err := s.sessions.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	seen, err := s.sessions.SyncSeen(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &dto.MarkReadResponse{SeenCount: seen}, nil
}

func (s *chatService) Close(ctx context.Context, sessionID string) error {
	if _, err := s.sessions.Get(ctx, sessionID); err != nil {
		return err
	}
	s.manager.Close(sessionID)
	return nil
}

func (s *chatService) GetHistory(ctx context.Context, sessionID string) ([]*dto.ChatMessageResponse, error) {
	if _, err := s.sessions.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return toMessageResponses(msgs), nil
}

func (s *chatService) GetOverview(ctx context.Context) ([]*dto.SessionOverviewResponse, error) {
	overview, err := s.sessions.Overview(ctx)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.SessionOverviewResponse, 0, len(overview))
	for _, o := range overview {
		res = append(res, &dto.SessionOverviewResponse{
			Id:              o.Id,
			CreatedAt:       o.CreatedAt,
			LastMessageAt:   o.LastMessageAt,
			LastMessageText: o.LastMessageText,
			UnreadCount:     o.UnreadAssistantCount,
		})
	}
	return res, nil
}

func (s *chatService) state(ctx context.Context, sessionID string) (*dto.SessionStateResponse, error) {
	snap, err := s.manager.Snapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	res := toStateResponse(snap)
	return &res, nil
}

func (s *chatService) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	evt := events.BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Error("ChatService", "Failed to publish event", map[string]interface{}{
			"type":  eventType,
			"error": err.Error(),
		})
	}
}

func liveChatEventData(req *entity.LiveChatRequest) map[string]interface{} {
	data := map[string]interface{}{
		"session_id":       req.ChatSessionId,
		"request_id":       req.Id.String(),
		"status":           string(req.Status),
		"customer_name":    req.CustomerName,
		"customer_contact": req.CustomerContact,
		"inquiry_type":     req.InquiryType,
	}
	if req.AgentId != nil {
		data["agent_id"] = *req.AgentId
	}
	return data
}

// formFields flattens a submission into its JSON field map.
func formFields(sub form.Submission) map[string]interface{} {
	raw, err := json.Marshal(sub)
	if err != nil {
		return nil
	}
	var fields map[string]interface{}
	_ = json.Unmarshal(raw, &fields)
	return fields
}
