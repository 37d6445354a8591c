package service

import (
	"context"
	"fmt"
	"time"

	"support-chat-be/internal/dto"
	"support-chat-be/internal/entity"
	"support-chat-be/internal/pkg/logger"
	"support-chat-be/pkg/chat/chaterr"
	"support-chat-be/pkg/chat/conversation"
	"support-chat-be/pkg/chat/handoff"
	"support-chat-be/pkg/events"

	"github.com/google/uuid"
)

// ILiveChatService is the operator console.
type ILiveChatService interface {
	ListWaiting(ctx context.Context) ([]*dto.LiveChatRequestResponse, error)
	Connect(ctx context.Context, requestID uuid.UUID, agentID string) (*dto.LiveChatRequestResponse, error)
	End(ctx context.Context, requestID uuid.UUID) (*dto.LiveChatRequestResponse, error)
	SendAgentMessage(ctx context.Context, requestID uuid.UUID, req *dto.AgentMessageRequest) (*dto.ChatMessageResponse, error)
}

type liveChatService struct {
	handoff       *handoff.Coordinator
	conversations *conversation.Manager
	publisher     events.Publisher
	logger        logger.ILogger
}

func NewLiveChatService(coordinator *handoff.Coordinator, conversations *conversation.Manager, publisher events.Publisher, log logger.ILogger) ILiveChatService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &liveChatService{
		handoff:       coordinator,
		conversations: conversations,
		publisher:     publisher,
		logger:        log,
	}
}

func (s *liveChatService) ListWaiting(ctx context.Context) ([]*dto.LiveChatRequestResponse, error) {
	reqs, err := s.handoff.ListWaiting(ctx)
	if err != nil {
		return nil, err
	}
	res := make([]*dto.LiveChatRequestResponse, 0, len(reqs))
	for _, r := range reqs {
		res = append(res, toLiveChatResponse(r))
	}
	return res, nil
}

func (s *liveChatService) Connect(ctx context.Context, requestID uuid.UUID, agentID string) (*dto.LiveChatRequestResponse, error) {
	req, err := s.handoff.Connect(ctx, requestID, agentID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.LiveChatConnected, req)
	return toLiveChatResponse(req), nil
}

func (s *liveChatService) End(ctx context.Context, requestID uuid.UUID) (*dto.LiveChatRequestResponse, error) {
	req, err := s.handoff.End(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if s.conversations.Has(req.ChatSessionId) {
		if err := s.conversations.AgentEnded(ctx, req.ChatSessionId); err != nil {
			s.logger.Warn("LiveChatService", "Conversation did not take the end", map[string]interface{}{
				"session_id": req.ChatSessionId,
				"error":      err.Error(),
			})
		}
	}
	s.publish(ctx, events.LiveChatEnded, req)
	return toLiveChatResponse(req), nil
}

func (s *liveChatService) SendAgentMessage(ctx context.Context, requestID uuid.UUID, req *dto.AgentMessageRequest) (*dto.ChatMessageResponse, error) {
	lc, err := s.handoff.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if lc.Status != entity.LiveChatStatusConnected {
		return nil, fmt.Errorf("live chat %s is %s: %w", requestID, lc.Status, chaterr.ErrInvalidTransition)
	}

	msg, err := s.conversations.AgentMessage(ctx, lc.ChatSessionId, req.Text)
	if err != nil {
		return nil, err
	}
	return toMessageResponse(msg), nil
}

func (s *liveChatService) publish(ctx context.Context, eventType string, req *entity.LiveChatRequest) {
	evt := events.BaseEvent{
		Type:       eventType,
		Data:       liveChatEventData(req),
		OccurredAt: time.Now(),
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Error("LiveChatService", "Failed to publish event", map[string]interface{}{
			"type":       eventType,
			"request_id": req.Id.String(),
			"error":      err.Error(),
		})
	}
}
