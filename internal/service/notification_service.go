package service

import (
	"context"
	"encoding/json"
	"errors"

	"support-chat-be/internal/dto"
	"support-chat-be/internal/pkg/logger"
	"support-chat-be/pkg/chat/chaterr"
	"support-chat-be/pkg/chat/conversation"
	"support-chat-be/pkg/events"
	pktNats "support-chat-be/pkg/nats"
)

// ConversationNudger is the part of the conversation manager driven by bus
// events.
type ConversationNudger interface {
	Has(id string) bool
	PollHandoff(ctx context.Context, id string) (conversation.Snapshot, error)
	AgentEnded(ctx context.Context, id string) error
}

// LocalDelivery pushes a frame to this instance's websockets only.
type LocalDelivery interface {
	SendLocal(key string, data []byte)
}

// NotificationService listens to chat events from every instance. It
// forwards them to the operator dashboards connected here and nudges the
// conversations this instance hosts, so an operator action taken elsewhere
// shows up without waiting for the next poll.
type NotificationService struct {
	subscriber    *pktNats.Subscriber
	conversations ConversationNudger
	delivery      LocalDelivery
	operatorsKey  string
	logger        logger.ILogger
}

func NewNotificationService(sub *pktNats.Subscriber, conversations ConversationNudger, delivery LocalDelivery, operatorsKey string, log logger.ILogger) *NotificationService {
	return &NotificationService{
		subscriber:    sub,
		conversations: conversations,
		delivery:      delivery,
		operatorsKey:  operatorsKey,
		logger:        log,
	}
}

// Start begins listening to the event bus with a consumer owned by this
// instance.
func (s *NotificationService) Start(ctx context.Context) error {
	if err := s.subscriber.Subscribe(ctx, pktNats.SubjectPrefix+">", "", s.HandleEvent); err != nil {
		s.logger.Error("NotificationService", "Failed to start chat event subscriber", map[string]interface{}{"error": err.Error()})
		return err
	}
	s.logger.Info("NotificationService", "Listening to chat events", nil)
	return nil
}

func (s *NotificationService) HandleEvent(ctx context.Context, event events.Event) error {
	sessionID := events.SessionID(event)
	s.logger.Debug("NotificationService", "Processing event", map[string]interface{}{
		"type":       event.EventType(),
		"session_id": sessionID,
	})

	switch event.EventType() {
	case events.LiveChatRequested, events.FormSubmitted:
		s.notifyOperators(event)

	case events.LiveChatConnected:
		s.notifyOperators(event)
		s.nudge(ctx, sessionID, false)

	case events.LiveChatEnded:
		s.notifyOperators(event)
		s.nudge(ctx, sessionID, true)
	}
	return nil
}

func (s *NotificationService) notifyOperators(event events.Event) {
	if s.delivery == nil {
		return
	}
	frame, err := json.Marshal(dto.OperatorEventMessage{
		Kind: event.EventType(),
		Data: event.Payload(),
	})
	if err != nil {
		s.logger.Error("NotificationService", "Failed to encode operator frame", map[string]interface{}{"error": err.Error()})
		return
	}
	s.delivery.SendLocal(s.operatorsKey, frame)
}

func (s *NotificationService) nudge(ctx context.Context, sessionID string, ended bool) {
	if sessionID == "" || !s.conversations.Has(sessionID) {
		return
	}

	_, err := s.conversations.PollHandoff(ctx, sessionID)
	if err == nil && ended {
		err = s.conversations.AgentEnded(ctx, sessionID)
	}
	if err != nil && !errors.Is(err, chaterr.ErrConversationClosed) {
		s.logger.Warn("NotificationService", "Could not nudge conversation", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
}
