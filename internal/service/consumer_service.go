// FILE: internal/service/consumer_service.go
package service

import (
	"context"

	"support-chat-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
)

// FrameDelivery pushes a raw frame to everyone listening on key.
// Implemented by the websocket hub.
type FrameDelivery interface {
	Send(key string, data []byte)
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	sub       message.Subscriber
	topicName string
	delivery  FrameDelivery
	logger    logger.ILogger
}

// NewConsumerService forwards reveal frames from the event bus to the
// websocket hub.
func NewConsumerService(sub message.Subscriber, topicName string, delivery FrameDelivery, log logger.ILogger) IConsumerService {
	return &consumerService{
		sub:       sub,
		topicName: topicName,
		delivery:  delivery,
		logger:    log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.sub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(msg)
		}
	}()
	return nil
}

func (cs *consumerService) processMessage(msg *message.Message) {
	sessionID := msg.Metadata.Get("session_id")
	if sessionID == "" {
		cs.logger.Warn("Consumer", "Reveal frame without session id", map[string]interface{}{
			"message_uuid": msg.UUID,
		})
		msg.Ack()
		return
	}

	cs.delivery.Send(sessionID, msg.Payload)
	msg.Ack()
}
