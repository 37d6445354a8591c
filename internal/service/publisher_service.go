package service

import (
	"context"
	"encoding/json"

	"support-chat-be/internal/pkg/logger"
	"support-chat-be/pkg/chat/conversation"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// RevealTopic carries reveal frames from the conversation workers to the
// websocket consumer.
const RevealTopic = "chat.reveal"

// IPublisherService is the conversation sink. Deliver never blocks; Run
// drains the queue onto the event bus in order.
type IPublisherService interface {
	conversation.Sink
	Run(ctx context.Context)
}

type publisherService struct {
	topic  string
	pub    message.Publisher
	queue  chan conversation.RevealEvent
	logger logger.ILogger
}

func NewPublisherService(topic string, pub message.Publisher, buffer int, log logger.ILogger) IPublisherService {
	if buffer <= 0 {
		buffer = 1024
	}
	return &publisherService{
		topic:  topic,
		pub:    pub,
		queue:  make(chan conversation.RevealEvent, buffer),
		logger: log,
	}
}

func (p *publisherService) Deliver(ev conversation.RevealEvent) {
	select {
	case p.queue <- ev:
	default:
		// the client resyncs from history, so a dropped frame is not fatal
		p.logger.Warn("Publisher", "Reveal queue full, dropping frame", map[string]interface{}{
			"session_id": ev.SessionID,
			"kind":       string(ev.Kind),
		})
	}
}

func (p *publisherService) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-p.queue:
			p.publish(ev)
		}
	}
}

func (p *publisherService) publish(ev conversation.RevealEvent) {
	payload, err := json.Marshal(toRevealMessage(ev))
	if err != nil {
		p.logger.Error("Publisher", "Failed to encode reveal frame", map[string]interface{}{
			"session_id": ev.SessionID,
			"error":      err.Error(),
		})
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("session_id", ev.SessionID)
	if err := p.pub.Publish(p.topic, msg); err != nil {
		p.logger.Error("Publisher", "Failed to publish reveal frame", map[string]interface{}{
			"session_id": ev.SessionID,
			"error":      err.Error(),
		})
	}
}
