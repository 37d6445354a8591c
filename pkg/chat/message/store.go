// Package message is the persistent, ordered message log of a chat session
// with read-receipt tracking for assistant messages.
package message

import (
	"context"
	"fmt"
	"time"

	"support-chat-be/internal/entity"
	"support-chat-be/internal/pkg/logger"
	"support-chat-be/internal/repository/specification"
	"support-chat-be/internal/repository/unitofwork"
	"support-chat-be/pkg/chat/chaterr"
)

const module = "MessageStore"

// Draft is a message that has not been stored yet.
type Draft struct {
	Role    entity.MessageRole
	Payload entity.Payload
	At      time.Time
}

type Store struct {
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
}

func NewStore(uowFactory unitofwork.RepositoryFactory, logger logger.ILogger) *Store {
	return &Store{
		uowFactory: uowFactory,
		logger:     logger,
	}
}

func validate(role entity.MessageRole, payload entity.Payload) error {
	if !role.Valid() {
		return fmt.Errorf("role %q: %w", role, chaterr.ErrValidationFailed)
	}
	if payload == nil || payload.Empty() {
		return fmt.Errorf("empty payload: %w", chaterr.ErrValidationFailed)
	}
	return nil
}

// Append stores one message. at is the message's position in the log and
// must not be earlier than the previous message of the session.
func (s *Store) Append(ctx context.Context, sessionID string, role entity.MessageRole, payload entity.Payload, at time.Time) (*entity.ChatMessage, error) {
	if err := validate(role, payload); err != nil {
		return nil, err
	}

	msg := &entity.ChatMessage{
		SessionId: sessionID,
		Role:      role,
		Payload:   payload,
		CreatedAt: at,
	}
	if err := s.Save(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Save stores a fully built message, keeping its id when set.
func (s *Store) Save(ctx context.Context, msg *entity.ChatMessage) error {
	if err := validate(msg.Role, msg.Payload); err != nil {
		return err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChatMessageRepository().Create(ctx, msg); err != nil {
		s.logger.Error(module, "Failed to append message", map[string]interface{}{
			"session_id": msg.SessionId,
			"role":       msg.Role,
			"error":      err.Error(),
		})
		return fmt.Errorf("append message: %v: %w", err, chaterr.ErrStorageUnavailable)
	}
	return nil
}

// AppendBatch stores drafts in one insert, all or nothing.
func (s *Store) AppendBatch(ctx context.Context, sessionID string, drafts []Draft) ([]*entity.ChatMessage, error) {
	msgs := make([]*entity.ChatMessage, 0, len(drafts))
	for _, d := range drafts {
		if err := validate(d.Role, d.Payload); err != nil {
			return nil, err
		}
		msgs = append(msgs, &entity.ChatMessage{
			SessionId: sessionID,
			Role:      d.Role,
			Payload:   d.Payload,
			CreatedAt: d.At,
		})
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChatMessageRepository().CreateBatch(ctx, msgs); err != nil {
		s.logger.Error(module, "Failed to append message batch", map[string]interface{}{
			"session_id": sessionID,
			"size":       len(drafts),
			"error":      err.Error(),
		})
		return nil, fmt.Errorf("append batch: %v: %w", err, chaterr.ErrStorageUnavailable)
	}
	return msgs, nil
}

// List returns the session's messages in creation order. Unknown sessions
// yield an empty slice.
func (s *Store) List(ctx context.Context, sessionID string) ([]*entity.ChatMessage, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	msgs, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.BySessionID{SessionID: sessionID},
		specification.Chronological{},
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %v: %w", err, chaterr.ErrStorageUnavailable)
	}
	if msgs == nil {
		msgs = []*entity.ChatMessage{}
	}
	return msgs, nil
}

// Last returns the most recent message of the session, or nil.
func (s *Store) Last(ctx context.Context, sessionID string) (*entity.ChatMessage, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	msg, err := uow.ChatMessageRepository().FindOne(ctx,
		specification.BySessionID{SessionID: sessionID},
		specification.Chronological{Desc: true},
	)
	if err != nil {
		return nil, fmt.Errorf("last message: %v: %w", err, chaterr.ErrStorageUnavailable)
	}
	return msg, nil
}

// MarkAllAssistantRead stamps read_at on every unread assistant message.
// Already-read messages keep their timestamp, so repeated calls are no-ops.
func (s *Store) MarkAllAssistantRead(ctx context.Context, sessionID string, now time.Time) (int64, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	n, err := uow.ChatMessageRepository().MarkRead(ctx, sessionID, entity.MessageRoleAssistant, now)
	if err != nil {
		return 0, fmt.Errorf("mark read: %v: %w", err, chaterr.ErrStorageUnavailable)
	}
	return n, nil
}

func (s *Store) CountAssistant(ctx context.Context, sessionID string) (int64, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	n, err := uow.ChatMessageRepository().Count(ctx,
		specification.BySessionID{SessionID: sessionID},
		specification.ByRole{Role: entity.MessageRoleAssistant},
	)
	if err != nil {
		return 0, fmt.Errorf("count assistant: %v: %w", err, chaterr.ErrStorageUnavailable)
	}
	return n, nil
}

func (s *Store) CountUnread(ctx context.Context, sessionID string) (int64, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	n, err := uow.ChatMessageRepository().Count(ctx,
		specification.BySessionID{SessionID: sessionID},
		specification.ByRole{Role: entity.MessageRoleAssistant},
		specification.Unread{},
	)
	if err != nil {
		return 0, fmt.Errorf("count unread: %v: %w", err, chaterr.ErrStorageUnavailable)
	}
	return n, nil
}
