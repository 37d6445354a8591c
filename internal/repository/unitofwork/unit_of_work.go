package unitofwork

import (
	"context"

	"support-chat-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ChatSessionRepository() contract.ChatSessionRepository
	ChatMessageRepository() contract.ChatMessageRepository
	ChipRepository() contract.ChipRepository
	LiveChatRepository() contract.LiveChatRepository
}
