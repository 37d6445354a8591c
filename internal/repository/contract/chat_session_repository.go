package contract

import (
	"context"

	"support-chat-be/internal/entity"
	"support-chat-be/internal/repository/specification"
)

type ChatSessionRepository interface {
	// CreateIfNotExists inserts the session unless a row with the same id
	// already exists, in which case the stored row is left untouched.
	CreateIfNotExists(ctx context.Context, session *entity.ChatSession) error
	UpdateSeenCount(ctx context.Context, id string, count int) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error)
}
