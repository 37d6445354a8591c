package contract

import (
	"context"

	"support-chat-be/internal/entity"
	"support-chat-be/internal/repository/specification"

	"github.com/google/uuid"
)

type LiveChatRepository interface {
	Create(ctx context.Context, request *entity.LiveChatRequest) error
	// Transition applies request's status and timestamps only when the
	// stored status is one of from. It returns the number of rows changed.
	Transition(ctx context.Context, request *entity.LiveChatRequest, from ...entity.LiveChatStatus) (int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.LiveChatRequest, error)
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.LiveChatRequest, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.LiveChatRequest, error)
}
