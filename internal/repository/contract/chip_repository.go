package contract

import (
	"context"

	"support-chat-be/internal/entity"
)

type ChipRepository interface {
	CreateIntent(ctx context.Context, intent *entity.ChipIntent) error
	CreatePattern(ctx context.Context, pattern *entity.ChipPattern) error
	// FindActiveIntents returns active intents ordered by display_order.
	FindActiveIntents(ctx context.Context) ([]*entity.ChipIntent, error)
	// FindActivePatterns returns active patterns in routing order.
	FindActivePatterns(ctx context.Context) ([]*entity.ChipPattern, error)
	CountIntents(ctx context.Context) (int64, error)
}
