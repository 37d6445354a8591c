package implementation

import (
	"context"

	"support-chat-be/internal/entity"
	"support-chat-be/internal/mapper"
	"support-chat-be/internal/model"
	"support-chat-be/internal/repository/contract"
	"support-chat-be/internal/repository/specification"

	"gorm.io/gorm"
)

type ChipRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChipRepository(db *gorm.DB) contract.ChipRepository {
	return &ChipRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *ChipRepositoryImpl) CreateIntent(ctx context.Context, intent *entity.ChipIntent) error {
	m := r.mapper.ChipIntentToModel(intent)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*intent = *r.mapper.ChipIntentToEntity(m)
	return nil
}

func (r *ChipRepositoryImpl) CreatePattern(ctx context.Context, pattern *entity.ChipPattern) error {
	m := r.mapper.ChipPatternToModel(pattern)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*pattern = *r.mapper.ChipPatternToEntity(m)
	return nil
}

func (r *ChipRepositoryImpl) FindActiveIntents(ctx context.Context) ([]*entity.ChipIntent, error) {
	var models []*model.ChatChipIntent
	query := r.db.WithContext(ctx)
	for _, spec := range []specification.Specification{
		specification.IsActive{},
		specification.OrderBy{Field: "display_order"},
		specification.OrderBy{Field: "id"},
	} {
		query = spec.Apply(query)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ChipIntent, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ChipIntentToEntity(m)
	}
	return entities, nil
}

func (r *ChipRepositoryImpl) FindActivePatterns(ctx context.Context) ([]*entity.ChipPattern, error) {
	var models []*model.ChatChipPattern
	query := r.db.WithContext(ctx)
	for _, spec := range []specification.Specification{
		specification.IsActive{},
		specification.OrderBy{Field: "display_order"},
		specification.OrderBy{Field: "id"},
	} {
		query = spec.Apply(query)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ChipPattern, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ChipPatternToEntity(m)
	}
	return entities, nil
}

func (r *ChipRepositoryImpl) CountIntents(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.ChatChipIntent{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
