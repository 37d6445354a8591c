package implementation

import (
	"context"
	"errors"

	"support-chat-be/internal/entity"
	"support-chat-be/internal/mapper"
	"support-chat-be/internal/model"
	"support-chat-be/internal/repository/contract"
	"support-chat-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LiveChatRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewLiveChatRepository(db *gorm.DB) contract.LiveChatRepository {
	return &LiveChatRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *LiveChatRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *LiveChatRepositoryImpl) Create(ctx context.Context, request *entity.LiveChatRequest) error {
	if request.Id == uuid.Nil {
		request.Id = uuid.New()
	}
	m := r.mapper.LiveChatToModel(request)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*request = *r.mapper.LiveChatToEntity(m)
	return nil
}

func (r *LiveChatRepositoryImpl) Transition(ctx context.Context, request *entity.LiveChatRequest, from ...entity.LiveChatStatus) (int64, error) {
	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}
	updates := map[string]interface{}{
		"status":       string(request.Status),
		"agent_id":     request.AgentId,
		"connected_at": request.ConnectedAt,
		"ended_at":     request.EndedAt,
	}
	result := r.db.WithContext(ctx).
		Model(&model.LiveChatSession{}).
		Where("id = ? AND status IN ?", request.Id, allowed).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *LiveChatRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*entity.LiveChatRequest, error) {
	return r.FindOne(ctx, specification.ByID{ID: id})
}

func (r *LiveChatRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.LiveChatRequest, error) {
	var m model.LiveChatSession
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.LiveChatToEntity(&m), nil
}

func (r *LiveChatRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.LiveChatRequest, error) {
	var models []*model.LiveChatSession
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.LiveChatRequest, len(models))
	for i, m := range models {
		entities[i] = r.mapper.LiveChatToEntity(m)
	}
	return entities, nil
}
