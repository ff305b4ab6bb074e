package implementation

import (
	"context"

	"drug-agentic-be/internal/entity"
	"drug-agentic-be/internal/mapper"
	"drug-agentic-be/internal/model"
	"drug-agentic-be/internal/repository/contract"
	"drug-agentic-be/internal/repository/specification"

	"gorm.io/gorm"
)

type ConversationTurnRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ConversationTurnMapper
}

func NewConversationTurnRepository(db *gorm.DB) contract.ConversationTurnRepository {
	return &ConversationTurnRepositoryImpl{
		db:     db,
		mapper: mapper.NewConversationTurnMapper(),
	}
}

func (r *ConversationTurnRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ConversationTurnRepositoryImpl) Create(ctx context.Context, turn *entity.ConversationTurn) error {
	m := r.mapper.ToModel(turn)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*turn = *r.mapper.ToEntity(m)
	return nil
}

func (r *ConversationTurnRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ConversationTurn, error) {
	var models []*model.ConversationTurn
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ConversationTurn, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *ConversationTurnRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.ConversationTurn{}).Count(&count).Error
	return count, err
}

func (r *ConversationTurnRepositoryImpl) NextTurnIndex(ctx context.Context, userId, conversationId string) (int, error) {
	var maxIndex int64
	err := r.db.WithContext(ctx).
		Model(&model.ConversationTurn{}).
		Where("user_id = ? AND conversation_id = ?", userId, conversationId).
		Select("COALESCE(MAX(turn_index), 0)").
		Scan(&maxIndex).Error
	if err != nil {
		return 0, err
	}
	return int(maxIndex) + 1, nil
}

func (r *ConversationTurnRepositoryImpl) RecentTurns(ctx context.Context, userId, conversationId string, limit int) ([]*entity.ConversationTurn, error) {
	if limit <= 0 {
		limit = 3
	}
	var models []*model.ConversationTurn
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND conversation_id = ?", userId, conversationId).
		Order("turn_index DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	// Reverse to chronological order for prompt building.
	entities := make([]*entity.ConversationTurn, len(models))
	for i, m := range models {
		entities[len(models)-1-i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}
