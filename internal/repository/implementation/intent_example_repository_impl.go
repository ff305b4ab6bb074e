package implementation

import (
	"context"

	"drug-agentic-be/internal/entity"
	"drug-agentic-be/internal/mapper"
	"drug-agentic-be/internal/model"
	"drug-agentic-be/internal/repository/contract"
	"drug-agentic-be/internal/repository/specification"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type IntentExampleRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.IntentExampleMapper
}

func NewIntentExampleRepository(db *gorm.DB) contract.IntentExampleRepository {
	return &IntentExampleRepositoryImpl{
		db:     db,
		mapper: mapper.NewIntentExampleMapper(),
	}
}

func (r *IntentExampleRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *IntentExampleRepositoryImpl) Create(ctx context.Context, example *entity.IntentExample) error {
	m := r.mapper.ToModel(example)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*example = *r.mapper.ToEntity(m)
	return nil
}

func (r *IntentExampleRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.IntentExample, error) {
	var models []*model.IntentExample
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.IntentExample, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *IntentExampleRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.IntentExample{}).Count(&count).Error
	return count, err
}

func (r *IntentExampleRepositoryImpl) CreateBulkSkipDuplicates(ctx context.Context, examples []*entity.IntentExample) (int64, error) {
	if len(examples) == 0 {
		return 0, nil
	}

	models := make([]*model.IntentExample, len(examples))
	for i, e := range examples {
		models[i] = r.mapper.ToModel(e)
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "checksum"}},
			DoNothing: true,
		}).
		Create(models)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *IntentExampleRepositoryImpl) SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]*contract.ScoredIntentExample, error) {
	if limit <= 0 {
		limit = 5
	}

	type result struct {
		model.IntentExample
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := r.db.WithContext(ctx).
		Table("intent_examples").
		Select("intent_examples.*, 1 - (embedding_value <=> ?) as similarity", queryVector).
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredIntentExample, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredIntentExample{
			Example:    r.mapper.ToEntity(&res.IntentExample),
			Similarity: res.Similarity,
		}
	}
	return scored, nil
}
