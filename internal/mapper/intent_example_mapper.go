package mapper

import (
	"drug-agentic-be/internal/entity"
	"drug-agentic-be/internal/model"

	"github.com/pgvector/pgvector-go"
)

type IntentExampleMapper struct{}

func NewIntentExampleMapper() *IntentExampleMapper {
	return &IntentExampleMapper{}
}

func (m *IntentExampleMapper) ToEntity(e *model.IntentExample) *entity.IntentExample {
	if e == nil {
		return nil
	}
	return &entity.IntentExample{
		Id:             e.Id,
		Query:          e.Query,
		Checksum:       e.Checksum,
		Label:          e.Label,
		EmbeddingValue: e.EmbeddingValue.Slice(),
		CreatedAt:      e.CreatedAt,
	}
}

func (m *IntentExampleMapper) ToModel(e *entity.IntentExample) *model.IntentExample {
	if e == nil {
		return nil
	}
	return &model.IntentExample{
		Id:             e.Id,
		Query:          e.Query,
		Checksum:       e.Checksum,
		Label:          e.Label,
		EmbeddingValue: pgvector.NewVector(e.EmbeddingValue),
		CreatedAt:      e.CreatedAt,
	}
}
