package mapper

import (
	"time"

	"drug-agentic-be/internal/entity"
	"drug-agentic-be/internal/model"

	"github.com/pgvector/pgvector-go"
)

type KnowledgeChunkMapper struct{}

func NewKnowledgeChunkMapper() *KnowledgeChunkMapper {
	return &KnowledgeChunkMapper{}
}

func (m *KnowledgeChunkMapper) ToEntity(c *model.KnowledgeChunk) *entity.KnowledgeChunk {
	if c == nil {
		return nil
	}

	var updatedAt *time.Time
	if !c.UpdatedAt.IsZero() {
		t := c.UpdatedAt
		updatedAt = &t
	}

	return &entity.KnowledgeChunk{
		Id:             c.Id,
		Content:        c.Content,
		Checksum:       c.Checksum,
		Category:       c.Category,
		Recommendation: c.Recommendation,
		Description:    c.Description,
		EmbeddingValue: c.EmbeddingValue.Slice(),
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      updatedAt,
	}
}

func (m *KnowledgeChunkMapper) ToModel(c *entity.KnowledgeChunk) *model.KnowledgeChunk {
	if c == nil {
		return nil
	}

	out := &model.KnowledgeChunk{
		Id:             c.Id,
		Content:        c.Content,
		Checksum:       c.Checksum,
		Category:       c.Category,
		Recommendation: c.Recommendation,
		Description:    c.Description,
		EmbeddingValue: pgvector.NewVector(c.EmbeddingValue),
		CreatedAt:      c.CreatedAt,
	}
	if c.UpdatedAt != nil {
		out.UpdatedAt = *c.UpdatedAt
	}
	return out
}
