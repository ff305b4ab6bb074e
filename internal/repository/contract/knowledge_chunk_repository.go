package contract

import (
	"context"

	"drug-agentic-be/internal/entity"
	"drug-agentic-be/internal/repository/specification"
)

// ScoredKnowledgeChunk pairs a chunk with its cosine similarity to a query
// embedding.
type ScoredKnowledgeChunk struct {
	Chunk      *entity.KnowledgeChunk
	Similarity float64
}

type KnowledgeChunkRepository interface {
	Create(ctx context.Context, chunk *entity.KnowledgeChunk) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.KnowledgeChunk, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// CreateBulkSkipDuplicates inserts chunks, silently skipping rows whose
	// checksum already exists. Returns the number of rows actually inserted.
	CreateBulkSkipDuplicates(ctx context.Context, chunks []*entity.KnowledgeChunk) (int64, error)

	// SearchSimilarWithScore runs a cosine similarity search, returning at
	// most limit chunks with similarity >= threshold, best first.
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*ScoredKnowledgeChunk, error)
}
