package contract

import (
	"context"

	"drug-agentic-be/internal/entity"
	"drug-agentic-be/internal/repository/specification"
)

// ScoredIntentExample pairs a labelled example with its similarity to a
// query embedding.
type ScoredIntentExample struct {
	Example    *entity.IntentExample
	Similarity float64
}

type IntentExampleRepository interface {
	Create(ctx context.Context, example *entity.IntentExample) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.IntentExample, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	CreateBulkSkipDuplicates(ctx context.Context, examples []*entity.IntentExample) (int64, error)

	SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]*ScoredIntentExample, error)
}
