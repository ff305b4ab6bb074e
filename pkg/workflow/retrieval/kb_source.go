package retrieval

import (
	"context"
	"fmt"

	"drug-agentic-be/internal/repository/contract"
	"drug-agentic-be/pkg/embedding"
	"drug-agentic-be/pkg/store"
)

// KnowledgeBaseSource searches the curated drug knowledge base by cosine
// similarity over chunk embeddings.
type KnowledgeBaseSource struct {
	embedder  embedding.EmbeddingProvider
	chunks    contract.KnowledgeChunkRepository
	topK      int
	threshold float64
}

func NewKnowledgeBaseSource(
	embedder embedding.EmbeddingProvider,
	chunks contract.KnowledgeChunkRepository,
	topK int,
	threshold float64,
) *KnowledgeBaseSource {
	if topK <= 0 {
		topK = 10
	}
	return &KnowledgeBaseSource{
		embedder:  embedder,
		chunks:    chunks,
		topK:      topK,
		threshold: threshold,
	}
}

func (s *KnowledgeBaseSource) Name() string {
	return string(store.SourceKnowledgeBase)
}

func (s *KnowledgeBaseSource) Search(ctx context.Context, subQuery string) ([]store.EvidenceItem, error) {
	emb, err := s.embedder.Generate(ctx, subQuery, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, fmt.Errorf("embed sub-query: %w", err)
	}

	scored, err := s.chunks.SearchSimilarWithScore(ctx, emb.Embedding.Values, s.topK, s.threshold)
	if err != nil {
		return nil, fmt.Errorf("knowledge base search: %w", err)
	}

	items := make([]store.EvidenceItem, 0, len(scored))
	for _, sc := range scored {
		metadata := map[string]string{}
		if sc.Chunk.Category != "" {
			metadata["category"] = sc.Chunk.Category
		}
		if sc.Chunk.Recommendation != "" {
			metadata["recommendation"] = sc.Chunk.Recommendation
		}
		if sc.Chunk.Description != "" {
			metadata["description"] = sc.Chunk.Description
		}
		items = append(items, store.EvidenceItem{
			Source:   store.SourceKnowledgeBase,
			SourceID: sc.Chunk.Id.String(),
			Content:  sc.Chunk.Content,
			Score:    sc.Similarity,
			Metadata: metadata,
		})
	}
	return items, nil
}
