package rerank

import "context"

// ScoredDocument carries the relevance score assigned to one of the
// input documents, identified by its position in the request.
type ScoredDocument struct {
	Index int
	Score float64
}

// Reranker reorders candidate documents by relevance to a query.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]ScoredDocument, error)
}
