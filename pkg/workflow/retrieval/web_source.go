package retrieval

import (
	"context"
	"fmt"

	"drug-agentic-be/pkg/store"
	"drug-agentic-be/pkg/websearch"
)

// WebSource retrieves live evidence from trusted medical sites through a
// web search provider. Web results carry no backend relevance score, so a
// positional score stands in until the reranker assigns unified scores.
type WebSource struct {
	provider   websearch.SearchProvider
	maxResults int
}

func NewWebSource(provider websearch.SearchProvider, maxResults int) *WebSource {
	if maxResults <= 0 {
		maxResults = 3
	}
	return &WebSource{provider: provider, maxResults: maxResults}
}

func (s *WebSource) Name() string {
	return string(store.SourceWeb)
}

func (s *WebSource) Search(ctx context.Context, subQuery string) ([]store.EvidenceItem, error) {
	results, err := s.provider.Search(ctx, subQuery, s.maxResults)
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}

	items := make([]store.EvidenceItem, 0, len(results))
	for i, res := range results {
		content := res.Content
		if res.Title != "" {
			content = res.Title + "\n" + content
		}
		items = append(items, store.EvidenceItem{
			Source:   store.SourceWeb,
			SourceID: res.URL,
			Content:  content,
			Score:    1.0 / float64(i+1),
			Metadata: map[string]string{"title": res.Title},
		})
	}
	return items, nil
}
