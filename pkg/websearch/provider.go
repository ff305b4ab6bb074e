package websearch

import "context"

// Result is one web document returned for a search query.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// SearchProvider fetches web evidence for a query.
type SearchProvider interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}
