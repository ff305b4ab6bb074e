package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// SearxngProvider queries a self-hosted SearXNG instance through its
// JSON API and keeps only results from trusted medical domains.
type SearxngProvider struct {
	baseURL        string
	allowedDomains []string
	snippetMaxLen  int
	client         *http.Client
}

type searxngResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

func NewSearxngProvider(baseURL string, allowedDomains []string, snippetMaxLen int) *SearxngProvider {
	if snippetMaxLen <= 0 {
		snippetMaxLen = 10000
	}
	return &SearxngProvider{
		baseURL:        strings.TrimRight(baseURL, "/"),
		allowedDomains: allowedDomains,
		snippetMaxLen:  snippetMaxLen,
		client:         &http.Client{},
	}
}

func (p *SearxngProvider) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")

	endpoint := fmt.Sprintf("%s/search?%s", p.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web search request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("web search error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	var searxResp searxngResponse
	if err := json.Unmarshal(bodyBytes, &searxResp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	results := make([]Result, 0, maxResults)
	for _, raw := range searxResp.Results {
		if !p.domainAllowed(raw.URL) {
			continue
		}
		results = append(results, Result{
			Title:   raw.Title,
			URL:     raw.URL,
			Content: truncate(raw.Content, p.snippetMaxLen),
		})
		if maxResults > 0 && len(results) >= maxResults {
			break
		}
	}
	return results, nil
}

func (p *SearxngProvider) domainAllowed(rawURL string) bool {
	if len(p.allowedDomains) == 0 {
		return true
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	for _, domain := range p.allowedDomains {
		domain = strings.ToLower(domain)
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

func truncate(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen])
}
