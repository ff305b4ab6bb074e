package augment

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"drug-agentic-be/pkg/llm"
)

const augmentPrompt = `Bạn là chuyên gia tra cứu thông tin y dược.
Hãy phân tích câu hỏi của người dùng và tạo các truy vấn tìm kiếm hiệu quả.

Câu hỏi: "%s"

Trả về DUY NHẤT một JSON object theo mẫu:
{
  "structured_query": "câu truy vấn chính, ngắn gọn, giữ tên thuốc/bệnh nguyên văn",
  "augmented_queries": ["tối đa 3 truy vấn bổ sung, mỗi truy vấn nhắm một khía cạnh khác"]
}`

type augmentation struct {
	StructuredQuery  string   `json:"structured_query"`
	AugmentedQueries []string `json:"augmented_queries"`
}

// Augmenter rewrites a user query into retrieval sub-queries through a
// single structured LLM call.
type Augmenter struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

func NewAugmenter(llmProvider llm.LLMProvider, logger *log.Logger) *Augmenter {
	return &Augmenter{llmProvider: llmProvider, logger: logger}
}

func (a *Augmenter) Augment(ctx context.Context, query string) ([]string, error) {
	prompt := fmt.Sprintf(augmentPrompt, query)

	response, err := a.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.0))
	if err != nil {
		return nil, fmt.Errorf("augmentation llm call: %w", err)
	}

	parsed, err := parseAugmentation(response)
	if err != nil {
		return nil, err
	}

	queries := make([]string, 0, len(parsed.AugmentedQueries)+1)
	if strings.TrimSpace(parsed.StructuredQuery) != "" {
		queries = append(queries, strings.TrimSpace(parsed.StructuredQuery))
	}
	for _, q := range parsed.AugmentedQueries {
		if strings.TrimSpace(q) != "" {
			queries = append(queries, strings.TrimSpace(q))
		}
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("augmentation produced no usable queries")
	}

	a.logger.Printf("[AUGMENT] %d queries for %q", len(queries), truncate(query, 50))
	return queries, nil
}

func parseAugmentation(response string) (*augmentation, error) {
	jsonStr := extractJSON(response)
	if jsonStr == "" {
		return nil, fmt.Errorf("no JSON object in augmentation response")
	}
	var parsed augmentation
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return nil, fmt.Errorf("parse augmentation response: %w", err)
	}
	return &parsed, nil
}

func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")
	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return ""
	}
	return response[startIdx : endIdx+1]
}

func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
