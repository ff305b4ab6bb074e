package reflection

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"drug-agentic-be/pkg/llm"
	"drug-agentic-be/pkg/store"
	"drug-agentic-be/pkg/workflow"
)

const judgePrompt = `Bạn là chuyên gia thẩm định thông tin y dược.
Đánh giá xem các tài liệu dưới đây đã ĐỦ để trả lời câu hỏi chưa.

Câu hỏi: "%s"

Tài liệu:
%s

Trả về DUY NHẤT một JSON object theo mẫu:
{
  "sufficient": true hoặc false,
  "reasoning": "thông tin nào còn thiếu, ngắn gọn",
  "follow_up_queries": ["tối đa 3 truy vấn tìm phần còn thiếu, rỗng nếu đã đủ"]
}`

const maxFollowUps = 3

type judgement struct {
	Sufficient      bool     `json:"sufficient"`
	Reasoning       string   `json:"reasoning"`
	FollowUpQueries []string `json:"follow_up_queries"`
}

// Judge asks the model whether the current context answers the query and,
// when it does not, which follow-up searches would close the gap. Callers
// treat a Judge error as "sufficient".
type Judge struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

func NewJudge(llmProvider llm.LLMProvider, logger *log.Logger) *Judge {
	return &Judge{llmProvider: llmProvider, logger: logger}
}

func (j *Judge) Judge(ctx context.Context, query string, rc *store.RankedContext, iteration int) (*workflow.Verdict, error) {
	if rc.Empty() {
		// Nothing to evaluate; report insufficient with the original
		// question as the only lead.
		return &workflow.Verdict{
			Sufficient: false,
			Reasoning:  "no evidence retrieved",
			FollowUps:  []string{query},
			Iteration:  iteration,
		}, nil
	}

	prompt := fmt.Sprintf(judgePrompt, query, renderContext(rc))
	response, err := j.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.0))
	if err != nil {
		return nil, fmt.Errorf("sufficiency judgement llm call: %w", err)
	}

	parsed, err := parseJudgement(response)
	if err != nil {
		return nil, err
	}

	followUps := make([]string, 0, maxFollowUps)
	for _, q := range parsed.FollowUpQueries {
		if strings.TrimSpace(q) == "" {
			continue
		}
		followUps = append(followUps, strings.TrimSpace(q))
		if len(followUps) == maxFollowUps {
			break
		}
	}

	j.logger.Printf("[REFLECT] sufficient=%v iteration=%d follow-ups=%d", parsed.Sufficient, iteration, len(followUps))
	return &workflow.Verdict{
		Sufficient: parsed.Sufficient,
		Reasoning:  parsed.Reasoning,
		FollowUps:  followUps,
		Iteration:  iteration,
	}, nil
}

func renderContext(rc *store.RankedContext) string {
	var b strings.Builder
	for i, item := range rc.Items {
		fmt.Fprintf(&b, "[%d] (%s) %s\n", i+1, item.Source, item.Content)
	}
	return b.String()
}

func parseJudgement(response string) (*judgement, error) {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")
	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return nil, fmt.Errorf("no JSON object in judgement response")
	}

	var parsed judgement
	if err := json.Unmarshal([]byte(response[startIdx:endIdx+1]), &parsed); err != nil {
		return nil, fmt.Errorf("parse judgement response: %w", err)
	}
	return &parsed, nil
}
