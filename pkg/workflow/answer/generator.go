package answer

import (
	"context"
	"fmt"
	"log"
	"strings"

	"drug-agentic-be/internal/constant"
	"drug-agentic-be/pkg/llm"
	"drug-agentic-be/pkg/store"
	"drug-agentic-be/pkg/workflow"
)

const answerPrompt = `Bạn là trợ lý AI chuyên về y học và dược học, trả lời bằng tiếng Việt.
Chỉ sử dụng thông tin trong phần TÀI LIỆU dưới đây; tuyệt đối không bịa thêm.
Nếu tài liệu không đủ, hãy nói rõ phần nào chưa thể trả lời.
Luôn nhắc người dùng tham khảo ý kiến bác sĩ hoặc dược sĩ trước khi dùng thuốc.

%sTÀI LIỆU:
%s

Câu hỏi: %s

Trả lời:`

const generalPrompt = `Bạn là trợ lý AI chuyên về y học và dược học, trả lời bằng tiếng Việt.
Câu hỏi dưới đây nằm ngoài lĩnh vực chuyên môn của bạn.
Hãy lịch sự cho người dùng biết điều đó trong 2-3 câu và gợi ý những chủ đề
bạn có thể giúp: công dụng, liều dùng, tác dụng phụ của thuốc, tương tác
thuốc-gene, mối liên hệ giữa thuốc và bệnh.

Câu hỏi: %s`

// Generator produces the final answer from the accepted context, either as
// one string or as an ordered fragment stream.
type Generator struct {
	llmProvider llm.LLMProvider
	streamer    llm.StreamProvider
	logger      *log.Logger
}

// NewGenerator builds a generator. streamer may be nil; GenerateStream then
// falls back to an atomic generation emitted as a single fragment.
func NewGenerator(llmProvider llm.LLMProvider, streamer llm.StreamProvider, logger *log.Logger) *Generator {
	return &Generator{
		llmProvider: llmProvider,
		streamer:    streamer,
		logger:      logger,
	}
}

func (g *Generator) Generate(ctx context.Context, q workflow.Query, rc *store.RankedContext, history []store.Turn, degraded bool) (string, error) {
	if degraded || rc.Empty() {
		// Nothing to ground an answer in; never fabricate.
		return constant.NoEvidenceReply, nil
	}

	messages := g.buildMessages(q, rc, history)
	response, err := g.llmProvider.Chat(ctx, messages, llm.WithTemperature(0.3))
	if err != nil {
		return "", fmt.Errorf("answer generation llm call: %w", err)
	}
	return strings.TrimSpace(response), nil
}

func (g *Generator) GenerateStream(ctx context.Context, q workflow.Query, rc *store.RankedContext, history []store.Turn, degraded bool) (<-chan llm.Fragment, error) {
	if degraded || rc.Empty() || g.streamer == nil {
		text, err := g.Generate(ctx, q, rc, history, degraded)
		if err != nil {
			return nil, err
		}
		out := make(chan llm.Fragment, 2)
		out <- llm.Fragment{Content: text}
		out <- llm.Fragment{Done: true}
		close(out)
		return out, nil
	}

	messages := g.buildMessages(q, rc, history)
	return g.streamer.ChatStream(ctx, messages, llm.WithTemperature(0.3))
}

func (g *Generator) GeneralAnswer(ctx context.Context, q workflow.Query) (string, error) {
	response, err := g.llmProvider.Generate(ctx, fmt.Sprintf(generalPrompt, q.Text), llm.WithTemperature(0.5))
	if err != nil {
		return "", fmt.Errorf("general answer llm call: %w", err)
	}
	return strings.TrimSpace(response), nil
}

// buildMessages renders the history as alternating chat turns and puts the
// grounded prompt last, matching how the models were aligned.
func (g *Generator) buildMessages(q workflow.Query, rc *store.RankedContext, history []store.Turn) []llm.Message {
	messages := make([]llm.Message, 0, len(history)*2+1)
	for _, turn := range history {
		messages = append(messages,
			llm.Message{Role: constant.ChatRoleUser, Content: turn.Query},
			llm.Message{Role: "assistant", Content: turn.Answer},
		)
	}

	messages = append(messages, llm.Message{
		Role:    constant.ChatRoleUser,
		Content: fmt.Sprintf(answerPrompt, languageHint(q.Language), renderContext(rc), q.Text),
	})
	return messages
}

func languageHint(language string) string {
	if language == "" || strings.EqualFold(language, "vi") {
		return ""
	}
	return fmt.Sprintf("Người dùng yêu cầu trả lời bằng ngôn ngữ: %s.\n\n", language)
}

func renderContext(rc *store.RankedContext) string {
	var b strings.Builder
	for i, item := range rc.Items {
		fmt.Fprintf(&b, "--- Tài liệu %d (nguồn: %s) ---\n%s\n", i+1, item.Source, item.Content)
		if v := item.Metadata["category"]; v != "" {
			fmt.Fprintf(&b, "Phân loại: %s\n", v)
		}
		if v := item.Metadata["recommendation"]; v != "" {
			fmt.Fprintf(&b, "Khuyến nghị: %s\n", v)
		}
	}
	return b.String()
}
