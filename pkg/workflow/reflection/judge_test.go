package reflection

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drug-agentic-be/pkg/llm"
	"drug-agentic-be/pkg/store"
)

type fakeLLM struct {
	response string
	err      error
	prompt   string
	calls    int
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return f.response, f.err
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	f.calls++
	f.prompt = prompt
	return f.response, f.err
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestJudgeEmptyContextSkipsLLM(t *testing.T) {
	provider := &fakeLLM{}
	j := NewJudge(provider, testLogger())

	verdict, err := j.Judge(context.Background(), "liều paracetamol", nil, 1)
	require.NoError(t, err)

	assert.False(t, verdict.Sufficient)
	assert.Equal(t, []string{"liều paracetamol"}, verdict.FollowUps)
	assert.Equal(t, 1, verdict.Iteration)
	assert.Zero(t, provider.calls)
}

func TestJudgeParsesVerdict(t *testing.T) {
	tests := []struct {
		name           string
		response       string
		wantSufficient bool
		wantFollowUps  int
	}{
		{
			name:           "sufficient",
			response:       `{"sufficient": true, "reasoning": "đủ thông tin", "follow_up_queries": []}`,
			wantSufficient: true,
			wantFollowUps:  0,
		},
		{
			name: "insufficient with follow-ups",
			response: `Đây là đánh giá: {"sufficient": false, "reasoning": "thiếu liều dùng",
				"follow_up_queries": ["liều dùng paracetamol người lớn", "  ", "chống chỉ định paracetamol"]}`,
			wantSufficient: false,
			wantFollowUps:  2,
		},
		{
			name: "follow-ups capped at three",
			response: `{"sufficient": false, "reasoning": "thiếu nhiều",
				"follow_up_queries": ["a", "b", "c", "d", "e"]}`,
			wantSufficient: false,
			wantFollowUps:  3,
		},
	}

	rc := &store.RankedContext{Items: []store.EvidenceItem{
		{Source: store.SourceKnowledgeBase, Content: "Paracetamol giảm đau hạ sốt."},
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := NewJudge(&fakeLLM{response: tt.response}, testLogger())

			verdict, err := j.Judge(context.Background(), "q", rc, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSufficient, verdict.Sufficient)
			assert.Len(t, verdict.FollowUps, tt.wantFollowUps)
		})
	}
}

func TestJudgeMalformedResponse(t *testing.T) {
	rc := &store.RankedContext{Items: []store.EvidenceItem{{Content: "x"}}}

	for _, response := range []string{"không phải JSON", `{"sufficient": `} {
		j := NewJudge(&fakeLLM{response: response}, testLogger())
		_, err := j.Judge(context.Background(), "q", rc, 0)
		assert.Error(t, err, "response %q should not parse", response)
	}
}

func TestJudgeLLMError(t *testing.T) {
	rc := &store.RankedContext{Items: []store.EvidenceItem{{Content: "x"}}}
	j := NewJudge(&fakeLLM{err: errors.New("model offline")}, testLogger())

	_, err := j.Judge(context.Background(), "q", rc, 0)
	require.Error(t, err)
}

func TestJudgePromptCarriesContext(t *testing.T) {
	provider := &fakeLLM{response: `{"sufficient": true}`}
	j := NewJudge(provider, testLogger())

	rc := &store.RankedContext{Items: []store.EvidenceItem{
		{Source: store.SourceKnowledgeBase, Content: "Aspirin chống kết tập tiểu cầu."},
		{Source: store.SourceWeb, Content: "Aspirin dùng liều thấp."},
	}}
	_, err := j.Judge(context.Background(), "aspirin có tác dụng gì", rc, 0)
	require.NoError(t, err)

	assert.Contains(t, provider.prompt, "aspirin có tác dụng gì")
	assert.Contains(t, provider.prompt, "Aspirin chống kết tập tiểu cầu.")
	assert.Contains(t, provider.prompt, "(web)")
}
