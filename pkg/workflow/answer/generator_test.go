package answer

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drug-agentic-be/internal/constant"
	"drug-agentic-be/pkg/llm"
	"drug-agentic-be/pkg/store"
	"drug-agentic-be/pkg/workflow"
)

type fakeLLM struct {
	response string
	err      error

	chatCalls     int
	generateCalls int
	history       []llm.Message
	prompt        string
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	f.chatCalls++
	f.history = history
	return f.response, f.err
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	f.generateCalls++
	f.prompt = prompt
	return f.response, f.err
}

type fakeStreamer struct {
	fragments []llm.Fragment
	err       error
	calls     int
}

func (f *fakeStreamer) ChatStream(ctx context.Context, history []llm.Message, options ...llm.Option) (<-chan llm.Fragment, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make(chan llm.Fragment, len(f.fragments))
	for _, frag := range f.fragments {
		out <- frag
	}
	close(out)
	return out, nil
}

func discard() *log.Logger { return log.New(io.Discard, "", 0) }

func someContext() *store.RankedContext {
	return &store.RankedContext{Items: []store.EvidenceItem{
		{
			Source:  store.SourceKnowledgeBase,
			Content: "Hoạt chất thuốc Paracetamol giảm đau hạ sốt.",
			Metadata: map[string]string{
				"category":       "Giảm đau",
				"recommendation": "Dùng theo chỉ định",
			},
		},
	}}
}

func TestGenerateEmptyContextNeverCallsLLM(t *testing.T) {
	provider := &fakeLLM{response: "should not be used"}
	g := NewGenerator(provider, nil, discard())

	for _, rc := range []*store.RankedContext{nil, {}} {
		text, err := g.Generate(context.Background(), workflow.Query{Text: "q"}, rc, nil, false)
		require.NoError(t, err)
		assert.Equal(t, constant.NoEvidenceReply, text)
	}
	assert.Zero(t, provider.chatCalls)
}

func TestGenerateDegradedNeverCallsLLM(t *testing.T) {
	provider := &fakeLLM{response: "should not be used"}
	g := NewGenerator(provider, nil, discard())

	text, err := g.Generate(context.Background(), workflow.Query{Text: "q"}, someContext(), nil, true)
	require.NoError(t, err)
	assert.Equal(t, constant.NoEvidenceReply, text)
	assert.Zero(t, provider.chatCalls)
}

func TestGenerateGroundedPrompt(t *testing.T) {
	provider := &fakeLLM{response: "  Paracetamol giảm đau.  "}
	g := NewGenerator(provider, nil, discard())

	history := []store.Turn{
		{Index: 0, Query: "câu hỏi trước", Answer: "trả lời trước"},
	}
	text, err := g.Generate(context.Background(), workflow.Query{Text: "paracetamol là gì"}, someContext(), history, false)
	require.NoError(t, err)
	assert.Equal(t, "Paracetamol giảm đau.", text)

	// History renders as alternating turns ahead of the grounded prompt.
	require.Len(t, provider.history, 3)
	assert.Equal(t, constant.ChatRoleUser, provider.history[0].Role)
	assert.Equal(t, "câu hỏi trước", provider.history[0].Content)
	assert.Equal(t, "assistant", provider.history[1].Role)
	assert.Equal(t, "trả lời trước", provider.history[1].Content)

	final := provider.history[2].Content
	assert.Contains(t, final, "paracetamol là gì")
	assert.Contains(t, final, "Hoạt chất thuốc Paracetamol")
	assert.Contains(t, final, "Phân loại: Giảm đau")
	assert.Contains(t, final, "Khuyến nghị: Dùng theo chỉ định")
}

func TestGenerateLanguageHint(t *testing.T) {
	provider := &fakeLLM{response: "ok"}
	g := NewGenerator(provider, nil, discard())

	_, err := g.Generate(context.Background(), workflow.Query{Text: "q", Language: "en"}, someContext(), nil, false)
	require.NoError(t, err)
	assert.Contains(t, provider.history[0].Content, "ngôn ngữ: en")

	// Vietnamese is the default and needs no hint.
	_, err = g.Generate(context.Background(), workflow.Query{Text: "q", Language: "vi"}, someContext(), nil, false)
	require.NoError(t, err)
	assert.NotContains(t, provider.history[0].Content, "ngôn ngữ:")
}

func TestGenerateStreamUsesStreamer(t *testing.T) {
	streamer := &fakeStreamer{fragments: []llm.Fragment{
		{Content: "một phần"},
		{Done: true},
	}}
	g := NewGenerator(&fakeLLM{}, streamer, discard())

	fragments, err := g.GenerateStream(context.Background(), workflow.Query{Text: "q"}, someContext(), nil, false)
	require.NoError(t, err)

	var count int
	for range fragments {
		count++
	}
	assert.Equal(t, 2, count)
	assert.Equal(t, 1, streamer.calls)
}

func TestGenerateStreamDegradedIsAtomic(t *testing.T) {
	streamer := &fakeStreamer{}
	g := NewGenerator(&fakeLLM{}, streamer, discard())

	fragments, err := g.GenerateStream(context.Background(), workflow.Query{Text: "q"}, nil, nil, true)
	require.NoError(t, err)

	var frags []llm.Fragment
	for frag := range fragments {
		frags = append(frags, frag)
	}
	require.Len(t, frags, 2)
	assert.Equal(t, constant.NoEvidenceReply, frags[0].Content)
	assert.True(t, frags[1].Done)
	assert.Zero(t, streamer.calls)
}

func TestGenerateStreamNilStreamerFallsBack(t *testing.T) {
	provider := &fakeLLM{response: "câu trả lời đầy đủ"}
	g := NewGenerator(provider, nil, discard())

	fragments, err := g.GenerateStream(context.Background(), workflow.Query{Text: "q"}, someContext(), nil, false)
	require.NoError(t, err)

	var frags []llm.Fragment
	for frag := range fragments {
		frags = append(frags, frag)
	}
	require.Len(t, frags, 2)
	assert.Equal(t, "câu trả lời đầy đủ", frags[0].Content)
	assert.Equal(t, 1, provider.chatCalls)
}

func TestGeneralAnswer(t *testing.T) {
	provider := &fakeLLM{response: "Tôi chuyên về y dược."}
	g := NewGenerator(provider, nil, discard())

	text, err := g.GeneralAnswer(context.Background(), workflow.Query{Text: "thời tiết hôm nay"})
	require.NoError(t, err)
	assert.Equal(t, "Tôi chuyên về y dược.", text)
	assert.Contains(t, provider.prompt, "thời tiết hôm nay")
}

func TestGeneralAnswerError(t *testing.T) {
	g := NewGenerator(&fakeLLM{err: errors.New("offline")}, nil, discard())
	_, err := g.GeneralAnswer(context.Background(), workflow.Query{Text: "q"})
	require.Error(t, err)
}
