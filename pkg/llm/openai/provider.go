package openai

import (
	"context"
	"fmt"

	"drug-agentic-be/pkg/llm"

	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
)

// OpenAIProvider talks to any OpenAI-compatible chat endpoint (OpenAI,
// vLLM, LM Studio, ...) through langchaingo.
type OpenAIProvider struct {
	client *lcopenai.LLM
}

var _ llm.LLMProvider = &OpenAIProvider{}
var _ llm.StreamProvider = &OpenAIProvider{}

func NewOpenAIProvider(baseURL, apiKey, modelName string) (*OpenAIProvider, error) {
	opts := []lcopenai.Option{
		lcopenai.WithModel(modelName),
	}
	if baseURL != "" {
		opts = append(opts, lcopenai.WithBaseURL(baseURL))
	}
	if apiKey == "" {
		// Local OpenAI-compatible services accept any token.
		apiKey = "none"
	}
	opts = append(opts, lcopenai.WithToken(apiKey))

	client, err := lcopenai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	return &OpenAIProvider{client: client}, nil
}

func toMessageContent(history []llm.Message) []llms.MessageContent {
	out := make([]llms.MessageContent, len(history))
	for i, msg := range history {
		var role llms.ChatMessageType
		switch msg.Role {
		case "assistant", "model":
			role = llms.ChatMessageTypeAI
		case "system":
			role = llms.ChatMessageTypeSystem
		default:
			role = llms.ChatMessageTypeHuman
		}
		out[i] = llms.TextParts(role, msg.Content)
	}
	return out
}

func callOptions(opts ...llm.Option) []llms.CallOption {
	options := &llm.Options{Temperature: 0.7}
	for _, opt := range opts {
		opt(options)
	}

	callOpts := []llms.CallOption{llms.WithTemperature(options.Temperature)}
	if options.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(options.MaxTokens))
	}
	if options.Model != "" {
		callOpts = append(callOpts, llms.WithModel(options.Model))
	}
	return callOpts
}

func (p *OpenAIProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	resp, err := p.client.GenerateContent(ctx, toMessageContent(history), callOptions(opts...)...)
	if err != nil {
		return "", fmt.Errorf("openai chat failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat returned no choices")
	}
	return resp.Choices[0].Content, nil
}

func (p *OpenAIProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

func (p *OpenAIProvider) ChatStream(ctx context.Context, history []llm.Message, opts ...llm.Option) (<-chan llm.Fragment, error) {
	out := make(chan llm.Fragment)

	streamOpts := append(callOptions(opts...), llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
		select {
		case out <- llm.Fragment{Content: string(chunk)}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}))

	go func() {
		defer close(out)
		_, err := p.client.GenerateContent(ctx, toMessageContent(history), streamOpts...)
		if err != nil {
			select {
			case out <- llm.Fragment{Err: fmt.Errorf("openai stream failed: %w", err)}:
			case <-ctx.Done():
			}
			return
		}
		select {
		case out <- llm.Fragment{Done: true}:
		case <-ctx.Done():
		}
	}()

	return out, nil
}
