package service

import (
	"context"

	"drug-agentic-be/internal/dto"
	"drug-agentic-be/internal/pkg/logger"
	"drug-agentic-be/internal/repository/specification"
	"drug-agentic-be/internal/repository/unitofwork"
	"drug-agentic-be/pkg/llm"
	"drug-agentic-be/pkg/workflow"

	"github.com/google/uuid"
)

// IChatService is the transport-facing surface of the resolution workflow.
type IChatService interface {
	Resolve(ctx context.Context, request *dto.ResolveChatRequest) (*dto.ResolveChatResponse, error)
	ResolveStream(ctx context.Context, request *dto.StreamChatRequest) (<-chan llm.Fragment, string, error)
	GetHistory(ctx context.Context, userId, conversationId string) (*dto.GetHistoryResponse, error)
}

type chatService struct {
	engine     *workflow.Engine
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
}

func NewChatService(engine *workflow.Engine, uowFactory unitofwork.RepositoryFactory, log logger.ILogger) IChatService {
	return &chatService{
		engine:     engine,
		uowFactory: uowFactory,
		logger:     log,
	}
}

func (s *chatService) Resolve(ctx context.Context, request *dto.ResolveChatRequest) (*dto.ResolveChatResponse, error) {
	conversationId := request.ConversationId
	if conversationId == "" {
		conversationId = uuid.NewString()
	}

	answer, err := s.engine.Resolve(ctx, workflow.Query{
		Text:           request.Query,
		UserId:         request.UserId,
		ConversationId: conversationId,
		Language:       request.Language,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("chat", "turn resolved", map[string]interface{}{
		"conversation_id": conversationId,
		"intent":          answer.Intent,
		"degraded":        answer.Degraded,
		"iterations":      answer.Iterations,
		"latency_ms":      answer.LatencyMs,
	})

	return &dto.ResolveChatResponse{
		ConversationId: conversationId,
		Answer:         answer.Text,
		Intent:         answer.Intent,
		Degraded:       answer.Degraded,
		Iterations:     answer.Iterations,
		Sources:        dto.SourcesFromContext(answer.Context),
		Model:          answer.ModelName,
		LatencyMs:      answer.LatencyMs,
	}, nil
}

func (s *chatService) ResolveStream(ctx context.Context, request *dto.StreamChatRequest) (<-chan llm.Fragment, string, error) {
	conversationId := request.ConversationId
	if conversationId == "" {
		conversationId = uuid.NewString()
	}

	fragments, err := s.engine.ResolveStream(ctx, workflow.Query{
		Text:           request.Query,
		UserId:         request.UserId,
		ConversationId: conversationId,
		Language:       request.Language,
	})
	if err != nil {
		return nil, "", err
	}
	return fragments, conversationId, nil
}

func (s *chatService) GetHistory(ctx context.Context, userId, conversationId string) (*dto.GetHistoryResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	turns, err := uow.ConversationTurnRepository().FindAll(ctx,
		specification.ByConversation{UserID: userId, ConversationID: conversationId},
		specification.OrderBy{Field: "turn_index", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	response := &dto.GetHistoryResponse{
		ConversationId: conversationId,
		Turns:          make([]dto.TurnDTO, len(turns)),
	}
	for i, turn := range turns {
		sources := make([]dto.SourceDTO, len(turn.ContextSummary))
		for j, item := range turn.ContextSummary {
			sources[j] = dto.SourceDTO{
				Source:   item.Source,
				SourceId: item.SourceID,
				Score:    item.Score,
			}
		}
		response.Turns[i] = dto.TurnDTO{
			TurnIndex: turn.TurnIndex,
			Query:     turn.Query,
			Answer:    turn.Answer,
			Intent:    turn.Intent,
			Status:    turn.Status,
			Sources:   sources,
			CreatedAt: turn.CreatedAt,
		}
	}
	return response, nil
}
