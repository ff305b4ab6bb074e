package mapper

import (
	"encoding/json"

	"drug-agentic-be/internal/entity"
	"drug-agentic-be/internal/model"
)

type ConversationTurnMapper struct{}

func NewConversationTurnMapper() *ConversationTurnMapper {
	return &ConversationTurnMapper{}
}

func (m *ConversationTurnMapper) ToEntity(t *model.ConversationTurn) *entity.ConversationTurn {
	if t == nil {
		return nil
	}

	var summary []entity.ContextItemSummary
	if len(t.ContextSummary) > 0 {
		// Ignore malformed rows; an unreadable summary should not block
		// history loading.
		_ = json.Unmarshal(t.ContextSummary, &summary)
	}

	return &entity.ConversationTurn{
		Id:             t.Id,
		UserId:         t.UserId,
		ConversationId: t.ConversationId,
		TurnIndex:      t.TurnIndex,
		Query:          t.Query,
		Intent:         t.Intent,
		Answer:         t.Answer,
		ContextSummary: summary,
		Status:         t.Status,
		LatencyMs:      t.LatencyMs,
		CreatedAt:      t.CreatedAt,
	}
}

func (m *ConversationTurnMapper) ToModel(t *entity.ConversationTurn) *model.ConversationTurn {
	if t == nil {
		return nil
	}

	var summary []byte
	if len(t.ContextSummary) > 0 {
		summary, _ = json.Marshal(t.ContextSummary)
	}

	return &model.ConversationTurn{
		Id:             t.Id,
		UserId:         t.UserId,
		ConversationId: t.ConversationId,
		TurnIndex:      t.TurnIndex,
		Query:          t.Query,
		Intent:         t.Intent,
		Answer:         t.Answer,
		ContextSummary: summary,
		Status:         t.Status,
		LatencyMs:      t.LatencyMs,
		CreatedAt:      t.CreatedAt,
	}
}
