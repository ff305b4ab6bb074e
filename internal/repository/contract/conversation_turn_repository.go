package contract

import (
	"context"

	"drug-agentic-be/internal/entity"
	"drug-agentic-be/internal/repository/specification"
)

type ConversationTurnRepository interface {
	Create(ctx context.Context, turn *entity.ConversationTurn) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ConversationTurn, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// NextTurnIndex returns 1 for a fresh conversation, max(turn_index)+1
	// otherwise.
	NextTurnIndex(ctx context.Context, userId, conversationId string) (int, error)

	// RecentTurns returns the newest limit turns of a conversation in
	// chronological order.
	RecentTurns(ctx context.Context, userId, conversationId string, limit int) ([]*entity.ConversationTurn, error)
}
