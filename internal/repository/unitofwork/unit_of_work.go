package unitofwork

import (
	"context"

	"drug-agentic-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ConversationTurnRepository() contract.ConversationTurnRepository
	KnowledgeChunkRepository() contract.KnowledgeChunkRepository
	IntentExampleRepository() contract.IntentExampleRepository
}
