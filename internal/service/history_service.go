package service

import (
	"context"

	"drug-agentic-be/internal/repository/memory"
	"drug-agentic-be/internal/repository/unitofwork"
	"drug-agentic-be/pkg/store"
)

// HistoryService serves recent conversation turns to the answer stage,
// cache first, database on miss. It satisfies the workflow engine's
// history dependency.
type HistoryService struct {
	uowFactory unitofwork.RepositoryFactory
	cache      *memory.HistoryCache
}

func NewHistoryService(uowFactory unitofwork.RepositoryFactory, cache *memory.HistoryCache) *HistoryService {
	return &HistoryService{
		uowFactory: uowFactory,
		cache:      cache,
	}
}

func (s *HistoryService) RecentTurns(ctx context.Context, userId, conversationId string, limit int) ([]store.Turn, error) {
	if turns, found := s.cache.Get(userId, conversationId); found {
		if len(turns) > limit {
			turns = turns[len(turns)-limit:]
		}
		return turns, nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	entities, err := uow.ConversationTurnRepository().RecentTurns(ctx, userId, conversationId, limit)
	if err != nil {
		return nil, err
	}

	turns := make([]store.Turn, len(entities))
	for i, e := range entities {
		turns[i] = store.Turn{
			Index:  e.TurnIndex,
			Query:  e.Query,
			Answer: e.Answer,
		}
	}
	s.cache.Save(userId, conversationId, turns)
	return turns, nil
}
