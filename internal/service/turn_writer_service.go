package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"drug-agentic-be/internal/dto"
	"drug-agentic-be/internal/entity"
	"drug-agentic-be/internal/repository/memory"
	"drug-agentic-be/internal/repository/unitofwork"
	"drug-agentic-be/pkg/events"
	pktNats "drug-agentic-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// ITurnWriterService consumes dispatched turn records and writes them to
// durable storage, off the answer delivery path.
type ITurnWriterService interface {
	Consume(ctx context.Context) error
}

type turnWriterService struct {
	pubSub         *gochannel.GoChannel
	topicName      string
	uowFactory     unitofwork.RepositoryFactory
	historyCache   *memory.HistoryCache
	eventPublisher *pktNats.Publisher
}

func NewTurnWriterService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	historyCache *memory.HistoryCache,
	eventPublisher *pktNats.Publisher,
) ITurnWriterService {
	return &turnWriterService{
		pubSub:         pubSub,
		topicName:      topicName,
		uowFactory:     uowFactory,
		historyCache:   historyCache,
		eventPublisher: eventPublisher,
	}
}

func (ts *turnWriterService) Consume(ctx context.Context) error {
	messages, err := ts.pubSub.Subscribe(ctx, ts.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			ts.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (ts *turnWriterService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishTurnMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal turn message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	uow := ts.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		log.Printf("[ERROR] Failed to begin transaction: %v", err)
		msg.Nack()
		return
	}
	defer uow.Rollback()

	turnIndex, err := uow.ConversationTurnRepository().NextTurnIndex(ctx, payload.UserId, payload.ConversationId)
	if err != nil {
		log.Printf("[ERROR] Failed to compute turn index for %s: %v", payload.ConversationId, err)
		msg.Nack()
		return
	}

	summary := make([]entity.ContextItemSummary, len(payload.Context))
	for i, item := range payload.Context {
		summary[i] = entity.ContextItemSummary{
			Source:   item.Source,
			SourceID: item.SourceId,
			Score:    item.Score,
		}
	}

	turn := &entity.ConversationTurn{
		Id:             uuid.New(),
		UserId:         payload.UserId,
		ConversationId: payload.ConversationId,
		TurnIndex:      turnIndex,
		Query:          payload.Query,
		Intent:         payload.Intent,
		Answer:         payload.Answer,
		ContextSummary: summary,
		Status:         payload.Status,
		LatencyMs:      payload.LatencyMs,
		CreatedAt:      time.Now(),
	}
	if err := uow.ConversationTurnRepository().Create(ctx, turn); err != nil {
		log.Printf("[ERROR] Failed to write turn %d of %s: %v", turnIndex, payload.ConversationId, err)
		msg.Nack()
		return
	}

	if err := uow.Commit(); err != nil {
		log.Printf("[ERROR] Failed to commit turn write: %v", err)
		msg.Nack()
		return
	}

	// Cached history is now stale.
	ts.historyCache.Invalidate(payload.UserId, payload.ConversationId)

	if ts.eventPublisher != nil {
		evt := events.NewChatTurnSaved(payload.UserId, payload.ConversationId, turnIndex, payload.Status)
		if err := ts.eventPublisher.Publish(ctx, evt); err != nil {
			log.Printf("[WARN] Failed to publish turn saved event: %v", err)
		}
	}

	log.Printf("[SUCCESS] Turn %d written for conversation %s (status: %s)", turnIndex, payload.ConversationId, payload.Status)
	msg.Ack()
}
