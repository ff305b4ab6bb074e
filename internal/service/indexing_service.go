package service

import (
	"context"
	"fmt"
	"log"

	"drug-agentic-be/internal/dto"
	"drug-agentic-be/pkg/events"
	"drug-agentic-be/pkg/indexing"
	pktNats "drug-agentic-be/pkg/nats"
)

// IIndexingService runs bulk corpus ingestion, outside the per-query
// workflow.
type IIndexingService interface {
	Run(ctx context.Context, request *dto.RunIndexingRequest) (*dto.RunIndexingResponse, error)
}

type indexingService struct {
	indexer        *indexing.Indexer
	eventPublisher *pktNats.Publisher
}

func NewIndexingService(indexer *indexing.Indexer, eventPublisher *pktNats.Publisher) IIndexingService {
	return &indexingService{
		indexer:        indexer,
		eventPublisher: eventPublisher,
	}
}

func (s *indexingService) Run(ctx context.Context, request *dto.RunIndexingRequest) (*dto.RunIndexingResponse, error) {
	var result *indexing.Result
	var err error

	switch request.IndexType {
	case indexing.TypeKnowledge:
		result, err = s.indexer.IndexKnowledge(ctx, request.CsvPath)
	case indexing.TypeIntent:
		result, err = s.indexer.IndexIntents(ctx, request.CsvPath)
	default:
		return nil, fmt.Errorf("unknown index type %q (want %q or %q)", request.IndexType, indexing.TypeKnowledge, indexing.TypeIntent)
	}
	if err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		evt := events.NewIndexingCompleted(request.IndexType, result.Indexed, result.Skipped)
		if pubErr := s.eventPublisher.Publish(ctx, evt); pubErr != nil {
			log.Printf("[WARN] Failed to publish indexing event: %v", pubErr)
		}
	}

	return &dto.RunIndexingResponse{
		IndexType:    request.IndexType,
		TotalRows:    result.TotalRows,
		TotalChunks:  result.TotalChunks,
		IndexedCount: result.Indexed,
		SkippedCount: result.Skipped,
		DurationMs:   result.Duration.Milliseconds(),
	}, nil
}
