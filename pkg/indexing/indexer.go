package indexing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"

	"drug-agentic-be/internal/entity"
	"drug-agentic-be/internal/repository/unitofwork"
	"drug-agentic-be/pkg/embedding"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
)

// Index type names accepted by the indexing entry points.
const (
	TypeKnowledge = "knowledge"
	TypeIntent    = "intent"
)

// Result reports one bulk indexing run. Skipped counts documents whose
// checksum already existed, so re-running the same corpus is a no-op.
type Result struct {
	TotalRows   int
	TotalChunks int
	Indexed     int64
	Skipped     int64
	Duration    time.Duration
}

// Indexer embeds corpus documents through a bounded worker pool and bulk
// inserts them with checksum-based duplicate skipping.
type Indexer struct {
	embedder   embedding.EmbeddingProvider
	uowFactory unitofwork.RepositoryFactory
	poolSize   int
	logger     *log.Logger
}

func NewIndexer(
	embedder embedding.EmbeddingProvider,
	uowFactory unitofwork.RepositoryFactory,
	poolSize int,
	logger *log.Logger,
) *Indexer {
	if poolSize <= 0 {
		poolSize = runtime.NumCPU() / 2
		if poolSize < 1 {
			poolSize = 1
		}
	}
	return &Indexer{
		embedder:   embedder,
		uowFactory: uowFactory,
		poolSize:   poolSize,
		logger:     logger,
	}
}

// IndexKnowledge ingests the drug corpus CSV into the knowledge base.
func (ix *Indexer) IndexKnowledge(ctx context.Context, csvPath string) (*Result, error) {
	start := time.Now()

	docs, totalRows, err := KnowledgeChunksFromCSV(csvPath)
	if err != nil {
		return nil, err
	}
	ix.logger.Printf("[INDEX] composed %d knowledge chunks from %d rows", len(docs), totalRows)

	vectors, err := ix.embedAll(ctx, len(docs), func(i int) string { return docs[i].Content })
	if err != nil {
		return nil, err
	}

	chunks := make([]*entity.KnowledgeChunk, 0, len(docs))
	for i, doc := range docs {
		if vectors[i] == nil {
			continue
		}
		chunks = append(chunks, &entity.KnowledgeChunk{
			Id:             uuid.New(),
			Content:        doc.Content,
			Checksum:       checksum(doc.Content),
			Category:       doc.Category,
			Recommendation: doc.Recommendation,
			Description:    doc.Description,
			EmbeddingValue: vectors[i],
			CreatedAt:      time.Now(),
		})
	}

	uow := ix.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("begin indexing transaction: %w", err)
	}
	defer uow.Rollback()

	inserted, err := uow.KnowledgeChunkRepository().CreateBulkSkipDuplicates(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("bulk insert knowledge chunks: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("commit indexing transaction: %w", err)
	}

	result := &Result{
		TotalRows:   totalRows,
		TotalChunks: len(chunks),
		Indexed:     inserted,
		Skipped:     int64(len(chunks)) - inserted,
		Duration:    time.Since(start),
	}
	ix.logger.Printf("[INDEX] knowledge done: %d inserted, %d skipped in %s", result.Indexed, result.Skipped, result.Duration)
	return result, nil
}

// IndexIntents ingests labelled example queries for the intent classifier.
func (ix *Indexer) IndexIntents(ctx context.Context, csvPath string) (*Result, error) {
	start := time.Now()

	docs, totalRows, err := IntentExamplesFromCSV(csvPath)
	if err != nil {
		return nil, err
	}
	ix.logger.Printf("[INDEX] loaded %d intent examples from %d rows", len(docs), totalRows)

	vectors, err := ix.embedAll(ctx, len(docs), func(i int) string { return docs[i].Query })
	if err != nil {
		return nil, err
	}

	examples := make([]*entity.IntentExample, 0, len(docs))
	for i, doc := range docs {
		if vectors[i] == nil {
			continue
		}
		examples = append(examples, &entity.IntentExample{
			Id:             uuid.New(),
			Query:          doc.Query,
			Checksum:       checksum(doc.Query),
			Label:          doc.Label,
			EmbeddingValue: vectors[i],
			CreatedAt:      time.Now(),
		})
	}

	uow := ix.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("begin indexing transaction: %w", err)
	}
	defer uow.Rollback()

	inserted, err := uow.IntentExampleRepository().CreateBulkSkipDuplicates(ctx, examples)
	if err != nil {
		return nil, fmt.Errorf("bulk insert intent examples: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("commit indexing transaction: %w", err)
	}

	result := &Result{
		TotalRows:   totalRows,
		TotalChunks: len(examples),
		Indexed:     inserted,
		Skipped:     int64(len(examples)) - inserted,
		Duration:    time.Since(start),
	}
	ix.logger.Printf("[INDEX] intents done: %d inserted, %d skipped in %s", result.Indexed, result.Skipped, result.Duration)
	return result, nil
}

// embedAll generates embeddings through the worker pool. A failed document
// leaves a nil vector and is dropped by the caller; only total failure of
// every document is an error.
func (ix *Indexer) embedAll(ctx context.Context, count int, textAt func(int) string) ([][]float32, error) {
	if count == 0 {
		return nil, fmt.Errorf("corpus produced no documents")
	}

	pool, err := ants.NewPool(ix.poolSize)
	if err != nil {
		return nil, fmt.Errorf("create embedding pool: %w", err)
	}
	defer pool.Release()

	vectors := make([][]float32, count)
	var wg sync.WaitGroup
	for i := 0; i < count; i++ {
		i := i
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			res, err := ix.embedder.Generate(ctx, textAt(i), "RETRIEVAL_DOCUMENT")
			if err != nil {
				ix.logger.Printf("[INDEX] embedding failed for document %d: %v", i, err)
				return
			}
			vectors[i] = res.Embedding.Values
		})
		if submitErr != nil {
			wg.Done()
			ix.logger.Printf("[INDEX] pool submit failed for document %d: %v", i, submitErr)
		}
	}
	wg.Wait()

	embedded := 0
	for _, v := range vectors {
		if v != nil {
			embedded++
		}
	}
	if embedded == 0 {
		return nil, fmt.Errorf("embedding failed for the entire corpus")
	}
	return vectors, nil
}

func checksum(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
