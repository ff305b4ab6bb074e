package intent

import (
	"context"
	"fmt"
	"log"

	"drug-agentic-be/internal/repository/contract"
	"drug-agentic-be/pkg/embedding"
)

// Classifier labels a query by majority vote over its nearest labelled
// example queries in the intent_examples table. Confidence is the winning
// label's share of the votes.
type Classifier struct {
	embedder embedding.EmbeddingProvider
	examples contract.IntentExampleRepository
	voteK    int
	logger   *log.Logger
}

func NewClassifier(
	embedder embedding.EmbeddingProvider,
	examples contract.IntentExampleRepository,
	voteK int,
	logger *log.Logger,
) *Classifier {
	if voteK <= 0 {
		voteK = 5
	}
	return &Classifier{
		embedder: embedder,
		examples: examples,
		voteK:    voteK,
		logger:   logger,
	}
}

func (c *Classifier) Classify(ctx context.Context, text string) (string, float64, error) {
	emb, err := c.embedder.Generate(ctx, text, "RETRIEVAL_QUERY")
	if err != nil {
		return "", 0, fmt.Errorf("embed query for intent: %w", err)
	}

	neighbours, err := c.examples.SearchSimilar(ctx, emb.Embedding.Values, c.voteK)
	if err != nil {
		return "", 0, fmt.Errorf("search intent examples: %w", err)
	}
	if len(neighbours) == 0 {
		return "", 0, fmt.Errorf("intent example table is empty")
	}

	votes := map[string]int{}
	for _, n := range neighbours {
		votes[n.Example.Label]++
	}

	winner := ""
	winnerVotes := 0
	for label, count := range votes {
		if count > winnerVotes || (count == winnerVotes && label < winner) {
			winner = label
			winnerVotes = count
		}
	}

	confidence := float64(winnerVotes) / float64(len(neighbours))
	c.logger.Printf("[INTENT] %s (%d/%d votes) for %q", winner, winnerVotes, len(neighbours), truncate(text, 50))
	return winner, confidence, nil
}

func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
