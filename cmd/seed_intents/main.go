package main

import (
	"context"
	"flag"
	"log"
	"os"

	"drug-agentic-be/internal/config"
	"drug-agentic-be/internal/repository/unitofwork"
	"drug-agentic-be/pkg/database"
	"drug-agentic-be/pkg/embedding"
	"drug-agentic-be/pkg/indexing"

	"github.com/fatih/color"
)

// Seeds the intent_examples table from a labelled query CSV so the
// classifier has neighbours to vote over before first use.
func main() {
	csvPath := flag.String("csv", "data/intent_queries.csv", "path to the labelled intent query CSV")
	flag.Parse()

	cfg := config.Load()

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		color.Red("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Ai.GeminiApiKey, cfg.Ai.EmbeddingModel)
	}

	uowFactory := unitofwork.NewRepositoryFactory(db)
	indexer := indexing.NewIndexer(embeddingProvider, uowFactory, 0, log.New(os.Stdout, "", log.LstdFlags))

	color.Yellow("Seeding intent examples from %s", *csvPath)

	result, err := indexer.IndexIntents(context.Background(), *csvPath)
	if err != nil {
		color.Red("Seeding failed: %v", err)
		os.Exit(1)
	}

	color.Green("Done in %s: %d examples indexed, %d duplicates skipped",
		result.Duration, result.Indexed, result.Skipped)
}
