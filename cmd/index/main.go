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

func main() {
	indexType := flag.String("type", indexing.TypeKnowledge, "corpus to index: knowledge or intent")
	csvPath := flag.String("csv", "", "path to the corpus CSV file")
	workers := flag.Int("workers", 0, "embedding worker pool size (0 = auto)")
	flag.Parse()

	if *csvPath == "" {
		color.Red("Error: -csv is required")
		flag.Usage()
		os.Exit(1)
	}

	cfg := config.Load()

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		color.Red("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel)
		color.Cyan("Using Embedding Provider: OLLAMA (%s)", cfg.Ai.EmbeddingModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Ai.GeminiApiKey, cfg.Ai.EmbeddingModel)
		color.Cyan("Using Embedding Provider: GEMINI (%s)", cfg.Ai.EmbeddingModel)
	}

	uowFactory := unitofwork.NewRepositoryFactory(db)
	indexer := indexing.NewIndexer(embeddingProvider, uowFactory, *workers, log.New(os.Stdout, "", log.LstdFlags))

	ctx := context.Background()

	color.Yellow("Indexing %s corpus from %s", *indexType, *csvPath)

	var result *indexing.Result
	switch *indexType {
	case indexing.TypeKnowledge:
		result, err = indexer.IndexKnowledge(ctx, *csvPath)
	case indexing.TypeIntent:
		result, err = indexer.IndexIntents(ctx, *csvPath)
	default:
		color.Red("Unknown index type: %s (expected %s or %s)", *indexType, indexing.TypeKnowledge, indexing.TypeIntent)
		os.Exit(1)
	}
	if err != nil {
		color.Red("Indexing failed: %v", err)
		os.Exit(1)
	}

	color.Green("Done in %s", result.Duration)
	color.Green("Rows: %d  Chunks: %d  Indexed: %d  Skipped (duplicates): %d",
		result.TotalRows, result.TotalChunks, result.Indexed, result.Skipped)
}
