package bootstrap

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"drug-agentic-be/internal/config"
	"drug-agentic-be/internal/controller"
	"drug-agentic-be/internal/metrics"
	"drug-agentic-be/internal/pkg/logger"
	"drug-agentic-be/internal/repository/implementation"
	"drug-agentic-be/internal/repository/memory"
	"drug-agentic-be/internal/repository/unitofwork"
	"drug-agentic-be/internal/service"
	"drug-agentic-be/pkg/embedding"
	"drug-agentic-be/pkg/indexing"
	"drug-agentic-be/pkg/llm"
	"drug-agentic-be/pkg/llm/factory"
	"drug-agentic-be/pkg/rerank"
	"drug-agentic-be/pkg/websearch"
	"drug-agentic-be/pkg/workflow"
	"drug-agentic-be/pkg/workflow/answer"
	"drug-agentic-be/pkg/workflow/augment"
	"drug-agentic-be/pkg/workflow/intent"
	"drug-agentic-be/pkg/workflow/merge"
	"drug-agentic-be/pkg/workflow/persist"
	"drug-agentic-be/pkg/workflow/reflection"
	"drug-agentic-be/pkg/workflow/retrieval"

	pktNats "drug-agentic-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController     controller.IChatController
	IndexingController controller.IIndexingController
	HealthController   controller.IHealthController

	// Background Services (Exposed for main.go to run)
	TurnWriterService service.ITurnWriterService

	// Metrics registry exposed for the /metrics endpoint
	MetricsRegistry *prometheus.Registry

	// Shared structured logger
	Logger logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	traceLogger := initWorkflowLogger()

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.EmbeddingModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.EmbeddingModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Ai.GeminiApiKey, cfg.Ai.EmbeddingModel)
		log.Printf("[INFO] Using Embedding Provider: GEMINI (%s)", cfg.Ai.EmbeddingModel)
	}

	llmBaseURL := cfg.Ai.OllamaBaseURL
	if cfg.Ai.LLMProvider == "openai" {
		llmBaseURL = cfg.Ai.OpenAIBaseURL
	}
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		llmBaseURL,
		cfg.Ai.OpenAIApiKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// Both backends stream; the assertion guards future providers.
	streamer, ok := llmProvider.(llm.StreamProvider)
	if !ok {
		log.Printf("[WARN] LLM provider does not stream, falling back to atomic delivery")
	}

	reranker := rerank.NewJinaReranker(cfg.Ai.RerankApiKey, cfg.Ai.RerankBaseURL, cfg.Ai.RerankModel)

	// 4. Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	workflowMetrics := metrics.NewWorkflowMetrics(registry)

	// 5. Retrieval Sources
	chunkRepo := implementation.NewKnowledgeChunkRepository(db)
	exampleRepo := implementation.NewIntentExampleRepository(db)

	kbSource := retrieval.NewKnowledgeBaseSource(
		embeddingProvider,
		chunkRepo,
		cfg.Workflow.TopK,
		cfg.Workflow.ScoreThreshold,
	)

	var searchProvider websearch.SearchProvider = websearch.NewSearxngProvider(
		cfg.Search.BaseURL,
		cfg.Search.AllowedDomains,
		cfg.Search.SnippetMaxLen,
	)
	searchProvider = websearch.NewCachedProvider(searchProvider, rdb, cfg.Search.CacheTTL)
	webSource := retrieval.NewWebSource(searchProvider, cfg.Search.MaxResults)

	coordinator := retrieval.NewCoordinator(
		[]retrieval.Source{kbSource, webSource},
		cfg.Workflow.SourceTimeout,
		workflowMetrics,
		traceLogger,
	)

	// 6. Workflow Engine
	classifier := intent.NewClassifier(embeddingProvider, exampleRepo, 5, traceLogger)
	augmenter := augment.NewAugmenter(llmProvider, traceLogger)
	merger := merge.NewMerger(reranker, cfg.Workflow.MaxContextItems, cfg.Workflow.MaxContextChars, traceLogger)
	judge := reflection.NewJudge(llmProvider, traceLogger)
	generator := answer.NewGenerator(llmProvider, streamer, traceLogger)

	historyCache := memory.NewHistoryCache()
	historyService := service.NewHistoryService(uowFactory, historyCache)
	turnDispatcher := persist.NewDispatcher(pubSub, cfg.App.TurnSavedTopic)

	engine := workflow.NewEngine(
		workflow.Config{
			MaxIterations:  cfg.Workflow.MaxIterations,
			FallbackIntent: cfg.Workflow.FallbackIntent,
			HistoryTurns:   cfg.Workflow.HistoryTurns,
			ModelName:      cfg.Ai.LLMModel,
		},
		classifier,
		augmenter,
		coordinator,
		merger,
		judge,
		generator,
		historyService,
		turnDispatcher,
		workflowMetrics,
		traceLogger,
	)

	// 7. Services
	indexer := indexing.NewIndexer(embeddingProvider, uowFactory, 0, traceLogger)

	chatService := service.NewChatService(engine, uowFactory, sysLogger)
	indexingService := service.NewIndexingService(indexer, natsPub)
	turnWriterService := service.NewTurnWriterService(
		pubSub,
		cfg.App.TurnSavedTopic,
		uowFactory,
		historyCache,
		natsPub,
	)

	// 8. Controllers
	return &Container{
		ChatController:     controller.NewChatController(chatService, sysLogger),
		IndexingController: controller.NewIndexingController(indexingService),
		HealthController:   controller.NewHealthController(db),

		TurnWriterService: turnWriterService,
		MetricsRegistry:   registry,
		Logger:            sysLogger,
	}
}

func initWorkflowLogger() *log.Logger {
	logPath := filepath.Join(".", "logs", "llm_workflow.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		log.Printf("Failed to create logs directory: %v", err)
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return log.New(os.Stdout, "[WORKFLOW] ", log.LstdFlags)
	}
	return log.New(file, "", log.LstdFlags)
}
