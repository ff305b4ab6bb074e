package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Search   SearchConfig
	Workflow WorkflowConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	TurnSavedTopic     string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	EmbeddingProvider string // "gemini" or "ollama"
	EmbeddingModel    string
	GeminiApiKey      string
	OllamaBaseURL     string
	LLMProvider       string // "ollama" or "openai"
	LLMModel          string
	OpenAIBaseURL     string
	OpenAIApiKey      string
	RerankBaseURL     string
	RerankModel       string
	RerankApiKey      string
}

type SearchConfig struct {
	BaseURL        string // SearXNG-compatible JSON search endpoint
	MaxResults     int
	AllowedDomains []string
	SnippetMaxLen  int
	CacheTTL       time.Duration
}

type WorkflowConfig struct {
	MaxIterations   int
	TopK            int
	ScoreThreshold  float64
	MaxContextItems int
	MaxContextChars int
	SourceTimeout   time.Duration
	FallbackIntent  string
	HistoryTurns    int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			TurnSavedTopic:     getEnv("TURN_SAVED_TOPIC_NAME", "CHAT_TURN_SAVED"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "gemini"),
			EmbeddingModel:    getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
			GeminiApiKey:      getEnv("GOOGLE_GEMINI_API_KEY", ""),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "qwen2.5"),
			OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", ""),
			OpenAIApiKey:      getEnv("OPENAI_API_KEY", ""),
			RerankBaseURL:     getEnv("RERANK_BASE_URL", "https://api.jina.ai/v1/rerank"),
			RerankModel:       getEnv("RERANK_MODEL", "jina-reranker-v2-base-multilingual"),
			RerankApiKey:      getEnv("RERANK_API_KEY", ""),
		},
		Search: SearchConfig{
			BaseURL:        getEnv("WEB_SEARCH_BASE_URL", "http://localhost:8080"),
			MaxResults:     getEnvAsInt("MAX_SEARCH_RESULTS", 3),
			AllowedDomains: splitCSV(getEnv("ALLOWED_DOMAINS", "vinmec.com,nhathuoclongchau.com.vn,pharmacity.vn")),
			SnippetMaxLen:  getEnvAsInt("WEB_SNIPPET_MAX_LEN", 10000),
			CacheTTL:       getEnvAsDuration("WEB_SEARCH_CACHE_TTL", 15*time.Minute),
		},
		Workflow: WorkflowConfig{
			MaxIterations:   getEnvAsInt("WORKFLOW_MAX_ITERATIONS", 3),
			TopK:            getEnvAsInt("WORKFLOW_TOP_K", 10),
			ScoreThreshold:  getEnvAsFloat("WORKFLOW_SCORE_THRESHOLD", 0.35),
			MaxContextItems: getEnvAsInt("WORKFLOW_MAX_CONTEXT_ITEMS", 12),
			MaxContextChars: getEnvAsInt("WORKFLOW_MAX_CONTEXT_CHARS", 24000),
			SourceTimeout:   getEnvAsDuration("WORKFLOW_SOURCE_TIMEOUT", 20*time.Second),
			FallbackIntent:  getEnv("WORKFLOW_FALLBACK_INTENT", "medical"),
			HistoryTurns:    getEnvAsInt("LIMIT_CONVERSATIONS", 3),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
