package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// LLM provider identifiers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// Fallback policies for products the classifier could not resolve.
const (
	FallbackSkip     = "skip"
	FallbackResidual = "residual"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Classifier
	LLMProvider     string
	LLMModel        string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	OllamaHost      string

	// Pipeline tuning
	BatchSize          int
	MaxParallelBatches int
	ItemWorkers        int
	FallbackPolicy     string
	ResidualCategoryID string

	// Server
	ServerPort string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
// Defaults match the original dashboard's behavior where one existed.
func Load() Config {
	return Config{
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "mercado"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "catalog"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		LLMProvider:     getEnv("MERCADO_LLM_PROVIDER", ProviderOpenAI),
		LLMModel:        getEnv("MERCADO_LLM_MODEL", "gpt-4o-mini"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),

		BatchSize:          getEnvInt("MERCADO_BATCH_SIZE", 20),
		MaxParallelBatches: getEnvInt("MERCADO_PARALLEL_BATCHES", 2),
		ItemWorkers:        getEnvInt("MERCADO_ITEM_WORKERS", 8),
		FallbackPolicy:     getEnv("MERCADO_FALLBACK_POLICY", FallbackSkip),
		ResidualCategoryID: getEnv("MERCADO_RESIDUAL_CATEGORY", "outros"),

		ServerPort: getEnv("MERCADO_SERVER_PORT", "8474"),

		LogFile:  getEnv("MERCADO_LOG_FILE", "/tmp/mercado.log"),
		LogLevel: parseLogLevel(getEnv("MERCADO_LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			return n
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
