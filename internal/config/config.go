package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Audit    AuditConfig
	Keys     APIKeys
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	ChatLogFilePath    string
	CorsAllowedOrigins string
	StaticDir          string
	VersionFilePath    string
	NatsURL            string
	RedisURL           string
	JWTSecret          string
	AdminPassword      string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	LLMProvider       string // "ollama" or "openai"
	LLMModel          string // e.g. "llama3", "gpt-4"
	EmbeddingProvider string // "ollama" or "openai"
	EmbeddingModel    string
	OllamaBaseURL     string
	SystemPrompt      string

	RetrievalTopK       int
	RetrievalTimeout    time.Duration
	RetrievalCacheTTL   time.Duration
	CompletionTimeout   time.Duration
}

type AuditConfig struct {
	Topic       string
	IngestTopic string
}

type APIKeys struct {
	OpenAI string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			ChatLogFilePath:    getEnv("CHAT_LOG_FILE_PATH", "logs/chat.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			StaticDir:          getEnv("STATIC_DIR", "./public"),
			VersionFilePath:    getEnv("VERSION_FILE_PATH", "version.json"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JWTSecret:          getEnv("JWT_SECRET", ""),
			AdminPassword:      getEnv("ADMIN_PASSWORD", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			EmbeddingModel:    getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			SystemPrompt:      getEnv("SYSTEM_PROMPT", ""),

			RetrievalTopK:     getEnvAsInt("RETRIEVAL_TOP_K", 5),
			RetrievalTimeout:  getEnvAsDuration("RETRIEVAL_TIMEOUT", 15*time.Second),
			RetrievalCacheTTL: getEnvAsDuration("RETRIEVAL_CACHE_TTL", 5*time.Minute),
			CompletionTimeout: getEnvAsDuration("COMPLETION_TIMEOUT", 120*time.Second),
		},
		Audit: AuditConfig{
			Topic:       getEnv("AUDIT_TOPIC_NAME", "AUDIT_EVENTS"),
			IngestTopic: getEnv("INGEST_TOPIC_NAME", "INGEST_PASSAGES"),
		},
		Keys: APIKeys{
			OpenAI: getEnv("OPENAI_API_KEY", ""),
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

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
