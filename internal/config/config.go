// Package config loads environment-driven configuration for RIVET.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Provider identifies an embedding or LLM backend.
type Provider string

const (
	ProviderOllama    Provider = "ollama"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderBedrock   Provider = "bedrock"
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

	// Embedding backend
	EmbedProvider  Provider
	EmbedModel     string
	EmbedDimension int

	// LLM backend
	LLMProvider Provider
	LLMModel    string

	// Provider credentials / endpoints
	OpenAIAPIKey    string
	AnthropicAPIKey string
	OllamaHost      string
	BedrockRegion   string

	// Routing thresholds
	KBThreshold  float64
	SMEThreshold float64

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables with defaults suitable
// for local development.
func Load() Config {
	return Config{
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "rivet"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "knowledge"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		EmbedProvider:  Provider(getEnv("RIVET_EMBED_PROVIDER", string(ProviderOpenAI))),
		EmbedModel:     getEnv("RIVET_EMBED_MODEL", "text-embedding-3-small"),
		EmbedDimension: getEnvInt("RIVET_EMBED_DIMENSION", 1536),

		LLMProvider: Provider(getEnv("RIVET_LLM_PROVIDER", string(ProviderOpenAI))),
		LLMModel:    getEnv("RIVET_LLM_MODEL", "gpt-4o-mini"),

		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		BedrockRegion:   getEnv("RIVET_BEDROCK_REGION", "us-east-1"),

		KBThreshold:  getEnvFloat("RIVET_KB_THRESHOLD", 0.85),
		SMEThreshold: getEnvFloat("RIVET_SME_THRESHOLD", 0.70),

		LogFile:  getEnv("RIVET_LOG_FILE", "/tmp/rivet.log"),
		LogLevel: parseLogLevel(getEnv("RIVET_LOG_LEVEL", "INFO")),
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
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
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
