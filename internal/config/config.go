// Package config loads environment-sourced settings.
// Required values fail process startup; optional ones carry defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Vector backend selectors.
const (
	BackendPinecone = "pinecone"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

// Pinecone holds the serverless index settings.
type Pinecone struct {
	APIKey string
	Index  string
	Cloud  string
	Region string
}

// Config is the full application configuration.
type Config struct {
	ListenAddr string

	OpenAIAPIKey        string
	ChatModel           string
	EmbeddingModel      string
	EmbeddingDimensions int

	VectorBackend string
	Pinecone      Pinecone
	DatabaseURL   string
	DataDir       string
	Namespace     string

	AllowedOrigins []string
	UploadDir      string
	WatchDir       string
}

// Load reads configuration from the environment, sourcing a .env file first
// when one is present in the working directory.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("loading .env: %w", err)
		}
	}

	cfg := &Config{
		ListenAddr:          envOr("LISTEN_ADDR", ":8000"),
		ChatModel:           envOr("CHAT_MODEL", "gpt-4o-mini"),
		EmbeddingModel:      envOr("EMBEDDING_MODEL", "text-embedding-3-large"),
		VectorBackend:       envOr("VECTOR_BACKEND", BackendPinecone),
		DataDir:             envOr("DATA_DIR", "./data"),
		Namespace:           envOr("PINECONE_NAMESPACE", "default"),
		UploadDir:           envOr("UPLOAD_DIR", "uploads"),
		WatchDir:            os.Getenv("WATCH_DIR"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		Pinecone: Pinecone{
			APIKey: os.Getenv("PINECONE_API_KEY"),
			Index:  os.Getenv("PINECONE_INDEX"),
			Cloud:  envOr("PINECONE_CLOUD", "aws"),
			Region: envOr("PINECONE_REGION", "us-east-1"),
		},
		AllowedOrigins: splitOrigins(envOr("ALLOWED_ORIGINS",
			"http://localhost:3002,http://127.0.0.1:3002,http://localhost:5173,http://127.0.0.1:5173")),
	}

	var err error
	cfg.OpenAIAPIKey, err = requireEnv("OPENAI_API_KEY")
	if err != nil {
		return nil, err
	}

	dims := envOr("EMBEDDING_DIMENSIONS", "3072")
	cfg.EmbeddingDimensions, err = strconv.Atoi(dims)
	if err != nil || cfg.EmbeddingDimensions <= 0 {
		return nil, fmt.Errorf("EMBEDDING_DIMENSIONS must be a positive integer, got %q", dims)
	}

	switch cfg.VectorBackend {
	case BackendPinecone:
		if cfg.Pinecone.APIKey == "" {
			return nil, missingEnv("PINECONE_API_KEY")
		}
		if cfg.Pinecone.Index == "" {
			return nil, missingEnv("PINECONE_INDEX")
		}
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, missingEnv("DATABASE_URL")
		}
	case BackendSQLite, BackendMemory:
		// nothing extra
	default:
		return nil, fmt.Errorf("unknown VECTOR_BACKEND %q", cfg.VectorBackend)
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func requireEnv(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", missingEnv(key)
	}
	return v, nil
}

func missingEnv(key string) error {
	return fmt.Errorf("missing required environment variable %s", key)
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
