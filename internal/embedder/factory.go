package embedder

import (
	"fmt"
	"os"
	"strconv"

	"github.com/guidechat-ai/guidechat/internal/rag"
)

// Default embedding models per backend.
const (
	defaultHFModel     = "sentence-transformers/all-MiniLM-L6-v2"
	defaultOpenAIModel = "text-embedding-3-small"
	defaultOllamaModel = "nomic-embed-text"
)

// NewFromEnv constructs a rag.Embedder from environment variables.
//
// Resolution order:
//
//  1. EMBEDDING_PROVIDER — huggingface | openai | ollama (default: huggingface)
//  2. Per-backend credentials: HF_TOKEN, OPENAI_API_KEY — EMBEDDING_API_KEY
//     overrides either
//  3. EMBEDDING_MODEL — overrides the backend's default model
//  4. EMBEDDING_ENDPOINT — overrides the backend's default endpoint
//  5. EMBEDDING_DIMENSIONS — overrides the vector size (openai only)
func NewFromEnv() (rag.Embedder, error) {
	backend := getEnvOrDefault("EMBEDDING_PROVIDER", "huggingface")

	switch backend {
	case "huggingface", "hf":
		token := os.Getenv("EMBEDDING_API_KEY")
		if token == "" {
			token = os.Getenv("HF_TOKEN")
		}
		if token == "" {
			return nil, fmt.Errorf("embedder: huggingface requires HF_TOKEN or EMBEDDING_API_KEY")
		}
		return NewHFEmbedder(&HFConfig{
			BaseURL: os.Getenv("EMBEDDING_ENDPOINT"),
			Token:   token,
			Model:   getEnvOrDefault("EMBEDDING_MODEL", defaultHFModel),
		}), nil

	case "openai":
		apiKey := os.Getenv("EMBEDDING_API_KEY")
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("embedder: openai requires OPENAI_API_KEY or EMBEDDING_API_KEY")
		}
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    os.Getenv("EMBEDDING_ENDPOINT"),
			APIKey:     apiKey,
			Model:      getEnvOrDefault("EMBEDDING_MODEL", defaultOpenAIModel),
			Dimensions: getEnvInt("EMBEDDING_DIMENSIONS", 0),
		}), nil

	case "ollama":
		host := os.Getenv("EMBEDDING_ENDPOINT")
		if host == "" {
			host = os.Getenv("OLLAMA_HOST")
		}
		return NewOllamaEmbedder(&OllamaConfig{
			Host:  host,
			Model: getEnvOrDefault("EMBEDDING_MODEL", defaultOllamaModel),
		}), nil

	default:
		return nil, fmt.Errorf("embedder: unknown backend %q — valid values: huggingface, openai, ollama", backend)
	}
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
