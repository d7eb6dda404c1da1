package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/guidechat-ai/guidechat/internal/chunker"
	"github.com/guidechat-ai/guidechat/internal/rag"
	"github.com/guidechat-ai/guidechat/internal/server"
)

// categoriesFromEnv returns the guide categories to serve, read from the
// GUIDECHAT_CATEGORIES env var as a comma-separated list. Defaults to the
// built-in category set when unset.
func categoriesFromEnv() []rag.Category {
	raw := os.Getenv("GUIDECHAT_CATEGORIES")
	if raw == "" {
		return rag.DefaultCategories
	}

	var cats []rag.Category
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			cats = append(cats, rag.Category(part))
		}
	}
	if len(cats) == 0 {
		return rag.DefaultCategories
	}
	return cats
}

// buildStore constructs the vector store selected by STORE_BACKEND
// (file or qdrant) along with any backend-specific readiness pingers.
// The returned cleanup func closes the store.
func buildStore(emb rag.Embedder, log *slog.Logger) (rag.Store, []server.Pinger, func(), error) {
	cats := categoriesFromEnv()
	backend := getEnvOrDefault("STORE_BACKEND", "file")

	switch backend {
	case "file":
		dataDir := getEnvOrDefault("STORE_DATA_DIR", "data")
		fs, err := rag.NewFileStore(dataDir, cats, emb)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create file store in %s: %w", dataDir, err)
		}
		log.Info("file store ready", slog.String("dir", dataDir), slog.Int("categories", len(cats)))
		return fs, nil, func() { _ = fs.Close() }, nil

	case "qdrant":
		host := getEnvOrDefault("QDRANT_HOST", "localhost")
		port := getEnvInt("QDRANT_PORT", 6334)
		qs, err := rag.NewQdrantStore(&rag.QdrantConfig{
			Host:             host,
			Port:             port,
			APIKey:           os.Getenv("QDRANT_API_KEY"),
			UseTLS:           os.Getenv("QDRANT_TLS") == "true",
			CollectionPrefix: getEnvOrDefault("QDRANT_COLLECTION_PREFIX", "guidechat"),
		}, cats, emb)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
		}
		log.Info("qdrant store ready", slog.String("host", host), slog.Int("port", port))
		pingers := []server.Pinger{server.NewQdrantPinger(qs.Client())}
		return qs, pingers, func() { _ = qs.Close() }, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown STORE_BACKEND %q (expected file or qdrant)", backend)
	}
}

// newChunker constructs the document chunker, honoring CHUNK_SIZE and
// CHUNK_OVERLAP overrides.
func newChunker() *chunker.Chunker {
	return chunker.New(
		getEnvInt("CHUNK_SIZE", chunker.DefaultSize),
		getEnvInt("CHUNK_OVERLAP", chunker.DefaultOverlap),
	)
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
