package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/qdrant/go-client/qdrant"
	"golang.org/x/time/rate"

	"github.com/guidechat-ai/guidechat/internal/logging"
)

// QdrantConfig holds connection parameters for a Qdrant-backed store.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string
	// Port is the Qdrant gRPC port (default: 6334).
	Port int
	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string
	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
	// CollectionPrefix prefixes the per-category collection names
	// (default: "guidechat", giving e.g. "guidechat_erp").
	CollectionPrefix string
}

// QdrantStore implements Store against a Qdrant instance, one collection per
// category. It exists as the substitution point for the default exhaustive
// scan: the assistant layer sees the same Store contract either way.
// AddDocuments keeps the file store's full-replace semantics by dropping and
// recreating the category's collection.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client
	// embedder converts passages and queries into vectors.
	embedder Embedder
	// limiter paces bulk embedding calls, same policy as the file store.
	limiter *rate.Limiter
	// cfg holds the resolved configuration.
	cfg *QdrantConfig
	// categories is the configured category set.
	categories []Category
}

// NewQdrantStore creates a QdrantStore for the given category set.
func NewQdrantStore(cfg *QdrantConfig, cats []Category, embedder Embedder) (*QdrantStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if cfg == nil {
		cfg = &QdrantConfig{}
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.CollectionPrefix == "" {
		cfg.CollectionPrefix = "guidechat"
	}
	if len(cats) == 0 {
		cats = DefaultCategories
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("rag: create qdrant client: %w", err)
	}

	return &QdrantStore{
		client:     client,
		embedder:   embedder,
		limiter:    rate.NewLimiter(rate.Every(embedInterval), 1),
		cfg:        cfg,
		categories: cats,
	}, nil
}

// Client exposes the underlying gRPC client so callers can wire health
// probes against the same connection.
func (s *QdrantStore) Client() *qdrant.Client {
	return s.client
}

// collection returns the Qdrant collection name for cat.
func (s *QdrantStore) collection(cat Category) string {
	return s.cfg.CollectionPrefix + "_" + string(cat)
}

// known reports whether cat is part of the configured set.
func (s *QdrantStore) known(cat Category) bool {
	for _, c := range s.categories {
		if c == cat {
			return true
		}
	}
	return false
}

// Initialize verifies the Qdrant instance is reachable.
func (s *QdrantStore) Initialize(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("rag: qdrant health check: %w", err)
	}
	return nil
}

// IsTrained reports whether a collection exists for cat.
func (s *QdrantStore) IsTrained(cat Category) bool {
	if !s.known(cat) {
		return false
	}
	exists, err := s.client.CollectionExists(context.Background(), s.collection(cat))
	return err == nil && exists
}

// Load reports whether a collection exists for cat. The data lives
// server-side, so there is nothing to deserialize.
func (s *QdrantStore) Load(ctx context.Context, cat Category) (bool, error) {
	if !s.known(cat) {
		return false, fmt.Errorf("%w: %q", ErrUnknownCategory, cat)
	}
	exists, err := s.client.CollectionExists(ctx, s.collection(cat))
	if err != nil {
		return false, fmt.Errorf("rag: check collection %s: %w", cat, err)
	}
	return exists, nil
}

// AddDocuments drops and recreates the collection for cat, then embeds and
// upserts every passage in order. Full replace, matching the file store.
func (s *QdrantStore) AddDocuments(ctx context.Context, passages []string, source string, cat Category) error {
	if !s.known(cat) {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, cat)
	}

	vectors := make([][]float32, 0, len(passages))
	for i, passage := range passages {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rag: embedding paced wait: %w", err)
		}
		vecs, err := s.embedder.Embed(ctx, []string{passage})
		if err != nil {
			return fmt.Errorf("rag: embed chunk %d/%d for %s: %w", i+1, len(passages), cat, err)
		}
		if len(vecs) == 0 {
			return fmt.Errorf("rag: embedder returned no vector for chunk %d of %s", i, cat)
		}
		vectors = append(vectors, vecs[0])
	}
	if len(vectors) == 0 {
		return fmt.Errorf("%w: %q", ErrNoContent, source)
	}

	name := s.collection(cat)
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("rag: check collection %s: %w", cat, err)
	}
	if exists {
		if err := s.client.DeleteCollection(ctx, name); err != nil {
			return fmt.Errorf("rag: drop collection %s: %w", cat, err)
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(len(vectors[0])),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("rag: create collection %s: %w", cat, err)
	}

	points := make([]*qdrant.PointStruct, 0, len(passages))
	for i, passage := range passages {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(uint64(i)),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"id":       ChunkID(cat, i),
				"text":     passage,
				"chunk_id": i,
				"source":   source,
				"category": string(cat),
			}),
		})
	}

	if _, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: name,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("rag: upsert into %s: %w", cat, err)
	}

	logging.FromContext(ctx).Info("rag: collection stored",
		slog.String("category", string(cat)),
		slog.Int("chunks", len(points)),
		slog.String("collection", name),
	)
	return nil
}

// Search embeds query and returns the texts of the topK nearest chunks.
func (s *QdrantStore) Search(ctx context.Context, query string, cat Category, topK int) ([]string, error) {
	if !s.known(cat) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, cat)
	}

	exists, err := s.Load(ctx, cat)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrNotTrained, cat)
	}

	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("rag: embed query: %w", err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("rag: embedder returned no vector for query")
	}

	limit := uint64(topK)
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection(cat),
		Query:          qdrant.NewQuery(vecs[0]...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("rag: qdrant search in %s: %w", cat, err)
	}

	texts := make([]string, 0, len(results))
	for _, r := range results {
		if p := r.Payload; p != nil {
			if v, ok := p["text"]; ok {
				texts = append(texts, v.GetStringValue())
			}
		}
	}
	return texts, nil
}

// Available returns the categories whose collections exist in Qdrant.
func (s *QdrantStore) Available() []Category {
	out := make([]Category, 0, len(s.categories))
	for _, cat := range s.categories {
		if s.IsTrained(cat) {
			out = append(out, cat)
		}
	}
	return out
}

// Categories returns the configured category set.
func (s *QdrantStore) Categories() []Category {
	return s.categories
}

// Close closes the underlying gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}
