package rag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/guidechat-ai/guidechat/internal/logging"
)

// embedInterval paces consecutive embedding calls during bulk indexing so
// the provider's rate limits are respected. This is an indexing-time
// courtesy, not a retry policy.
const embedInterval = 200 * time.Millisecond

// FileStore is the default Store: one flat JSON file per category holding
// the full serialized chunk array. The corpus is small and rebuilt wholesale,
// so search is an exhaustive in-memory cosine scan and persistence is a
// whole-file rewrite — a deliberate simplicity/scalability trade.
//
// Indexing is expected to complete before query traffic begins; concurrent
// AddDocuments and Search against the same category are not coordinated.
type FileStore struct {
	// dir is the durable storage directory for all collection files.
	dir string
	// embedder converts passages and queries into vectors.
	embedder Embedder
	// limiter paces bulk embedding calls at one per embedInterval.
	limiter *rate.Limiter
	// categories is the configured category set.
	categories []Category
	// collections holds the in-memory chunks per category.
	collections map[Category][]Chunk
}

// NewFileStore constructs a FileStore rooted at dir for the given category
// set. Empty cats falls back to DefaultCategories.
func NewFileStore(dir string, cats []Category, embedder Embedder) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("rag: store directory must not be empty")
	}
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if len(cats) == 0 {
		cats = DefaultCategories
	}

	collections := make(map[Category][]Chunk, len(cats))
	for _, c := range cats {
		collections[c] = nil
	}

	return &FileStore{
		dir:         dir,
		embedder:    embedder,
		limiter:     rate.NewLimiter(rate.Every(embedInterval), 1),
		categories:  cats,
		collections: collections,
	}, nil
}

// Initialize creates the storage directory if it does not already exist.
func (s *FileStore) Initialize(_ context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("rag: create store directory %s: %w", s.dir, err)
	}
	return nil
}

// path returns the collection file for cat.
func (s *FileStore) path(cat Category) string {
	return filepath.Join(s.dir, fmt.Sprintf("vector_store_%s.json", cat))
}

// known reports whether cat is part of the configured set.
func (s *FileStore) known(cat Category) bool {
	_, ok := s.collections[cat]
	return ok
}

// IsTrained reports whether a persisted collection file exists for cat.
func (s *FileStore) IsTrained(cat Category) bool {
	if !s.known(cat) {
		return false
	}
	_, err := os.Stat(s.path(cat))
	return err == nil
}

// Load reads the persisted collection for cat into memory if a file exists
// and the in-memory collection is empty. Returns true when a collection is
// resident after the call. A missing file is a normal state, not an error.
func (s *FileStore) Load(ctx context.Context, cat Category) (bool, error) {
	if !s.known(cat) {
		return false, fmt.Errorf("%w: %q", ErrUnknownCategory, cat)
	}
	if len(s.collections[cat]) > 0 {
		return true, nil
	}

	data, err := os.ReadFile(s.path(cat))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("rag: read collection %s: %w", cat, err)
	}

	var chunks []Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return false, fmt.Errorf("rag: decode collection %s: %w", cat, err)
	}

	s.collections[cat] = chunks
	logging.FromContext(ctx).Info("rag: collection loaded",
		slog.String("category", string(cat)),
		slog.Int("chunks", len(chunks)),
	)
	return true, nil
}

// AddDocuments replaces the entire collection for cat with the embedded
// passages and persists it, overwriting any prior version. Passages are
// embedded one at a time in order, paced by the store's rate limiter.
func (s *FileStore) AddDocuments(ctx context.Context, passages []string, source string, cat Category) error {
	if !s.known(cat) {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, cat)
	}

	log := logging.FromContext(ctx)
	log.Info("rag: embedding passages",
		slog.String("category", string(cat)),
		slog.Int("count", len(passages)),
	)

	chunks := make([]Chunk, 0, len(passages))
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

		chunks = append(chunks, Chunk{
			ID:        ChunkID(cat, i),
			Text:      passage,
			Embedding: vecs[0],
			Metadata: ChunkMetadata{
				ChunkIndex: i,
				Source:     source,
				Category:   cat,
			},
		})
	}

	s.collections[cat] = chunks
	if err := s.persist(cat); err != nil {
		return err
	}

	log.Info("rag: collection stored",
		slog.String("category", string(cat)),
		slog.Int("chunks", len(chunks)),
		slog.String("path", s.path(cat)),
	)
	return nil
}

// persist serializes the full in-memory collection for cat to disk.
func (s *FileStore) persist(cat Category) error {
	data, err := json.MarshalIndent(s.collections[cat], "", "  ")
	if err != nil {
		return fmt.Errorf("rag: encode collection %s: %w", cat, err)
	}
	if err := os.WriteFile(s.path(cat), data, 0o644); err != nil {
		return fmt.Errorf("rag: write collection %s: %w", cat, err)
	}
	return nil
}

// Search embeds query and returns the texts of the topK chunks most similar
// to it, ordered by non-increasing cosine similarity. Ties preserve the
// original insertion order. No minimum-score threshold is applied: the top-K
// are returned regardless of absolute score, and the language model judges
// relevance from context.
func (s *FileStore) Search(ctx context.Context, query string, cat Category, topK int) ([]string, error) {
	if !s.known(cat) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, cat)
	}

	if len(s.collections[cat]) == 0 {
		if _, err := s.Load(ctx, cat); err != nil {
			return nil, err
		}
	}
	chunks := s.collections[cat]
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotTrained, cat)
	}

	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("rag: embed query: %w", err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("rag: embedder returned no vector for query")
	}
	queryVec := vecs[0]

	type scored struct {
		text  string
		score float64
	}
	results := make([]scored, len(chunks))
	for i, c := range chunks {
		results[i] = scored{text: c.Text, score: CosineSimilarity(queryVec, c.Embedding)}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	if topK > len(results) {
		topK = len(results)
	}
	texts := make([]string, 0, topK)
	for _, r := range results[:topK] {
		texts = append(texts, r.text)
	}

	logging.FromContext(ctx).Debug("rag: search complete",
		slog.String("category", string(cat)),
		slog.Int("returned", len(texts)),
		slog.Float64("top_score", results[0].score),
	)
	return texts, nil
}

// Available returns the categories that have a persisted collection.
func (s *FileStore) Available() []Category {
	out := make([]Category, 0, len(s.categories))
	for _, cat := range s.categories {
		if s.IsTrained(cat) {
			out = append(out, cat)
		}
	}
	return out
}

// Categories returns the configured category set.
func (s *FileStore) Categories() []Category {
	return s.categories
}

// Close is a no-op for the file store; files are closed after every
// read/write.
func (s *FileStore) Close() error { return nil }
