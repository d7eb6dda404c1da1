// Package ingestion implements the document indexing pipeline. For each
// configured category it locates the guide document on disk, extracts its
// text, chunks it, and hands the chunks to the vector store for embedding
// and persistence. The pipeline runs at server startup and behind the
// `guidechat index` CLI command.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/guidechat-ai/guidechat/internal/chunker"
	"github.com/guidechat-ai/guidechat/internal/logging"
	"github.com/guidechat-ai/guidechat/internal/rag"
)

// guideExtensions lists the recognized document extensions, in lookup order.
var guideExtensions = []string{".pdf", ".txt", ".md"}

// Config holds the configuration for the indexing pipeline.
type Config struct {
	// DataDir is the directory holding the guide documents
	// (<category>_guide.pdf / .txt / .md).
	DataDir string

	// Force reindexes every category even when a persisted collection
	// already exists.
	Force bool
}

// Pipeline orchestrates the extract → chunk → embed → persist flow for the
// configured categories.
type Pipeline struct {
	store   rag.Store
	chunker *chunker.Chunker
	cfg     Config
}

// NewPipeline constructs a Pipeline from the provided dependencies.
func NewPipeline(store rag.Store, ch *chunker.Chunker, cfg Config) (*Pipeline, error) {
	if store == nil {
		return nil, fmt.Errorf("ingestion: store must not be nil")
	}
	if ch == nil {
		return nil, fmt.Errorf("ingestion: chunker must not be nil")
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	return &Pipeline{store: store, chunker: ch, cfg: cfg}, nil
}

// Run indexes every configured category. Already-trained categories are
// skipped unless Force is set; categories whose guide document is missing
// or empty are skipped with a warning. The first embedding or persistence
// error aborts the run.
func (p *Pipeline) Run(ctx context.Context) error {
	log := logging.FromContext(ctx)

	if err := p.store.Initialize(ctx); err != nil {
		return fmt.Errorf("ingestion: initialize store: %w", err)
	}

	for _, cat := range p.store.Categories() {
		clog := log.With(slog.String("category", string(cat)))

		if !p.cfg.Force {
			loaded, err := p.store.Load(ctx, cat)
			if err != nil {
				return fmt.Errorf("ingestion: load %s: %w", cat, err)
			}
			if loaded {
				clog.Info("already trained, skipping")
				continue
			}
		}

		docPath, ok := p.findGuide(cat)
		if !ok {
			clog.Warn("guide document not found, skipping",
				slog.String("data_dir", p.cfg.DataDir))
			continue
		}

		if err := p.indexDocument(ctx, cat, docPath); err != nil {
			if errors.Is(err, rag.ErrNoContent) {
				clog.Warn("guide document has no extractable text, skipping",
					slog.String("document", docPath))
				continue
			}
			return err
		}
		clog.Info("category indexed", slog.String("document", docPath))
	}
	return nil
}

// indexDocument extracts, chunks, and stores a single guide document.
func (p *Pipeline) indexDocument(ctx context.Context, cat rag.Category, docPath string) error {
	text, err := ExtractText(docPath)
	if err != nil {
		return fmt.Errorf("ingestion: extract %s: %w", docPath, err)
	}

	passages, err := p.chunker.Chunk(text)
	if err != nil {
		return err
	}

	logging.FromContext(ctx).Info("chunked document",
		slog.String("category", string(cat)),
		slog.Int("chunks", len(passages)))

	if err := p.store.AddDocuments(ctx, passages, filepath.Base(docPath), cat); err != nil {
		return fmt.Errorf("ingestion: store %s: %w", cat, err)
	}
	return nil
}

// findGuide locates the guide document for a category, trying each
// recognized extension in order.
func (p *Pipeline) findGuide(cat rag.Category) (string, bool) {
	for _, ext := range guideExtensions {
		path := filepath.Join(p.cfg.DataDir, fmt.Sprintf("%s_guide%s", cat, ext))
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}
