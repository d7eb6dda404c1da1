// Package rag defines the retrieval types and interfaces for guidechat:
// document categories, embedded chunks, the embedding client contract, and
// the category-keyed vector store contract. Concrete stores (JSON file,
// Qdrant) satisfy the Store interface so the assistant layer never depends
// on a specific backend.
package rag

import (
	"context"
	"errors"
	"fmt"
)

// Category partitions the corpus into independent collections. Each category
// owns exactly one persisted collection; categories never share chunks.
type Category string

// DefaultCategories is the category set used when none is configured.
// The original deployment ships an ERP guide and an HRMS guide.
var DefaultCategories = []Category{"erp", "hrms"}

// Sentinel errors for the retrieval layer. Callers use errors.Is to map
// these to distinct user-facing failures.
var (
	// ErrUnknownCategory reports a category outside the configured set.
	ErrUnknownCategory = errors.New("rag: unknown document category")

	// ErrNotTrained reports a category whose collection has never been
	// indexed. Distinct from retrieval failures so callers can answer
	// "index first" rather than "the index is broken".
	ErrNotTrained = errors.New("rag: category not trained")

	// ErrNoContent reports a source document with no extractable text.
	ErrNoContent = errors.New("rag: document has no extractable text content")
)

// ChunkMetadata carries the provenance of a chunk through persistence.
type ChunkMetadata struct {
	// ChunkIndex is the chunk's position in the original passage order.
	ChunkIndex int `json:"chunk_id"`
	// Source is the document the chunk was extracted from.
	Source string `json:"source"`
	// Category is the collection the chunk belongs to.
	Category Category `json:"category"`
}

// Chunk is a contiguous span of source text plus its embedding vector.
// Embedding length is constant within a collection.
type Chunk struct {
	// ID is unique within the chunk's category: "<category>_doc_<index>".
	ID string `json:"id"`
	// Text is the passage content.
	Text string `json:"text"`
	// Embedding is the dense vector produced by the embedding client.
	Embedding []float32 `json:"embedding"`
	// Metadata holds sequence position, source document, and category.
	Metadata ChunkMetadata `json:"metadata"`
}

// ChunkID derives the stable identifier for the chunk at index i of cat.
func ChunkID(cat Category, i int) string {
	return fmt.Sprintf("%s_doc_%d", cat, i)
}

// Embedder converts text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Store persists and searches embedded chunks, keyed by category.
// The search contract is behind this interface so the default exhaustive
// scan can later be swapped for an index-backed store without touching the
// assistant layer.
type Store interface {
	// Initialize ensures the durable storage location exists. Idempotent;
	// called once at startup.
	Initialize(ctx context.Context) error

	// IsTrained reports whether a persisted collection exists for cat.
	// It does not require the collection to be loaded in memory.
	IsTrained(cat Category) bool

	// Load deserializes the persisted collection for cat into memory when
	// one exists and memory is empty. Returns true if a collection was (or
	// already is) resident. Absence is a normal state, not an error.
	Load(ctx context.Context, cat Category) (bool, error)

	// AddDocuments replaces the entire collection for cat with the given
	// passages: each passage is embedded in order, then the full collection
	// is persisted, overwriting any prior version. Full replace, never a
	// merge. Returns ErrUnknownCategory for a category outside the set.
	AddDocuments(ctx context.Context, passages []string, source string, cat Category) error

	// Search embeds query and returns the texts of the topK most similar
	// chunks, ordered by non-increasing cosine similarity. Loads the
	// collection lazily; returns ErrNotTrained when the collection is empty
	// after the load attempt. topK larger than the collection returns all.
	Search(ctx context.Context, query string, cat Category, topK int) ([]string, error)

	// Available returns the categories for which IsTrained is true.
	Available() []Category

	// Categories returns the configured category set.
	Categories() []Category

	// Close releases any resources held by the store.
	Close() error
}
