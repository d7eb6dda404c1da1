// Package assistant orchestrates retrieval and generation: it searches the
// vector store for passages relevant to a question, assembles them into a
// grounding context, and asks the model for an answer scoped to one
// documentation category.
package assistant

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/guidechat-ai/guidechat/internal/history"
	"github.com/guidechat-ai/guidechat/internal/logging"
	"github.com/guidechat-ai/guidechat/internal/rag"
)

// topK is the number of passages retrieved per question.
const topK = 3

// contextSeparator joins retrieved passages into one grounding block.
const contextSeparator = "\n\n---\n\n"

// Assistant answers questions about one documentation category using
// retrieval-augmented generation.
type Assistant struct {
	store   rag.Store
	gen     *Generator
	history *history.Store
}

// New constructs an Assistant. The history store may be nil, in which case
// answered questions are not persisted.
func New(store rag.Store, gen *Generator, hist *history.Store) *Assistant {
	return &Assistant{store: store, gen: gen, history: hist}
}

// fallbackMessage is returned when retrieval produces no passages for a
// trained category.
func fallbackMessage(category rag.Category) string {
	return fmt.Sprintf("I couldn't find relevant information in the %s guide.", strings.ToUpper(string(category)))
}

// Query answers a question in one shot. Retrieval errors (unknown category,
// untrained category, embedding failures) propagate to the caller; an empty
// result set yields the fallback message instead of a model call.
func (a *Assistant) Query(ctx context.Context, question string, category rag.Category) (string, error) {
	passages, err := a.store.Search(ctx, question, category, topK)
	if err != nil {
		return "", err
	}
	if len(passages) == 0 {
		return fallbackMessage(category), nil
	}

	answer, err := a.gen.Generate(ctx, category, question, strings.Join(passages, contextSeparator))
	if err != nil {
		return "", err
	}
	a.persist(ctx, category, question, answer)
	return answer, nil
}

// QueryStream answers a question incrementally, writing each answer segment
// to w as it arrives, and returns the full accumulated answer. The fallback
// message is also written to w so streaming consumers always receive
// content. On a mid-stream failure the partial answer is returned alongside
// the error.
func (a *Assistant) QueryStream(ctx context.Context, question string, category rag.Category, w io.Writer) (string, error) {
	passages, err := a.store.Search(ctx, question, category, topK)
	if err != nil {
		return "", err
	}
	if len(passages) == 0 {
		msg := fallbackMessage(category)
		if _, err := io.WriteString(w, msg); err != nil {
			return "", fmt.Errorf("assistant: write error: %w", err)
		}
		return msg, nil
	}

	answer, err := a.gen.GenerateStream(ctx, category, question, strings.Join(passages, contextSeparator), w)
	if err != nil {
		return answer, err
	}
	a.persist(ctx, category, question, answer)
	return answer, nil
}

// persist records an answered question in the history store (non-fatal on
// error).
func (a *Assistant) persist(ctx context.Context, category rag.Category, question, answer string) {
	if a.history == nil {
		return
	}
	if err := a.history.Append(ctx, string(category), question, answer); err != nil {
		logging.FromContext(ctx).Warn("history: failed to persist exchange", slog.Any("error", err))
	}
}
