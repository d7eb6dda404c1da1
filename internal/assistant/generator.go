package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/guidechat-ai/guidechat/internal/rag"
)

// Generator wraps a ChatModel and produces grounded answers from retrieved
// context. It owns the prompt shape; callers supply the question and the
// already-assembled context block.
type Generator struct {
	model model.BaseChatModel
}

// NewGenerator constructs a Generator on top of the given ChatModel.
func NewGenerator(m model.BaseChatModel) *Generator {
	return &Generator{model: m}
}

// buildMessages assembles the system and user messages for one answer.
// The context block is injected verbatim between the markers so the model
// answers only from retrieved passages.
func (g *Generator) buildMessages(category rag.Category, question, contextBlock string) []*schema.Message {
	systemName := strings.ToUpper(string(category))
	prompt := fmt.Sprintf(`You are an %s system assistant. Answer the user's question based on the context.

Context:
%s

User Question: %s

Instructions:
- Answer ONLY from context
- If missing info say you don't know
- Be concise
`, systemName, contextBlock, question)

	return []*schema.Message{
		schema.SystemMessage(fmt.Sprintf("You are a helpful %s assistant.", systemName)),
		schema.UserMessage(prompt),
	}
}

// Generate produces a complete answer in one shot.
func (g *Generator) Generate(ctx context.Context, category rag.Category, question, contextBlock string) (string, error) {
	msg, err := g.model.Generate(ctx, g.buildMessages(category, question, contextBlock))
	if err != nil {
		return "", fmt.Errorf("assistant: generate failed: %w", err)
	}
	return msg.Content, nil
}

// GenerateStream produces an answer incrementally, writing each model
// segment to w as soon as it arrives. It returns the full accumulated
// answer. On a mid-stream failure the partial answer written so far is
// returned alongside the error.
func (g *Generator) GenerateStream(ctx context.Context, category rag.Category, question, contextBlock string, w io.Writer) (string, error) {
	sr, err := g.model.Stream(ctx, g.buildMessages(category, question, contextBlock))
	if err != nil {
		return "", fmt.Errorf("assistant: stream failed: %w", err)
	}
	defer sr.Close()

	var buf strings.Builder
	for {
		msg, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return buf.String(), fmt.Errorf("assistant: stream receive error: %w", err)
		}
		if msg == nil || msg.Content == "" {
			continue
		}
		buf.WriteString(msg.Content)
		if _, err := io.WriteString(w, msg.Content); err != nil {
			return buf.String(), fmt.Errorf("assistant: write error: %w", err)
		}
	}
	return buf.String(), nil
}
