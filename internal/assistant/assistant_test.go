package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/guidechat-ai/guidechat/internal/history"
	"github.com/guidechat-ai/guidechat/internal/rag"
)

// fakeModel is a canned ChatModel: Generate returns answer, Stream replays
// segments one message at a time, optionally failing after streamFailAfter
// segments.
type fakeModel struct {
	answer          string
	segments        []string
	streamErr       error
	streamFailAfter int

	gotMessages []*schema.Message
}

func (m *fakeModel) Generate(_ context.Context, messages []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.gotMessages = messages
	return schema.AssistantMessage(m.answer, nil), nil
}

func (m *fakeModel) Stream(_ context.Context, messages []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	m.gotMessages = messages
	if m.streamErr != nil {
		sr, sw := schema.Pipe[*schema.Message](len(m.segments) + 1)
		go func() {
			defer sw.Close()
			for i, seg := range m.segments {
				if i >= m.streamFailAfter {
					break
				}
				sw.Send(schema.AssistantMessage(seg, nil), nil)
			}
			sw.Send(nil, m.streamErr)
		}()
		return sr, nil
	}
	msgs := make([]*schema.Message, len(m.segments))
	for i, seg := range m.segments {
		msgs[i] = schema.AssistantMessage(seg, nil)
	}
	return schema.StreamReaderFromArray(msgs), nil
}

// fakeStore is a rag.Store returning canned passages for one category.
type fakeStore struct {
	passages  []string
	searchErr error

	gotQuery string
	gotTopK  int
}

func (s *fakeStore) Initialize(context.Context) error                 { return nil }
func (s *fakeStore) IsTrained(rag.Category) bool                      { return true }
func (s *fakeStore) Load(context.Context, rag.Category) (bool, error) { return true, nil }
func (s *fakeStore) AddDocuments(context.Context, []string, string, rag.Category) error {
	return nil
}
func (s *fakeStore) Available() []rag.Category  { return []rag.Category{"erp"} }
func (s *fakeStore) Categories() []rag.Category { return []rag.Category{"erp", "hrms"} }
func (s *fakeStore) Close() error               { return nil }

func (s *fakeStore) Search(_ context.Context, query string, _ rag.Category, topK int) ([]string, error) {
	s.gotQuery = query
	s.gotTopK = topK
	return s.passages, s.searchErr
}

func Test_Assistant_Query(t *testing.T) {
	t.Parallel()
	store := &fakeStore{passages: []string{"passage one", "passage two"}}
	m := &fakeModel{answer: "grounded answer"}
	a := New(store, NewGenerator(m), nil)

	got, err := a.Query(context.Background(), "how do I submit leave?", "hrms")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if got != "grounded answer" {
		t.Errorf("answer = %q, want %q", got, "grounded answer")
	}
	if store.gotTopK != 3 {
		t.Errorf("topK = %d, want 3", store.gotTopK)
	}
	if store.gotQuery != "how do I submit leave?" {
		t.Errorf("search query = %q", store.gotQuery)
	}

	if len(m.gotMessages) != 2 {
		t.Fatalf("want 2 messages, got %d", len(m.gotMessages))
	}
	if m.gotMessages[0].Role != schema.System {
		t.Errorf("messages[0] role = %q, want system", m.gotMessages[0].Role)
	}
	if !strings.Contains(m.gotMessages[0].Content, "HRMS") {
		t.Errorf("system message missing category name: %q", m.gotMessages[0].Content)
	}
	user := m.gotMessages[1].Content
	if !strings.Contains(user, "passage one\n\n---\n\npassage two") {
		t.Errorf("user message missing joined context:\n%s", user)
	}
	if !strings.Contains(user, "how do I submit leave?") {
		t.Errorf("user message missing question:\n%s", user)
	}
}

func Test_Assistant_QueryFallbackOnNoResults(t *testing.T) {
	t.Parallel()
	store := &fakeStore{passages: nil}
	a := New(store, NewGenerator(&fakeModel{answer: "should not be called"}), nil)

	got, err := a.Query(context.Background(), "anything", "erp")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	want := "I couldn't find relevant information in the ERP guide."
	if got != want {
		t.Errorf("answer = %q, want %q", got, want)
	}
}

func Test_Assistant_QueryPropagatesSearchError(t *testing.T) {
	t.Parallel()
	store := &fakeStore{searchErr: rag.ErrNotTrained}
	a := New(store, NewGenerator(&fakeModel{}), nil)

	_, err := a.Query(context.Background(), "anything", "erp")
	if !errors.Is(err, rag.ErrNotTrained) {
		t.Errorf("err = %v, want ErrNotTrained", err)
	}
}

func Test_Assistant_QueryStream(t *testing.T) {
	t.Parallel()
	store := &fakeStore{passages: []string{"passage"}}
	m := &fakeModel{segments: []string{"Open ", "the ", "portal."}}
	a := New(store, NewGenerator(m), nil)

	var buf strings.Builder
	got, err := a.QueryStream(context.Background(), "where do I start?", "erp", &buf)
	if err != nil {
		t.Fatalf("QueryStream: %v", err)
	}
	if got != "Open the portal." {
		t.Errorf("accumulated answer = %q", got)
	}
	if buf.String() != "Open the portal." {
		t.Errorf("written answer = %q", buf.String())
	}
}

func Test_Assistant_QueryStreamFallbackWritten(t *testing.T) {
	t.Parallel()
	store := &fakeStore{passages: nil}
	a := New(store, NewGenerator(&fakeModel{}), nil)

	var buf strings.Builder
	got, err := a.QueryStream(context.Background(), "anything", "hrms", &buf)
	if err != nil {
		t.Fatalf("QueryStream: %v", err)
	}
	want := "I couldn't find relevant information in the HRMS guide."
	if got != want || buf.String() != want {
		t.Errorf("fallback: returned %q, written %q, want %q", got, buf.String(), want)
	}
}

func Test_Assistant_QueryStreamPartialOnError(t *testing.T) {
	t.Parallel()
	store := &fakeStore{passages: []string{"passage"}}
	m := &fakeModel{
		segments:        []string{"partial ", "rest"},
		streamErr:       errors.New("connection reset"),
		streamFailAfter: 1,
	}
	a := New(store, NewGenerator(m), nil)

	var buf strings.Builder
	got, err := a.QueryStream(context.Background(), "anything", "erp", &buf)
	if err == nil {
		t.Fatal("QueryStream: want error, got nil")
	}
	if got != "partial " {
		t.Errorf("partial answer = %q, want %q", got, "partial ")
	}
	if buf.String() != "partial " {
		t.Errorf("written partial = %q, want %q", buf.String(), "partial ")
	}
}

func Test_Assistant_QueryPersistsHistory(t *testing.T) {
	t.Parallel()
	hist, err := history.Open(":memory:")
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() { _ = hist.Close() })

	store := &fakeStore{passages: []string{"passage"}}
	a := New(store, NewGenerator(&fakeModel{answer: "recorded answer"}), hist)

	if _, err := a.Query(context.Background(), "will this persist?", "erp"); err != nil {
		t.Fatalf("Query: %v", err)
	}

	exchanges, err := hist.Recent(context.Background(), "erp", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(exchanges) != 1 {
		t.Fatalf("want 1 exchange, got %d", len(exchanges))
	}
	if exchanges[0].Question != "will this persist?" || exchanges[0].Answer != "recorded answer" {
		t.Errorf("persisted exchange mismatch: %+v", exchanges[0])
	}
}
