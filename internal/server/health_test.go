package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/guidechat-ai/guidechat/internal/history"
)

// newReadyTestServer builds a *Server with the given pingers and no assistant.
func newReadyTestServer(pingers ...Pinger) *Server {
	s := newChatTestServer(nil)
	s.pingers = pingers
	return s
}

func TestHandleReady_NoPingers(t *testing.T) {
	t.Parallel()

	s := newReadyTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/ready", nil)
	w := httptest.NewRecorder()

	s.handleReady(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with no pingers, got %d", w.Code)
	}
}

func TestHandleReady_AllHealthy(t *testing.T) {
	t.Parallel()

	s := newReadyTestServer(
		PingerFunc("embedder", func(context.Context) error { return nil }),
		PingerFunc("qdrant", func(context.Context) error { return nil }),
	)
	req := httptest.NewRequest(http.MethodGet, "/api/ready", nil)
	w := httptest.NewRecorder()

	s.handleReady(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp readyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Ready {
		t.Error("expected ready=true")
	}
	if len(resp.Checks) != 2 {
		t.Fatalf("expected 2 checks, got %d", len(resp.Checks))
	}
	for _, c := range resp.Checks {
		if !c.OK {
			t.Errorf("check %s: expected ok=true, got error %q", c.Name, c.Error)
		}
	}
}

func TestHandleReady_DependencyDown(t *testing.T) {
	t.Parallel()

	s := newReadyTestServer(
		PingerFunc("embedder", func(context.Context) error { return nil }),
		PingerFunc("qdrant", func(context.Context) error { return errors.New("connection refused") }),
	)
	req := httptest.NewRequest(http.MethodGet, "/api/ready", nil)
	w := httptest.NewRecorder()

	s.handleReady(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}

	var resp readyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Ready {
		t.Error("expected ready=false")
	}
	var found bool
	for _, c := range resp.Checks {
		if c.Name == "qdrant" {
			found = true
			if c.OK || c.Error == "" {
				t.Errorf("qdrant check should carry failure detail: %+v", c)
			}
		}
	}
	if !found {
		t.Error("qdrant check missing from response")
	}
}

func TestHandleHistory_NilStore(t *testing.T) {
	t.Parallel()

	s := newChatTestServer(nil)
	req := httptest.NewRequest(http.MethodGet, "/api/chat/history", nil)
	w := httptest.NewRecorder()

	s.handleHistory(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp historyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Exchanges) != 0 {
		t.Errorf("expected empty history, got %v", resp.Exchanges)
	}
}

func TestHandleHistory_InvalidLimit(t *testing.T) {
	t.Parallel()

	s := newChatTestServer(nil)
	req := httptest.NewRequest(http.MethodGet, "/api/chat/history?limit=zero", nil)
	w := httptest.NewRecorder()

	s.handleHistory(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleHistory_ReturnsExchanges(t *testing.T) {
	t.Parallel()

	hist, err := history.Open(":memory:")
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() { _ = hist.Close() })
	if err := hist.Append(context.Background(), "erp", "q", "a"); err != nil {
		t.Fatalf("append: %v", err)
	}

	s := newChatTestServer(nil)
	s.history = hist

	req := httptest.NewRequest(http.MethodGet, "/api/chat/history?category=erp&limit=5", nil)
	w := httptest.NewRecorder()

	s.handleHistory(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp historyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Exchanges) != 1 || resp.Exchanges[0].Question != "q" {
		t.Errorf("exchanges = %v", resp.Exchanges)
	}
}
