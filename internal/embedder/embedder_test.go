package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHFEmbedder_BatchResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/pipeline/feature-extraction") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization: got %q", got)
		}
		var req hfEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if len(req.Inputs) != 2 {
			t.Errorf("expected 2 inputs, got %d", len(req.Inputs))
		}
		json.NewEncoder(w).Encode([][]float32{{1, 2}, {3, 4}})
	}))
	defer srv.Close()

	emb := NewHFEmbedder(&HFConfig{
		BaseURL: srv.URL,
		Token:   "test-token",
		Model:   "test-model",
	})

	got, err := emb.Embed(context.Background(), []string{"one", "two"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(got) != 2 || got[0][0] != 1 || got[1][1] != 4 {
		t.Errorf("unexpected embeddings: %v", got)
	}
}

func TestHFEmbedder_SingleVectorUnwrapped(t *testing.T) {
	t.Parallel()

	// A batch of one may come back as the bare vector.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]float32{0.5, 0.25})
	}))
	defer srv.Close()

	emb := NewHFEmbedder(&HFConfig{BaseURL: srv.URL, Model: "m"})
	got, err := emb.Embed(context.Background(), []string{"only"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(got) != 1 || len(got[0]) != 2 || got[0][0] != 0.5 {
		t.Errorf("unexpected embeddings: %v", got)
	}
}

func TestHFEmbedder_APIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(hfError{Error: "model is loading"})
	}))
	defer srv.Close()

	emb := NewHFEmbedder(&HFConfig{BaseURL: srv.URL, Model: "m"})
	_, err := emb.Embed(context.Background(), []string{"x"})
	if err == nil || !strings.Contains(err.Error(), "model is loading") {
		t.Errorf("expected API error message, got %v", err)
	}
}

func TestUnwrapEmbeddings_CountMismatch(t *testing.T) {
	t.Parallel()

	raw := json.RawMessage(`[[1,2],[3,4]]`)
	if _, err := unwrapEmbeddings(raw, 3); err == nil {
		t.Error("expected count mismatch error")
	}

	single := json.RawMessage(`[1,2,3]`)
	if _, err := unwrapEmbeddings(single, 2); err == nil {
		t.Error("single vector must not satisfy a batch of two")
	}
}

func TestOpenAIEmbedder_PlacesByIndex(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openaiEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Model != "text-embedding-3-small" {
			t.Errorf("model: got %q", req.Model)
		}
		if req.Dimensions != 256 {
			t.Errorf("dimensions: got %d, want 256", req.Dimensions)
		}
		// Return data out of order; the client must place by index.
		w.Write([]byte(`{"data":[
			{"embedding":[9,9],"index":1},
			{"embedding":[1,1],"index":0}
		]}`))
	}))
	defer srv.Close()

	emb := NewOpenAIEmbedder(&OpenAIConfig{
		BaseURL:    srv.URL,
		APIKey:     "sk-test",
		Model:      "text-embedding-3-small",
		Dimensions: 256,
	})

	got, err := emb.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if got[0][0] != 1 || got[1][0] != 9 {
		t.Errorf("embeddings not placed by index: %v", got)
	}
}

func TestOpenAIEmbedder_APIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	}))
	defer srv.Close()

	emb := NewOpenAIEmbedder(&OpenAIConfig{BaseURL: srv.URL, APIKey: "bad", Model: "m"})
	_, err := emb.Embed(context.Background(), []string{"x"})
	if err == nil || !strings.Contains(err.Error(), "invalid api key") {
		t.Errorf("expected API error message, got %v", err)
	}
}

func TestOllamaEmbedder_CountMismatch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float32{{1}}})
	}))
	defer srv.Close()

	emb := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL, Model: "m"})
	_, err := emb.Embed(context.Background(), []string{"a", "b"})
	if err == nil || !strings.Contains(err.Error(), "expected 2 embeddings") {
		t.Errorf("expected count mismatch error, got %v", err)
	}
}
