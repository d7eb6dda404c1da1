package embedder

import (
	"os"
	"strings"
	"testing"
)

// clearEmbeddingEnv unsets every env var the factory consults so each case
// starts from a clean slate.
func clearEmbeddingEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"EMBEDDING_PROVIDER", "EMBEDDING_MODEL", "EMBEDDING_API_KEY",
		"EMBEDDING_ENDPOINT", "EMBEDDING_DIMENSIONS",
		"HF_TOKEN", "OPENAI_API_KEY", "OLLAMA_HOST",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestNewFromEnv_DefaultsToHuggingFace(t *testing.T) {
	clearEmbeddingEnv(t)
	t.Setenv("HF_TOKEN", "hf_test")

	emb, err := NewFromEnv()
	if err != nil {
		t.Fatalf("NewFromEnv: %v", err)
	}
	hf, ok := emb.(*HFEmbedder)
	if !ok {
		t.Fatalf("expected *HFEmbedder, got %T", emb)
	}
	if hf.model != defaultHFModel {
		t.Errorf("model: got %q, want %q", hf.model, defaultHFModel)
	}
	if hf.token != "hf_test" {
		t.Errorf("token: got %q", hf.token)
	}
}

func TestNewFromEnv_HuggingFaceRequiresToken(t *testing.T) {
	clearEmbeddingEnv(t)

	_, err := NewFromEnv()
	if err == nil || !strings.Contains(err.Error(), "HF_TOKEN") {
		t.Errorf("expected missing-token error, got %v", err)
	}
}

func TestNewFromEnv_HFAlias(t *testing.T) {
	clearEmbeddingEnv(t)
	t.Setenv("EMBEDDING_PROVIDER", "hf")
	t.Setenv("EMBEDDING_API_KEY", "key")

	emb, err := NewFromEnv()
	if err != nil {
		t.Fatalf("NewFromEnv: %v", err)
	}
	if _, ok := emb.(*HFEmbedder); !ok {
		t.Errorf("expected *HFEmbedder for alias hf, got %T", emb)
	}
}

func TestNewFromEnv_OpenAI(t *testing.T) {
	clearEmbeddingEnv(t)
	t.Setenv("EMBEDDING_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("EMBEDDING_DIMENSIONS", "512")

	emb, err := NewFromEnv()
	if err != nil {
		t.Fatalf("NewFromEnv: %v", err)
	}
	oa, ok := emb.(*OpenAIEmbedder)
	if !ok {
		t.Fatalf("expected *OpenAIEmbedder, got %T", emb)
	}
	if oa.model != defaultOpenAIModel {
		t.Errorf("model: got %q, want %q", oa.model, defaultOpenAIModel)
	}
	if oa.dimensions != 512 {
		t.Errorf("dimensions: got %d, want 512", oa.dimensions)
	}
}

func TestNewFromEnv_OpenAIRequiresKey(t *testing.T) {
	clearEmbeddingEnv(t)
	t.Setenv("EMBEDDING_PROVIDER", "openai")

	_, err := NewFromEnv()
	if err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Errorf("expected missing-key error, got %v", err)
	}
}

func TestNewFromEnv_Ollama(t *testing.T) {
	clearEmbeddingEnv(t)
	t.Setenv("EMBEDDING_PROVIDER", "ollama")
	t.Setenv("OLLAMA_HOST", "http://ollama.internal:11434")
	t.Setenv("EMBEDDING_MODEL", "mxbai-embed-large")

	emb, err := NewFromEnv()
	if err != nil {
		t.Fatalf("NewFromEnv: %v", err)
	}
	ol, ok := emb.(*OllamaEmbedder)
	if !ok {
		t.Fatalf("expected *OllamaEmbedder, got %T", emb)
	}
	if ol.host != "http://ollama.internal:11434" {
		t.Errorf("host: got %q", ol.host)
	}
	if ol.model != "mxbai-embed-large" {
		t.Errorf("model: got %q", ol.model)
	}
}

func TestNewFromEnv_UnknownBackend(t *testing.T) {
	clearEmbeddingEnv(t)
	t.Setenv("EMBEDDING_PROVIDER", "cohere")

	_, err := NewFromEnv()
	if err == nil || !strings.Contains(err.Error(), `"cohere"`) {
		t.Errorf("expected unknown-backend error, got %v", err)
	}
}
