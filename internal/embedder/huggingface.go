// Package embedder provides implementations of the rag.Embedder interface
// for converting text into dense vector embeddings. Each implementation
// talks to a different backend (HuggingFace Inference, OpenAI, Ollama) via
// plain HTTP — no additional SDK dependencies are required. All clients are
// thin and retry-agnostic: provider errors propagate and any retry or pacing
// policy belongs to the caller.
package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HFEmbedder implements rag.Embedder using the HuggingFace Inference
// feature-extraction pipeline. It is safe for concurrent use.
type HFEmbedder struct {
	// baseURL is the inference API base, up to and including "/models".
	baseURL string
	// token is the HuggingFace API token.
	token string
	// model is the embedding model id (e.g. "sentence-transformers/all-MiniLM-L6-v2").
	model string
	// client is the shared HTTP client with a sensible timeout.
	client *http.Client
}

// HFConfig holds the settings for constructing an HFEmbedder.
type HFConfig struct {
	// BaseURL is the inference API base. Defaults to the HuggingFace router.
	BaseURL string
	// Token is the HuggingFace API token (HF_TOKEN).
	Token string
	// Model is the embedding model id.
	Model string
	// Timeout is the per-request timeout (default: 30s).
	Timeout time.Duration
}

// defaultHFBaseURL is the HuggingFace router's serverless inference base.
const defaultHFBaseURL = "https://router.huggingface.co/hf-inference/models"

// NewHFEmbedder constructs an HFEmbedder from the given config.
func NewHFEmbedder(cfg *HFConfig) *HFEmbedder {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultHFBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HFEmbedder{
		baseURL: baseURL,
		token:   cfg.Token,
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
	}
}

// hfEmbedRequest is the JSON body sent to the feature-extraction pipeline.
type hfEmbedRequest struct {
	Inputs []string `json:"inputs"`
}

// hfError is the error envelope the inference API returns on failure.
type hfError struct {
	Error string `json:"error"`
}

// Embed converts a batch of texts into their corresponding embeddings.
// The returned slice is parallel to the input slice.
//
// The pipeline's response shape depends on the input: a batch of inputs
// yields one vector per input, while a single input may come back as the
// bare vector rather than a batch of one. Both shapes are normalized here.
func (e *HFEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	payload, err := json.Marshal(hfEmbedRequest{Inputs: texts})
	if err != nil {
		return nil, fmt.Errorf("hf embedder: marshal request: %w", err)
	}

	url := e.baseURL + "/" + e.model + "/pipeline/feature-extraction"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("hf embedder: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hf embedder: request failed: %w", err)
	}
	defer resp.Body.Close()

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("hf embedder: decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		var apiErr hfError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return nil, fmt.Errorf("hf embedder: %s", msg)
	}

	embeddings, err := unwrapEmbeddings(raw, len(texts))
	if err != nil {
		return nil, fmt.Errorf("hf embedder: %w", err)
	}
	return embeddings, nil
}

// unwrapEmbeddings normalizes the feature-extraction response into one flat
// vector per input text, unwrapping the batch-of-one nesting when present.
func unwrapEmbeddings(raw json.RawMessage, want int) ([][]float32, error) {
	var batch [][]float32
	if err := json.Unmarshal(raw, &batch); err == nil {
		if len(batch) != want {
			return nil, fmt.Errorf("expected %d embeddings, got %d", want, len(batch))
		}
		return batch, nil
	}

	// Single flat vector — only valid for a batch of one.
	var single []float32
	if err := json.Unmarshal(raw, &single); err == nil {
		if want != 1 {
			return nil, fmt.Errorf("expected %d embeddings, got a single vector", want)
		}
		return [][]float32{single}, nil
	}

	return nil, fmt.Errorf("unrecognized response shape")
}
