// Package provider defines the Config and factory for selecting and
// constructing LLM backend implementations at runtime.
// Supported backends: Groq, Ollama, OpenAI, Google Gemini.
package provider

import "fmt"

// Backend enumerates the supported LLM inference providers.
type Backend string

const (
	// BackendGroq selects the Groq API (OpenAI-compatible).
	BackendGroq Backend = "groq"
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
	// BackendOpenAI selects the OpenAI API.
	BackendOpenAI Backend = "openai"
	// BackendGemini selects Google Gemini via AI Studio.
	BackendGemini Backend = "gemini"
)

// ProviderGroq holds Groq-specific settings.
type ProviderGroq struct {
	// APIKey is the Groq API key (GROQ_API_KEY).
	APIKey string
	// Model is the model name (default: llama-3.3-70b-versatile).
	Model string
}

// ProviderOllama holds Ollama-specific settings.
type ProviderOllama struct {
	// Host is the Ollama server base URL (default: http://localhost:11434).
	Host string
	// Model is the model name (e.g. "llama3").
	Model string
}

// ProviderOpenAI holds OpenAI-specific settings.
type ProviderOpenAI struct {
	// APIKey is the OpenAI API key (OPENAI_API_KEY).
	APIKey string
	// Model is the model name (default: gpt-4o-mini).
	Model string
	// BaseURL overrides the default API endpoint. Optional.
	BaseURL string
}

// ProviderGemini holds Gemini-specific settings.
type ProviderGemini struct {
	// APIKey is the Google AI Studio key (GOOGLE_API_KEY).
	APIKey string
	// Model is the model name (default: gemini-1.5-flash).
	Model string
}

// SharedTuning holds generation parameters applied regardless of backend.
type SharedTuning struct {
	// MaxTokens caps the number of tokens the model may generate per response.
	MaxTokens int
	// Temperature controls response randomness (0.0–1.0).
	Temperature float32
}

// Config holds all provider-level configuration resolved from environment
// variables or explicit caller-supplied values. Only the section matching
// Backend is consulted.
type Config struct {
	// Backend identifies which inference provider to use.
	Backend Backend

	Groq   ProviderGroq
	Ollama ProviderOllama
	OpenAI ProviderOpenAI
	Gemini ProviderGemini

	Tuning SharedTuning
}

// Validate checks that the selected backend has the credentials it needs.
// It reports the first problem found so startup fails with a clear message
// rather than on the first request.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendGroq:
		if c.Groq.APIKey == "" {
			return fmt.Errorf("provider: GROQ_API_KEY is required for groq backend")
		}
		if c.Groq.Model == "" {
			return fmt.Errorf("provider: LLM_MODEL is required for groq backend")
		}
	case BackendOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("provider: OPENAI_API_KEY is required for openai backend")
		}
		if c.OpenAI.Model == "" {
			return fmt.Errorf("provider: OPENAI_MODEL is required for openai backend")
		}
	case BackendGemini:
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("provider: GOOGLE_API_KEY is required for gemini backend")
		}
		if c.Gemini.Model == "" {
			return fmt.Errorf("provider: GEMINI_MODEL is required for gemini backend")
		}
	case BackendOllama:
		// No credentials; the host defaults to localhost.
		if c.Ollama.Model == "" {
			return fmt.Errorf("provider: OLLAMA_MODEL is required for ollama backend")
		}
	default:
		return fmt.Errorf("provider: unknown backend %q — valid values: groq, ollama, openai, gemini", c.Backend)
	}
	return nil
}
