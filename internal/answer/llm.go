// Package answer turns a composed prompt into the final clinical answer. It
// defines a provider-agnostic LLM interface with an OpenAI implementation and
// a deterministic mock for testing, and falls back to a readable excerpt
// digest whenever no model is available or the model call fails.
package answer

import (
	"context"
	"errors"
	"time"

	"github.com/Yates-Labs/carebridge/internal/config"
)

var (
	ErrLLMFailed     = errors.New("LLM request failed")
	ErrInvalidConfig = errors.New("invalid LLM configuration")
)

// SystemInstruction is sent as the system message with every prompt.
const SystemInstruction = "You are a concise clinical assistant. Use only the provided sources."

// LLM defines the interface for interacting with language models.
// Implementations must be stateless and thread-safe.
type LLM interface {
	// Generate produces text for prompt under the given system instruction.
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// LLMConfig holds common configuration options for LLM providers.
type LLMConfig struct {
	// Model specifies the model identifier (e.g., "gpt-4o", "gpt-3.5-turbo")
	Model string

	// Temperature controls randomness; answers are generated at 0
	Temperature float32

	// MaxTokens limits the response length
	MaxTokens int

	// APIKey is the authentication key for the provider; empty means no backend
	APIKey string

	// BaseURL overrides the provider endpoint (OpenAI-compatible servers)
	BaseURL string

	// Timeout bounds a single completion request
	Timeout time.Duration
}

// DefaultLLMConfig reads OPENAI_API_KEY, OPENAI_BASE_URL, MODEL_NAME,
// LLM_MAX_TOKENS and LLM_TIMEOUT.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Model:       config.String("MODEL_NAME", "gpt-3.5-turbo"),
		Temperature: 0,
		MaxTokens:   config.Int("LLM_MAX_TOKENS", 500),
		APIKey:      config.String("OPENAI_API_KEY", ""),
		BaseURL:     config.String("OPENAI_BASE_URL", ""),
		Timeout:     config.Duration("LLM_TIMEOUT", 30*time.Second),
	}
}

// Configured reports whether a generative backend can be built from c.
func (c LLMConfig) Configured() bool {
	return c.APIKey != ""
}
