// Package llm provides the language model provider abstraction for Luca.
// The runtime treats every model call as an awaitable operation carrying a
// context; providers are selected at startup via the LLM_BACKEND setting.
package llm

import (
	"context"
	"time"
)

// Provider defines the interface for LLM backends.
type Provider interface {
	// Invoke sends a prompt and returns the completion text.
	Invoke(ctx context.Context, req *Request) (*Response, error)

	// CreateModel builds a new named model from a modelfile definition.
	// Used by the micro-LLM creation cycle.
	CreateModel(ctx context.Context, name, modelfile string) error

	// ListModels returns the names of all models known to the backend.
	ListModels(ctx context.Context) ([]string, error)

	// Name returns the provider identifier.
	Name() string
}

// Request is a completion request.
type Request struct {
	// Model overrides the provider's default model when non-empty.
	Model string `json:"model,omitempty"`

	// System sets the behavior prompt.
	System string `json:"system,omitempty"`

	// Prompt is the user-visible input.
	Prompt string `json:"prompt"`

	// Temperature controls randomness (0.0-1.0).
	Temperature float64 `json:"temperature,omitempty"`

	// MaxTokens limits response length. Zero means provider default.
	MaxTokens int `json:"max_tokens,omitempty"`
}

// Response contains the model's completion.
type Response struct {
	Content    string        `json:"content"`
	Model      string        `json:"model"`
	TokensUsed int           `json:"tokens_used,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Config contains configuration for an LLM provider.
type Config struct {
	// Name identifies the backend ("ollama").
	Name string

	// Endpoint is the API base URL.
	Endpoint string

	// Model is the default model to use.
	Model string

	// Timeout bounds a single completion call.
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults for a backend.
func DefaultConfig(name string) *Config {
	switch name {
	case "ollama":
		return &Config{
			Name:     "ollama",
			Endpoint: "http://127.0.0.1:11434",
			Model:    "gemma3:latest",
			Timeout:  2 * time.Minute,
		}
	default:
		return &Config{
			Name:    name,
			Timeout: 2 * time.Minute,
		}
	}
}
