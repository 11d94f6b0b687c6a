package llm

import "fmt"

// NewProvider constructs the provider selected by cfg.Name.
// Unknown backends are a configuration error, fatal at startup.
func NewProvider(cfg *Config) (Provider, error) {
	if cfg == nil {
		cfg = DefaultConfig("ollama")
	}
	switch cfg.Name {
	case "", "ollama":
		return NewOllamaProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unknown LLM backend %q", cfg.Name)
	}
}
