// Package orchestrator selects the reasoning pipeline for each request. The
// decision combines query inspection (URLs, specialist domains, emphasis
// keywords), a complexity estimate, and an LLM mode-selection call.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/lucaproject/luca/internal/agents"
	"github.com/lucaproject/luca/internal/llm"
)

// DefaultComplexity is used when the analyzer output cannot be parsed.
const DefaultComplexity = 2

const complexityPrompt = "以下の質問の複雑さを1(単純)から4(非常に複雑)で評価してください。JSON形式で回答してください: {\"level\": 1-4}\n\n質問: %s"

// ComplexityAnalyzer classifies a query into complexity level 1-4.
type ComplexityAnalyzer struct {
	provider llm.Provider
	model    string
}

// NewComplexityAnalyzer creates the analyzer.
func NewComplexityAnalyzer(provider llm.Provider, model string) *ComplexityAnalyzer {
	return &ComplexityAnalyzer{provider: provider, model: model}
}

// Analyze returns the complexity level. Parse failures return the default
// level 2; only the LLM call itself can fail.
func (a *ComplexityAnalyzer) Analyze(ctx context.Context, query string) (int, error) {
	resp, err := a.provider.Invoke(ctx, &llm.Request{
		Model:  a.model,
		Prompt: fmt.Sprintf(complexityPrompt, query),
	})
	if err != nil {
		return 0, fmt.Errorf("complexity analysis: %w", err)
	}
	level := agents.ParseLevel(resp.Content)
	if level < 1 || level > 4 {
		return DefaultComplexity, nil
	}
	return level, nil
}
