package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/lucaproject/luca/internal/prompts"
)

// HypothesisAgent proposes one new auxiliary construction or hypothesis per
// symbolic-reasoning iteration.
type HypothesisAgent struct {
	*Base
}

// NewHypothesisAgent creates the hypothesis agent.
func NewHypothesisAgent(base *Base) *HypothesisAgent {
	return &HypothesisAgent{Base: base}
}

// Hypothesize returns exactly one new hypothesis line.
func (a *HypothesisAgent) Hypothesize(ctx context.Context, query string, knownFacts []string) (string, error) {
	out, err := a.invoke(ctx, prompts.Hypothesis, query, strings.Join(knownFacts, "\n"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.Split(out, "\n")[0]), nil
}

// DeductiveReasonerAgent states the current conclusion from known facts.
type DeductiveReasonerAgent struct {
	*Base
}

// NewDeductiveReasonerAgent creates the reasoner.
func NewDeductiveReasonerAgent(base *Base) *DeductiveReasonerAgent {
	return &DeductiveReasonerAgent{Base: base}
}

// Conclude derives the current conclusion.
func (a *DeductiveReasonerAgent) Conclude(ctx context.Context, query string, knownFacts []string) (string, error) {
	return a.invoke(ctx, prompts.DeductiveConclusion, query, strings.Join(knownFacts, "\n"))
}

// ThoughtGeneratorAgent expands one tree-search node into candidate children.
type ThoughtGeneratorAgent struct {
	*Base
}

// NewThoughtGeneratorAgent creates the generator.
func NewThoughtGeneratorAgent(base *Base) *ThoughtGeneratorAgent {
	return &ThoughtGeneratorAgent{Base: base}
}

// Generate produces up to k candidate next thoughts, one per output line.
func (a *ThoughtGeneratorAgent) Generate(ctx context.Context, query, state string, k int) ([]string, error) {
	out, err := a.invoke(ctx, prompts.ToTGenerate, k, query, state)
	if err != nil {
		return nil, err
	}
	var thoughts []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "0123456789.-) ")
		if line == "" {
			continue
		}
		thoughts = append(thoughts, line)
		if len(thoughts) == k {
			break
		}
	}
	return thoughts, nil
}

// ThinkingModule runs one self-discover module over the accumulated context.
type ThinkingModule struct {
	*Base
}

// NewThinkingModule creates the module runner.
func NewThinkingModule(base *Base) *ThinkingModule {
	return &ThinkingModule{Base: base}
}

// Run executes the named module with the query and prior output. RAG_SEARCH
// is handled by the pipeline itself; this covers the generative modules.
func (m *ThinkingModule) Run(ctx context.Context, module, query, previous string) (string, error) {
	var template string
	switch module {
	case "DECOMPOSE":
		template = prompts.ModuleDecompose
	case "CRITIQUE":
		template = prompts.ModuleCritique
	case "SYNTHESIZE":
		template = prompts.ModuleSynthesize
	default:
		return "", fmt.Errorf("unknown thinking module %q", module)
	}
	return m.invoke(ctx, template, query, previous)
}
