package agents

import (
	"context"

	"github.com/lucaproject/luca/internal/prompts"
)

// SynthesisAgent folds a reasoning trajectory into one coherent answer.
type SynthesisAgent struct {
	*Base
}

// NewSynthesisAgent creates the synthesis agent.
func NewSynthesisAgent(base *Base) *SynthesisAgent {
	return &SynthesisAgent{Base: base}
}

// Synthesize merges the trajectory into the loop output.
func (a *SynthesisAgent) Synthesize(ctx context.Context, query, trajectory string) (string, error) {
	return a.invoke(ctx, prompts.Synthesis, query, trajectory)
}

// ConceptAnalysisAgent describes the blend of two concepts in prose.
type ConceptAnalysisAgent struct {
	*Base
}

// NewConceptAnalysisAgent creates the analysis agent.
func NewConceptAnalysisAgent(base *Base) *ConceptAnalysisAgent {
	return &ConceptAnalysisAgent{Base: base}
}

// Analyze explains the combined concept given its nearest neighbors.
func (a *ConceptAnalysisAgent) Analyze(ctx context.Context, conceptA, conceptB, neighbors string) (string, error) {
	return a.invoke(ctx, prompts.ConceptualSynthesis, conceptA, conceptB, neighbors)
}
