package pipelines

import (
	"context"
	"fmt"

	"github.com/lucaproject/luca/internal/agents"
	"github.com/lucaproject/luca/internal/engine"
	"github.com/lucaproject/luca/internal/reasoning"
)

// TreeOfThoughts answers through beam search over candidate thought chains.
type TreeOfThoughts struct {
	deps   *Deps
	search *reasoning.TreeSearch
}

// NewTreeOfThoughts creates the tree-search pipeline.
func NewTreeOfThoughts(d *Deps) *TreeOfThoughts {
	return &TreeOfThoughts{
		deps: d,
		search: reasoning.NewTreeSearch(
			agents.NewThoughtGeneratorAgent(d.Base),
			agents.NewThoughtEvaluatorAgent(d.Base),
		),
	}
}

func (p *TreeOfThoughts) Name() string { return engine.ModeTreeOfThoughts }

// Run searches and returns the best thought chain's terminal state.
func (p *TreeOfThoughts) Run(ctx context.Context, query string, _ engine.OrchestrationDecision) (*engine.MasterResponse, error) {
	best, err := p.search.Run(ctx, query, reasoning.SearchParams{
		Initial: p.deps.Config.TotInitial,
		Depth:   p.deps.Config.TotDepth,
		Beam:    p.deps.Config.TotBeam,
	})
	if err != nil {
		return nil, fmt.Errorf("tree search: %w", err)
	}
	return answer(best.State), nil
}
