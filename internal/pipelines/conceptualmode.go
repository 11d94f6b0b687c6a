package pipelines

import (
	"context"
	"fmt"

	"github.com/lucaproject/luca/internal/agents"
	"github.com/lucaproject/luca/internal/engine"
)

// conceptualPlanSuffix nudges the planner toward concept operations so the
// cognitive loop takes its conceptual branch.
const conceptualPlanSuffix = "\n\n可能であれば、概念の合成操作を「合成「A」と「B」」の形式で計画に含めてください。"

// ConceptualReasoning shares the full pipeline's skeleton but biases the plan
// toward concept-vector operations.
type ConceptualReasoning struct {
	deps    *Deps
	loop    *CognitiveLoop
	planner *agents.PlanningAgent
	master  *agents.MasterAgent
}

// NewConceptualReasoning creates the conceptual pipeline.
func NewConceptualReasoning(d *Deps, loop *CognitiveLoop) *ConceptualReasoning {
	return &ConceptualReasoning{
		deps:    d,
		loop:    loop,
		planner: agents.NewPlanningAgent(d.Base),
		master:  agents.NewMasterAgent(d.Base),
	}
}

func (p *ConceptualReasoning) Name() string { return engine.ModeConceptualReasoning }

// Run plans with the conceptual bias, loops, and composes.
func (p *ConceptualReasoning) Run(ctx context.Context, query string, decision engine.OrchestrationDecision) (*engine.MasterResponse, error) {
	plan, err := p.planner.Plan(ctx, query+conceptualPlanSuffix)
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}

	result, err := p.loop.Run(ctx, query, plan, decision.Emphasis())
	if err != nil {
		return nil, fmt.Errorf("cognitive loop: %w", err)
	}

	final, err := p.master.Compose(ctx, query, plan, result.Output)
	if err != nil {
		return nil, fmt.Errorf("compose answer: %w", err)
	}
	return &engine.MasterResponse{
		FinalAnswer:   final,
		RetrievedInfo: result.RetrievedInfo,
	}, nil
}
