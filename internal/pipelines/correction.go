package pipelines

import (
	"context"
	"fmt"

	"github.com/lucaproject/luca/internal/agents"
	"github.com/lucaproject/luca/internal/engine"
	"github.com/lucaproject/luca/internal/logging"
)

// IterativeCorrection alternates correction and step-by-step verification
// until the verifier accepts or the iteration bound is hit.
type IterativeCorrection struct {
	deps      *Deps
	verifier  *agents.StepByStepVerifierAgent
	corrector *agents.SpeculativeCorrectionAgent
	log       *logging.Logger
}

// NewIterativeCorrection creates the correction pipeline.
func NewIterativeCorrection(d *Deps) *IterativeCorrection {
	return &IterativeCorrection{
		deps:      d,
		verifier:  agents.NewStepByStepVerifierAgent(d.Base),
		corrector: agents.NewSpeculativeCorrectionAgent(d.Base),
		log:       logging.Component("pipeline.iterative_correction"),
	}
}

func (p *IterativeCorrection) Name() string { return engine.ModeIterativeCorrection }

// Run drafts an answer and refines it against verifier feedback.
func (p *IterativeCorrection) Run(ctx context.Context, query string, _ engine.OrchestrationDecision) (*engine.MasterResponse, error) {
	maxIter := p.deps.Config.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	current, err := p.deps.Base.Answer(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("initial answer: %w", err)
	}

	for i := 1; i <= maxIter; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		accepted, feedback, err := p.verifier.Verify(ctx, query, current)
		if err != nil {
			return nil, fmt.Errorf("verify iteration %d: %w", i, err)
		}
		if accepted {
			break
		}

		corrected, err := p.corrector.Correct(ctx, query, current, feedback)
		if err != nil {
			return nil, fmt.Errorf("correct iteration %d: %w", i, err)
		}
		current = corrected
	}
	return answer(current), nil
}
