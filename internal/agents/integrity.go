package agents

import (
	"context"
	"fmt"

	"github.com/lucaproject/luca/internal/prompts"
)

// IntegrityCheckAgent verifies a knowledge-graph fragment for logical
// contradictions. "問題なし" means the fragment passes.
type IntegrityCheckAgent struct {
	*Base
}

// NewIntegrityCheckAgent creates the integrity-check agent.
func NewIntegrityCheckAgent(base *Base) *IntegrityCheckAgent {
	return &IntegrityCheckAgent{Base: base}
}

// CheckConsistency reviews a graph fragment and returns the verdict text.
func (a *IntegrityCheckAgent) CheckConsistency(ctx context.Context, fragment string) (string, error) {
	return a.invoke(ctx, prompts.ConsistencyCheck, fragment)
}

// ValueAssessmentAgent proposes per-value adjustments from a final answer.
type ValueAssessmentAgent struct {
	*Base
}

// NewValueAssessmentAgent creates the value-assessment agent.
func NewValueAssessmentAgent(base *Base) *ValueAssessmentAgent {
	return &ValueAssessmentAgent{Base: base}
}

// ProposeAdjustments asks the model how the answer served each core value.
// Keys are value names, adjustments are expected in [-0.1, +0.1]; the caller
// clamps.
func (a *ValueAssessmentAgent) ProposeAdjustments(ctx context.Context, currentValues, finalAnswer string) (map[string]float64, error) {
	out, err := a.invoke(ctx, prompts.ValueAssessment, currentValues, finalAnswer)
	if err != nil {
		return nil, err
	}
	adjustments := map[string]float64{}
	if err := unmarshalLoose(out, &adjustments); err != nil {
		return nil, fmt.Errorf("parse value adjustments: %w", err)
	}
	return adjustments, nil
}
