package engine

import (
	"github.com/lucaproject/luca/internal/logging"
)

// DefaultEnergyThreshold is the level below which high-cost pipelines are
// downgraded.
const DefaultEnergyThreshold = 40.0

// highCostModes are the pipelines gated by the energy budget.
var highCostModes = map[string]bool{
	ModeTreeOfThoughts: true,
	ModeFull:           true,
	ModeSelfDiscover:   true,
}

// arbitrationSuffix is appended to the decision reasoning on downgrade.
const arbitrationSuffix = " (overridden by arbiter due to low cognitive energy)"

// EnergyReader is the arbiter's view of the energy budget. The arbiter only
// reads; it never debits.
type EnergyReader interface {
	Level() float64
}

// ResourceArbiter downgrades high-cost pipeline choices when energy is low.
type ResourceArbiter struct {
	energy    EnergyReader
	threshold float64
	log       *logging.Logger
}

// NewResourceArbiter creates an arbiter. Non-positive threshold uses the
// default.
func NewResourceArbiter(energy EnergyReader, threshold float64) *ResourceArbiter {
	if threshold <= 0 {
		threshold = DefaultEnergyThreshold
	}
	return &ResourceArbiter{
		energy:    energy,
		threshold: threshold,
		log:       logging.Component("arbiter"),
	}
}

// Arbitrate returns the final decision. High-cost modes below the threshold
// become simple with capped confidence; everything else passes unchanged.
func (a *ResourceArbiter) Arbitrate(decision OrchestrationDecision) OrchestrationDecision {
	if !highCostModes[decision.ChosenMode] {
		return decision
	}
	level := a.energy.Level()
	if level >= a.threshold {
		return decision
	}

	a.log.Warn("downgrading %s to %s: energy %.1f below threshold %.1f",
		decision.ChosenMode, ModeSimple, level, a.threshold)

	decision.ChosenMode = ModeSimple
	decision.Reasoning += arbitrationSuffix
	if decision.Confidence > 0.6 {
		decision.Confidence = 0.6
	}
	return decision
}
