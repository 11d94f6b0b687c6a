// Package engine dispatches orchestration decisions to reasoning pipelines.
// It owns the pipeline map, applies the resource arbiter's energy policy, and
// absorbs pipeline failures into user-visible responses.
package engine

import "context"

// Pipeline mode names. This set is closed; the orchestrator may only choose
// from it, and the engine substitutes ModeSimple for anything else.
const (
	ModeSimple              = "simple"
	ModeFull                = "full"
	ModeParallel            = "parallel"
	ModeQuantum             = "quantum"
	ModeSpeculative         = "speculative"
	ModeSelfDiscover        = "self_discover"
	ModeInternalDialogue    = "internal_dialogue"
	ModeConceptualReasoning = "conceptual_reasoning"
	ModeMicroLLMExpert      = "micro_llm_expert"
	ModeTreeOfThoughts      = "tree_of_thoughts"
	ModeIterativeCorrection = "iterative_correction"
)

// KnownModes lists every pipeline mode.
var KnownModes = []string{
	ModeSimple,
	ModeFull,
	ModeParallel,
	ModeQuantum,
	ModeSpeculative,
	ModeSelfDiscover,
	ModeInternalDialogue,
	ModeConceptualReasoning,
	ModeMicroLLMExpert,
	ModeTreeOfThoughts,
	ModeIterativeCorrection,
}

// ReasoningEmphasis values for the decision parameter.
const (
	EmphasisBirdsEye = "bird's_eye_view"
	EmphasisDetail   = "detail_oriented"
)

// ParamReasoningEmphasis is the recognized decision parameter key.
const ParamReasoningEmphasis = "reasoning_emphasis"

// OrchestrationDecision is the orchestrator's pipeline choice, possibly
// adjusted by the arbiter before execution.
type OrchestrationDecision struct {
	ChosenMode string            `json:"chosen_mode"`
	Reasoning  string            `json:"reasoning"`
	Confidence float64           `json:"confidence_score"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// Emphasis returns the reasoning emphasis parameter, "" when unset.
func (d OrchestrationDecision) Emphasis() string {
	if d.Parameters == nil {
		return ""
	}
	return d.Parameters[ParamReasoningEmphasis]
}

// MasterResponse is the final result returned to the caller.
type MasterResponse struct {
	FinalAnswer       string `json:"final_answer"`
	SelfCriticism     string `json:"self_criticism"`
	PotentialProblems string `json:"potential_problems"`
	RetrievedInfo     string `json:"retrieved_info"`
}

// Pipeline is one reasoning strategy. Implementations respect ctx
// cancellation on every external call.
type Pipeline interface {
	Name() string
	Run(ctx context.Context, query string, decision OrchestrationDecision) (*MasterResponse, error)
}
