// Package affect models the runtime's affective state. The orchestrator folds
// the current state into its mode-selection prompt; analytics subscribers see
// it on every state change.
package affect

import "fmt"

// Emotion is the coarse affect category.
type Emotion string

const (
	Calm             Emotion = "calm"
	Anxious          Emotion = "anxious"
	Empathetic       Emotion = "empathetic"
	Frustrated       Emotion = "frustrated"
	FocusedOnFailure Emotion = "focused_on_failure"
)

// State is one affective reading.
type State struct {
	Emotion   Emotion `json:"emotion"`
	Intensity float64 `json:"intensity"`
	Reason    string  `json:"reason,omitempty"`
}

// Neutral returns the resting state.
func Neutral() State {
	return State{Emotion: Calm, Intensity: 0}
}

// IsNeutral reports whether the state carries no affective signal.
// Calm below intensity 0.1 counts as neutral.
func (s State) IsNeutral() bool {
	return s.Emotion == Calm && s.Intensity < 0.1
}

// Summary renders the state for inclusion in prompts. Neutral states render
// as an explicit neutral marker.
func (s State) Summary() string {
	if s.IsNeutral() {
		return "感情状態: 平静"
	}
	out := fmt.Sprintf("感情状態: %s (強度 %.2f)", s.Emotion, s.Intensity)
	if s.Reason != "" {
		out += " 理由: " + s.Reason
	}
	return out
}
