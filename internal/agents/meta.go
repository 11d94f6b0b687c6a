package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/lucaproject/luca/internal/prompts"
)

// NoProblems is the critique output that short-circuits self-evolution.
const NoProblems = "問題なし"

// MetaCognitiveAgent criticizes answers and surfaces potential problems.
type MetaCognitiveAgent struct {
	*Base
}

// NewMetaCognitiveAgent creates the meta-cognitive agent.
func NewMetaCognitiveAgent(base *Base) *MetaCognitiveAgent {
	return &MetaCognitiveAgent{Base: base}
}

// Critique reviews an answer. "問題なし" means the critique passes.
func (a *MetaCognitiveAgent) Critique(ctx context.Context, query, answer string) (string, error) {
	return a.invoke(ctx, prompts.Critique, query, answer)
}

// DiscoverProblems lists latent risks in an answer; "" when none.
func (a *MetaCognitiveAgent) DiscoverProblems(ctx context.Context, query, answer string) (string, error) {
	out, err := a.invoke(ctx, prompts.ProblemDiscovery, query, answer)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "なし" {
		return "", nil
	}
	return out, nil
}

// RewardResult is the process-reward verdict for one reasoning step.
type RewardResult struct {
	RewardScore   float64 `json:"reward_score"`
	Justification string  `json:"justification"`
}

// ProcessRewardAgent scores individual reasoning steps.
type ProcessRewardAgent struct {
	*Base
}

// NewProcessRewardAgent creates the reward agent.
func NewProcessRewardAgent(base *Base) *ProcessRewardAgent {
	return &ProcessRewardAgent{Base: base}
}

// ScoreStep rates one named step of a reasoning trace.
func (a *ProcessRewardAgent) ScoreStep(ctx context.Context, stepName, content string) (RewardResult, error) {
	out, err := a.invoke(ctx, prompts.ProcessReward, stepName, content)
	if err != nil {
		return RewardResult{}, err
	}
	var res RewardResult
	if err := unmarshalLoose(out, &res); err != nil {
		score, scoreErr := parseScore(out)
		if scoreErr != nil {
			return RewardResult{}, fmt.Errorf("parse reward: %w", err)
		}
		return RewardResult{RewardScore: score, Justification: out}, nil
	}
	return res, nil
}

// Suggestion is one structured improvement proposal.
type Suggestion struct {
	Type    string            `json:"type"`
	Details map[string]string `json:"details"`
}

// SelfImprovementAgent turns a critique into improvement suggestions.
type SelfImprovementAgent struct {
	*Base
}

// NewSelfImprovementAgent creates the improvement agent.
func NewSelfImprovementAgent(base *Base) *SelfImprovementAgent {
	return &SelfImprovementAgent{Base: base}
}

// Suggest produces structured suggestions from a critique.
func (a *SelfImprovementAgent) Suggest(ctx context.Context, critique string) ([]Suggestion, error) {
	out, err := a.invoke(ctx, prompts.SelfImprovement, critique)
	if err != nil {
		return nil, err
	}
	var suggestions []Suggestion
	if err := unmarshalLoose(out, &suggestions); err != nil {
		return nil, fmt.Errorf("parse suggestions: %w", err)
	}
	return suggestions, nil
}
