package agents

import (
	"context"
	"strings"

	"github.com/lucaproject/luca/internal/prompts"
)

// Evaluation is the retrieval evaluator's verdict on collected information.
type Evaluation struct {
	RelevanceScore    int    `json:"relevance_score"`
	CompletenessScore int    `json:"completeness_score"`
	Summary           string `json:"summary"`
	Suggestions       string `json:"suggestions"`
}

// Sufficient reports whether both scores clear the tool-escalation bar.
func (e Evaluation) Sufficient() bool {
	return e.RelevanceScore > 8 && e.CompletenessScore > 8
}

// RetrievalEvaluatorAgent scores retrieved information against the query.
type RetrievalEvaluatorAgent struct {
	*Base
}

// NewRetrievalEvaluatorAgent creates the evaluator.
func NewRetrievalEvaluatorAgent(base *Base) *RetrievalEvaluatorAgent {
	return &RetrievalEvaluatorAgent{Base: base}
}

// Evaluate scores the info. Unparseable output scores 5/5, which keeps the
// loop moving toward tool use rather than stalling.
func (a *RetrievalEvaluatorAgent) Evaluate(ctx context.Context, query, info string) (Evaluation, error) {
	out, err := a.invoke(ctx, prompts.RetrievalEvaluation, query, info)
	if err != nil {
		return Evaluation{}, err
	}
	var parsed struct {
		RelevanceScore    int    `json:"relevance_score"`
		CompletenessScore int    `json:"completeness_score"`
		Relevance         int    `json:"relevance"`
		Completeness      int    `json:"completeness"`
		Summary           string `json:"summary"`
		Suggestions       string `json:"suggestions"`
		NextAction        string `json:"next_action"`
	}
	if err := unmarshalLoose(out, &parsed); err != nil {
		return Evaluation{RelevanceScore: 5, CompletenessScore: 5, Summary: out}, nil
	}
	ev := Evaluation{
		RelevanceScore:    parsed.RelevanceScore,
		CompletenessScore: parsed.CompletenessScore,
		Summary:           parsed.Summary,
		Suggestions:       parsed.Suggestions,
	}
	if ev.RelevanceScore == 0 {
		ev.RelevanceScore = parsed.Relevance
	}
	if ev.CompletenessScore == 0 {
		ev.CompletenessScore = parsed.Completeness
	}
	if ev.Suggestions == "" {
		ev.Suggestions = parsed.NextAction
	}
	return ev, nil
}

// ToolUsingAgent picks a tool invocation in the "ToolName: tool_input" form.
type ToolUsingAgent struct {
	*Base
}

// NewToolUsingAgent creates the tool-selection agent.
func NewToolUsingAgent(base *Base) *ToolUsingAgent {
	return &ToolUsingAgent{Base: base}
}

// SelectTool asks the model for one tool call given the catalog. The reply is
// parsed as "ToolName: tool_input".
func (a *ToolUsingAgent) SelectTool(ctx context.Context, query, catalog string) (name, input string, err error) {
	out, err := a.invoke(ctx, prompts.ToolSelection, query, catalog)
	if err != nil {
		return "", "", err
	}
	return ParseToolCall(out)
}

// ParseToolCall splits "ToolName: tool_input" output.
func ParseToolCall(out string) (string, string, error) {
	line := strings.TrimSpace(strings.Split(strings.TrimSpace(out), "\n")[0])
	idx := strings.IndexAny(line, ":：")
	if idx < 0 {
		return "", "", &ToolCallParseError{Raw: out}
	}
	name := strings.TrimSpace(line[:idx])
	input := strings.TrimSpace(strings.TrimLeft(line[idx:], ":： "))
	if name == "" {
		return "", "", &ToolCallParseError{Raw: out}
	}
	return name, input, nil
}

// ToolCallParseError reports unparseable tool-selection output.
type ToolCallParseError struct {
	Raw string
}

func (e *ToolCallParseError) Error() string {
	return "tool selection output is not in \"ToolName: input\" form"
}

// ThoughtEvaluatorAgent scores a thought chain during tree search.
type ThoughtEvaluatorAgent struct {
	*Base
}

// NewThoughtEvaluatorAgent creates the evaluator.
func NewThoughtEvaluatorAgent(base *Base) *ThoughtEvaluatorAgent {
	return &ThoughtEvaluatorAgent{Base: base}
}

// Score rates a thought chain in [0,1].
func (a *ThoughtEvaluatorAgent) Score(ctx context.Context, query, chain string) (float64, error) {
	out, err := a.invoke(ctx, prompts.ToTEvaluate, query, chain)
	if err != nil {
		return 0, err
	}
	return parseScore(out)
}

// StepByStepVerifierAgent checks an answer and either accepts it or returns
// concrete feedback.
type StepByStepVerifierAgent struct {
	*Base
}

// NewStepByStepVerifierAgent creates the verifier.
func NewStepByStepVerifierAgent(base *Base) *StepByStepVerifierAgent {
	return &StepByStepVerifierAgent{Base: base}
}

// Verify returns accepted=true when the verifier passes the answer, else the
// feedback to correct against.
func (a *StepByStepVerifierAgent) Verify(ctx context.Context, query, answer string) (accepted bool, feedback string, err error) {
	out, err := a.invoke(ctx, prompts.StepVerifier, query, answer)
	if err != nil {
		return false, "", err
	}
	if strings.Contains(out, "合格") {
		return true, "", nil
	}
	return false, out, nil
}

// SpeculativeCorrectionAgent rewrites an answer against verifier feedback.
type SpeculativeCorrectionAgent struct {
	*Base
}

// NewSpeculativeCorrectionAgent creates the correction agent.
func NewSpeculativeCorrectionAgent(base *Base) *SpeculativeCorrectionAgent {
	return &SpeculativeCorrectionAgent{Base: base}
}

// Correct produces a revised answer.
func (a *SpeculativeCorrectionAgent) Correct(ctx context.Context, query, answer, feedback string) (string, error) {
	return a.invoke(ctx, prompts.SelfCorrection, query, answer, feedback)
}
