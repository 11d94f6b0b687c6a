package agents

import (
	"context"
	"strings"

	"github.com/lucaproject/luca/internal/prompts"
)

// PlanningAgent produces the thinking plan driving the cognitive loop, and
// selects thinking modules for the self-discover pipeline.
type PlanningAgent struct {
	*Base
}

// NewPlanningAgent creates the planning agent.
func NewPlanningAgent(base *Base) *PlanningAgent {
	return &PlanningAgent{Base: base}
}

// Plan generates a thinking plan for the query.
func (a *PlanningAgent) Plan(ctx context.Context, query string) (string, error) {
	return a.invoke(ctx, prompts.Planner, query)
}

// KnownModules is the closed set of thinking modules the self-discover
// pipeline understands.
var KnownModules = []string{"DECOMPOSE", "CRITIQUE", "SYNTHESIZE", "RAG_SEARCH"}

// SelectModules picks an ordered module sequence for the query. Output lines
// are matched against the known module names; unknown mentions are dropped
// here and the pipeline warns about any it still receives.
func (a *PlanningAgent) SelectModules(ctx context.Context, query string) ([]string, error) {
	catalog := strings.Join(KnownModules, "\n")
	out, err := a.invoke(ctx, prompts.SelfDiscoverSelect, query, catalog)
	if err != nil {
		return nil, err
	}

	upper := strings.ToUpper(out)
	var selected []string
	for _, m := range KnownModules {
		if strings.Contains(upper, m) {
			selected = append(selected, m)
		}
	}
	if len(selected) == 0 {
		// A plan with no recognizable modules still needs to produce an
		// answer; synthesis alone covers that.
		selected = []string{"SYNTHESIZE"}
	}
	return selected, nil
}

// MasterAgent composes the final user-visible answer.
type MasterAgent struct {
	*Base
}

// NewMasterAgent creates the master agent.
func NewMasterAgent(base *Base) *MasterAgent {
	return &MasterAgent{Base: base}
}

// Compose builds the final answer from the plan and the loop output.
func (a *MasterAgent) Compose(ctx context.Context, query, plan, loopOutput string) (string, error) {
	return a.invoke(ctx, prompts.Master, query, plan, loopOutput)
}

// RouterAgent decides between retrieval and a direct answer for the simple
// pipeline.
type RouterAgent struct {
	*Base
}

// NewRouterAgent creates the router agent.
func NewRouterAgent(base *Base) *RouterAgent {
	return &RouterAgent{Base: base}
}

// Route returns "RAG" or "DIRECT". Anything unparseable routes DIRECT.
func (a *RouterAgent) Route(ctx context.Context, query string) (string, error) {
	out, err := a.invoke(ctx, prompts.Router, query)
	if err != nil {
		return "", err
	}
	var parsed struct {
		Route string `json:"route"`
	}
	if err := unmarshalLoose(out, &parsed); err == nil {
		if strings.EqualFold(parsed.Route, "RAG") {
			return "RAG", nil
		}
		return "DIRECT", nil
	}
	if strings.Contains(strings.ToUpper(out), "RAG") {
		return "RAG", nil
	}
	return "DIRECT", nil
}

// SummarizerAgent condenses long text, e.g. fetched web pages.
type SummarizerAgent struct {
	*Base
}

// NewSummarizerAgent creates the summarizer agent.
func NewSummarizerAgent(base *Base) *SummarizerAgent {
	return &SummarizerAgent{Base: base}
}

// Summarize condenses the text.
func (a *SummarizerAgent) Summarize(ctx context.Context, text string) (string, error) {
	return a.invoke(ctx, prompts.Summarize, text)
}

// QueryRefinementAgent rewrites a query after an unproductive retrieval
// iteration.
type QueryRefinementAgent struct {
	*Base
}

// NewQueryRefinementAgent creates the refinement agent.
func NewQueryRefinementAgent(base *Base) *QueryRefinementAgent {
	return &QueryRefinementAgent{Base: base}
}

// Refine produces a sharper query given evaluator feedback. An empty result
// keeps the original query.
func (a *QueryRefinementAgent) Refine(ctx context.Context, query, feedback string) (string, error) {
	out, err := a.invoke(ctx, prompts.QueryRefinement, query, feedback)
	if err != nil {
		return "", err
	}
	refined := strings.TrimSpace(strings.Split(out, "\n")[0])
	if refined == "" {
		return query, nil
	}
	return refined, nil
}
