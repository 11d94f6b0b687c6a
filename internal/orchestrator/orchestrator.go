package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/lucaproject/luca/internal/affect"
	"github.com/lucaproject/luca/internal/engine"
	"github.com/lucaproject/luca/internal/llm"
	"github.com/lucaproject/luca/internal/logging"
	"github.com/lucaproject/luca/internal/prompts"
	"github.com/lucaproject/luca/internal/tools"
)

// DefaultReasoning fills in when the selection LLM omits its reasoning.
const DefaultReasoning = "LLM did not provide a reasoning."

var urlRe = regexp.MustCompile(`https?://\S+`)

// Keyword buckets driving the reasoning_emphasis overlay.
var (
	birdsEyeKeywords = []string{"全体像", "戦略", "ビジョン", "抽象", "strategy", "vision", "abstract", "big picture"}
	detailKeywords   = []string{"具体例", "詳細", "データ", "実装", "details", "data", "implementation", "concrete"}
)

// Orchestrator produces the initial pipeline decision. It never consults the
// arbiter; energy policy is the engine's concern.
type Orchestrator struct {
	provider   llm.Provider
	model      string
	prompts    *prompts.Store
	registry   *tools.Registry
	complexity *ComplexityAnalyzer
	log        *logging.Logger
}

// New creates an orchestrator.
func New(provider llm.Provider, model string, store *prompts.Store, registry *tools.Registry) *Orchestrator {
	return &Orchestrator{
		provider:   provider,
		model:      model,
		prompts:    store,
		registry:   registry,
		complexity: NewComplexityAnalyzer(provider, model),
		log:        logging.Component("orchestrator"),
	}
}

// Decide selects the pipeline for the query. Rules apply in order, first
// match wins; the emphasis overlay applies to every outcome. Errors in the
// LLM-backed steps fall back to the full pipeline at confidence 0.5.
func (o *Orchestrator) Decide(ctx context.Context, query string, state affect.State) engine.OrchestrationDecision {
	decision := o.decide(ctx, query, state)
	o.applyEmphasis(query, &decision)
	return decision
}

func (o *Orchestrator) decide(ctx context.Context, query string, state affect.State) engine.OrchestrationDecision {
	// Rule 1: a URL forces the full pipeline, which owns the browser flow.
	if urlRe.MatchString(query) {
		return engine.OrchestrationDecision{
			ChosenMode: engine.ModeFull,
			Reasoning:  "query contains a URL; the full pipeline handles page retrieval",
			Confidence: 0.9,
		}
	}

	// Rule 2: route straight to a specialist when one matches.
	if match, err := o.matchSpecialist(ctx, query); err != nil {
		o.log.Err(err, "specialist check failed, falling back to full")
		return fallbackDecision()
	} else if match != "" {
		return engine.OrchestrationDecision{
			ChosenMode: engine.ModeMicroLLMExpert,
			Reasoning:  fmt.Sprintf("query matches specialist domain of %s", match),
			Confidence: 0.95,
		}
	}

	// Rule 3: complexity estimate + LLM mode selection.
	decision, err := o.selectMode(ctx, query, state)
	if err != nil {
		o.log.Err(err, "mode selection failed, falling back to full")
		return fallbackDecision()
	}
	return decision
}

func fallbackDecision() engine.OrchestrationDecision {
	return engine.OrchestrationDecision{
		ChosenMode: engine.ModeFull,
		Reasoning:  "orchestration failed; defaulting to the full pipeline",
		Confidence: 0.5,
	}
}

// matchSpecialist returns the matching specialist tool name, "" when none.
func (o *Orchestrator) matchSpecialist(ctx context.Context, query string) (string, error) {
	specialists := o.registry.Specialists()
	if len(specialists) == 0 {
		return "", nil
	}

	prompt := fmt.Sprintf(o.prompts.Get(prompts.SpecialistMatch), query, strings.Join(specialists, "\n"))
	resp, err := o.provider.Invoke(ctx, &llm.Request{Model: o.model, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("specialist match: %w", err)
	}
	out := strings.TrimSpace(resp.Content)
	if strings.Contains(out, "なし") {
		return "", nil
	}
	for _, name := range specialists {
		if strings.Contains(out, name) {
			return name, nil
		}
	}
	return "", nil
}

func (o *Orchestrator) selectMode(ctx context.Context, query string, state affect.State) (engine.OrchestrationDecision, error) {
	level, err := o.complexity.Analyze(ctx, query)
	if err != nil {
		return engine.OrchestrationDecision{}, err
	}

	input := fmt.Sprintf("%s\n複雑さレベル: %d\n%s", query, level, state.Summary())
	prompt := fmt.Sprintf(o.prompts.Get(prompts.OrchestrationDecision), input, strings.Join(engine.KnownModes, ", "))
	resp, err := o.provider.Invoke(ctx, &llm.Request{Model: o.model, Prompt: prompt})
	if err != nil {
		return engine.OrchestrationDecision{}, fmt.Errorf("mode selection: %w", err)
	}

	return parseDecision(resp.Content), nil
}

// parseDecision reads the selection LLM's JSON, applying the documented
// defaults for missing fields. Unparseable output yields the full-pipeline
// fallback shape with the defaults applied.
func parseDecision(text string) engine.OrchestrationDecision {
	var parsed struct {
		ChosenMode string            `json:"chosen_mode"`
		Mode       string            `json:"mode"`
		Reasoning  string            `json:"reasoning"`
		Confidence *float64          `json:"confidence_score"`
		Parameters map[string]string `json:"parameters"`
	}

	decision := engine.OrchestrationDecision{
		ChosenMode: engine.ModeFull,
		Reasoning:  DefaultReasoning,
		Confidence: 0.5,
		Parameters: map[string]string{},
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return decision
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &parsed); err != nil {
		return decision
	}

	if parsed.ChosenMode != "" {
		decision.ChosenMode = parsed.ChosenMode
	} else if parsed.Mode != "" {
		decision.ChosenMode = parsed.Mode
	}
	if parsed.Reasoning != "" {
		decision.Reasoning = parsed.Reasoning
	}
	if parsed.Confidence != nil {
		decision.Confidence = *parsed.Confidence
	}
	if parsed.Parameters != nil {
		decision.Parameters = parsed.Parameters
	}
	return decision
}

// applyEmphasis overlays the reasoning_emphasis parameter from keyword
// buckets. Ties, including zero hits on both sides, leave it unset.
func (o *Orchestrator) applyEmphasis(query string, decision *engine.OrchestrationDecision) {
	lower := strings.ToLower(query)
	birds := countHits(lower, birdsEyeKeywords)
	detail := countHits(lower, detailKeywords)

	if birds == detail {
		return
	}
	if decision.Parameters == nil {
		decision.Parameters = map[string]string{}
	}
	if birds > detail {
		decision.Parameters[engine.ParamReasoningEmphasis] = engine.EmphasisBirdsEye
	} else {
		decision.Parameters[engine.ParamReasoningEmphasis] = engine.EmphasisDetail
	}
}

func countHits(lower string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			n++
		}
	}
	return n
}
