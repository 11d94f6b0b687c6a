package pipelines

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/lucaproject/luca/internal/agents"
	"github.com/lucaproject/luca/internal/bus"
	"github.com/lucaproject/luca/internal/conceptual"
	"github.com/lucaproject/luca/internal/logging"
	"github.com/lucaproject/luca/internal/memory"
	"github.com/lucaproject/luca/internal/reasoning"
)

// Plan markers steering the cognitive loop branch.
var (
	symbolicMarkers = []string{"記号的検証", "数学的証明"}
	conceptRe       = regexp.MustCompile(`合成「(.+?)」と「(.+?)」`)
	loopURLRe       = regexp.MustCompile(`https?://\S+`)
)

// Loop bounds.
const (
	DefaultMaxIterations  = 3
	symbolicMaxIterations = 5
	kgFragmentTimeout     = 60 * time.Second
	kgFragmentInputLimit  = 4000
	recentInsightCount    = 3
)

// LoopResult is the cognitive loop's output.
type LoopResult struct {
	Output        string
	RetrievedInfo string
}

// CognitiveLoop runs the plan-directed reasoning core: iterative retrieval
// with tool escalation, or the symbolic proof loop, or conceptual vector
// operations, selected by plan markers.
type CognitiveLoop struct {
	deps *Deps

	evaluator  *agents.RetrievalEvaluatorAgent
	toolUser   *agents.ToolUsingAgent
	refiner    *agents.QueryRefinementAgent
	summarizer *agents.SummarizerAgent
	kg         *agents.KnowledgeGraphAgent
	hypothesis *agents.HypothesisAgent
	deducer    *agents.DeductiveReasonerAgent
	synthesis  *agents.SynthesisAgent
	analyst    *agents.ConceptAnalysisAgent
	verifier   *reasoning.SymbolicVerifier

	log *logging.Logger
}

// NewCognitiveLoop creates the loop over the shared dependencies.
func NewCognitiveLoop(d *Deps) *CognitiveLoop {
	return &CognitiveLoop{
		deps:       d,
		evaluator:  agents.NewRetrievalEvaluatorAgent(d.Base),
		toolUser:   agents.NewToolUsingAgent(d.Base),
		refiner:    agents.NewQueryRefinementAgent(d.Base),
		summarizer: agents.NewSummarizerAgent(d.Base),
		kg:         agents.NewKnowledgeGraphAgent(d.Base),
		hypothesis: agents.NewHypothesisAgent(d.Base),
		deducer:    agents.NewDeductiveReasonerAgent(d.Base),
		synthesis:  agents.NewSynthesisAgent(d.Base),
		analyst:    agents.NewConceptAnalysisAgent(d.Base),
		verifier:   reasoning.NewSymbolicVerifier(),
		log:        logging.Component("loop"),
	}
}

// Run executes the branch the plan calls for and returns the synthesis.
func (l *CognitiveLoop) Run(ctx context.Context, query, plan, instruction string) (LoopResult, error) {
	for _, marker := range symbolicMarkers {
		if strings.Contains(plan, marker) {
			out, err := l.runSymbolic(ctx, query)
			return LoopResult{Output: out}, err
		}
	}
	if pairs := conceptRe.FindAllStringSubmatch(plan, -1); len(pairs) > 0 && l.deps.Concepts != nil {
		out, err := l.runConceptual(ctx, pairs)
		return LoopResult{Output: out}, err
	}
	return l.runRetrieval(ctx, query, plan, instruction)
}

// runSymbolic alternates hypothesis generation with deductive closure until
// the reasoner declares a conclusion or the iteration bound is hit.
func (l *CognitiveLoop) runSymbolic(ctx context.Context, query string) (string, error) {
	var facts []string
	var trace strings.Builder

	for i := 1; i <= symbolicMaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		hyp, err := l.hypothesis.Hypothesize(ctx, query, facts)
		if err != nil {
			return "", fmt.Errorf("hypothesis step %d: %w", i, err)
		}
		facts = append(facts, hyp)
		fmt.Fprintf(&trace, "仮説%d: %s\n", i, hyp)

		deduced := l.verifier.Deduce(facts)
		facts = append(facts, deduced...)
		for _, d := range deduced {
			fmt.Fprintf(&trace, "演繹: %s\n", d)
		}

		conclusion, err := l.deducer.Conclude(ctx, query, facts)
		if err != nil {
			return "", fmt.Errorf("deduction step %d: %w", i, err)
		}
		fmt.Fprintf(&trace, "結論: %s\n", conclusion)

		if strings.Contains(conclusion, "結論として") || strings.Contains(conclusion, "証明された") {
			break
		}
	}
	return trace.String(), nil
}

// runConceptual performs each 合成「A」と「B」 operation the plan names.
func (l *CognitiveLoop) runConceptual(ctx context.Context, pairs [][]string) (string, error) {
	var parts []string
	for _, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		a, b := pair[1], pair[2]

		neighbors, err := l.deps.Concepts.Synthesize(ctx, a, b, 3)
		if err != nil {
			return "", fmt.Errorf("synthesize concepts %q and %q: %w", a, b, err)
		}
		analysis, err := l.analyst.Analyze(ctx, a, b, conceptual.DescribeNeighbors(neighbors))
		if err != nil {
			return "", fmt.Errorf("analyze concept blend: %w", err)
		}
		parts = append(parts, analysis)
	}
	return strings.Join(parts, "\n\n"), nil
}

// runRetrieval is the iterative retrieve-evaluate-escalate loop.
func (l *CognitiveLoop) runRetrieval(ctx context.Context, query, plan, instruction string) (LoopResult, error) {
	if loopURLRe.MatchString(query) {
		out, err := l.browsePage(ctx, query)
		return LoopResult{Output: out, RetrievedInfo: out}, err
	}

	maxIter := l.deps.Config.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	current := query
	var info strings.Builder
	for i := 1; i <= maxIter; i++ {
		if err := ctx.Err(); err != nil {
			return LoopResult{}, err
		}

		retrieved := l.retrieve(ctx, current)
		if retrieved != "" {
			info.WriteString(retrieved)
			info.WriteString("\n")
		}

		eval, err := l.evaluator.Evaluate(ctx, query, info.String())
		if err != nil {
			return LoopResult{}, fmt.Errorf("evaluate iteration %d: %w", i, err)
		}

		event := bus.NewEvent(bus.EventLoopIteration)
		event.Iteration = i
		event.Content = eval.Summary
		l.deps.publish(event)

		toolUsed := false
		if eval.RelevanceScore <= 8 || eval.CompletenessScore <= 8 {
			if result, tool, ok := l.escalateToTool(ctx, query); ok {
				info.WriteString(result)
				info.WriteString("\n")
				toolUsed = true

				toolEvent := bus.NewEvent(bus.EventToolUse)
				toolEvent.Tool = tool
				toolEvent.Iteration = i
				l.deps.publish(toolEvent)
			}
		}

		if eval.Sufficient() || toolUsed {
			break
		}
		if i < maxIter {
			refined, err := l.refiner.Refine(ctx, current, eval.Suggestions)
			if err == nil && refined != "" {
				current = refined
			}
		}
	}

	collected := info.String()
	l.mergeKnowledge(ctx, collected)

	synthesis, err := l.synthesize(ctx, query, plan, collected, instruction)
	if err != nil {
		return LoopResult{}, err
	}
	return LoopResult{Output: synthesis, RetrievedInfo: collected}, nil
}

// browsePage fetches the page named in the query and summarizes it, via a
// specialist summarizer when one is registered.
func (l *CognitiveLoop) browsePage(ctx context.Context, query string) (string, error) {
	url := loopURLRe.FindString(query)
	page, err := l.deps.Registry.Execute(ctx, "web_browser", url)
	if err != nil {
		return "", fmt.Errorf("browse %s: %w", url, err)
	}

	if specialist, ok := l.deps.Registry.FindSpecialist("summarization"); ok {
		summary, err := specialist.Execute(ctx, page)
		if err == nil {
			return summary, nil
		}
		l.log.Warn("specialist summarizer failed, using generic: %v", err)
	}
	return l.summarizer.Summarize(ctx, page)
}

// retrieve queries the vector store; retrieval failures degrade to no info.
func (l *CognitiveLoop) retrieve(ctx context.Context, query string) string {
	if l.deps.Retriever == nil {
		return ""
	}
	results, err := l.deps.Retriever.Search(ctx, query, 5)
	if err != nil {
		l.log.Warn("retrieval failed: %v", err)
		return ""
	}
	var b strings.Builder
	for _, r := range results {
		b.WriteString(r.Document.Content)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// escalateToTool asks for one tool call and executes it. Any failure along
// the way means no escalation this cycle.
func (l *CognitiveLoop) escalateToTool(ctx context.Context, query string) (result, tool string, ok bool) {
	name, input, err := l.toolUser.SelectTool(ctx, query, l.deps.Registry.Catalog())
	if err != nil {
		l.log.Warn("tool selection failed: %v", err)
		return "", "", false
	}
	out, err := l.deps.Registry.Execute(ctx, name, input)
	if err != nil {
		l.log.Warn("tool %s failed: %v", name, err)
		return "", "", false
	}
	return fmt.Sprintf("[%s] %s", name, out), name, true
}

// mergeKnowledge extracts a graph fragment from the collected info and folds
// it into the persistent graph. Extraction is best-effort under a timeout;
// failures only cost the graph update.
func (l *CognitiveLoop) mergeKnowledge(ctx context.Context, info string) {
	if l.deps.Graph == nil || strings.TrimSpace(info) == "" {
		return
	}
	if len(info) > kgFragmentInputLimit {
		info = info[:kgFragmentInputLimit]
	}

	fragCtx, cancel := context.WithTimeout(ctx, kgFragmentTimeout)
	defer cancel()

	frag, err := l.kg.ExtractFragment(fragCtx, info)
	if err != nil {
		l.log.Warn("knowledge extraction skipped: %v", err)
		return
	}
	l.deps.Graph.Merge(frag)
	if err := l.deps.Graph.Save(); err != nil {
		l.log.Err(err, "knowledge graph save failed")
	}
}

// synthesize composes the loop output, folding in the knowledge graph
// summary and recent physical simulation insights.
func (l *CognitiveLoop) synthesize(ctx context.Context, query, plan, info, instruction string) (string, error) {
	var trajectory strings.Builder
	fmt.Fprintf(&trajectory, "計画:\n%s\n\n", plan)
	if l.deps.Graph != nil {
		if summary := l.deps.Graph.Summary(10); summary != "" {
			fmt.Fprintf(&trajectory, "長期記憶:\n%s\n\n", summary)
		}
	}
	fmt.Fprintf(&trajectory, "収集した情報:\n%s\n", info)
	if insights := l.recentInsights(); insights != "" {
		fmt.Fprintf(&trajectory, "\n物理シミュレーションからの洞察:\n%s\n", insights)
	}
	if instruction != "" {
		fmt.Fprintf(&trajectory, "\n推論の方針: %s\n", instruction)
	}

	return l.synthesis.Synthesize(ctx, query, trajectory.String())
}

// recentInsights returns up to the newest 3 simulation insights.
func (l *CognitiveLoop) recentInsights() string {
	if l.deps.Memory == nil {
		return ""
	}
	entries, err := l.deps.Memory.Recent(memory.KindSimulationInsight, recentInsightCount)
	if err != nil {
		l.log.Warn("reading simulation insights failed: %v", err)
		return ""
	}
	var lines []string
	for _, e := range entries {
		lines = append(lines, e.Content)
	}
	return strings.Join(lines, "\n")
}
