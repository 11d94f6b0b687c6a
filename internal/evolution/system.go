// Package evolution implements self-analysis: execution traces collected
// from the full pipeline are scored step by step, critiqued, and turned into
// concrete improvements (new specialist models, refined prompts).
package evolution

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/lucaproject/luca/internal/agents"
	"github.com/lucaproject/luca/internal/bus"
	"github.com/lucaproject/luca/internal/logging"
	"github.com/lucaproject/luca/internal/memory"
	"github.com/lucaproject/luca/internal/pipelines"
	"github.com/lucaproject/luca/internal/prompts"
)

// Suggestion types the system knows how to execute.
const (
	SuggestionCreateMicroLLM   = "CreateMicroLLM"
	SuggestionPromptRefinement = "PromptRefinement"
)

// ExpertCreator builds specialist models; the micro-LLM creator satisfies it.
type ExpertCreator interface {
	CreateExpert(ctx context.Context, topic string) (string, error)
}

// Trace is one collected pipeline execution.
type Trace struct {
	Query string
	Steps []pipelines.TraceStep
}

// System is the self-evolving subsystem. It satisfies pipelines.TraceSink.
type System struct {
	mu     sync.Mutex
	traces []Trace

	reward   *agents.ProcessRewardAgent
	meta     *agents.MetaCognitiveAgent
	improver *agents.SelfImprovementAgent

	prompts *prompts.Store
	creator ExpertCreator
	memory  *memory.Log
	bus     *bus.AnalyticsBus

	log *logging.Logger
}

// NewSystem creates the self-evolution subsystem. creator, memory and bus
// may be nil; the corresponding actions are skipped.
func NewSystem(base *agents.Base, store *prompts.Store, creator ExpertCreator, mem *memory.Log, analyticsBus *bus.AnalyticsBus) *System {
	return &System{
		reward:   agents.NewProcessRewardAgent(base),
		meta:     agents.NewMetaCognitiveAgent(base),
		improver: agents.NewSelfImprovementAgent(base),
		prompts:  store,
		creator:  creator,
		memory:   mem,
		bus:      analyticsBus,
		log:      logging.Component("evolution"),
	}
}

// CollectTrace appends one execution trace. Called from the request path, so
// it only takes the lock briefly.
func (s *System) CollectTrace(query string, steps []pipelines.TraceStep) {
	s.mu.Lock()
	s.traces = append(s.traces, Trace{Query: query, Steps: steps})
	s.mu.Unlock()

	if s.bus != nil {
		event := bus.NewEvent(bus.EventExecutionTrace)
		event.Content = renderSteps(steps)
		s.bus.Publish(event)
	}
}

// TraceCount reports the number of pending traces.
func (s *System) TraceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.traces)
}

// AnalyzeOwnPerformance scores the most recent trace, critiques its answer,
// and executes any resulting improvement suggestions. Traces are cleared
// regardless of the critique's verdict.
func (s *System) AnalyzeOwnPerformance(ctx context.Context) error {
	s.mu.Lock()
	if len(s.traces) == 0 {
		s.mu.Unlock()
		return nil
	}
	trace := s.traces[len(s.traces)-1]
	s.traces = nil
	s.mu.Unlock()

	s.scoreSteps(ctx, trace)

	critique, err := s.meta.Critique(ctx, trace.Query, renderSteps(trace.Steps))
	if err != nil {
		return fmt.Errorf("critique trace: %w", err)
	}
	s.publish(bus.EventSelfCriticism, critique)
	if strings.TrimSpace(critique) == "" || strings.Contains(critique, agents.NoProblems) {
		return nil
	}

	suggestions, err := s.improver.Suggest(ctx, critique)
	if err != nil {
		return fmt.Errorf("improvement suggestions: %w", err)
	}
	s.publish(bus.EventImprovementSuggestions, renderSuggestions(suggestions))
	s.execute(ctx, critique, suggestions)
	return nil
}

func (s *System) publish(eventType bus.EventType, content string) {
	if s.bus == nil {
		return
	}
	event := bus.NewEvent(eventType)
	event.Content = content
	s.bus.Publish(event)
}

// scoreSteps runs the process-reward agent over each trace step. Scores feed
// the analytics stream; a failed scoring call only costs its event.
func (s *System) scoreSteps(ctx context.Context, trace Trace) {
	for _, step := range trace.Steps {
		result, err := s.reward.ScoreStep(ctx, step.Name, step.Content)
		if err != nil {
			s.log.Warn("reward scoring for step %s failed: %v", step.Name, err)
			continue
		}
		s.publish(bus.EventProcessFeedback, fmt.Sprintf("step %s: %.2f (%s)", step.Name, result.RewardScore, result.Justification))
	}
}

// execute applies each recognized suggestion and logs the outcome.
func (s *System) execute(ctx context.Context, critique string, suggestions []agents.Suggestion) {
	for _, sug := range suggestions {
		switch sug.Type {
		case SuggestionCreateMicroLLM:
			s.createExpert(ctx, sug.Details["topic"])
		case SuggestionPromptRefinement:
			s.refinePrompt(sug.Details["target_prompt_key"], sug.Details["new_prompt_suggestion"])
		default:
			s.log.Warn("skipping unknown suggestion type %q", sug.Type)
		}
	}
	s.logCorrection(critique, suggestions)
}

func (s *System) createExpert(ctx context.Context, topic string) {
	if topic == "" || s.creator == nil {
		s.log.Warn("CreateMicroLLM suggestion without topic or creator, skipped")
		return
	}
	if _, err := s.creator.CreateExpert(ctx, topic); err != nil {
		s.log.Err(err, "specialist creation for %q failed", topic)
	}
}

func (s *System) refinePrompt(name, template string) {
	if name == "" || template == "" {
		s.log.Warn("PromptRefinement suggestion missing key or template, skipped")
		return
	}
	if !s.prompts.Has(name) {
		s.log.Warn("PromptRefinement targets unknown prompt %q, skipped", name)
		return
	}
	if err := s.prompts.Update(name, template); err != nil {
		s.log.Err(err, "prompt update for %q failed", name)
		return
	}
	s.log.Info("refined prompt %s", name)
}

func (s *System) logCorrection(critique string, suggestions []agents.Suggestion) {
	if s.memory == nil {
		return
	}
	var applied []string
	for _, sug := range suggestions {
		applied = append(applied, sug.Type)
	}
	entry := memory.Entry{
		Kind:    memory.KindSelfCorrection,
		Content: fmt.Sprintf("批判: %s\n適用: %s", critique, strings.Join(applied, ", ")),
	}
	if err := s.memory.Append(entry); err != nil {
		s.log.Err(err, "logging self-correction failed")
	}
}

// renderSuggestions flattens suggestions for the analytics stream.
func renderSuggestions(suggestions []agents.Suggestion) string {
	var parts []string
	for _, sug := range suggestions {
		parts = append(parts, fmt.Sprintf("%s %v", sug.Type, sug.Details))
	}
	return strings.Join(parts, "\n")
}

// renderSteps flattens a trace for the critique call.
func renderSteps(steps []pipelines.TraceStep) string {
	var b strings.Builder
	for _, step := range steps {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", step.Name, step.Content)
	}
	return strings.TrimSpace(b.String())
}
