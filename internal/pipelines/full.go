package pipelines

import (
	"context"
	"fmt"
	"sync"

	"github.com/lucaproject/luca/internal/agents"
	"github.com/lucaproject/luca/internal/bus"
	"github.com/lucaproject/luca/internal/engine"
	"github.com/lucaproject/luca/internal/logging"
)

// Full is the deliberate pipeline: plan, cognitive loop, master composition,
// with self-criticism and problem discovery running post-hoc in parallel.
type Full struct {
	deps    *Deps
	loop    *CognitiveLoop
	planner *agents.PlanningAgent
	master  *agents.MasterAgent
	meta    *agents.MetaCognitiveAgent
	log     *logging.Logger
}

// NewFull creates the full pipeline.
func NewFull(d *Deps, loop *CognitiveLoop) *Full {
	return &Full{
		deps:    d,
		loop:    loop,
		planner: agents.NewPlanningAgent(d.Base),
		master:  agents.NewMasterAgent(d.Base),
		meta:    agents.NewMetaCognitiveAgent(d.Base),
		log:     logging.Component("pipeline.full"),
	}
}

func (p *Full) Name() string { return engine.ModeFull }

// Run plans, loops, composes, then critiques.
func (p *Full) Run(ctx context.Context, query string, decision engine.OrchestrationDecision) (*engine.MasterResponse, error) {
	plan, err := p.planner.Plan(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}

	result, err := p.loop.Run(ctx, query, plan, decision.Emphasis())
	if err != nil {
		return nil, fmt.Errorf("cognitive loop: %w", err)
	}

	final, err := p.master.Compose(ctx, query, plan, result.Output)
	if err != nil {
		return nil, fmt.Errorf("compose answer: %w", err)
	}

	resp := &engine.MasterResponse{
		FinalAnswer:   final,
		RetrievedInfo: result.RetrievedInfo,
	}
	p.critiquePostHoc(ctx, query, final, resp)
	p.emitTrace(query, plan, result.Output, final)
	return resp, nil
}

// critiquePostHoc runs self-criticism and problem discovery concurrently.
// Either failing leaves the corresponding field empty.
func (p *Full) critiquePostHoc(ctx context.Context, query, final string, resp *engine.MasterResponse) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		critique, err := p.meta.Critique(ctx, query, final)
		if err != nil {
			p.log.Warn("self-criticism failed: %v", err)
			return
		}
		resp.SelfCriticism = critique
	}()
	go func() {
		defer wg.Done()
		problems, err := p.meta.DiscoverProblems(ctx, query, final)
		if err != nil {
			p.log.Warn("problem discovery failed: %v", err)
			return
		}
		resp.PotentialProblems = problems
	}()
	wg.Wait()

	p.publishObservation(bus.EventSelfCriticism, resp.SelfCriticism)
	p.publishObservation(bus.EventPotentialProblems, resp.PotentialProblems)
}

func (p *Full) publishObservation(eventType bus.EventType, content string) {
	if content == "" {
		return
	}
	event := bus.NewEvent(eventType)
	event.Content = content
	p.deps.publish(event)
}

// emitTrace hands the execution trace to self-evolution, fire and forget.
func (p *Full) emitTrace(query, plan, loopOutput, final string) {
	if p.deps.Traces == nil {
		return
	}
	steps := []TraceStep{
		{Name: "plan", Content: plan},
		{Name: "cognitive_loop", Content: loopOutput},
		{Name: "final_answer", Content: final},
	}
	go p.deps.Traces.CollectTrace(query, steps)
}
