package pipelines

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/lucaproject/luca/internal/agents"
	"github.com/lucaproject/luca/internal/engine"
	"github.com/lucaproject/luca/internal/logging"
)

// complexityRegimes are the three framings the parallel pipeline explores
// concurrently.
var complexityRegimes = []string{
	"最小限の手順で簡潔に答えてください。",
	"標準的な深さで検討してください。",
	"前提を疑い、複数の観点から徹底的に検討してください。",
}

// Parallel runs the cognitive loop at three complexity regimes concurrently
// and lets an integrator pick the best synthesis.
type Parallel struct {
	deps       *Deps
	loop       *CognitiveLoop
	planner    *agents.PlanningAgent
	integrator *agents.IntegratedInformationAgent
	log        *logging.Logger
}

// NewParallel creates the parallel pipeline.
func NewParallel(d *Deps, loop *CognitiveLoop) *Parallel {
	return &Parallel{
		deps:       d,
		loop:       loop,
		planner:    agents.NewPlanningAgent(d.Base),
		integrator: agents.NewIntegratedInformationAgent(d.Base),
		log:        logging.Component("pipeline.parallel"),
	}
}

func (p *Parallel) Name() string { return engine.ModeParallel }

// Run fans out over the regimes and integrates the syntheses.
func (p *Parallel) Run(ctx context.Context, query string, _ engine.OrchestrationDecision) (*engine.MasterResponse, error) {
	plan, err := p.planner.Plan(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}

	outputs := make([]string, len(complexityRegimes))
	g, gctx := errgroup.WithContext(ctx)
	for i, regime := range complexityRegimes {
		g.Go(func() error {
			result, err := p.loop.Run(gctx, query, plan, regime)
			if err != nil {
				return fmt.Errorf("regime %d: %w", i+1, err)
			}
			outputs[i] = result.Output
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	perspectives := map[string]string{
		"簡潔な検討": outputs[0],
		"標準の検討": outputs[1],
		"徹底的な検討": outputs[2],
	}
	final, err := p.integrator.Integrate(ctx, query, perspectives)
	if err != nil {
		return nil, fmt.Errorf("integrate: %w", err)
	}
	return answer(final), nil
}
