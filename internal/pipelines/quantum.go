package pipelines

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/lucaproject/luca/internal/agents"
	"github.com/lucaproject/luca/internal/engine"
	"github.com/lucaproject/luca/internal/llm"
	"github.com/lucaproject/luca/internal/logging"
)

// noPersonasAnswer is returned when no personas are configured; the quantum
// pipeline has nothing to superpose.
const noPersonasAnswer = "量子思考モードを実行できません。ペルソナが設定されていません。"

// Quantum answers through every configured persona in parallel and collapses
// the superposition with the integrator.
type Quantum struct {
	deps       *Deps
	integrator *agents.IntegratedInformationAgent
	log        *logging.Logger
}

// NewQuantum creates the quantum-inspired pipeline.
func NewQuantum(d *Deps) *Quantum {
	return &Quantum{
		deps:       d,
		integrator: agents.NewIntegratedInformationAgent(d.Base),
		log:        logging.Component("pipeline.quantum"),
	}
}

func (p *Quantum) Name() string { return engine.ModeQuantum }

// Run fans out over the persona list and integrates the answers.
func (p *Quantum) Run(ctx context.Context, query string, _ engine.OrchestrationDecision) (*engine.MasterResponse, error) {
	if len(p.deps.Personas) == 0 {
		return answer(noPersonasAnswer), nil
	}

	var mu sync.Mutex
	perspectives := make(map[string]string, len(p.deps.Personas))

	g, gctx := errgroup.WithContext(ctx)
	for _, persona := range p.deps.Personas {
		g.Go(func() error {
			prompt := fmt.Sprintf("%s\n\n質問: %s", persona.Persona, query)
			resp, err := p.deps.Base.Provider.Invoke(gctx, &llm.Request{
				Model:  p.deps.Base.Model,
				Prompt: prompt,
			})
			if err != nil {
				return fmt.Errorf("persona %s: %w", persona.Name, err)
			}
			mu.Lock()
			perspectives[persona.Name] = resp.Content
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	final, err := p.integrator.Integrate(ctx, query, perspectives)
	if err != nil {
		return nil, fmt.Errorf("integrate personas: %w", err)
	}
	return answer(final), nil
}
