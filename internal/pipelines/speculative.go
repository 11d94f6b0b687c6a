package pipelines

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/lucaproject/luca/internal/engine"
	"github.com/lucaproject/luca/internal/logging"
	"github.com/lucaproject/luca/internal/prompts"
)

// DefaultNumDrafts is the speculative fan-out when none is configured.
const DefaultNumDrafts = 3

// Speculative drafts K candidate answers in parallel, preferring the fast
// model for drafting, and has a single verifier call merge them.
type Speculative struct {
	deps *Deps
	log  *logging.Logger
}

// NewSpeculative creates the speculative pipeline.
func NewSpeculative(d *Deps) *Speculative {
	return &Speculative{deps: d, log: logging.Component("pipeline.speculative")}
}

func (p *Speculative) Name() string { return engine.ModeSpeculative }

// Run drafts and merges.
func (p *Speculative) Run(ctx context.Context, query string, _ engine.OrchestrationDecision) (*engine.MasterResponse, error) {
	k := p.deps.Config.NumDrafts
	if k <= 0 {
		k = DefaultNumDrafts
	}
	draftModel := p.deps.FastModel
	if draftModel == "" {
		draftModel = p.deps.Base.Model
	}

	prompt := fmt.Sprintf(p.deps.Base.Prompts.Get(prompts.SpeculativeDraft), query)
	drafts := make([]string, k)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < k; i++ {
		g.Go(func() error {
			out, err := p.deps.Base.InvokeModel(gctx, draftModel, prompt)
			if err != nil {
				return fmt.Errorf("draft %d: %w", i+1, err)
			}
			drafts[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var listing strings.Builder
	for i, d := range drafts {
		fmt.Fprintf(&listing, "草案%d:\n%s\n\n", i+1, d)
	}
	verifyPrompt := fmt.Sprintf(p.deps.Base.Prompts.Get(prompts.SpeculativeVerify), query, listing.String())
	final, err := p.deps.Base.InvokeModel(ctx, p.deps.Base.Model, verifyPrompt)
	if err != nil {
		return nil, fmt.Errorf("verify drafts: %w", err)
	}
	return answer(final), nil
}
