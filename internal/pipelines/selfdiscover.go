package pipelines

import (
	"context"
	"fmt"
	"strings"

	"github.com/lucaproject/luca/internal/agents"
	"github.com/lucaproject/luca/internal/engine"
	"github.com/lucaproject/luca/internal/logging"
)

// SelfDiscover composes an answer by running a self-selected sequence of
// thinking modules, each seeing the accumulated output of the previous ones.
type SelfDiscover struct {
	deps    *Deps
	planner *agents.PlanningAgent
	module  *agents.ThinkingModule
	log     *logging.Logger
}

// NewSelfDiscover creates the self-discover pipeline.
func NewSelfDiscover(d *Deps) *SelfDiscover {
	return &SelfDiscover{
		deps:    d,
		planner: agents.NewPlanningAgent(d.Base),
		module:  agents.NewThinkingModule(d.Base),
		log:     logging.Component("pipeline.self_discover"),
	}
}

func (p *SelfDiscover) Name() string { return engine.ModeSelfDiscover }

// Run selects and executes the module sequence.
func (p *SelfDiscover) Run(ctx context.Context, query string, _ engine.OrchestrationDecision) (*engine.MasterResponse, error) {
	modules, err := p.planner.SelectModules(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select modules: %w", err)
	}

	var accumulated string
	var retrieved string
	for _, m := range modules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		switch m {
		case "RAG_SEARCH":
			info := p.search(ctx, query)
			retrieved = info
			accumulated = accumulated + "\n検索結果:\n" + info
		case "DECOMPOSE", "CRITIQUE", "SYNTHESIZE":
			out, err := p.module.Run(ctx, m, query, accumulated)
			if err != nil {
				return nil, fmt.Errorf("module %s: %w", m, err)
			}
			accumulated = out
		default:
			p.log.Warn("skipping unknown thinking module %q", m)
		}
	}

	return &engine.MasterResponse{
		FinalAnswer:   strings.TrimSpace(accumulated),
		RetrievedInfo: retrieved,
	}, nil
}

// search runs the RAG_SEARCH module; retrieval failures yield no results
// rather than failing the sequence.
func (p *SelfDiscover) search(ctx context.Context, query string) string {
	if p.deps.Retriever == nil {
		return "(検索結果なし)"
	}
	results, err := p.deps.Retriever.Search(ctx, query, 5)
	if err != nil {
		p.log.Warn("module retrieval failed: %v", err)
		return "(検索結果なし)"
	}
	if len(results) == 0 {
		return "(検索結果なし)"
	}
	var b strings.Builder
	for _, r := range results {
		b.WriteString(r.Document.Content)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
