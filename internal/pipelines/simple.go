package pipelines

import (
	"context"
	"strings"

	"github.com/lucaproject/luca/internal/agents"
	"github.com/lucaproject/luca/internal/engine"
	"github.com/lucaproject/luca/internal/logging"
)

// Simple routes between retrieval-augmented and direct answering. Anything
// that goes wrong on the RAG path degrades to a direct answer.
type Simple struct {
	deps   *Deps
	router *agents.RouterAgent
	log    *logging.Logger
}

// NewSimple creates the simple pipeline.
func NewSimple(d *Deps) *Simple {
	return &Simple{
		deps:   d,
		router: agents.NewRouterAgent(d.Base),
		log:    logging.Component("pipeline.simple"),
	}
}

func (p *Simple) Name() string { return engine.ModeSimple }

// Run routes the query and answers it.
func (p *Simple) Run(ctx context.Context, query string, _ engine.OrchestrationDecision) (*engine.MasterResponse, error) {
	route, err := p.router.Route(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.log.Warn("routing failed, answering directly: %v", err)
		route = "DIRECT"
	}

	if route == "RAG" {
		if resp, ok := p.answerWithRetrieval(ctx, query); ok {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return p.answerDirect(ctx, query)
}

// answerWithRetrieval tries the RAG path; ok=false means fall back to DIRECT.
func (p *Simple) answerWithRetrieval(ctx context.Context, query string) (*engine.MasterResponse, bool) {
	if p.deps.Retriever == nil {
		return nil, false
	}
	results, err := p.deps.Retriever.Search(ctx, query, 5)
	if err != nil {
		p.log.Warn("retrieval failed, answering directly: %v", err)
		return nil, false
	}
	if len(results) == 0 {
		return nil, false
	}

	var info strings.Builder
	for _, r := range results {
		info.WriteString(r.Document.Content)
		info.WriteString("\n")
	}
	synthesis := agents.NewSynthesisAgent(p.deps.Base)
	out, err := synthesis.Synthesize(ctx, query, info.String())
	if err != nil {
		p.log.Warn("synthesis failed, answering directly: %v", err)
		return nil, false
	}
	return &engine.MasterResponse{
		FinalAnswer:   out,
		RetrievedInfo: strings.TrimSpace(info.String()),
	}, true
}

func (p *Simple) answerDirect(ctx context.Context, query string) (*engine.MasterResponse, error) {
	out, err := p.deps.Base.Answer(ctx, query)
	if err != nil {
		return nil, err
	}
	return answer(out), nil
}
