package pipelines

import (
	"context"
	"fmt"

	"github.com/lucaproject/luca/internal/agents"
	"github.com/lucaproject/luca/internal/engine"
	"github.com/lucaproject/luca/internal/logging"
)

// expertFallbackAnswer is returned when no specialist can serve the request.
// The pipeline answers itself rather than bouncing back to orchestration.
const expertFallbackAnswer = "申し訳ありません。この質問に対応できる専門家モデルが見つかりませんでした。"

// MicroLLMExpert delegates the request to a registered specialist tool and
// humanizes the raw specialist output.
type MicroLLMExpert struct {
	deps     *Deps
	toolUser *agents.ToolUsingAgent
	log      *logging.Logger
}

// NewMicroLLMExpert creates the expert pipeline.
func NewMicroLLMExpert(d *Deps) *MicroLLMExpert {
	return &MicroLLMExpert{
		deps:     d,
		toolUser: agents.NewToolUsingAgent(d.Base),
		log:      logging.Component("pipeline.micro_llm_expert"),
	}
}

func (p *MicroLLMExpert) Name() string { return engine.ModeMicroLLMExpert }

// Run selects a specialist, executes it, and formats the result.
func (p *MicroLLMExpert) Run(ctx context.Context, query string, _ engine.OrchestrationDecision) (*engine.MasterResponse, error) {
	specialists := p.deps.Registry.Specialists()
	if len(specialists) == 0 {
		return answer(expertFallbackAnswer), nil
	}

	catalog := ""
	for _, name := range specialists {
		if tool, ok := p.deps.Registry.Get(name); ok {
			catalog += fmt.Sprintf("%s: %s\n", name, tool.Description())
		}
	}

	name, input, err := p.toolUser.SelectTool(ctx, query, catalog)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.log.Warn("specialist selection failed: %v", err)
		return answer(expertFallbackAnswer), nil
	}
	if input == "" {
		input = query
	}

	raw, err := p.deps.Registry.Execute(ctx, name, input)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.log.Warn("specialist %s failed: %v", name, err)
		return answer(expertFallbackAnswer), nil
	}

	final, err := p.deps.Base.Answer(ctx, fmt.Sprintf("以下の専門家の回答を、ユーザーにわかりやすく整えてください。\n\n質問: %s\n\n専門家の回答:\n%s", query, raw))
	if err != nil {
		// The specialist output stands on its own if formatting fails.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.log.Warn("formatting failed, returning raw specialist output: %v", err)
		return answer(raw), nil
	}
	return answer(final), nil
}
