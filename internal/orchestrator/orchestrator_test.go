package orchestrator

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucaproject/luca/internal/affect"
	"github.com/lucaproject/luca/internal/engine"
	"github.com/lucaproject/luca/internal/llm"
	"github.com/lucaproject/luca/internal/prompts"
	"github.com/lucaproject/luca/internal/tools"
)

// routingProvider answers by prompt inspection so the orchestrator's
// multi-call flow can be scripted per concern.
type routingProvider struct {
	complexity  string
	specialist  string
	decision    string
	failInvoke  bool
	invokeCalls int
}

func (p *routingProvider) Invoke(_ context.Context, req *llm.Request) (*llm.Response, error) {
	p.invokeCalls++
	if p.failInvoke {
		return nil, errors.New("backend down")
	}
	switch {
	case strings.Contains(req.Prompt, "複雑さを1"):
		return &llm.Response{Content: p.complexity}, nil
	case strings.Contains(req.Prompt, "専門家ツール"):
		return &llm.Response{Content: p.specialist}, nil
	default:
		return &llm.Response{Content: p.decision}, nil
	}
}

func (p *routingProvider) CreateModel(context.Context, string, string) error { return nil }
func (p *routingProvider) ListModels(context.Context) ([]string, error)      { return nil, nil }
func (p *routingProvider) Name() string                                      { return "routing" }

type stubTool struct{ name string }

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return "stub" }
func (s *stubTool) Execute(context.Context, string) (string, error) {
	return "", nil
}

func newOrchestrator(t *testing.T, p llm.Provider, registry *tools.Registry) *Orchestrator {
	t.Helper()
	store, err := prompts.NewStore(filepath.Join(t.TempDir(), "prompts.json"))
	require.NoError(t, err)
	if registry == nil {
		registry = tools.NewRegistry()
	}
	return New(p, "m", store, registry)
}

func TestURLForcesFull(t *testing.T) {
	p := &routingProvider{}
	o := newOrchestrator(t, p, nil)

	d := o.Decide(context.Background(), "Please read https://example.com/page", affect.Neutral())
	assert.Equal(t, engine.ModeFull, d.ChosenMode)
	// Rule 1 short-circuits; no LLM call happens.
	assert.Equal(t, 0, p.invokeCalls)
}

func TestSpecialistMatchSelectsMicroLLMExpert(t *testing.T) {
	registry := tools.NewRegistry()
	registry.Register(&stubTool{name: "Specialist_Summarization_Expert"})

	p := &routingProvider{specialist: "該当します: Specialist_Summarization_Expert"}
	o := newOrchestrator(t, p, registry)

	d := o.Decide(context.Background(), "この文章を要約してください", affect.Neutral())
	assert.Equal(t, engine.ModeMicroLLMExpert, d.ChosenMode)
	assert.InDelta(t, 0.95, d.Confidence, 1e-9)
}

func TestNoSpecialistFallsThroughToSelection(t *testing.T) {
	registry := tools.NewRegistry()
	registry.Register(&stubTool{name: "Specialist_Summarization_Expert"})

	p := &routingProvider{
		specialist: "なし",
		complexity: `{"level": 3}`,
		decision:   `{"chosen_mode": "tree_of_thoughts", "reasoning": "search problem", "confidence_score": 0.8}`,
	}
	o := newOrchestrator(t, p, registry)

	d := o.Decide(context.Background(), "複雑な最適化問題", affect.Neutral())
	assert.Equal(t, engine.ModeTreeOfThoughts, d.ChosenMode)
	assert.Equal(t, "search problem", d.Reasoning)
	assert.InDelta(t, 0.8, d.Confidence, 1e-9)
}

func TestSelectionDefaultsForMissingFields(t *testing.T) {
	p := &routingProvider{
		complexity: `{"level": 1}`,
		decision:   `{"chosen_mode": "simple"}`,
	}
	o := newOrchestrator(t, p, nil)

	d := o.Decide(context.Background(), "こんにちは", affect.Neutral())
	assert.Equal(t, engine.ModeSimple, d.ChosenMode)
	assert.Equal(t, DefaultReasoning, d.Reasoning)
	assert.InDelta(t, 0.5, d.Confidence, 1e-9)
	assert.NotNil(t, d.Parameters)
}

func TestSelectionErrorFallsBackToFull(t *testing.T) {
	p := &routingProvider{failInvoke: true}
	o := newOrchestrator(t, p, nil)

	d := o.Decide(context.Background(), "何か難しい質問", affect.Neutral())
	assert.Equal(t, engine.ModeFull, d.ChosenMode)
	assert.InDelta(t, 0.5, d.Confidence, 1e-9)
}

func TestEmphasisOverlay(t *testing.T) {
	p := &routingProvider{complexity: `{"level": 2}`, decision: `{"chosen_mode": "simple"}`}

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"birds eye", "プロジェクトの全体像と戦略を教えて", engine.EmphasisBirdsEye},
		{"detail", "実装の詳細と具体例を見せて", engine.EmphasisDetail},
		{"tie stays unset", "こんにちは", ""},
		{"mixed tie stays unset", "戦略の詳細", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOrchestrator(t, p, nil)
			d := o.Decide(context.Background(), tt.query, affect.Neutral())
			assert.Equal(t, tt.want, d.Emphasis())
		})
	}
}

func TestEmphasisAppliesToURLRule(t *testing.T) {
	p := &routingProvider{}
	o := newOrchestrator(t, p, nil)

	d := o.Decide(context.Background(), "https://example.com の実装の詳細と具体例を調べて", affect.Neutral())
	assert.Equal(t, engine.ModeFull, d.ChosenMode)
	assert.Equal(t, engine.EmphasisDetail, d.Emphasis())
}

func TestComplexityAnalyzerDefaults(t *testing.T) {
	p := &routingProvider{complexity: "判断できません"}
	a := NewComplexityAnalyzer(p, "m")

	level, err := a.Analyze(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, DefaultComplexity, level)

	p.complexity = `{"level": 4}`
	level, err = a.Analyze(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, 4, level)
}
