package agents

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucaproject/luca/internal/llm"
	"github.com/lucaproject/luca/internal/prompts"
)

// scriptedProvider returns canned responses in order.
type scriptedProvider struct {
	responses []string
	calls     int
	prompts   []string
}

func (p *scriptedProvider) Invoke(_ context.Context, req *llm.Request) (*llm.Response, error) {
	p.prompts = append(p.prompts, req.Prompt)
	if p.calls >= len(p.responses) {
		return &llm.Response{Content: ""}, nil
	}
	content := p.responses[p.calls]
	p.calls++
	return &llm.Response{Content: content}, nil
}

func (p *scriptedProvider) CreateModel(context.Context, string, string) error { return nil }
func (p *scriptedProvider) ListModels(context.Context) ([]string, error)      { return nil, nil }
func (p *scriptedProvider) Name() string                                      { return "scripted" }

func newTestBase(t *testing.T, responses ...string) (*Base, *scriptedProvider) {
	t.Helper()
	store, err := prompts.NewStore(filepath.Join(t.TempDir(), "prompts.json"))
	require.NoError(t, err)
	p := &scriptedProvider{responses: responses}
	return NewBase(p, store, "test-model"), p
}

func TestRouterParsesJSONAndFallsBack(t *testing.T) {
	base, _ := newTestBase(t, `{"route": "RAG"}`, "plain DIRECT text", "gibberish")
	router := NewRouterAgent(base)
	ctx := context.Background()

	route, err := router.Route(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, "RAG", route)

	route, err = router.Route(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, "DIRECT", route)

	route, err = router.Route(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, "DIRECT", route)
}

func TestRetrievalEvaluatorParsesScores(t *testing.T) {
	base, _ := newTestBase(t,
		`{"relevance_score": 9, "completeness_score": 10, "summary": "good", "suggestions": ""}`,
		"totally unparseable")
	ev := NewRetrievalEvaluatorAgent(base)
	ctx := context.Background()

	res, err := ev.Evaluate(ctx, "q", "info")
	require.NoError(t, err)
	assert.True(t, res.Sufficient())
	assert.Equal(t, 9, res.RelevanceScore)

	// Unparseable output defaults to 5/5, which keeps the loop escalating
	// to tools rather than stalling.
	res, err = ev.Evaluate(ctx, "q", "info")
	require.NoError(t, err)
	assert.Equal(t, 5, res.RelevanceScore)
	assert.Equal(t, 5, res.CompletenessScore)
	assert.False(t, res.Sufficient())
}

func TestParseToolCall(t *testing.T) {
	name, input, err := ParseToolCall("web_search: golang generics")
	require.NoError(t, err)
	assert.Equal(t, "web_search", name)
	assert.Equal(t, "golang generics", input)

	name, input, err = ParseToolCall("web_browser： https://example.com\n補足の説明")
	require.NoError(t, err)
	assert.Equal(t, "web_browser", name)
	assert.Equal(t, "https://example.com", input)

	_, _, err = ParseToolCall("no separator here")
	assert.Error(t, err)
}

func TestThoughtEvaluatorScales(t *testing.T) {
	base, _ := newTestBase(t, "8", "0.3", "nonsense")
	ev := NewThoughtEvaluatorAgent(base)
	ctx := context.Background()

	score, err := ev.Score(ctx, "q", "chain")
	require.NoError(t, err)
	assert.InDelta(t, 0.8, score, 1e-9)

	score, err = ev.Score(ctx, "q", "chain")
	require.NoError(t, err)
	assert.InDelta(t, 0.3, score, 1e-9)

	_, err = ev.Score(ctx, "q", "chain")
	assert.Error(t, err)
}

func TestSelectModulesFiltersUnknown(t *testing.T) {
	base, _ := newTestBase(t, "まずDECOMPOSE、次にMAGIC、最後にSYNTHESIZEを使います")
	planner := NewPlanningAgent(base)

	modules, err := planner.SelectModules(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, []string{"DECOMPOSE", "SYNTHESIZE"}, modules)
}

func TestSelectModulesDefaultsToSynthesize(t *testing.T) {
	base, _ := newTestBase(t, "特に決められません")
	planner := NewPlanningAgent(base)

	modules, err := planner.SelectModules(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, []string{"SYNTHESIZE"}, modules)
}

func TestStepVerifier(t *testing.T) {
	base, _ := newTestBase(t, "合格", "第2段階に誤りがあります")
	v := NewStepByStepVerifierAgent(base)
	ctx := context.Background()

	ok, _, err := v.Verify(ctx, "q", "answer")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, feedback, err := v.Verify(ctx, "q", "answer")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, feedback, "誤り")
}

func TestProcessRewardParsesJSONOrNumber(t *testing.T) {
	base, _ := newTestBase(t,
		`{"reward_score": 0.9, "justification": "solid"}`,
		"評価: 0.4")
	a := NewProcessRewardAgent(base)
	ctx := context.Background()

	res, err := a.ScoreStep(ctx, "plan", "content")
	require.NoError(t, err)
	assert.InDelta(t, 0.9, res.RewardScore, 1e-9)
	assert.Equal(t, "solid", res.Justification)

	res, err = a.ScoreStep(ctx, "plan", "content")
	require.NoError(t, err)
	assert.InDelta(t, 0.4, res.RewardScore, 1e-9)
}

func TestSelfImprovementParsesSuggestions(t *testing.T) {
	base, _ := newTestBase(t,
		`提案は以下です: [{"type": "CreateMicroLLM", "details": {"topic": "kubernetes"}}]`)
	a := NewSelfImprovementAgent(base)

	suggestions, err := a.Suggest(context.Background(), "critique")
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "CreateMicroLLM", suggestions[0].Type)
	assert.Equal(t, "kubernetes", suggestions[0].Details["topic"])
}

func TestKnowledgeGapAnalyzer(t *testing.T) {
	base, _ := newTestBase(t, "分散トレーシング", "特になし")
	a := NewKnowledgeGapAnalyzerAgent(base)
	ctx := context.Background()

	topic, err := a.FindGap(ctx, "report", "caps")
	require.NoError(t, err)
	assert.Equal(t, "分散トレーシング", topic)

	topic, err = a.FindGap(ctx, "report", "caps")
	require.NoError(t, err)
	assert.Empty(t, topic)
}

func TestPersonaGeneratorParsesLines(t *testing.T) {
	base, _ := newTestBase(t, "物理学者: 第一原理から考える\n歴史家: 過去の事例と比較する\nメモ")
	a := NewPersonaGeneratorAgent(base)

	personas, err := a.Generate(context.Background(), "q", 2)
	require.NoError(t, err)
	require.Len(t, personas, 2)
	assert.Equal(t, "物理学者", personas[0].Name)
	assert.Equal(t, "過去の事例と比較する", personas[1].Description)
}

func TestThoughtGeneratorLimitsToK(t *testing.T) {
	base, _ := newTestBase(t, "1. 案A\n2. 案B\n3. 案C")
	g := NewThoughtGeneratorAgent(base)

	thoughts, err := g.Generate(context.Background(), "q", "state", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"案A", "案B"}, thoughts)
}

func TestBenchmarkAveragesScores(t *testing.T) {
	// One judge response per task, in task order.
	base, _ := newTestBase(t, "1.0", "0.5", "0.0")
	a := NewPerformanceBenchmarkAgent(base)
	a.SetRunner(answerFunc(func(ctx context.Context, q string) (string, error) {
		return "answer", nil
	}))

	report, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 0.5, report.OverallScore, 1e-9)
	assert.Len(t, report.TaskScores, 3)
}

type answerFunc func(ctx context.Context, query string) (string, error)

func (f answerFunc) Answer(ctx context.Context, query string) (string, error) {
	return f(ctx, query)
}

func TestBenchmarkWithoutRunnerErrors(t *testing.T) {
	base, _ := newTestBase(t)
	a := NewPerformanceBenchmarkAgent(base)
	_, err := a.Run(context.Background())
	assert.Error(t, err)
}
