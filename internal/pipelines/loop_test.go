package pipelines

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucaproject/luca/internal/agents"
	"github.com/lucaproject/luca/internal/conceptual"
	"github.com/lucaproject/luca/internal/config"
	"github.com/lucaproject/luca/internal/knowledge"
	"github.com/lucaproject/luca/internal/llm"
	"github.com/lucaproject/luca/internal/memory"
	"github.com/lucaproject/luca/internal/prompts"
	"github.com/lucaproject/luca/internal/rag"
	"github.com/lucaproject/luca/internal/tools"
)

// dispatchProvider routes calls by prompt substring, consuming each matching
// queue in order. Prompts matching nothing drain the fallback queue. Safe for
// the concurrent fan-out pipelines.
type dispatchProvider struct {
	mu       sync.Mutex
	routes   []route
	fallback []string
	calls    int
}

type route struct {
	marker string
	queue  []string
}

func (p *dispatchProvider) Invoke(_ context.Context, req *llm.Request) (*llm.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	for i := range p.routes {
		r := &p.routes[i]
		if strings.Contains(req.Prompt, r.marker) && len(r.queue) > 0 {
			out := r.queue[0]
			r.queue = r.queue[1:]
			return &llm.Response{Content: out}, nil
		}
	}
	if len(p.fallback) > 0 {
		out := p.fallback[0]
		p.fallback = p.fallback[1:]
		return &llm.Response{Content: out}, nil
	}
	return &llm.Response{Content: "fallback"}, nil
}

func (p *dispatchProvider) CreateModel(context.Context, string, string) error { return nil }
func (p *dispatchProvider) ListModels(context.Context) ([]string, error)      { return nil, nil }
func (p *dispatchProvider) Name() string                                      { return "dispatch" }

// fixedRetriever returns the same documents for every search.
type fixedRetriever struct {
	docs []string
}

func (r *fixedRetriever) Search(_ context.Context, _ string, _ int) ([]rag.SearchResult, error) {
	var out []rag.SearchResult
	for _, d := range r.docs {
		out = append(out, rag.SearchResult{Document: rag.Document{Content: d}})
	}
	return out, nil
}

// recordingTool records its invocations and returns a fixed result.
type recordingTool struct {
	name   string
	result string
	inputs []string
}

func (t *recordingTool) Name() string        { return t.name }
func (t *recordingTool) Description() string { return "test tool" }
func (t *recordingTool) Execute(_ context.Context, input string) (string, error) {
	t.inputs = append(t.inputs, input)
	return t.result, nil
}

func newTestDeps(t *testing.T, p llm.Provider) *Deps {
	t.Helper()
	store, err := prompts.NewStore(filepath.Join(t.TempDir(), "prompts.json"))
	require.NoError(t, err)

	graph, err := knowledge.Load(filepath.Join(t.TempDir(), "graph.json"))
	require.NoError(t, err)

	return &Deps{
		Base:     agents.NewBase(p, store, "test-model"),
		Registry: tools.NewRegistry(),
		Graph:    graph,
		Memory:   memory.NewLog(filepath.Join(t.TempDir(), "log.jsonl")),
		Concepts: conceptual.NewMemory(rag.NewHashEmbedder(32)),
		Config:   config.Defaults().Pipelines,
	}
}

func TestLoopEscalatesToToolAndStops(t *testing.T) {
	tool := &recordingTool{name: "fact_finder", result: "FACTS"}

	p := &dispatchProvider{routes: []route{
		// Low scores force one tool escalation, which ends the loop.
		{marker: "どの程度十分か", queue: []string{`{"relevance": 4, "completeness": 3, "next_action": "search deeper"}`}},
		{marker: "役立つツール", queue: []string{"fact_finder: 事実を調べる"}},
		{marker: "知識グラフの断片", queue: []string{`{"nodes": [{"id": "fact", "label": "fact"}], "edges": []}`}},
		{marker: "思考の軌跡", queue: []string{"synthesized answer"}},
	}}

	deps := newTestDeps(t, p)
	deps.Registry.Register(tool)
	deps.Retriever = &fixedRetriever{docs: []string{"background"}}

	loop := NewCognitiveLoop(deps)
	result, err := loop.Run(context.Background(), "難しい質問", "通常の計画", "")
	require.NoError(t, err)

	assert.Equal(t, "synthesized answer", result.Output)
	assert.Contains(t, result.RetrievedInfo, "FACTS")
	require.Len(t, tool.inputs, 1)
	assert.Equal(t, "事実を調べる", tool.inputs[0])
	// Tool use ends the loop after one iteration; exactly one evaluation ran.
	assert.Equal(t, 4, p.calls)
}

func TestLoopStopsWhenScoresSufficient(t *testing.T) {
	p := &dispatchProvider{routes: []route{
		{marker: "どの程度十分か", queue: []string{`{"relevance": 9, "completeness": 10}`}},
		{marker: "知識グラフの断片", queue: []string{"not a fragment"}},
		{marker: "思考の軌跡", queue: []string{"done"}},
	}}

	deps := newTestDeps(t, p)
	deps.Retriever = &fixedRetriever{docs: []string{"enough info"}}

	loop := NewCognitiveLoop(deps)
	result, err := loop.Run(context.Background(), "質問", "計画", "")
	require.NoError(t, err)
	assert.Equal(t, "done", result.Output)
}

func TestLoopRefinesQueryBetweenIterations(t *testing.T) {
	p := &dispatchProvider{routes: []route{
		{marker: "どの程度十分か", queue: []string{
			`{"relevance": 5, "completeness": 5, "next_action": "be specific"}`,
			`{"relevance": 9, "completeness": 9}`,
		}},
		// No tool call parses, so the loop refines instead of escalating.
		{marker: "役立つツール", queue: []string{"no tool here"}},
		{marker: "より良い検索クエリ", queue: []string{"refined query"}},
		{marker: "知識グラフの断片", queue: []string{"{}"}},
		{marker: "思考の軌跡", queue: []string{"final"}},
	}}

	deps := newTestDeps(t, p)
	retriever := &fixedRetriever{docs: []string{"partial"}}
	deps.Retriever = retriever

	loop := NewCognitiveLoop(deps)
	result, err := loop.Run(context.Background(), "質問", "計画", "")
	require.NoError(t, err)
	assert.Equal(t, "final", result.Output)
}

func TestLoopSymbolicBranchStopsOnConclusion(t *testing.T) {
	p := &dispatchProvider{routes: []route{
		{marker: "補助的な構成", queue: []string{
			"点Aと点Bを結ぶ",
			"点Mは線分ABの中点である",
		}},
		{marker: "現時点での結論", queue: []string{
			"まだ結論は出せません。",
			"結論として、線分AMと線分MBの長さは等しい。証明された。",
		}},
	}}

	deps := newTestDeps(t, p)
	loop := NewCognitiveLoop(deps)

	result, err := loop.Run(context.Background(), "ABの中点Mについて証明せよ", "この課題には数学的証明が必要です。", "")
	require.NoError(t, err)

	// Stopped at the second iteration: two hypothesis lines, no more.
	assert.Equal(t, 2, strings.Count(result.Output, "仮説"))
	assert.Contains(t, result.Output, "仮説1: 点Aと点Bを結ぶ")
	assert.Contains(t, result.Output, "演繹: 線分ABが存在する")
	assert.Contains(t, result.Output, "演繹: 線分AMと線分MBの長さは等しい")
	assert.Contains(t, result.Output, "結論として")
}

func TestLoopConceptualBranch(t *testing.T) {
	p := &dispatchProvider{routes: []route{
		{marker: "合成した新しい概念", queue: []string{"火と水の合成は蒸気に近い。"}},
	}}

	deps := newTestDeps(t, p)
	require.NoError(t, deps.Concepts.Learn(context.Background(), "蒸気"))

	loop := NewCognitiveLoop(deps)
	result, err := loop.Run(context.Background(), "概念を合成して", "合成「火」と「水」を実行する。", "")
	require.NoError(t, err)
	assert.Contains(t, result.Output, "蒸気に近い")
}

func TestLoopBrowsesURLQueries(t *testing.T) {
	page := &recordingTool{name: "web_browser", result: "page body text"}

	p := &dispatchProvider{routes: []route{
		{marker: "要約してください", queue: []string{"page summary"}},
	}}

	deps := newTestDeps(t, p)
	deps.Registry.Register(page)

	loop := NewCognitiveLoop(deps)
	result, err := loop.Run(context.Background(), "https://example.com/doc を読んで", "計画", "")
	require.NoError(t, err)

	assert.Equal(t, "page summary", result.Output)
	require.Len(t, page.inputs, 1)
	assert.Equal(t, "https://example.com/doc", page.inputs[0])
}

func TestLoopPrefersSpecialistSummarizer(t *testing.T) {
	page := &recordingTool{name: "web_browser", result: "long page"}
	specialist := &recordingTool{name: "Specialist_Summarization_Expert", result: "specialist summary"}

	p := &dispatchProvider{}
	deps := newTestDeps(t, p)
	deps.Registry.Register(page)
	deps.Registry.Register(specialist)

	loop := NewCognitiveLoop(deps)
	result, err := loop.Run(context.Background(), "https://example.com を要約して", "計画", "")
	require.NoError(t, err)

	assert.Equal(t, "specialist summary", result.Output)
	assert.Equal(t, 0, p.calls)
}

func TestLoopRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	deps := newTestDeps(t, &dispatchProvider{})
	loop := NewCognitiveLoop(deps)

	_, err := loop.Run(ctx, "質問", "数学的証明が必要", "")
	assert.ErrorIs(t, err, context.Canceled)
}
