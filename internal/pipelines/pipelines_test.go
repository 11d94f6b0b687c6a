package pipelines

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucaproject/luca/internal/bus"
	"github.com/lucaproject/luca/internal/config"
	"github.com/lucaproject/luca/internal/engine"
)

func TestAllCoversEveryMode(t *testing.T) {
	deps := newTestDeps(t, &dispatchProvider{})
	pipelines := All(deps)

	names := make(map[string]bool, len(pipelines))
	for _, p := range pipelines {
		names[p.Name()] = true
	}
	for _, mode := range engine.KnownModes {
		assert.True(t, names[mode], "missing pipeline for %s", mode)
	}
	assert.Len(t, pipelines, len(engine.KnownModes))
}

func TestSimpleRoutesDirect(t *testing.T) {
	p := &dispatchProvider{
		routes:   []route{{marker: "検索が必要か", queue: []string{`{"route": "DIRECT"}`}}},
		fallback: []string{"direct answer"},
	}
	deps := newTestDeps(t, p)

	resp, err := NewSimple(deps).Run(context.Background(), "こんにちは", engine.OrchestrationDecision{})
	require.NoError(t, err)
	assert.Equal(t, "direct answer", resp.FinalAnswer)
	assert.Empty(t, resp.RetrievedInfo)
}

func TestSimpleEmptyRetrievalFallsBackToDirect(t *testing.T) {
	p := &dispatchProvider{
		routes:   []route{{marker: "検索が必要か", queue: []string{`{"route": "RAG"}`}}},
		fallback: []string{"fallback direct"},
	}
	deps := newTestDeps(t, p)
	deps.Retriever = &fixedRetriever{} // no documents

	resp, err := NewSimple(deps).Run(context.Background(), "質問", engine.OrchestrationDecision{})
	require.NoError(t, err)
	assert.Equal(t, "fallback direct", resp.FinalAnswer)
	assert.Empty(t, resp.RetrievedInfo)
}

func TestSimpleRAGPathAnswersWithRetrieval(t *testing.T) {
	p := &dispatchProvider{routes: []route{
		{marker: "検索が必要か", queue: []string{`{"route": "RAG"}`}},
		{marker: "思考の軌跡", queue: []string{"grounded answer"}},
	}}
	deps := newTestDeps(t, p)
	deps.Retriever = &fixedRetriever{docs: []string{"stored knowledge"}}

	resp, err := NewSimple(deps).Run(context.Background(), "質問", engine.OrchestrationDecision{})
	require.NoError(t, err)
	assert.Equal(t, "grounded answer", resp.FinalAnswer)
	assert.Contains(t, resp.RetrievedInfo, "stored knowledge")
}

// collectingSink records traces for assertions.
type collectingSink struct {
	mu     sync.Mutex
	traces []struct {
		query string
		steps []TraceStep
	}
	done chan struct{}
}

func (s *collectingSink) CollectTrace(query string, steps []TraceStep) {
	s.mu.Lock()
	s.traces = append(s.traces, struct {
		query string
		steps []TraceStep
	}{query, steps})
	s.mu.Unlock()
	close(s.done)
}

func TestFullComposesAndEmitsTrace(t *testing.T) {
	p := &dispatchProvider{routes: []route{
		{marker: "思考計画", queue: []string{"通常の計画"}},
		{marker: "どの程度十分か", queue: []string{`{"relevance": 9, "completeness": 9}`}},
		{marker: "知識グラフの断片", queue: []string{"{}"}},
		{marker: "思考の軌跡", queue: []string{"loop synthesis"}},
		{marker: "最終回答を作成する責任者", queue: []string{"the final answer"}},
		{marker: "批判的に検証", queue: []string{"問題なし"}},
		{marker: "潜在する問題", queue: []string{"なし"}},
	}}
	deps := newTestDeps(t, p)
	sink := &collectingSink{done: make(chan struct{})}
	deps.Traces = sink

	full := NewFull(deps, NewCognitiveLoop(deps))
	resp, err := full.Run(context.Background(), "質問", engine.OrchestrationDecision{})
	require.NoError(t, err)

	assert.Equal(t, "the final answer", resp.FinalAnswer)
	assert.Equal(t, "問題なし", resp.SelfCriticism)
	assert.Empty(t, resp.PotentialProblems)

	<-sink.done
	require.Len(t, sink.traces, 1)
	assert.Equal(t, "質問", sink.traces[0].query)
	assert.Len(t, sink.traces[0].steps, 3)
	assert.Equal(t, "plan", sink.traces[0].steps[0].Name)
}

func TestFullStreamsCriticismAndProblems(t *testing.T) {
	p := &dispatchProvider{routes: []route{
		{marker: "思考計画", queue: []string{"通常の計画"}},
		{marker: "どの程度十分か", queue: []string{`{"relevance": 9, "completeness": 9}`}},
		{marker: "知識グラフの断片", queue: []string{"{}"}},
		{marker: "思考の軌跡", queue: []string{"loop synthesis"}},
		{marker: "最終回答を作成する責任者", queue: []string{"the final answer"}},
		{marker: "批判的に検証", queue: []string{"根拠が限定的である。"}},
		{marker: "潜在する問題", queue: []string{"最新の研究を反映していない可能性。"}},
	}}
	deps := newTestDeps(t, p)
	b := bus.NewAnalyticsBus()
	t.Cleanup(b.Close)
	_, events := b.Subscribe()
	deps.Bus = b

	full := NewFull(deps, NewCognitiveLoop(deps))
	_, err := full.Run(context.Background(), "質問", engine.OrchestrationDecision{})
	require.NoError(t, err)

	byType := map[bus.EventType]string{}
	for len(events) > 0 {
		ev := <-events
		byType[ev.Type] = ev.Content
	}
	assert.Equal(t, "根拠が限定的である。", byType[bus.EventSelfCriticism])
	assert.Equal(t, "最新の研究を反映していない可能性。", byType[bus.EventPotentialProblems])
}

func TestQuantumWithoutPersonasExplains(t *testing.T) {
	deps := newTestDeps(t, &dispatchProvider{})

	resp, err := NewQuantum(deps).Run(context.Background(), "質問", engine.OrchestrationDecision{})
	require.NoError(t, err)
	assert.Equal(t, noPersonasAnswer, resp.FinalAnswer)
}

func TestQuantumIntegratesPersonaAnswers(t *testing.T) {
	p := &dispatchProvider{
		routes:   []route{{marker: "統合し", queue: []string{"integrated"}}},
		fallback: []string{"answer A", "answer B"},
	}
	deps := newTestDeps(t, p)
	deps.Personas = []config.PersonaConfig{
		{Name: "論理学者", Persona: "あなたは論理学者です。"},
		{Name: "詩人", Persona: "あなたは詩人です。"},
	}

	resp, err := NewQuantum(deps).Run(context.Background(), "質問", engine.OrchestrationDecision{})
	require.NoError(t, err)
	assert.Equal(t, "integrated", resp.FinalAnswer)
}

func TestSpeculativeDraftsAndVerifies(t *testing.T) {
	p := &dispatchProvider{routes: []route{
		{marker: "草案を簡潔に", queue: []string{"draft 1", "draft 2"}},
		{marker: "最も正確なもの", queue: []string{"merged answer"}},
	}}
	deps := newTestDeps(t, p)
	deps.Config.NumDrafts = 2

	resp, err := NewSpeculative(deps).Run(context.Background(), "質問", engine.OrchestrationDecision{})
	require.NoError(t, err)
	assert.Equal(t, "merged answer", resp.FinalAnswer)
	assert.Equal(t, 3, p.calls)
}

func TestSelfDiscoverRunsModuleSequence(t *testing.T) {
	p := &dispatchProvider{routes: []route{
		{marker: "有効なものを選んで", queue: []string{"DECOMPOSE, SYNTHESIZE"}},
		{marker: "分解してください", queue: []string{"decomposed"}},
		{marker: "まとまった回答", queue: []string{"synthesized"}},
	}}
	deps := newTestDeps(t, p)

	resp, err := NewSelfDiscover(deps).Run(context.Background(), "質問", engine.OrchestrationDecision{})
	require.NoError(t, err)
	assert.Equal(t, "synthesized", resp.FinalAnswer)
}

func TestInternalDialogueConcludesEarly(t *testing.T) {
	p := &dispatchProvider{routes: []route{
		{marker: "専門家ペルソナを生成", queue: []string{"賢者: 思慮深い\n批評家: 鋭い\n楽観主義者: 前向き"}},
		{marker: "次の発言をしてください", queue: []string{"発言1", "発言2", "発言3"}},
		{marker: "司会者", queue: []string{"結論"}},
		{marker: "統合し", queue: []string{"dialogue answer"}},
	}}
	deps := newTestDeps(t, p)
	deps.Config.MaxTurns = 5

	resp, err := NewInternalDialogue(deps).Run(context.Background(), "質問", engine.OrchestrationDecision{})
	require.NoError(t, err)
	assert.Equal(t, "dialogue answer", resp.FinalAnswer)
	// One turn of three speakers, one mediator call, one integration,
	// plus persona generation.
	assert.Equal(t, 6, p.calls)
}

func TestMicroLLMExpertFallsBackWithoutSpecialists(t *testing.T) {
	deps := newTestDeps(t, &dispatchProvider{})

	resp, err := NewMicroLLMExpert(deps).Run(context.Background(), "質問", engine.OrchestrationDecision{})
	require.NoError(t, err)
	assert.Equal(t, expertFallbackAnswer, resp.FinalAnswer)
}

func TestMicroLLMExpertRunsSpecialist(t *testing.T) {
	specialist := &recordingTool{name: "Specialist_Math_Expert", result: "42"}
	p := &dispatchProvider{
		routes:   []route{{marker: "役立つツール", queue: []string{"Specialist_Math_Expert: 6*7"}}},
		fallback: []string{"formatted: the answer is 42"},
	}
	deps := newTestDeps(t, p)
	deps.Registry.Register(specialist)

	resp, err := NewMicroLLMExpert(deps).Run(context.Background(), "6掛ける7は?", engine.OrchestrationDecision{})
	require.NoError(t, err)
	assert.Equal(t, "formatted: the answer is 42", resp.FinalAnswer)
	require.Len(t, specialist.inputs, 1)
	assert.Equal(t, "6*7", specialist.inputs[0])
}

func TestIterativeCorrectionStopsOnAcceptance(t *testing.T) {
	p := &dispatchProvider{
		routes: []route{
			{marker: "段階的に検証", queue: []string{"誤りがあります: 符号が逆です", "合格"}},
			{marker: "指摘に基づいて回答を修正", queue: []string{"corrected answer"}},
		},
		fallback: []string{"first answer"},
	}
	deps := newTestDeps(t, p)
	deps.Config.MaxIterations = 5

	resp, err := NewIterativeCorrection(deps).Run(context.Background(), "質問", engine.OrchestrationDecision{})
	require.NoError(t, err)
	assert.Equal(t, "corrected answer", resp.FinalAnswer)
	assert.Equal(t, 4, p.calls)
}

func TestTreeOfThoughtsReturnsBestChain(t *testing.T) {
	p := &dispatchProvider{routes: []route{
		{marker: "一歩進める候補", queue: []string{"A\nB", "AA\nAB"}},
		{marker: "どの程度有望か", queue: []string{"2", "9", "1", "9.5"}},
	}}
	deps := newTestDeps(t, p)
	deps.Config.TotInitial = 2
	deps.Config.TotDepth = 2
	deps.Config.TotBeam = 1

	resp, err := NewTreeOfThoughts(deps).Run(context.Background(), "探索問題", engine.OrchestrationDecision{})
	require.NoError(t, err)
	assert.Equal(t, "AB", resp.FinalAnswer)
}

func TestParallelIntegratesRegimes(t *testing.T) {
	p := &dispatchProvider{routes: []route{
		{marker: "思考計画", queue: []string{"計画"}},
		{marker: "どの程度十分か", queue: []string{
			`{"relevance": 9, "completeness": 9}`,
			`{"relevance": 9, "completeness": 9}`,
			`{"relevance": 9, "completeness": 9}`,
		}},
		{marker: "知識グラフの断片", queue: []string{"{}", "{}", "{}"}},
		{marker: "思考の軌跡", queue: []string{"s1", "s2", "s3"}},
		{marker: "統合し", queue: []string{"best synthesis"}},
	}}
	deps := newTestDeps(t, p)
	deps.Retriever = &fixedRetriever{docs: []string{"doc"}}

	resp, err := NewParallel(deps, NewCognitiveLoop(deps)).Run(context.Background(), "質問", engine.OrchestrationDecision{})
	require.NoError(t, err)
	assert.Equal(t, "best synthesis", resp.FinalAnswer)
}

func TestPipelinesPropagateCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	deps := newTestDeps(t, &dispatchProvider{})
	loop := NewCognitiveLoop(deps)

	cases := []engine.Pipeline{
		NewSelfDiscover(deps),
		NewIterativeCorrection(deps),
		NewConceptualReasoning(deps, loop),
	}
	for _, p := range cases {
		_, err := p.Run(ctx, "質問", engine.OrchestrationDecision{})
		assert.ErrorIs(t, err, context.Canceled, p.Name())
	}
}
