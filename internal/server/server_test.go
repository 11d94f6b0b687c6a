package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucaproject/luca/internal/affect"
	"github.com/lucaproject/luca/internal/bus"
	"github.com/lucaproject/luca/internal/config"
	"github.com/lucaproject/luca/internal/engine"
	"github.com/lucaproject/luca/internal/memory"
)

type fixedDecider struct {
	decision engine.OrchestrationDecision
	seen     []affect.State
}

func (d *fixedDecider) Decide(_ context.Context, _ string, state affect.State) engine.OrchestrationDecision {
	d.seen = append(d.seen, state)
	return d.decision
}

type recordingTracker struct {
	state     affect.State
	assessed  []string
	answers   []string
	criticism []string
}

func (r *recordingTracker) Assess(_ context.Context, query string) affect.State {
	r.assessed = append(r.assessed, query)
	return r.state
}

func (r *recordingTracker) ObserveResponse(_ context.Context, finalAnswer, selfCriticism string) {
	r.answers = append(r.answers, finalAnswer)
	r.criticism = append(r.criticism, selfCriticism)
}

type fixedRunner struct {
	resp *engine.MasterResponse
	mode string
}

func (r *fixedRunner) Run(context.Context, string, engine.OrchestrationDecision) (*engine.MasterResponse, string) {
	return r.resp, r.mode
}

type panicRunner struct{}

func (panicRunner) Run(context.Context, string, engine.OrchestrationDecision) (*engine.MasterResponse, string) {
	panic("pipeline blew up")
}

type recordingActivity struct {
	transitions []string
}

func (a *recordingActivity) SetBusy() { a.transitions = append(a.transitions, "busy") }
func (a *recordingActivity) SetIdle() { a.transitions = append(a.transitions, "idle") }

func testDecision() engine.OrchestrationDecision {
	return engine.OrchestrationDecision{ChosenMode: engine.ModeSimple, Reasoning: "単純な質問", Confidence: 0.8}
}

func newTestServer(runner Runner, activity ActivityMonitor, b *bus.AnalyticsBus, working *memory.WorkingMemory, mem *memory.Log) *Server {
	return New(config.Defaults().Server, &fixedDecider{decision: testDecision()}, runner, nil, activity, b, working, mem)
}

func postChat(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestChatReturnsMasterResponse(t *testing.T) {
	runner := &fixedRunner{
		resp: &engine.MasterResponse{FinalAnswer: "回答です", RetrievedInfo: "資料"},
		mode: engine.ModeSimple,
	}
	s := newTestServer(runner, nil, nil, nil, nil)

	rec := postChat(t, s.Handler(), `{"query": "こんにちは"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp engine.MasterResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "回答です", resp.FinalAnswer)
	assert.Equal(t, "資料", resp.RetrievedInfo)
}

func TestChatRejectsBadRequests(t *testing.T) {
	s := newTestServer(&fixedRunner{resp: &engine.MasterResponse{}}, nil, nil, nil, nil)
	handler := s.Handler()

	rec := postChat(t, handler, `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postChat(t, handler, `{"user_id": "u1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chat", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestChatTogglesActivity(t *testing.T) {
	activity := &recordingActivity{}
	s := newTestServer(&fixedRunner{resp: &engine.MasterResponse{FinalAnswer: "x"}, mode: engine.ModeSimple}, activity, nil, nil, nil)

	postChat(t, s.Handler(), `{"query": "q"}`)
	assert.Equal(t, []string{"busy", "idle"}, activity.transitions)
}

func TestChatRecordsSessionAndMemory(t *testing.T) {
	dir := t.TempDir()
	working := memory.NewWorkingMemory(filepath.Join(dir, "sessions"))
	mem := memory.NewLog(filepath.Join(dir, "log.jsonl"))
	runner := &fixedRunner{resp: &engine.MasterResponse{FinalAnswer: "答え"}, mode: engine.ModeFull}
	s := newTestServer(runner, nil, nil, working, mem)

	rec := postChat(t, s.Handler(), `{"query": "質問", "user_id": "u1", "session_id": "sess1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	turns, err := working.Transcript("sess1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "user", turns[0].Role)
	assert.Equal(t, "質問", turns[0].Content)
	assert.Equal(t, "assistant", turns[1].Role)
	assert.Equal(t, engine.ModeFull, turns[1].Mode)

	entries, err := mem.Recent(memory.KindInteraction, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "sess1", entries[0].SessionID)
	assert.Equal(t, engine.ModeFull, entries[0].Metadata["mode"])
	assert.Equal(t, "u1", entries[0].Metadata["user_id"])
}

func TestChatPublishesLifecycleEvents(t *testing.T) {
	b := bus.NewAnalyticsBus()
	_, events := b.Subscribe()
	s := newTestServer(&fixedRunner{resp: &engine.MasterResponse{FinalAnswer: "x"}, mode: engine.ModeSimple}, nil, b, nil, nil)

	postChat(t, s.Handler(), `{"query": "q", "session_id": "sess1"}`)

	var types []bus.EventType
	for i := 0; i < 3; i++ {
		select {
		case ev := <-events:
			types = append(types, ev.Type)
		case <-time.After(time.Second):
			t.Fatal("missing lifecycle event")
		}
	}
	assert.Equal(t, []bus.EventType{bus.EventRequestStart, bus.EventModeSelected, bus.EventRequestComplete}, types)
}

func TestChatFeedsAffectThroughDecision(t *testing.T) {
	tracker := &recordingTracker{state: affect.State{Emotion: affect.Anxious, Intensity: 0.6}}
	decider := &fixedDecider{decision: testDecision()}
	runner := &fixedRunner{
		resp: &engine.MasterResponse{FinalAnswer: "答え", SelfCriticism: "根拠が限定的"},
		mode: engine.ModeSimple,
	}
	s := New(config.Defaults().Server, decider, runner, tracker, nil, nil, nil, nil)

	rec := postChat(t, s.Handler(), `{"query": "質問"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, []string{"質問"}, tracker.assessed)
	require.Len(t, decider.seen, 1)
	assert.Equal(t, affect.Anxious, decider.seen[0].Emotion)
	assert.Equal(t, []string{"答え"}, tracker.answers)
	assert.Equal(t, []string{"根拠が限定的"}, tracker.criticism)
}

func TestChatDefaultsToNeutralAffect(t *testing.T) {
	decider := &fixedDecider{decision: testDecision()}
	runner := &fixedRunner{resp: &engine.MasterResponse{FinalAnswer: "x"}, mode: engine.ModeSimple}
	s := New(config.Defaults().Server, decider, runner, nil, nil, nil, nil, nil)

	postChat(t, s.Handler(), `{"query": "q"}`)

	require.Len(t, decider.seen, 1)
	assert.True(t, decider.seen[0].IsNeutral())
}

func TestHandlerPanicYieldsPlain500(t *testing.T) {
	s := newTestServer(panicRunner{}, nil, nil, nil, nil)

	rec := postChat(t, s.Handler(), `{"query": "q"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
}

func TestAnalyticsStreamSnapshotThenLiveEvents(t *testing.T) {
	b := bus.NewAnalyticsBus()
	ev := bus.NewEvent(bus.EventEnergy)
	ev.EnergyLevel = 80
	b.Publish(ev)

	s := newTestServer(&fixedRunner{resp: &engine.MasterResponse{}}, nil, b, nil, nil)
	srv := httptest.NewServer(s.AnalyticsHandler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/analytics"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var snapshot map[string]bus.Event
	require.NoError(t, conn.ReadJSON(&snapshot))
	require.Contains(t, snapshot, string(bus.EventEnergy))
	assert.Equal(t, 80.0, snapshot[string(bus.EventEnergy)].EnergyLevel)

	// Wait for the handler's subscription before publishing the live event.
	require.Eventually(t, func() bool { return b.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)

	live := bus.NewEvent(bus.EventThought)
	live.Content = "考え中"
	b.Publish(live)

	var pushed map[string]bus.Event
	require.NoError(t, conn.ReadJSON(&pushed))
	require.Contains(t, pushed, string(bus.EventThought))
	assert.Equal(t, "考え中", pushed[string(bus.EventThought)].Content)
}
