package affect

import (
	"context"
	"strings"
	"sync"

	"github.com/lucaproject/luca/internal/bus"
	"github.com/lucaproject/luca/internal/logging"
)

// anxietyMarkers in the previous turn's self-criticism put the engine on edge.
var anxietyMarkers = []string{"問題", "限定的", "失敗"}

// empathyMarkers in the query call for an empathetic stance.
var empathyMarkers = []string{"辛い", "悲しい", "疲れた", "どうしたらいいか分からない"}

// Engine derives the runtime's affective state. Readings persist across
// turns: the previous response's self-criticism colours the next assessment.
type Engine struct {
	monitor *IntegrityMonitor
	values  *ValueEvaluator
	bus     *bus.AnalyticsBus
	log     *logging.Logger

	mu            sync.Mutex
	current       State
	lastCriticism string
}

// NewEngine creates the affective engine. monitor, values and bus may be nil;
// the corresponding triggers and side effects are skipped.
func NewEngine(monitor *IntegrityMonitor, values *ValueEvaluator, analyticsBus *bus.AnalyticsBus) *Engine {
	return &Engine{
		monitor: monitor,
		values:  values,
		bus:     analyticsBus,
		log:     logging.Component("affect.engine"),
		current: Neutral(),
	}
}

// Assess updates and returns the affective state for a query. Triggers are
// checked in priority order: knowledge contradictions, a critical previous
// self-assessment, then empathetic cues in the query itself.
func (e *Engine) Assess(_ context.Context, query string) State {
	state := Neutral()
	switch {
	case e.monitor != nil && !e.monitor.Healthy():
		state = State{
			Emotion:   Frustrated,
			Intensity: 0.8,
			Reason:    "知識の不整合: " + strings.Join(e.monitor.Inconsistencies(), "; "),
		}
	case e.criticismWasNegative():
		state = State{
			Emotion:   Anxious,
			Intensity: 0.6,
			Reason:    "前回の回答への自己批判",
		}
	case containsAny(query, empathyMarkers):
		state = State{
			Emotion:   Empathetic,
			Intensity: 0.7,
			Reason:    "問いかけに感情的な負荷",
		}
	}

	e.mu.Lock()
	e.current = state
	e.mu.Unlock()

	if e.bus != nil {
		event := bus.NewEvent(bus.EventAffectiveState)
		event.Content = state.Summary()
		event.Snapshot = map[string]any{
			"emotion":   string(state.Emotion),
			"intensity": state.Intensity,
			"reason":    state.Reason,
		}
		e.bus.Publish(event)
	}
	return state
}

// ObserveResponse feeds a completed turn back into the engine: the
// self-criticism carries into the next assessment, the answer nudges the
// core values, and the knowledge graph gets a fresh consistency pass.
func (e *Engine) ObserveResponse(ctx context.Context, finalAnswer, selfCriticism string) {
	e.mu.Lock()
	e.lastCriticism = selfCriticism
	e.mu.Unlock()

	if e.values != nil && finalAnswer != "" {
		if err := e.values.AssessAndUpdate(ctx, finalAnswer); err != nil {
			e.log.Warn("value assessment failed: %v", err)
		}
	}
	if e.monitor != nil {
		e.monitor.Check(ctx)
	}
}

// Current returns the latest assessed state.
func (e *Engine) Current() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// criticismWasNegative reports whether the previous self-criticism flagged
// real problems. "問題なし" contains an anxiety marker, so it is excluded
// before the marker scan.
func (e *Engine) criticismWasNegative() bool {
	e.mu.Lock()
	criticism := e.lastCriticism
	e.mu.Unlock()
	if criticism == "" || strings.Contains(criticism, "問題なし") {
		return false
	}
	return containsAny(criticism, anxietyMarkers)
}

func containsAny(text string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
