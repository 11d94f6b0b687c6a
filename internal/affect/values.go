package affect

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/lucaproject/luca/internal/agents"
	"github.com/lucaproject/luca/internal/bus"
	"github.com/lucaproject/luca/internal/logging"
)

// maxValueAdjustment caps a single assessment's pull on any core value.
const maxValueAdjustment = 0.1

// ValueEvaluator maintains the runtime's core values and nudges them after
// each answered request.
type ValueEvaluator struct {
	assessor *agents.ValueAssessmentAgent
	bus      *bus.AnalyticsBus
	log      *logging.Logger

	mu     sync.Mutex
	values map[string]float64
}

// NewValueEvaluator creates the evaluator with the default core values.
// bus may be nil.
func NewValueEvaluator(base *agents.Base, analyticsBus *bus.AnalyticsBus) *ValueEvaluator {
	return &ValueEvaluator{
		assessor: agents.NewValueAssessmentAgent(base),
		bus:      analyticsBus,
		log:      logging.Component("affect.values"),
		values: map[string]float64{
			"Helpfulness":  0.8,
			"Harmlessness": 0.9,
			"Honesty":      0.85,
			"Empathy":      0.7,
		},
	}
}

// Values returns a copy of the current core values.
func (e *ValueEvaluator) Values() map[string]float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]float64, len(e.values))
	for k, v := range e.values {
		out[k] = v
	}
	return out
}

// AssessAndUpdate asks the model how the answer served each core value and
// applies the clamped adjustments. Unknown value names are ignored; each
// adjustment is limited to ±0.1 and each value stays in [0, 1].
func (e *ValueEvaluator) AssessAndUpdate(ctx context.Context, finalAnswer string) error {
	adjustments, err := e.assessor.ProposeAdjustments(ctx, e.render(), finalAnswer)
	if err != nil {
		return fmt.Errorf("assess values: %w", err)
	}

	e.mu.Lock()
	for name, delta := range adjustments {
		current, ok := e.values[name]
		if !ok {
			continue
		}
		if delta > maxValueAdjustment {
			delta = maxValueAdjustment
		}
		if delta < -maxValueAdjustment {
			delta = -maxValueAdjustment
		}
		next := current + delta
		if next < 0 {
			next = 0
		}
		if next > 1 {
			next = 1
		}
		e.values[name] = next
	}
	snapshot := make(map[string]any, len(e.values))
	for k, v := range e.values {
		snapshot[k] = v
	}
	e.mu.Unlock()

	if e.bus != nil {
		event := bus.NewEvent(bus.EventValueUpdate)
		event.Snapshot = snapshot
		e.bus.Publish(event)
	}
	return nil
}

// render formats the current values for the assessment prompt.
func (e *ValueEvaluator) render() string {
	values := e.Values()
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	var parts []string
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %.2f", name, values[name]))
	}
	return strings.Join(parts, "\n")
}
