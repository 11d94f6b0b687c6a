// Package bus provides the analytics event bus. Pipelines, the governor and
// the evolutionary controller publish cognitive state snapshots here, and the
// analytics WebSocket endpoint fans them out to connected dashboards.
package bus

import (
	"fmt"
	"sync/atomic"
	"time"
)

// EventType identifies a cognitive event on the analytics bus.
type EventType string

const (
	// Request lifecycle
	EventRequestStart    EventType = "request_start"
	EventRequestComplete EventType = "request_complete"
	EventRequestError    EventType = "request_error"

	// Orchestration
	EventModeSelected   EventType = "mode_selected"
	EventModeDowngraded EventType = "mode_downgraded"

	// Pipeline internals
	EventThought       EventType = "thought"
	EventLoopIteration EventType = "loop_iteration"
	EventToolUse       EventType = "tool_use"

	// Cognitive self-observation. These are the types dashboards key on.
	EventAffectiveState         EventType = "affective_state"
	EventIntegrityStatus        EventType = "integrity_status"
	EventSelfCriticism          EventType = "self_criticism"
	EventPotentialProblems      EventType = "potential_problems"
	EventValueUpdate            EventType = "value_update"
	EventExecutionTrace         EventType = "execution_trace"
	EventProcessFeedback        EventType = "process_feedback"
	EventImprovementSuggestions EventType = "improvement_suggestions"

	// Background activity
	EventGovernorTask   EventType = "governor_task"
	EventBenchmark      EventType = "benchmark"
	EventMicroLLMCreate EventType = "micro_llm_create"
	EventConsolidation  EventType = "consolidation"

	// System state
	EventEnergy    EventType = "energy"
	EventHeartbeat EventType = "heartbeat"
)

// Event is one analytics record. Snapshot carries the full cognitive state
// when the event represents a state change; dashboards joining late receive
// the latest snapshot on connect.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`

	SessionID string `json:"session_id,omitempty"`

	// Orchestration context
	Mode       string  `json:"mode,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Reasoning  string  `json:"reasoning,omitempty"`

	// Pipeline context
	Iteration int    `json:"iteration,omitempty"`
	Tool      string `json:"tool,omitempty"`

	// Content payload
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`

	// System state
	EnergyLevel float64 `json:"energy_level,omitempty"`

	// Snapshot is the full cognitive state at event time, if attached.
	Snapshot map[string]any `json:"snapshot,omitempty"`
}

var eventCounter uint64

// NewEvent creates an event with a generated ID and the current UTC time.
func NewEvent(eventType EventType) Event {
	n := atomic.AddUint64(&eventCounter, 1)
	return Event{
		ID:        fmt.Sprintf("evt_%d_%d", time.Now().UnixNano(), n),
		Timestamp: time.Now().UTC(),
		Type:      eventType,
	}
}
