package affect

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/lucaproject/luca/internal/agents"
	"github.com/lucaproject/luca/internal/bus"
	"github.com/lucaproject/luca/internal/knowledge"
	"github.com/lucaproject/luca/internal/logging"
)

// fragmentLimit bounds the graph text handed to the consistency check.
const fragmentLimit = 4000

// IntegrityMonitor checks the knowledge graph for logical contradictions.
// An unhealthy graph is the strongest affective trigger: the engine reads
// frustration off it until the contradictions clear.
type IntegrityMonitor struct {
	checker *agents.IntegrityCheckAgent
	graph   *knowledge.Graph
	bus     *bus.AnalyticsBus
	log     *logging.Logger

	mu              sync.Mutex
	healthy         bool
	inconsistencies []string
	lastChecked     time.Time
}

// NewIntegrityMonitor creates the monitor. bus may be nil. The graph starts
// healthy; only an actual contradiction verdict changes that.
func NewIntegrityMonitor(base *agents.Base, graph *knowledge.Graph, analyticsBus *bus.AnalyticsBus) *IntegrityMonitor {
	return &IntegrityMonitor{
		checker: agents.NewIntegrityCheckAgent(base),
		graph:   graph,
		bus:     analyticsBus,
		log:     logging.Component("affect.integrity"),
		healthy: true,
	}
}

// Check runs one consistency pass over the current graph. An empty graph is
// trivially healthy and skips the model call; a failed model call keeps the
// previous verdict.
func (m *IntegrityMonitor) Check(ctx context.Context) {
	if m.graph == nil || m.graph.NodeCount() == 0 {
		m.record(true, nil)
		return
	}

	fragment := m.graph.Summary(0)
	if runes := []rune(fragment); len(runes) > fragmentLimit {
		fragment = string(runes[:fragmentLimit])
	}

	verdict, err := m.checker.CheckConsistency(ctx, fragment)
	if err != nil {
		m.log.Warn("consistency check failed: %v", err)
		return
	}
	if strings.Contains(verdict, agents.NoProblems) {
		m.record(true, nil)
		return
	}
	m.record(false, []string{verdict})
}

func (m *IntegrityMonitor) record(healthy bool, inconsistencies []string) {
	m.mu.Lock()
	m.healthy = healthy
	m.inconsistencies = inconsistencies
	m.lastChecked = time.Now().UTC()
	checked := m.lastChecked
	m.mu.Unlock()

	if m.bus == nil {
		return
	}
	event := bus.NewEvent(bus.EventIntegrityStatus)
	event.Content = strings.Join(inconsistencies, "\n")
	event.Snapshot = map[string]any{
		"is_healthy":      healthy,
		"inconsistencies": inconsistencies,
		"last_checked":    checked,
	}
	m.bus.Publish(event)
}

// Healthy reports the latest verdict.
func (m *IntegrityMonitor) Healthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthy
}

// Inconsistencies returns the contradictions found by the last check.
func (m *IntegrityMonitor) Inconsistencies() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.inconsistencies))
	copy(out, m.inconsistencies)
	return out
}
