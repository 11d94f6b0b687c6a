// Package governor runs the background half of the runtime: an idle-gated
// scheduler dispatching self-evolution, specialist creation, research and
// memory maintenance under an evolutionary goal, and the controller that
// re-evaluates that goal from benchmark results.
package governor

import (
	"context"
	"fmt"
	"strings"

	"github.com/lucaproject/luca/internal/agents"
	"github.com/lucaproject/luca/internal/bus"
	"github.com/lucaproject/luca/internal/knowledge"
	"github.com/lucaproject/luca/internal/logging"
	"github.com/lucaproject/luca/internal/memory"
)

// GoalType is the current background directive.
type GoalType string

const (
	GoalPerformanceImprovement GoalType = "PerformanceImprovement"
	GoalKnowledgeAcquisition   GoalType = "KnowledgeAcquisition"
	GoalExploration            GoalType = "Exploration"
)

// improvementThreshold is the benchmark score below which the system works
// on itself instead of acquiring knowledge.
const improvementThreshold = 0.7

// Goal is the evolutionary direction, with a topic for knowledge acquisition.
type Goal struct {
	Type  GoalType
	Topic string
}

// Controller re-evaluates the evolutionary direction from a benchmark run.
type Controller struct {
	benchmark *agents.PerformanceBenchmarkAgent
	mapper    *agents.CapabilityMapperAgent
	gap       *agents.KnowledgeGapAnalyzerAgent
	graph     *knowledge.Graph
	memory    *memory.Log
	bus       *bus.AnalyticsBus
	log       *logging.Logger
}

// NewController creates the controller. graph, memory and bus may be nil.
func NewController(base *agents.Base, graph *knowledge.Graph, mem *memory.Log, analyticsBus *bus.AnalyticsBus) *Controller {
	return &Controller{
		benchmark: agents.NewPerformanceBenchmarkAgent(base),
		mapper:    agents.NewCapabilityMapperAgent(base),
		gap:       agents.NewKnowledgeGapAnalyzerAgent(base),
		graph:     graph,
		memory:    mem,
		bus:       analyticsBus,
		log:       logging.Component("controller"),
	}
}

// SetRunner wires the engine-backed answer runner into the benchmark.
func (c *Controller) SetRunner(r agents.AnswerRunner) {
	c.benchmark.SetRunner(r)
}

// DetermineDirection benchmarks the system, folds the capability fragment
// into the knowledge graph, and decides the next goal.
func (c *Controller) DetermineDirection(ctx context.Context) (Goal, error) {
	report, err := c.benchmark.Run(ctx)
	if err != nil {
		return Goal{}, fmt.Errorf("benchmark: %w", err)
	}
	rendered := report.Render()

	if c.bus != nil {
		event := bus.NewEvent(bus.EventBenchmark)
		event.Content = rendered
		c.bus.Publish(event)
	}

	c.mergeCapabilities(ctx, rendered)

	gap, err := c.gap.FindGap(ctx, rendered, c.capabilitySummary())
	if err != nil {
		c.log.Warn("gap analysis failed: %v", err)
		gap = ""
	}

	goal := Goal{Type: GoalExploration}
	switch {
	case report.OverallScore < improvementThreshold:
		goal = Goal{Type: GoalPerformanceImprovement}
	case gap != "":
		goal = Goal{Type: GoalKnowledgeAcquisition, Topic: gap}
	}

	c.logGoal(goal, report.OverallScore)
	return goal, nil
}

// mergeCapabilities extracts the capability fragment and persists it.
// Failures here only cost the graph update.
func (c *Controller) mergeCapabilities(ctx context.Context, report string) {
	if c.graph == nil {
		return
	}
	frag, err := c.mapper.MapCapabilities(ctx, report)
	if err != nil {
		c.log.Warn("capability mapping failed: %v", err)
		return
	}
	c.graph.Merge(frag)
	if err := c.graph.Save(); err != nil {
		c.log.Err(err, "capability graph save failed")
	}
}

func (c *Controller) capabilitySummary() string {
	if c.graph == nil {
		return "(能力マップなし)"
	}
	nodes := c.graph.NodesByKind("capability")
	if len(nodes) == 0 {
		return "(能力マップなし)"
	}
	var labels []string
	for _, n := range nodes {
		labels = append(labels, n.Label)
	}
	return strings.Join(labels, "\n")
}

func (c *Controller) logGoal(goal Goal, score float64) {
	c.log.Info("evolutionary goal: %s %s (score %.2f)", goal.Type, goal.Topic, score)
	if c.memory == nil {
		return
	}
	entry := memory.Entry{
		Kind:    memory.KindBenchmark,
		Content: fmt.Sprintf("総合スコア %.2f、次の目標: %s %s", score, goal.Type, goal.Topic),
	}
	if err := c.memory.Append(entry); err != nil {
		c.log.Err(err, "logging goal failed")
	}
}
