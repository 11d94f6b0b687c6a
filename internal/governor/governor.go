package governor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lucaproject/luca/internal/bus"
	"github.com/lucaproject/luca/internal/config"
	"github.com/lucaproject/luca/internal/logging"
)

// DefaultTick is the loop interval when none is configured.
const DefaultTick = 5 * time.Second

// EnergyRecoverer is the slice of the energy manager the governor drives.
type EnergyRecoverer interface {
	Recover() float64
}

// Cycles are the background task bodies the governor dispatches. Any nil
// cycle is treated as not available and skipped.
type Cycles struct {
	// Direction re-evaluates the evolutionary goal.
	Direction func(ctx context.Context) (Goal, error)
	// SelfEvolution analyzes collected execution traces.
	SelfEvolution func(ctx context.Context) error
	// MicroLLM creates a specialist for the goal topic.
	MicroLLM func(ctx context.Context, topic string) error
	// Autonomous runs one research cycle.
	Autonomous func(ctx context.Context) error
	// Consolidation folds working memory into long-term stores.
	Consolidation func(ctx context.Context) error
	// Wisdom distills principles from recent memory.
	Wisdom func(ctx context.Context) error
}

// Governor is the long-lived idle scheduler. Tasks run sequentially within a
// tick; task errors are logged and never stop the loop.
type Governor struct {
	mu         sync.Mutex
	clock      func() time.Time
	tick       time.Duration
	cfg        config.GovernorConfig
	energy     EnergyRecoverer
	cycles     Cycles
	bus        *bus.AnalyticsBus
	goal       Goal
	isIdle     bool
	lastActive time.Time
	started    time.Time
	lastRun    map[string]time.Time

	stop chan struct{}
	done chan struct{}
	log  *logging.Logger
}

// Option configures a Governor.
type Option func(*Governor)

// WithClock injects the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(g *Governor) { g.clock = clock }
}

// WithGoal sets the initial evolutionary goal.
func WithGoal(goal Goal) Option {
	return func(g *Governor) { g.goal = goal }
}

// New creates a governor. It starts non-idle with an exploration goal.
func New(cfg config.GovernorConfig, energy EnergyRecoverer, cycles Cycles, analyticsBus *bus.AnalyticsBus, opts ...Option) *Governor {
	g := &Governor{
		clock:   time.Now,
		tick:    DefaultTick,
		cfg:     cfg,
		energy:  energy,
		cycles:  cycles,
		bus:     analyticsBus,
		goal:    Goal{Type: GoalExploration},
		lastRun: make(map[string]time.Time),
		log:     logging.Component("governor"),
	}
	if cfg.TickSeconds > 0 {
		g.tick = time.Duration(cfg.TickSeconds) * time.Second
	}
	for _, opt := range opts {
		opt(g)
	}
	now := g.clock()
	g.started = now
	g.lastActive = now
	return g
}

// SetBusy marks the system as serving a request.
func (g *Governor) SetBusy() {
	g.mu.Lock()
	g.isIdle = false
	g.lastActive = g.clock()
	g.mu.Unlock()
}

// SetIdle marks the system as free for background work.
func (g *Governor) SetIdle() {
	g.mu.Lock()
	g.isIdle = true
	g.lastActive = g.clock()
	g.mu.Unlock()
}

// Goal returns the current evolutionary goal.
func (g *Governor) Goal() Goal {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.goal
}

// Start launches the loop. Stop ends it.
func (g *Governor) Start(ctx context.Context) {
	g.stop = make(chan struct{})
	g.done = make(chan struct{})
	go g.run(ctx)
}

// Stop signals the loop and waits for it to exit. An in-flight cycle is not
// preempted.
func (g *Governor) Stop() {
	if g.stop == nil {
		return
	}
	close(g.stop)
	<-g.done
}

func (g *Governor) run(ctx context.Context) {
	defer close(g.done)
	ticker := time.NewTicker(g.tick)
	defer ticker.Stop()

	for {
		select {
		case <-g.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.cycle(ctx)
		}
	}
}

// cycle is one tick body: recover energy, then dispatch idle work.
func (g *Governor) cycle(ctx context.Context) {
	if g.energy != nil {
		level := g.energy.Recover()
		if g.bus != nil {
			event := bus.NewEvent(bus.EventEnergy)
			event.EnergyLevel = level
			g.bus.Publish(event)
		}
	}

	g.mu.Lock()
	idle := g.isIdle
	goal := g.goal
	g.mu.Unlock()

	if !idle {
		return
	}

	if g.cycles.Direction != nil && g.due("evolutionary_direction", g.cfg.BenchmarkIntervalSeconds) {
		g.mark("evolutionary_direction")
		g.redirect(ctx)
		g.mu.Lock()
		goal = g.goal
		g.mu.Unlock()
	}

	switch goal.Type {
	case GoalPerformanceImprovement:
		g.dispatch(ctx, "self_evolution", "self_evolution", g.cfg.SelfEvolutionSeconds, g.cycles.SelfEvolution)
	case GoalKnowledgeAcquisition:
		if g.cycles.MicroLLM != nil {
			g.dispatch(ctx, "micro_llm:"+goal.Topic, "micro_llm_creation", g.cfg.MicroLLMCreationSeconds, func(ctx context.Context) error {
				return g.cycles.MicroLLM(ctx, goal.Topic)
			})
		}
	case GoalExploration:
		g.dispatch(ctx, "autonomous_cycle", "autonomous_cycle", g.cfg.AutonomousCycleSeconds, g.cycles.Autonomous)
	}

	g.dispatch(ctx, "consolidation_cycle", "consolidation_cycle", g.cfg.ConsolidationSeconds, g.cycles.Consolidation)
	g.dispatch(ctx, "wisdom_synthesis", "wisdom_synthesis", g.cfg.WisdomSynthesisSeconds, g.cycles.Wisdom)
}

// dispatch runs the named task when its interval has elapsed. lastRun is
// recorded only on an actual dispatch, so an unwired cycle never consumes
// its slot.
func (g *Governor) dispatch(ctx context.Context, key, name string, intervalSeconds int, task func(ctx context.Context) error) {
	if task == nil || !g.due(key, intervalSeconds) {
		return
	}
	g.mark(key)
	g.runTask(ctx, name, task)
}

// due reports whether the named task's interval has elapsed. A task never
// run before counts from governor start.
func (g *Governor) due(name string, intervalSeconds int) bool {
	if intervalSeconds <= 0 {
		return false
	}
	now := g.clock()

	g.mu.Lock()
	defer g.mu.Unlock()
	last, ok := g.lastRun[name]
	if !ok {
		last = g.started
	}
	return now.Sub(last) > time.Duration(intervalSeconds)*time.Second
}

// mark records a dispatch time for the named task.
func (g *Governor) mark(name string) {
	g.mu.Lock()
	g.lastRun[name] = g.clock()
	g.mu.Unlock()
}

// redirect re-evaluates the evolutionary goal.
func (g *Governor) redirect(ctx context.Context) {
	if g.cycles.Direction == nil {
		return
	}
	goal, err := g.cycles.Direction(ctx)
	if err != nil {
		g.log.Err(err, "direction re-evaluation failed")
		return
	}
	g.mu.Lock()
	g.goal = goal
	g.mu.Unlock()
	g.log.Info("goal updated: %s %s", goal.Type, goal.Topic)
}

// runTask executes one cycle body, absorbing panics and errors.
func (g *Governor) runTask(ctx context.Context, name string, task func(ctx context.Context) error) {
	if task == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			g.log.Error("task %s panicked: %v", name, r)
		}
	}()

	g.publishTask(name)
	if err := task(ctx); err != nil {
		g.log.Err(err, "task %s failed", name)
		return
	}
	g.log.Debug("task %s completed", name)
}

func (g *Governor) publishTask(name string) {
	if g.bus == nil {
		return
	}
	event := bus.NewEvent(bus.EventGovernorTask)
	event.Content = name
	g.bus.Publish(event)
}

// String renders the goal for logs.
func (goal Goal) String() string {
	if goal.Topic == "" {
		return string(goal.Type)
	}
	return fmt.Sprintf("%s(%s)", goal.Type, goal.Topic)
}
