// Command luca runs the cognitive runtime: the request API, the analytics
// stream and the background governor over one shared set of stores.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lucaproject/luca/internal/affect"
	"github.com/lucaproject/luca/internal/agents"
	"github.com/lucaproject/luca/internal/bus"
	"github.com/lucaproject/luca/internal/conceptual"
	"github.com/lucaproject/luca/internal/config"
	"github.com/lucaproject/luca/internal/energy"
	"github.com/lucaproject/luca/internal/engine"
	"github.com/lucaproject/luca/internal/evolution"
	"github.com/lucaproject/luca/internal/governor"
	"github.com/lucaproject/luca/internal/knowledge"
	"github.com/lucaproject/luca/internal/llm"
	"github.com/lucaproject/luca/internal/logging"
	"github.com/lucaproject/luca/internal/memory"
	"github.com/lucaproject/luca/internal/microllm"
	"github.com/lucaproject/luca/internal/orchestrator"
	"github.com/lucaproject/luca/internal/pipelines"
	"github.com/lucaproject/luca/internal/prompts"
	"github.com/lucaproject/luca/internal/rag"
	"github.com/lucaproject/luca/internal/sandbox"
	"github.com/lucaproject/luca/internal/server"
	"github.com/lucaproject/luca/internal/tools"
)

var (
	version = "0.1.0"
	cfgDir  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "luca",
		Short: "Luca - self-evolving cognitive orchestration runtime",
		Long: `Luca serves a chat API backed by eleven reasoning pipelines, streams
cognitive events over WebSocket, and runs a background governor that
benchmarks, consolidates and evolves the system while it is idle.`,
		RunE: runServe,
	}
	rootCmd.PersistentFlags().StringVar(&cfgDir, "config-dir", "", "directory containing luca.yaml (default: working directory)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the runtime (same as the bare command)",
		RunE:  runServe,
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Luca v%s\n", version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgDir)
	if err != nil {
		return err
	}

	logger := logging.New(&logging.Config{
		Level:    cfg.Logging.Level,
		FilePath: cfg.Logging.File,
		Console:  true,
	})
	logging.SetGlobal(logger)
	log := logging.Component("main")

	provider, err := llm.NewProvider(&llm.Config{
		Name:     cfg.LLM.Backend,
		Endpoint: cfg.LLM.Endpoint,
		Model:    cfg.LLM.Model,
		Timeout:  cfg.LLM.Timeout,
	})
	if err != nil {
		return fmt.Errorf("create LLM provider: %w", err)
	}

	// Persistent stores. A missing file means a fresh start, a corrupt one
	// is fatal.
	store, err := prompts.NewStore(cfg.Storage.PromptsPath)
	if err != nil {
		return fmt.Errorf("open prompt store: %w", err)
	}
	graph, err := knowledge.Load(cfg.Storage.KnowledgeGraphPath)
	if err != nil {
		return fmt.Errorf("load knowledge graph: %w", err)
	}
	mem := memory.NewLog(cfg.Storage.MemoryLogPath)
	working := memory.NewWorkingMemory(cfg.Storage.WorkingMemoryDir)
	vectors, err := rag.Open(cfg.Storage.VectorStorePath, rag.NewHashEmbedder(rag.DefaultDimensions))
	if err != nil {
		return fmt.Errorf("open vector store: %w", err)
	}
	defer vectors.Close()

	sandboxMgr := sandbox.NewManager(func() (sandbox.Transport, error) {
		return sandbox.NewLocalTransport()
	}, cfg.Storage.SandboxLogPath)
	defer sandboxMgr.StopSandbox()

	registry := tools.NewRegistry()
	registry.Register(tools.NewBrowserTool())
	registry.Register(tools.NewSearchTool())
	registry.Register(tools.NewCodeExecutionTool(sandboxMgr))
	registry.Register(tools.NewSimulationTool(func(insight string) {
		if err := mem.Append(memory.Entry{Kind: memory.KindSimulationInsight, Content: insight}); err != nil {
			log.Err(err, "recording simulation insight failed")
		}
	}))

	analyticsBus := bus.NewAnalyticsBus()
	defer analyticsBus.Close()

	base := agents.NewBase(provider, store, cfg.LLM.Model)
	creator := microllm.NewCreator(base, mem, registry, analyticsBus, cfg.LLM.FastModel)
	evo := evolution.NewSystem(base, store, creator, mem, analyticsBus)

	integrity := affect.NewIntegrityMonitor(base, graph, analyticsBus)
	values := affect.NewValueEvaluator(base, analyticsBus)
	affectEngine := affect.NewEngine(integrity, values, analyticsBus)

	deps := &pipelines.Deps{
		Base:      base,
		Registry:  registry,
		Retriever: vectors,
		Graph:     graph,
		Memory:    mem,
		Concepts:  conceptual.NewMemory(nil),
		Bus:       analyticsBus,
		Traces:    evo,
		Config:    cfg.Pipelines,
		FastModel: cfg.LLM.FastModel,
		Personas:  cfg.Personas,
	}

	energyMgr := energy.NewManager(cfg.Energy.MaxEnergy, cfg.Energy.RecoveryRate)
	arbiter := engine.NewResourceArbiter(energyMgr, cfg.Energy.LowThreshold)
	eng := engine.New(arbiter, pipelines.All(deps)...)
	orch := orchestrator.New(provider, cfg.LLM.Model, store, registry)

	controller := governor.NewController(base, graph, mem, analyticsBus)
	controller.SetRunner(&engineRunner{orch: orch, eng: eng})

	cycles := governor.Cycles{
		Direction:     controller.DetermineDirection,
		SelfEvolution: evo.AnalyzeOwnPerformance,
		MicroLLM: func(ctx context.Context, topic string) error {
			_, err := creator.CreateExpert(ctx, topic)
			return err
		},
		Autonomous:    governor.NewAutonomousCycle(base, registry, mem, cfg.Research.Topics),
		Consolidation: governor.NewConsolidationCycle(base, working, mem, vectors),
		Wisdom:        governor.NewWisdomCycle(base, mem),
	}
	gov := governor.New(cfg.Governor, energyMgr, cycles, analyticsBus)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	gov.Start(ctx)
	defer gov.Stop()
	gov.SetIdle()

	srv := server.New(cfg.Server, orch, eng, affectEngine, gov, analyticsBus, working, mem)
	srv.Start()
	log.Info("Luca v%s started", version)

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

// engineRunner adapts the orchestrator and engine pair to the benchmark's
// answer interface.
type engineRunner struct {
	orch *orchestrator.Orchestrator
	eng  *engine.Engine
}

func (r *engineRunner) Answer(ctx context.Context, query string) (string, error) {
	decision := r.orch.Decide(ctx, query, affect.Neutral())
	resp, _ := r.eng.Run(ctx, query, decision)
	return resp.FinalAnswer, nil
}
