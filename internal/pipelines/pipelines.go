// Package pipelines implements the closed set of reasoning strategies the
// engine dispatches to. Every pipeline shares one dependency bundle and the
// Run contract; the cognitive loop in loop.go is the shared core of the
// retrieval-driven modes.
package pipelines

import (
	"context"

	"github.com/lucaproject/luca/internal/agents"
	"github.com/lucaproject/luca/internal/bus"
	"github.com/lucaproject/luca/internal/config"
	"github.com/lucaproject/luca/internal/conceptual"
	"github.com/lucaproject/luca/internal/engine"
	"github.com/lucaproject/luca/internal/knowledge"
	"github.com/lucaproject/luca/internal/memory"
	"github.com/lucaproject/luca/internal/rag"
	"github.com/lucaproject/luca/internal/tools"
)

// Retriever is the slice of the vector store the pipelines use.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]rag.SearchResult, error)
}

// TraceStep is one recorded stage of a pipeline execution.
type TraceStep struct {
	Name    string
	Content string
}

// TraceSink receives execution traces for later self-analysis. Collection
// must not block the request path.
type TraceSink interface {
	CollectTrace(query string, steps []TraceStep)
}

// Deps bundles the collaborators shared by all pipelines. Optional fields
// (Bus, Traces, Concepts, Memory, Graph) may be nil; pipelines degrade to
// skipping the corresponding side effects.
type Deps struct {
	Base      *agents.Base
	Registry  *tools.Registry
	Retriever Retriever
	Graph     *knowledge.Graph
	Memory    *memory.Log
	Concepts  *conceptual.Memory
	Bus       *bus.AnalyticsBus
	Traces    TraceSink
	Config    config.PipelineConfig
	// FastModel, when set, serves the drafting calls of the speculative
	// pipeline.
	FastModel string
	// Personas is the fixed persona list for the quantum-inspired pipeline.
	Personas []config.PersonaConfig
}

// publish emits an analytics event when a bus is wired.
func (d *Deps) publish(event bus.Event) {
	if d.Bus != nil {
		d.Bus.Publish(event)
	}
}

// All constructs every pipeline over the shared dependencies, in engine
// registration order.
func All(d *Deps) []engine.Pipeline {
	loop := NewCognitiveLoop(d)
	return []engine.Pipeline{
		NewSimple(d),
		NewFull(d, loop),
		NewParallel(d, loop),
		NewQuantum(d),
		NewSpeculative(d),
		NewSelfDiscover(d),
		NewInternalDialogue(d),
		NewConceptualReasoning(d, loop),
		NewMicroLLMExpert(d),
		NewTreeOfThoughts(d),
		NewIterativeCorrection(d),
	}
}

// answer wraps a bare answer into the response shape.
func answer(text string) *engine.MasterResponse {
	return &engine.MasterResponse{FinalAnswer: text}
}
