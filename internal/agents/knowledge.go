package agents

import (
	"context"
	"strings"

	"github.com/lucaproject/luca/internal/knowledge"
	"github.com/lucaproject/luca/internal/prompts"
)

// KnowledgeGraphAgent extracts graph fragments from text.
type KnowledgeGraphAgent struct {
	*Base
}

// NewKnowledgeGraphAgent creates the extraction agent.
func NewKnowledgeGraphAgent(base *Base) *KnowledgeGraphAgent {
	return &KnowledgeGraphAgent{Base: base}
}

// ExtractFragment turns free text into a graph fragment.
func (a *KnowledgeGraphAgent) ExtractFragment(ctx context.Context, text string) (knowledge.Fragment, error) {
	out, err := a.invoke(ctx, prompts.KnowledgeExtraction, text)
	if err != nil {
		return knowledge.Fragment{}, err
	}
	return knowledge.ParseFragment(out)
}

// CapabilityMapperAgent turns a benchmark report into a capability fragment
// for the knowledge graph.
type CapabilityMapperAgent struct {
	*Base
}

// NewCapabilityMapperAgent creates the mapper.
func NewCapabilityMapperAgent(base *Base) *CapabilityMapperAgent {
	return &CapabilityMapperAgent{Base: base}
}

// MapCapabilities extracts the capability fragment. Node kinds are forced to
// "capability" so the gap analyzer can find them later.
func (a *CapabilityMapperAgent) MapCapabilities(ctx context.Context, report string) (knowledge.Fragment, error) {
	out, err := a.invoke(ctx, prompts.CapabilityMap, report)
	if err != nil {
		return knowledge.Fragment{}, err
	}
	frag, err := knowledge.ParseFragment(out)
	if err != nil {
		return knowledge.Fragment{}, err
	}
	for i := range frag.Nodes {
		frag.Nodes[i].Kind = "capability"
	}
	return frag, nil
}

// KnowledgeGapAnalyzerAgent identifies a single topic the system lacks.
type KnowledgeGapAnalyzerAgent struct {
	*Base
}

// NewKnowledgeGapAnalyzerAgent creates the analyzer.
func NewKnowledgeGapAnalyzerAgent(base *Base) *KnowledgeGapAnalyzerAgent {
	return &KnowledgeGapAnalyzerAgent{Base: base}
}

// FindGap returns one gap topic, or "" when the analyzer sees none.
func (a *KnowledgeGapAnalyzerAgent) FindGap(ctx context.Context, benchmarkReport, capabilitySummary string) (string, error) {
	out, err := a.invoke(ctx, prompts.GapAnalysis, benchmarkReport, capabilitySummary)
	if err != nil {
		return "", err
	}
	topic := strings.TrimSpace(strings.Split(out, "\n")[0])
	if topic == "" || strings.Contains(topic, "なし") {
		return "", nil
	}
	return topic, nil
}

// ConsolidationAgent summarizes a session transcript into durable facts.
type ConsolidationAgent struct {
	*Base
}

// NewConsolidationAgent creates the consolidation agent.
func NewConsolidationAgent(base *Base) *ConsolidationAgent {
	return &ConsolidationAgent{Base: base}
}

// Consolidate extracts the facts worth keeping from a transcript.
func (a *ConsolidationAgent) Consolidate(ctx context.Context, transcript string) (string, error) {
	return a.invoke(ctx, prompts.Consolidation, transcript)
}

// WisdomSynthesisAgent distills general principles from recent memory.
type WisdomSynthesisAgent struct {
	*Base
}

// NewWisdomSynthesisAgent creates the synthesis agent.
func NewWisdomSynthesisAgent(base *Base) *WisdomSynthesisAgent {
	return &WisdomSynthesisAgent{Base: base}
}

// Synthesize produces a wisdom statement from memory fragments.
func (a *WisdomSynthesisAgent) Synthesize(ctx context.Context, memories string) (string, error) {
	return a.invoke(ctx, prompts.WisdomSynthesis, memories)
}

// AutonomousAgent writes up research insights from gathered material.
type AutonomousAgent struct {
	*Base
}

// NewAutonomousAgent creates the research agent.
func NewAutonomousAgent(base *Base) *AutonomousAgent {
	return &AutonomousAgent{Base: base}
}

// Research produces an insight write-up for a topic.
func (a *AutonomousAgent) Research(ctx context.Context, topic, findings string) (string, error) {
	return a.invoke(ctx, prompts.AutonomousResearch, topic, findings)
}
