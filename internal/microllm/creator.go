// Package microllm creates specialist micro models: it distills what the
// runtime knows about a topic into a system prompt, builds the model on the
// provider, and registers the result as a Specialist_ tool.
package microllm

import (
	"context"
	"fmt"
	"strings"

	"github.com/lucaproject/luca/internal/agents"
	"github.com/lucaproject/luca/internal/bus"
	"github.com/lucaproject/luca/internal/llm"
	"github.com/lucaproject/luca/internal/logging"
	"github.com/lucaproject/luca/internal/memory"
	"github.com/lucaproject/luca/internal/prompts"
	"github.com/lucaproject/luca/internal/tools"
)

// knowledgeEntryLimit bounds how much episodic memory feeds one design call.
const knowledgeEntryLimit = 20

// Creator builds specialist models from accumulated topic knowledge.
type Creator struct {
	base     *agents.Base
	memory   *memory.Log
	registry *tools.Registry
	bus      *bus.AnalyticsBus
	// baseModel is the Modelfile FROM line.
	baseModel string
	log       *logging.Logger
}

// NewCreator creates the specialist creator. bus may be nil.
func NewCreator(base *agents.Base, mem *memory.Log, registry *tools.Registry, analyticsBus *bus.AnalyticsBus, baseModel string) *Creator {
	return &Creator{
		base:      base,
		memory:    mem,
		registry:  registry,
		bus:       analyticsBus,
		baseModel: baseModel,
		log:       logging.Component("microllm"),
	}
}

// CreateExpert builds and registers a specialist for the topic. The returned
// name is the registered tool name.
func (c *Creator) CreateExpert(ctx context.Context, topic string) (string, error) {
	name := SpecialistName(topic)
	if _, ok := c.registry.Get(name); ok {
		return name, nil
	}

	system, err := c.designSystemPrompt(ctx, topic)
	if err != nil {
		return "", err
	}

	modelfile := fmt.Sprintf("FROM %s\nSYSTEM \"\"\"%s\"\"\"\n", c.baseModel, system)
	modelName := strings.ToLower(strings.ReplaceAll(name, " ", "_"))
	if err := c.base.Provider.CreateModel(ctx, modelName, modelfile); err != nil {
		return "", fmt.Errorf("create model for %q: %w", topic, err)
	}

	c.registry.Register(&SpecialistTool{
		name:     name,
		topic:    topic,
		model:    modelName,
		provider: c.base.Provider,
	})
	c.log.Info("registered specialist %s (model %s)", name, modelName)

	if c.bus != nil {
		event := bus.NewEvent(bus.EventMicroLLMCreate)
		event.Content = name
		c.bus.Publish(event)
	}
	return name, nil
}

// designSystemPrompt distills topic knowledge from memory into a system
// prompt via the design template.
func (c *Creator) designSystemPrompt(ctx context.Context, topic string) (string, error) {
	knowledge := c.topicKnowledge(topic)

	prompt := fmt.Sprintf(c.base.Prompts.Get(prompts.MicroLLMDesign), topic)
	if knowledge != "" {
		prompt += "\n\n参考となる知識:\n" + knowledge
	}
	system, err := c.base.InvokeModel(ctx, c.base.Model, prompt)
	if err != nil {
		return "", fmt.Errorf("design system prompt for %q: %w", topic, err)
	}
	return system, nil
}

// topicKnowledge collects memory entries mentioning the topic.
func (c *Creator) topicKnowledge(topic string) string {
	if c.memory == nil {
		return ""
	}
	entries, err := c.memory.All()
	if err != nil {
		c.log.Warn("reading memory for %q failed: %v", topic, err)
		return ""
	}
	var lines []string
	for i := len(entries) - 1; i >= 0 && len(lines) < knowledgeEntryLimit; i-- {
		if strings.Contains(entries[i].Content, topic) {
			lines = append(lines, entries[i].Content)
		}
	}
	return strings.Join(lines, "\n")
}

// SpecialistName derives the registered tool name for a topic.
func SpecialistName(topic string) string {
	cleaned := strings.TrimSpace(topic)
	cleaned = strings.ReplaceAll(cleaned, " ", "_")
	return tools.SpecialistPrefix + cleaned + "_Expert"
}

// SpecialistTool exposes a created micro model as a callable tool.
type SpecialistTool struct {
	name     string
	topic    string
	model    string
	provider llm.Provider
}

// Name returns the registered tool name.
func (t *SpecialistTool) Name() string { return t.name }

// Description explains the specialist's domain.
func (t *SpecialistTool) Description() string {
	return fmt.Sprintf("「%s」の専門家モデルに質問します。", t.topic)
}

// Execute sends the input to the specialist model.
func (t *SpecialistTool) Execute(ctx context.Context, input string) (string, error) {
	resp, err := t.provider.Invoke(ctx, &llm.Request{Model: t.model, Prompt: input})
	if err != nil {
		return "", fmt.Errorf("specialist %s: %w", t.name, err)
	}
	return strings.TrimSpace(resp.Content), nil
}
