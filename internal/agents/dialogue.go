package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/lucaproject/luca/internal/prompts"
)

// Persona is one named perspective in a multi-voice pipeline.
type Persona struct {
	Name        string
	Description string
}

// PersonaGeneratorAgent invents expert personas for the internal dialogue.
type PersonaGeneratorAgent struct {
	*Base
}

// NewPersonaGeneratorAgent creates the generator.
func NewPersonaGeneratorAgent(base *Base) *PersonaGeneratorAgent {
	return &PersonaGeneratorAgent{Base: base}
}

// Generate produces n personas from "名前: 説明" output lines.
func (a *PersonaGeneratorAgent) Generate(ctx context.Context, query string, n int) ([]Persona, error) {
	out, err := a.invoke(ctx, prompts.PersonaGeneration, n, query)
	if err != nil {
		return nil, err
	}
	var personas []Persona
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		idx := strings.IndexAny(line, ":：")
		if idx <= 0 {
			continue
		}
		personas = append(personas, Persona{
			Name:        strings.TrimSpace(line[:idx]),
			Description: strings.TrimSpace(strings.TrimLeft(line[idx:], ":： ")),
		})
		if len(personas) == n {
			break
		}
	}
	if len(personas) == 0 {
		return nil, fmt.Errorf("no personas in model output")
	}
	return personas, nil
}

// DialogueParticipantAgent speaks as one persona in the internal dialogue.
type DialogueParticipantAgent struct {
	*Base
}

// NewDialogueParticipantAgent creates the participant.
func NewDialogueParticipantAgent(base *Base) *DialogueParticipantAgent {
	return &DialogueParticipantAgent{Base: base}
}

// Speak produces the persona's next utterance.
func (a *DialogueParticipantAgent) Speak(ctx context.Context, p Persona, history, query string) (string, error) {
	return a.invoke(ctx, prompts.InternalDialogue, p.Name, p.Description, history, query)
}

// MediatorAgent decides whether a dialogue has reached a conclusion.
type MediatorAgent struct {
	*Base
}

// NewMediatorAgent creates the mediator.
func NewMediatorAgent(base *Base) *MediatorAgent {
	return &MediatorAgent{Base: base}
}

// ShouldConclude reports whether the dialogue should stop.
func (a *MediatorAgent) ShouldConclude(ctx context.Context, history string) (bool, error) {
	out, err := a.invoke(ctx, prompts.Mediator, history)
	if err != nil {
		return false, err
	}
	return strings.Contains(out, "結論"), nil
}

// IntegratedInformationAgent merges parallel perspectives into one answer.
type IntegratedInformationAgent struct {
	*Base
}

// NewIntegratedInformationAgent creates the integrator.
func NewIntegratedInformationAgent(base *Base) *IntegratedInformationAgent {
	return &IntegratedInformationAgent{Base: base}
}

// Integrate synthesizes the labeled perspectives into a final answer.
func (a *IntegratedInformationAgent) Integrate(ctx context.Context, query string, perspectives map[string]string) (string, error) {
	names := make([]string, 0, len(perspectives))
	for name := range perspectives {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "【%s】\n%s\n\n", name, perspectives[name])
	}
	return a.invoke(ctx, prompts.Synthesis, query, b.String())
}
