package pipelines

import (
	"context"
	"fmt"
	"strings"

	"github.com/lucaproject/luca/internal/agents"
	"github.com/lucaproject/luca/internal/engine"
	"github.com/lucaproject/luca/internal/logging"
)

// Dialogue bounds.
const (
	DefaultMaxTurns     = 4
	dialoguePersonaSize = 3
)

// InternalDialogue stages a turn-based conversation between generated
// personas, with a mediator deciding when the discussion has concluded.
type InternalDialogue struct {
	deps        *Deps
	generator   *agents.PersonaGeneratorAgent
	participant *agents.DialogueParticipantAgent
	mediator    *agents.MediatorAgent
	integrator  *agents.IntegratedInformationAgent
	log         *logging.Logger
}

// NewInternalDialogue creates the dialogue pipeline.
func NewInternalDialogue(d *Deps) *InternalDialogue {
	return &InternalDialogue{
		deps:        d,
		generator:   agents.NewPersonaGeneratorAgent(d.Base),
		participant: agents.NewDialogueParticipantAgent(d.Base),
		mediator:    agents.NewMediatorAgent(d.Base),
		integrator:  agents.NewIntegratedInformationAgent(d.Base),
		log:         logging.Component("pipeline.dialogue"),
	}
}

func (p *InternalDialogue) Name() string { return engine.ModeInternalDialogue }

// Run generates personas, stages the dialogue and integrates the transcript.
func (p *InternalDialogue) Run(ctx context.Context, query string, _ engine.OrchestrationDecision) (*engine.MasterResponse, error) {
	personas, err := p.generator.Generate(ctx, query, dialoguePersonaSize)
	if err != nil {
		return nil, fmt.Errorf("generate personas: %w", err)
	}

	maxTurns := p.deps.Config.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	var history strings.Builder
turns:
	for turn := 1; turn <= maxTurns; turn++ {
		for _, persona := range personas {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			utterance, err := p.participant.Speak(ctx, persona, history.String(), query)
			if err != nil {
				return nil, fmt.Errorf("turn %d, %s: %w", turn, persona.Name, err)
			}
			fmt.Fprintf(&history, "%s: %s\n", persona.Name, utterance)
		}

		conclude, err := p.mediator.ShouldConclude(ctx, history.String())
		if err != nil {
			p.log.Warn("mediator failed on turn %d: %v", turn, err)
			continue
		}
		if conclude {
			break turns
		}
	}

	final, err := p.integrator.Integrate(ctx, query, map[string]string{"対話の記録": history.String()})
	if err != nil {
		return nil, fmt.Errorf("integrate dialogue: %w", err)
	}
	return answer(final), nil
}
