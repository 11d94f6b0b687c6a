package governor

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/lucaproject/luca/internal/agents"
	"github.com/lucaproject/luca/internal/logging"
	"github.com/lucaproject/luca/internal/memory"
	"github.com/lucaproject/luca/internal/tools"
)

// DocumentAdder is the slice of the vector store consolidation writes to.
type DocumentAdder interface {
	Add(ctx context.Context, content, source string) (string, error)
}

// NewAutonomousCycle builds the exploration task: pick the next topic from
// the pool, gather material with the search tool, and log the insight.
func NewAutonomousCycle(base *agents.Base, registry *tools.Registry, mem *memory.Log, topics []string) func(ctx context.Context) error {
	researcher := agents.NewAutonomousAgent(base)
	log := logging.Component("autonomous")

	var mu sync.Mutex
	next := 0

	return func(ctx context.Context) error {
		if len(topics) == 0 {
			return nil
		}
		mu.Lock()
		topic := topics[next%len(topics)]
		next++
		mu.Unlock()

		findings := "(調査結果なし)"
		if registry != nil {
			if out, err := registry.Execute(ctx, "web_search", topic); err == nil && out != "" {
				findings = out
			} else if err != nil {
				log.Warn("search for %q failed: %v", topic, err)
			}
		}

		insight, err := researcher.Research(ctx, topic, findings)
		if err != nil {
			return fmt.Errorf("research %q: %w", topic, err)
		}
		if mem == nil {
			return nil
		}
		entry := memory.Entry{
			Kind:     memory.KindInsight,
			Content:  insight,
			Metadata: map[string]string{"topic": topic, "origin": "autonomous"},
		}
		if err := mem.Append(entry); err != nil {
			return fmt.Errorf("log insight for %q: %w", topic, err)
		}
		return nil
	}
}

// NewConsolidationCycle builds the maintenance task that folds unprocessed
// working-memory sessions into the long-term stores.
func NewConsolidationCycle(base *agents.Base, working *memory.WorkingMemory, mem *memory.Log, docs DocumentAdder) func(ctx context.Context) error {
	consolidator := agents.NewConsolidationAgent(base)
	log := logging.Component("consolidation")

	return func(ctx context.Context) error {
		sessions, err := working.UnprocessedSessions()
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}

		for _, session := range sessions {
			if err := ctx.Err(); err != nil {
				return err
			}
			turns, err := working.Transcript(session)
			if err != nil {
				log.Warn("reading session %s failed: %v", session, err)
				continue
			}
			if len(turns) == 0 {
				if err := working.MarkProcessed(session); err != nil {
					log.Err(err, "marking empty session %s failed", session)
				}
				continue
			}

			facts, err := consolidator.Consolidate(ctx, renderTranscript(turns))
			if err != nil {
				log.Warn("consolidating session %s failed: %v", session, err)
				continue
			}

			if mem != nil {
				entry := memory.Entry{
					Kind:      memory.KindInsight,
					SessionID: session,
					Content:   facts,
					Metadata:  map[string]string{"origin": "consolidation"},
				}
				if err := mem.Append(entry); err != nil {
					log.Err(err, "logging consolidation of %s failed", session)
				}
			}
			if docs != nil {
				if _, err := docs.Add(ctx, facts, "consolidation:"+session); err != nil {
					log.Warn("indexing consolidation of %s failed: %v", session, err)
				}
			}
			if err := working.MarkProcessed(session); err != nil {
				log.Err(err, "marking session %s failed", session)
			}
		}
		return nil
	}
}

// NewWisdomCycle builds the task that distills principles from recent
// memory into wisdom entries.
func NewWisdomCycle(base *agents.Base, mem *memory.Log) func(ctx context.Context) error {
	synthesizer := agents.NewWisdomSynthesisAgent(base)

	return func(ctx context.Context) error {
		entries, err := mem.Recent("", 20)
		if err != nil {
			return fmt.Errorf("read recent memory: %w", err)
		}
		if len(entries) == 0 {
			return nil
		}

		var fragments []string
		for _, e := range entries {
			fragments = append(fragments, e.Content)
		}
		wisdom, err := synthesizer.Synthesize(ctx, strings.Join(fragments, "\n"))
		if err != nil {
			return fmt.Errorf("synthesize wisdom: %w", err)
		}
		return mem.Append(memory.Entry{Kind: memory.KindWisdom, Content: wisdom})
	}
}

func renderTranscript(turns []memory.Turn) string {
	var b strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Content)
	}
	return b.String()
}
