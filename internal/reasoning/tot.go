package reasoning

import (
	"context"
	"sort"

	"github.com/lucaproject/luca/internal/logging"
)

// Generator expands a thought state into candidate next thoughts.
type Generator interface {
	Generate(ctx context.Context, query, state string, k int) ([]string, error)
}

// Evaluator scores a thought chain in [0,1].
type Evaluator interface {
	Score(ctx context.Context, query, chain string) (float64, error)
}

// SearchParams bound the tree search.
type SearchParams struct {
	Initial int // k: children generated per expansion
	Depth   int // T: expansion steps
	Beam    int // b: frontier width kept per step
}

// TreeSearch runs breadth-first beam search over thoughts.
type TreeSearch struct {
	generator Generator
	evaluator Evaluator
	log       *logging.Logger
}

// NewTreeSearch creates a search over the given agents.
func NewTreeSearch(g Generator, e Evaluator) *TreeSearch {
	return &TreeSearch{
		generator: g,
		evaluator: e,
		log:       logging.Component("tot"),
	}
}

// Run searches and returns the highest-scoring thought in the whole tree.
// Ties resolve to the earlier-inserted thought.
func (s *TreeSearch) Run(ctx context.Context, query string, params SearchParams) (*Thought, error) {
	if params.Initial <= 0 {
		params.Initial = 3
	}
	if params.Depth <= 0 {
		params.Depth = 3
	}
	if params.Beam <= 0 {
		params.Beam = 2
	}

	root := NewThought(query)
	frontier := []*Thought{root}
	all := []*Thought{root}
	seq := 1

	for step := 0; step < params.Depth; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var children []*Thought
		for _, parent := range frontier {
			states, err := s.generator.Generate(ctx, query, parent.State, params.Initial)
			if err != nil {
				return nil, err
			}
			for _, state := range states {
				child := NewThought(state)
				child.Parent = parent
				child.seq = seq
				seq++
				parent.Children = append(parent.Children, child)
				children = append(children, child)
			}
		}
		if len(children) == 0 {
			s.log.Debug("no children generated at step %d, stopping early", step+1)
			break
		}

		for _, child := range children {
			score, err := s.evaluator.Score(ctx, query, child.Chain())
			if err != nil {
				return nil, err
			}
			child.Score = score
		}
		all = append(all, children...)

		sortThoughts(children)
		if len(children) > params.Beam {
			children = children[:params.Beam]
		}
		frontier = children
	}

	best := root
	for _, t := range all[1:] {
		if t.Score > best.Score {
			best = t
		}
	}
	return best, nil
}

// sortThoughts orders by score descending, insertion order on ties.
func sortThoughts(ts []*Thought) {
	sort.SliceStable(ts, func(i, j int) bool {
		if ts[i].Score != ts[j].Score {
			return ts[i].Score > ts[j].Score
		}
		return ts[i].seq < ts[j].seq
	})
}
