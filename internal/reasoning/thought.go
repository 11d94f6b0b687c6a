// Package reasoning implements the search and deduction primitives behind
// the tree-of-thoughts and symbolic pipelines.
package reasoning

import (
	"strings"

	"github.com/google/uuid"
)

// Thought is one node in a tree-of-thoughts search.
type Thought struct {
	ID       string
	State    string
	Parent   *Thought
	Children []*Thought
	Score    float64
	// seq is the global insertion order, the deterministic tie-breaker
	// when scores are equal.
	seq int
}

// NewThought creates a root thought.
func NewThought(state string) *Thought {
	return &Thought{ID: uuid.New().String(), State: state}
}

// Chain renders the path from the root to this thought, one state per line.
func (t *Thought) Chain() string {
	var states []string
	for cur := t; cur != nil; cur = cur.Parent {
		states = append(states, cur.State)
	}
	for i, j := 0, len(states)-1; i < j; i, j = i+1, j-1 {
		states[i], states[j] = states[j], states[i]
	}
	return strings.Join(states, "\n")
}

// Depth returns the distance from the root.
func (t *Thought) Depth() int {
	d := 0
	for cur := t.Parent; cur != nil; cur = cur.Parent {
		d++
	}
	return d
}
