// Package conceptual implements concept-vector operations for the cognitive
// loop's conceptual branch: concepts embed into a shared space, combine by
// weighted sum with L2 normalization, and resolve back to labels via
// nearest-neighbor search.
package conceptual

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/lucaproject/luca/internal/rag"
)

// Neighbor is one nearest-neighbor hit.
type Neighbor struct {
	Label string
	Score float64
}

// Memory is the in-process concept vector store.
type Memory struct {
	mu       sync.RWMutex
	embedder rag.Embedder
	labels   []string
	vectors  map[string][]float64
}

// NewMemory creates a concept memory over the given embedder.
func NewMemory(embedder rag.Embedder) *Memory {
	if embedder == nil {
		embedder = rag.NewHashEmbedder(rag.DefaultDimensions)
	}
	return &Memory{
		embedder: embedder,
		vectors:  make(map[string][]float64),
	}
}

// Learn embeds and stores a labeled concept. Re-learning a label replaces
// its vector.
func (m *Memory) Learn(ctx context.Context, label string) error {
	vec, err := m.embedder.Embed(ctx, label)
	if err != nil {
		return fmt.Errorf("embed concept %q: %w", label, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vectors[label]; !ok {
		m.labels = append(m.labels, label)
	}
	m.vectors[label] = vec
	return nil
}

// Embed returns the vector for a concept, embedding on demand for labels the
// memory has not learned.
func (m *Memory) Embed(ctx context.Context, label string) ([]float64, error) {
	m.mu.RLock()
	vec, ok := m.vectors[label]
	m.mu.RUnlock()
	if ok {
		return vec, nil
	}
	return m.embedder.Embed(ctx, label)
}

// Combine merges concept vectors by weighted sum, L2-normalized. Weights and
// vectors must have equal length.
func Combine(vectors [][]float64, weights []float64) ([]float64, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no vectors to combine")
	}
	if len(weights) != len(vectors) {
		return nil, fmt.Errorf("got %d weights for %d vectors", len(weights), len(vectors))
	}

	dims := len(vectors[0])
	out := make([]float64, dims)
	for i, vec := range vectors {
		if len(vec) != dims {
			return nil, fmt.Errorf("vector %d has dimension %d, want %d", i, len(vec), dims)
		}
		for j, v := range vec {
			out[j] += weights[i] * v
		}
	}
	return rag.Normalize(out), nil
}

// Nearest returns the k concepts closest to the vector by cosine similarity.
// Ties resolve to the earlier-learned label.
func (m *Memory) Nearest(vector []float64, k int) []Neighbor {
	if k <= 0 {
		k = 3
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Neighbor, 0, len(m.labels))
	for _, label := range m.labels {
		out = append(out, Neighbor{
			Label: label,
			Score: rag.Cosine(vector, m.vectors[label]),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// Synthesize combines two named concepts with equal weight and returns the
// nearest neighbors of the blend.
func (m *Memory) Synthesize(ctx context.Context, a, b string, k int) ([]Neighbor, error) {
	va, err := m.Embed(ctx, a)
	if err != nil {
		return nil, err
	}
	vb, err := m.Embed(ctx, b)
	if err != nil {
		return nil, err
	}
	blend, err := Combine([][]float64{va, vb}, []float64{0.5, 0.5})
	if err != nil {
		return nil, err
	}
	return m.Nearest(blend, k), nil
}

// DescribeNeighbors renders neighbors for prompts.
func DescribeNeighbors(neighbors []Neighbor) string {
	if len(neighbors) == 0 {
		return "(近傍概念なし)"
	}
	parts := make([]string, len(neighbors))
	for i, n := range neighbors {
		parts[i] = fmt.Sprintf("%s (%.2f)", n.Label, n.Score)
	}
	return strings.Join(parts, ", ")
}
