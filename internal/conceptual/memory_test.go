package conceptual

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucaproject/luca/internal/rag"
)

// axisEmbedder maps known labels to fixed axis vectors so neighbor math is
// exact in tests.
type axisEmbedder struct {
	vectors map[string][]float64
}

func (e *axisEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return []float64{0, 0, 0}, nil
}

func (e *axisEmbedder) Dimensions() int { return 3 }

func newAxisEmbedder() *axisEmbedder {
	return &axisEmbedder{vectors: map[string][]float64{
		"fire":  {1, 0, 0},
		"water": {0, 1, 0},
		"steam": {0.7, 0.7, 0},
		"rock":  {0, 0, 1},
	}}
}

func TestCombineNormalizes(t *testing.T) {
	out, err := Combine([][]float64{{3, 0}, {0, 4}}, []float64{0.5, 0.5})
	require.NoError(t, err)

	var norm float64
	for _, v := range out {
		norm += v * v
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
	assert.InDelta(t, 0.6, out[0], 1e-9)
	assert.InDelta(t, 0.8, out[1], 1e-9)
}

func TestCombineRejectsMismatch(t *testing.T) {
	_, err := Combine([][]float64{{1, 0}, {1, 0, 0}}, []float64{0.5, 0.5})
	assert.Error(t, err)

	_, err = Combine(nil, nil)
	assert.Error(t, err)

	_, err = Combine([][]float64{{1}}, []float64{0.5, 0.5})
	assert.Error(t, err)
}

func TestSynthesizeFindsBlendNeighbor(t *testing.T) {
	m := NewMemory(newAxisEmbedder())
	ctx := context.Background()
	for _, label := range []string{"fire", "water", "steam", "rock"} {
		require.NoError(t, m.Learn(ctx, label))
	}

	neighbors, err := m.Synthesize(ctx, "fire", "water", 2)
	require.NoError(t, err)
	require.Len(t, neighbors, 2)
	// The equal-weight blend of fire and water sits on the steam axis.
	assert.Equal(t, "steam", neighbors[0].Label)
	assert.Greater(t, neighbors[0].Score, neighbors[1].Score)
}

func TestNearestTieBreaksByLearnOrder(t *testing.T) {
	m := NewMemory(newAxisEmbedder())
	ctx := context.Background()
	require.NoError(t, m.Learn(ctx, "fire"))
	require.NoError(t, m.Learn(ctx, "water"))

	// Equidistant from both axes; the earlier-learned concept wins.
	neighbors := m.Nearest([]float64{1, 1, 0}, 1)
	require.Len(t, neighbors, 1)
	assert.Equal(t, "fire", neighbors[0].Label)
}

func TestEmbedFallsThroughForUnknownLabels(t *testing.T) {
	m := NewMemory(rag.NewHashEmbedder(16))
	vec, err := m.Embed(context.Background(), "never learned")
	require.NoError(t, err)
	assert.Len(t, vec, 16)
}

func TestDescribeNeighbors(t *testing.T) {
	assert.Equal(t, "(近傍概念なし)", DescribeNeighbors(nil))
	got := DescribeNeighbors([]Neighbor{{Label: "steam", Score: 0.987}})
	assert.Equal(t, "steam (0.99)", got)
}
