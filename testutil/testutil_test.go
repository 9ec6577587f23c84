package testutil

import (
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformVectors(t *testing.T) {
	rng := NewRNG(4711)

	v := rng.UniformVectors(8, 32)

	assert.Len(t, v, 8)
	assert.Len(t, v[0], 32)
	assert.LessOrEqual(t, v[0][0], float32(1.0))
	assert.GreaterOrEqual(t, v[1][0], float32(0.0))
}

func TestGaussianVectors(t *testing.T) {
	rng := NewRNG(4711)

	v := rng.GaussianVectors(4, 16)
	assert.Len(t, v, 4)
	assert.Len(t, v[3], 16)
}

func TestSparseIndices(t *testing.T) {
	rng := NewRNG(4711)

	idx := rng.SparseIndices(100, 10)
	require.Len(t, idx, 10)
	assert.True(t, slices.IsSorted(idx))
	for i := 1; i < len(idx); i++ {
		assert.NotEqual(t, idx[i-1], idx[i])
	}
	assert.Less(t, idx[len(idx)-1], 100)

	assert.Len(t, rng.SparseIndices(5, 10), 5)
}

func TestBinaryVector(t *testing.T) {
	rng := NewRNG(4711)

	v := rng.BinaryVector(50, 7)
	var ones int
	for _, x := range v {
		if x == 1 {
			ones++
		} else {
			assert.Zero(t, x)
		}
	}
	assert.Equal(t, 7, ones)
}

func TestLabelledClusters(t *testing.T) {
	rng := NewRNG(4711)

	v, labels := rng.LabelledClusters(100, 32, 5, 0.1)

	assert.Len(t, v, 100)
	assert.Len(t, v[0], 32)
	assert.Equal(t, 0, labels[0])
	assert.Equal(t, 4, labels[99])
}

func TestReset(t *testing.T) {
	rng := NewRNG(4711)
	v1 := rng.UniformVectors(1, 10)

	rng.Reset()
	v2 := rng.UniformVectors(1, 10)

	assert.Equal(t, v1, v2)
	assert.Equal(t, int64(4711), rng.Seed())
}

func TestBruteForceSearch(t *testing.T) {
	vectors := [][]float32{{0, 0}, {3, 4}, {1, 0}, {1, 0}}

	res := BruteForceSearch(vectors, []float32{0, 0}, 3)
	require.Len(t, res, 3)
	assert.Equal(t, SearchResult{Row: 0, Distance: 0}, res[0])
	assert.Equal(t, SearchResult{Row: 2, Distance: 1}, res[1])
	assert.Equal(t, SearchResult{Row: 3, Distance: 1}, res[2])
}

func TestAccuracy(t *testing.T) {
	assert.InDelta(t, 0.5, Accuracy([]int{1, 2, 3, 4}, []int{1, 0, 3, 0}), 1e-12)
	assert.True(t, math.IsNaN(Accuracy(nil, nil)))
}
