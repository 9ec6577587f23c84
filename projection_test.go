package knn

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/knn/testutil"
)

func learnRandom(t *testing.T, c *Classifier, rng *testutil.RNG, n, dim int) {
	t.Helper()
	for i, v := range rng.UniformVectors(n, dim) {
		learn(t, c, v, i%2)
	}
}

func TestSVD_ComputeAndFinalize(t *testing.T) {
	rng := testutil.NewRNG(5)
	c := newClassifier(t, WithSparseMemory(false))
	learnRandom(t, c, rng, 6, 5)

	values, err := c.ComputeSVD(0, false)
	require.NoError(t, err)
	require.Len(t, values, 5)
	for i := 1; i < len(values); i++ {
		assert.LessOrEqual(t, values[i], values[i-1])
	}
	assert.False(t, c.SVDActive())
	assert.Equal(t, "pending", c.Stats().SVD)

	require.NoError(t, c.FinalizeSVD(2))
	assert.True(t, c.SVDActive())
	assert.Equal(t, 2, c.Width())
	assert.Equal(t, 5, c.InputWidth())
	assert.Equal(t, 2, c.Stats().SVDDims)

	row, err := c.Pattern(0)
	require.NoError(t, err)
	assert.Len(t, row, 2)

	// Inputs keep their original width.
	res, err := c.Infer(rng.UniformVectors(1, 5)[0])
	require.NoError(t, err)
	assert.NotEqual(t, NoWinner, res.Winner)
	assert.Len(t, res.Distances, 6)

	_, err = c.Infer([]float32{1, 2})
	var dm *ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 5, dm.Expected)

	assert.Equal(t, 7, learn(t, c, rng.UniformVectors(1, 5)[0], 1))

	require.ErrorIs(t, c.FinalizeSVD(2), ErrAlreadyFinalized)
	_, err = c.ComputeSVD(0, false)
	require.ErrorIs(t, err, ErrAlreadyFinalized)
}

func TestSVD_ProjectedSelfMatch(t *testing.T) {
	rng := testutil.NewRNG(9)
	c := newClassifier(t, WithSparseMemory(false))
	vectors := rng.UniformVectors(8, 6)
	for i, v := range vectors {
		learn(t, c, v, i)
	}

	_, err := c.ComputeSVD(0, false)
	require.NoError(t, err)
	require.NoError(t, c.FinalizeSVD(6))

	// Keeping every direction preserves the nearest neighbor.
	for i, v := range vectors {
		res, err := c.Infer(v)
		require.NoError(t, err)
		assert.Equal(t, i, res.Winner)
	}
}

func TestSVD_AutomaticTrigger(t *testing.T) {
	rng := testutil.NewRNG(1)
	c := newClassifier(t, WithSVD(4, 2))
	learnRandom(t, c, rng, 3, 5)
	assert.False(t, c.SVDActive())
	assert.True(t, c.SparseMemory())

	learnRandom(t, c, rng, 1, 5)
	assert.True(t, c.SVDActive())
	assert.False(t, c.SparseMemory())
	assert.Equal(t, 2, c.Width())

	learnRandom(t, c, rng, 1, 5)
	assert.Equal(t, 5, c.RowCount())
}

func TestSVD_Adaptive(t *testing.T) {
	c := newClassifier(t, WithSparseMemory(false), WithSVD(0, SVDDimsAdaptive))
	base := []float32{1, 2, 3, 4, 5}
	for i := range 6 {
		v := make([]float32, len(base))
		for j, b := range base {
			v[j] = float32(i+1) * b
		}
		learn(t, c, v, i%2)
	}
	assert.False(t, c.SVDActive())

	require.NoError(t, c.FinishLearning())
	assert.True(t, c.FinishedLearning())
	assert.True(t, c.SVDActive())
	assert.Equal(t, 1, c.Width())
}

func TestSVD_InferLeavesLearningOpen(t *testing.T) {
	rng := testutil.NewRNG(7)
	c := newClassifier(t, WithSparseMemory(false), WithSVD(0, 2))
	learnRandom(t, c, rng, 6, 5)
	q := rng.UniformVectors(1, 5)[0]

	_, err := c.Infer(q)
	require.NoError(t, err)
	assert.False(t, c.FinishedLearning())
	assert.False(t, c.SVDActive())
	assert.Equal(t, 5, c.Width())

	require.NoError(t, c.FinishLearning())
	assert.True(t, c.SVDActive())
	assert.Equal(t, 2, c.Width())

	res, err := c.Infer(q)
	require.NoError(t, err)
	assert.Len(t, res.Distances, 6)
}

func TestSVD_FewSamplesBoundWidth(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	c := newClassifier(t, WithSparseMemory(false), WithSVD(2, 3), WithLogger(logger))
	learnRandom(t, c, testutil.NewRNG(8), 2, 5)

	assert.True(t, c.SVDActive())
	assert.Equal(t, 2, c.Width())
	assert.Equal(t, 5, c.InputWidth())
	assert.Contains(t, buf.String(), "svd dimensions clamped")
}

func TestSVD_Errors(t *testing.T) {
	c := newClassifier(t, WithSparseMemory(false))
	require.ErrorIs(t, c.FinalizeSVD(2), ErrSVDNotComputed)

	_, err := c.ComputeSVD(0, false)
	require.Error(t, err)

	learn(t, c, []float32{1, 2, 3}, 0)
	learn(t, c, []float32{3, 2, 1}, 1)
	_, err = c.ComputeSVD(0, false)
	require.NoError(t, err)

	// No configured count to fall back to.
	require.ErrorIs(t, c.FinalizeSVD(0), ErrInvalidOption)
	require.ErrorIs(t, c.FinalizeSVD(-3), ErrInvalidOption)

	// Recomputing before finalization is allowed.
	_, err = c.ComputeSVD(1, false)
	require.NoError(t, err)
}

func TestSVD_Skipped(t *testing.T) {
	c := newClassifier(t, WithSparseMemory(false))
	learn(t, c, []float32{1, 2, 3, 4}, 0)

	_, err := c.ComputeSVD(1, false)
	require.NoError(t, err)
	require.NoError(t, c.FinalizeSVD(SVDDimsAdaptive))

	assert.Equal(t, "skipped", c.Stats().SVD)
	assert.False(t, c.SVDActive())
	assert.Equal(t, 4, c.Width())
	require.ErrorIs(t, c.FinalizeSVD(1), ErrAlreadyFinalized)

	// Inputs pass through unprojected.
	assert.Equal(t, 2, learn(t, c, []float32{4, 3, 2, 1}, 1))
}

func TestSVD_ClampedDimsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	metrics := &BasicMetricsCollector{}

	c := newClassifier(t, WithSparseMemory(false), WithLogger(logger), WithMetricsCollector(metrics))
	learnRandom(t, c, testutil.NewRNG(2), 3, 6)

	_, err := c.ComputeSVD(0, false)
	require.NoError(t, err)
	require.NoError(t, c.FinalizeSVD(10))

	assert.Equal(t, 3, c.Width())
	assert.Contains(t, buf.String(), "svd dimensions clamped")
	assert.Contains(t, buf.String(), "requested_dims=10")

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.SVDCount)
	assert.Equal(t, int64(3), stats.SVDDims)
}

func TestFinishLearning_WithoutSVD(t *testing.T) {
	c := newClassifier(t)
	learn(t, c, []float32{1, 0}, 0)

	require.NoError(t, c.FinishLearning())
	assert.True(t, c.FinishedLearning())
	assert.False(t, c.SVDActive())
	assert.Equal(t, "empty", c.Stats().SVD)
}
