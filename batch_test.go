package knn

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/knn/testutil"
)

func TestInferBatch(t *testing.T) {
	rng := testutil.NewRNG(17)
	c := newClassifier(t, WithK(3), WithBatchConcurrency(4))
	for i := range 50 {
		learn(t, c, rng.BinaryVector(32, 6), i%4, WithPartitionID(int64(i%3)))
	}
	queries := make([][]float32, 40)
	for i := range queries {
		queries[i] = rng.BinaryVector(32, 6)
	}

	results, err := c.InferBatch(context.Background(), queries, WithPartitionExcluded(1))
	require.NoError(t, err)
	require.Len(t, results, len(queries))

	for i, q := range queries {
		want, err := c.Infer(q, WithPartitionExcluded(1))
		require.NoError(t, err)
		assert.Equal(t, want, results[i])
	}
}

func TestInferBatch_Errors(t *testing.T) {
	c := newClassifier(t)
	learn(t, c, []float32{1, 0, 1, 0}, 0)

	t.Run("Canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := c.InferBatch(ctx, [][]float32{{1, 0, 1, 0}})
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("DimensionMismatch", func(t *testing.T) {
		_, err := c.InferBatch(context.Background(), [][]float32{{1, 0, 1, 0}, {1, 0}})
		var dm *ErrDimensionMismatch
		require.ErrorAs(t, err, &dm)
	})

	t.Run("Empty", func(t *testing.T) {
		results, err := c.InferBatch(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestConcurrentInfer(t *testing.T) {
	rng := testutil.NewRNG(8)
	c := newClassifier(t, WithK(3), WithSparseMemory(false))
	vectors, labels := rng.LabelledClusters(200, 16, 4, 0.05)
	for i, v := range vectors {
		learn(t, c, v, labels[i])
	}

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := g; i < len(vectors); i += 8 {
				res, err := c.Infer(vectors[i])
				assert.NoError(t, err)
				assert.Equal(t, labels[i], res.Winner)
			}
		}()
	}
	wg.Wait()
}
