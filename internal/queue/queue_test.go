package queue

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopK(t *testing.T) {
	t.Run("KeepsSmallest", func(t *testing.T) {
		q := NewTopK(3)
		for i, d := range []float64{0.9, 0.1, 0.5, 0.3, 0.7} {
			q.Push(i, d)
		}
		got := q.Sorted()
		require.Len(t, got, 3)
		assert.Equal(t, []int{1, 3, 2}, rows(got))

		worst, ok := q.Worst()
		require.True(t, ok)
		assert.Equal(t, 2, worst.Row)
	})

	t.Run("TiesByRowOrder", func(t *testing.T) {
		q := NewTopK(2)
		for i := range 5 {
			q.Push(i, 1.0)
		}
		assert.Equal(t, []int{0, 1}, rows(q.Sorted()))
	})

	t.Run("InfinityRanksLast", func(t *testing.T) {
		q := NewTopK(2)
		q.Push(0, math.Inf(1))
		q.Push(1, 4)
		q.Push(2, math.Inf(1))
		assert.Equal(t, []int{1, 0}, rows(q.Sorted()))
	})

	t.Run("IgnoresNaN", func(t *testing.T) {
		q := NewTopK(2)
		q.Push(0, math.NaN())
		q.Push(1, 0.2)
		assert.Equal(t, 1, q.Len())
	})

	t.Run("ZeroK", func(t *testing.T) {
		q := NewTopK(0)
		q.Push(0, 0)
		assert.Equal(t, 0, q.Len())
		_, ok := q.Worst()
		assert.False(t, ok)
	})

	t.Run("Reset", func(t *testing.T) {
		q := NewTopK(1)
		q.Push(0, 1)
		q.Reset(2)
		assert.Equal(t, 0, q.Len())
		q.Push(5, 3)
		q.Push(6, 2)
		assert.Equal(t, []int{6, 5}, rows(q.Sorted()))
	})
}

func TestNearestMatchesStableSort(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	dist := make([]float64, 200)
	for i := range dist {
		// Coarse values force plenty of ties.
		dist[i] = float64(rng.Intn(10))
	}

	order := make([]int, len(dist))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return dist[order[a]] < dist[order[b]] })

	for _, k := range []int{1, 5, 17, 200, 300} {
		got := Nearest(dist, k, nil)
		want := order[:min(k, len(order))]
		assert.Equal(t, want, rows(got), "k=%d", k)
	}
}

func TestNearestSkip(t *testing.T) {
	dist := []float64{0.1, 0.2, 0.3}
	got := Nearest(dist, 2, func(row int) bool { return row == 0 })
	assert.Equal(t, []int{1, 2}, rows(got))
}

func rows(items []Item) []int {
	out := make([]int, len(items))
	for i, it := range items {
		out[i] = it.Row
	}
	return out
}
