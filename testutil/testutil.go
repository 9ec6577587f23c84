package testutil

import (
	"math"
	"math/rand"
	"slices"
	"sort"
	"sync"
)

// SearchResult is a row ranked by squared L2 distance.
type SearchResult struct {
	Row      int
	Distance float64
}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// Perm returns a pseudo-random permutation of [0,n).
func (r *RNG) Perm(n int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Perm(n)
}

// FillUniform fills dst with random values in range [0, 1).
// Locks only once per call (preferred over calling Float32 in a loop).
func (r *RNG) FillUniform(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float32()
	}
}

// UniformVectors generates random vectors with values in range [0, 1).
// Uses a single backing array for efficiency.
func (r *RNG) UniformVectors(num int, dimensions int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dimensions)
	vectors := make([][]float32, num)

	for i := range num {
		vec := data[i*dimensions : (i+1)*dimensions]
		for j := range vec {
			vec[j] = r.rand.Float32()
		}
		vectors[i] = vec
	}

	return vectors
}

// GaussianVectors generates random vectors with values from a standard normal distribution.
func (r *RNG) GaussianVectors(num int, dimensions int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dimensions)
	vectors := make([][]float32, num)

	for i := range num {
		vec := data[i*dimensions : (i+1)*dimensions]
		for j := range vec {
			vec[j] = float32(r.rand.NormFloat64())
		}
		vectors[i] = vec
	}

	return vectors
}

// SparseIndices returns active distinct positions below width in ascending
// order. active is clamped to width.
func (r *RNG) SparseIndices(width, active int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	active = min(active, width)
	idx := r.rand.Perm(width)[:active]
	slices.Sort(idx)
	return idx
}

// BinaryVector returns a dense 0/1 vector of width with active ones.
func (r *RNG) BinaryVector(width, active int) []float32 {
	v := make([]float32, width)
	for _, i := range r.SparseIndices(width, active) {
		v[i] = 1
	}
	return v
}

// LabelledClusters generates num vectors around clusters centroids in
// [0, 1)^dim with Gaussian noise of the given spread. Vector i belongs to
// cluster i%clusters, which is returned as its label.
func (r *RNG) LabelledClusters(num, dim, clusters int, spread float32) ([][]float32, []int) {
	centroids := r.UniformVectors(clusters, dim)

	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dim)
	vectors := make([][]float32, num)
	labels := make([]int, num)

	for i := range num {
		centroid := centroids[i%clusters]
		vec := data[i*dim : (i+1)*dim]

		for j := range dim {
			// Add Gaussian noise to centroid
			vec[j] = centroid[j] + float32(r.rand.NormFloat64())*spread
		}
		vectors[i] = vec
		labels[i] = i % clusters
	}

	return vectors, labels
}

// BruteForceSearch performs exact search for ground truth. Ties keep the
// lower row first.
func BruteForceSearch(vectors [][]float32, query []float32, k int) []SearchResult {
	results := make([]SearchResult, len(vectors))
	for i, v := range vectors {
		results[i] = SearchResult{Row: i, Distance: SquaredL2(query, v)}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}

// SquaredL2 returns the squared Euclidean distance of a and b, which must
// have the same length.
func SquaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// Accuracy returns the fraction of predicted labels equal to want.
func Accuracy(predicted, want []int) float64 {
	if len(want) == 0 {
		return math.NaN()
	}
	hits := 0
	for i := range want {
		if predicted[i] == want[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(want))
}
