package knn

import (
	"context"
	"math"
	"time"

	"github.com/hupe1980/knn/internal/queue"
)

// exactTolerance is the distance below which a row counts as an exact match.
const exactTolerance = 1e-5

// InferResult is the outcome of an inference.
type InferResult struct {
	// Winner is the category with the most votes, NoWinner without votes.
	Winner int

	// Votes holds the vote fraction per category (index = category).
	// It sums to 1 when any neighbor voted and is all zero otherwise.
	Votes []float64

	// Distances holds the distance from the query to every stored row.
	Distances []float64

	// CategoryDistances holds, per category, the smallest distance to any
	// row of that category, clipped to [0, 1]. Categories without rows
	// report 1.
	CategoryDistances []float64
}

// placeholderResult is returned for an empty store or a too sparse query.
func placeholderResult() InferResult {
	return InferResult{
		Winner:            NoWinner,
		Votes:             []float64{0},
		Distances:         []float64{1},
		CategoryDistances: []float64{1},
	}
}

// Neighbor is a stored row ranked against a query.
type Neighbor struct {
	Row      int
	Category int
	Distance float64
}

// Infer classifies v by a vote of its k nearest stored rows.
//
// Rows labelled -1 and rows of an excluded partition never vote. With exact
// mode only rows closer than 1e-5 vote, taken in row order. An empty
// classifier, or a query sparser than the configured minimum, yields a
// placeholder result without a winner rather than an error. Infer does not
// modify the classifier; a pending SVD is applied by FinishLearning.
func (c *Classifier) Infer(v []float32, opts ...InferOption) (res InferResult, err error) {
	start := time.Now()
	defer func() {
		c.metrics.RecordInfer(time.Since(start), err)
		c.logger.LogInfer(context.Background(), res.Winner, c.store.RowCount(), err)
	}()

	if c.store.RowCount() == 0 {
		return placeholderResult(), nil
	}
	if err := c.checkInputWidth(len(v)); err != nil {
		return InferResult{Winner: NoWinner}, err
	}
	if c.tooSparse(v) {
		return placeholderResult(), nil
	}

	dist, err := c.distances(v, opts)
	if err != nil {
		return InferResult{Winner: NoWinner}, err
	}
	cats := c.store.Categories()
	votes := make([]float64, max(c.store.MaxCategory()+1, 1))

	for _, n := range c.neighbors(dist, cats) {
		votes[n.Category]++
	}

	winner := NoWinner
	var total float64
	for i, v := range votes {
		total += v
		if v > 0 && (winner == NoWinner || v > votes[winner]) {
			winner = i
		}
	}
	if total > 0 {
		for i := range votes {
			votes[i] /= total
		}
	}

	return InferResult{
		Winner:            winner,
		Votes:             votes,
		Distances:         dist,
		CategoryDistances: minDistancePerCategory(len(votes), cats, dist),
	}, nil
}

// neighbors returns the voting rows: the k nearest, or in exact mode up to
// k exact matches in row order.
func (c *Classifier) neighbors(dist []float64, cats []int) []Neighbor {
	skip := func(i int) bool { return cats[i] < 0 || math.IsInf(dist[i], 1) }

	var out []Neighbor
	if c.opts.exact {
		for i, d := range dist {
			if len(out) == c.opts.k {
				break
			}
			if !skip(i) && d < exactTolerance {
				out = append(out, Neighbor{Row: i, Category: cats[i], Distance: d})
			}
		}
		return out
	}
	for _, it := range queue.Nearest(dist, c.opts.k, skip) {
		out = append(out, Neighbor{Row: it.Row, Category: cats[it.Row], Distance: it.Distance})
	}
	return out
}

func minDistancePerCategory(n int, cats []int, dist []float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	for i, cat := range cats {
		if cat >= 0 && dist[i] < out[cat] {
			out[cat] = dist[i]
		}
	}
	for i, d := range out {
		out[i] = min(max(d, 0), 1)
	}
	return out
}

// prepareQuery validates and transforms a query the way stored rows were
// transformed: projection, then thresholding and binarization in sparse
// memory.
func (c *Classifier) prepareQuery(v []float32) ([]float32, error) {
	if err := c.checkInputWidth(len(v)); err != nil {
		return nil, err
	}
	var q []float32
	if c.proj.Active() {
		p, err := c.proj.Project(v)
		if err != nil {
			return nil, translateError(err)
		}
		q = p
	} else {
		q = append([]float32(nil), v...)
	}
	if c.store.Sparse() {
		q = c.sparsify(q, false)
	}
	return q, nil
}

// distances scores v against every row. Placeholder rows and rows of an
// excluded partition are set to +Inf.
func (c *Classifier) distances(v []float32, optFns []InferOption) ([]float64, error) {
	var qo inferOptions
	for _, fn := range optFns {
		fn(&qo)
	}
	q, err := c.prepareQuery(v)
	if err != nil {
		return nil, err
	}
	dist := c.engine.Distances(c.store, q, nil)
	for i, cat := range c.store.Categories() {
		if cat < 0 {
			dist[i] = math.Inf(1)
		}
	}
	if qo.hasExcluded {
		for _, r := range c.store.RowsWithPartition(qo.excluded) {
			dist[r] = math.Inf(1)
		}
	}
	return dist, nil
}

// Distances returns the distance from v to every row along with the row
// categories.
func (c *Classifier) Distances(v []float32, opts ...InferOption) ([]float64, []int, error) {
	if c.store.RowCount() == 0 {
		return nil, nil, nil
	}
	dist, err := c.distances(v, opts)
	if err != nil {
		return nil, nil, err
	}
	return dist, c.store.Categories(), nil
}

// Overlaps returns the overlap of v with every row along with the row
// categories.
func (c *Classifier) Overlaps(v []float32) ([]float64, []int, error) {
	if c.store.RowCount() == 0 {
		return nil, nil, nil
	}
	q, err := c.prepareQuery(v)
	if err != nil {
		return nil, nil, err
	}
	return c.engine.Overlaps(c.store, q, nil), c.store.Categories(), nil
}

// ClosestResult is the outcome of Closest.
type ClosestResult struct {
	// Winner is the category voted by the k nearest rows.
	Winner int

	// Distances holds the distance from the query to every stored row.
	Distances []float64

	// Top holds the topK nearest rows, nearest first.
	Top []Neighbor
}

// Closest returns the k-nearest vote together with the topK nearest rows.
// ok is false when no row can vote.
func (c *Classifier) Closest(v []float32, topK int) (res ClosestResult, ok bool, err error) {
	if c.store.RowCount() == 0 {
		return ClosestResult{Winner: NoWinner}, false, nil
	}
	dist, err := c.distances(v, nil)
	if err != nil {
		return ClosestResult{Winner: NoWinner}, false, err
	}
	cats := c.store.Categories()

	votes := make([]int, max(c.store.MaxCategory()+1, 1))
	for _, n := range c.neighbors(dist, cats) {
		votes[n.Category]++
	}
	res = ClosestResult{Winner: NoWinner, Distances: dist}
	for i, n := range votes {
		if n > 0 && (res.Winner == NoWinner || n > votes[res.Winner]) {
			res.Winner = i
		}
	}

	skip := func(i int) bool { return cats[i] < 0 || math.IsInf(dist[i], 1) }
	for _, it := range queue.Nearest(dist, topK, skip) {
		res.Top = append(res.Top, Neighbor{Row: it.Row, Category: cats[it.Row], Distance: it.Distance})
	}
	return res, res.Winner != NoWinner, nil
}

// Match is a stored row returned by a closest-pattern query.
type Match struct {
	Neighbor
	Pattern []float32
}

// ClosestTrainingPattern returns the nearest row labelled category.
func (c *Classifier) ClosestTrainingPattern(v []float32, category int) (Match, bool, error) {
	return c.closestWhere(v, func(cat int) bool { return cat == category })
}

// ClosestOtherTrainingPattern returns the nearest row not labelled category.
func (c *Classifier) ClosestOtherTrainingPattern(v []float32, category int) (Match, bool, error) {
	return c.closestWhere(v, func(cat int) bool { return cat >= 0 && cat != category })
}

func (c *Classifier) closestWhere(v []float32, keep func(cat int) bool) (Match, bool, error) {
	if c.store.RowCount() == 0 {
		return Match{}, false, nil
	}
	dist, err := c.distances(v, nil)
	if err != nil {
		return Match{}, false, err
	}
	best := -1
	for i, cat := range c.store.Categories() {
		if !keep(cat) || math.IsInf(dist[i], 1) {
			continue
		}
		if best < 0 || dist[i] < dist[best] {
			best = i
		}
	}
	if best < 0 {
		return Match{}, false, nil
	}
	pattern, err := c.store.Row(best)
	if err != nil {
		return Match{}, false, translateError(err)
	}
	cat, _ := c.store.Category(best)
	return Match{
		Neighbor: Neighbor{Row: best, Category: cat, Distance: dist[best]},
		Pattern:  pattern,
	}, true, nil
}
