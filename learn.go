package knn

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/hupe1980/knn/distance"
	"github.com/hupe1980/knn/prototype"
)

// Learn stores v as a prototype of category and returns the resulting row
// count. Inputs rejected by policy (too sparse, a near duplicate, or an
// exact duplicate that only relabels its match) leave the count unchanged
// and are not errors.
func (c *Classifier) Learn(v []float32, category int, opts ...LearnOption) (int, error) {
	return c.learn(prototype.Dense(v), category, opts)
}

// LearnSparse learns a binary vector of the given width given by the
// strictly ascending positions of its active bits.
func (c *Classifier) LearnSparse(indices []int, width, category int, opts ...LearnOption) (int, error) {
	v, err := prototype.NewSparse(indices, width)
	if err != nil {
		return c.store.RowCount(), translateError(err)
	}
	return c.learn(v, category, opts)
}

func (c *Classifier) learn(v prototype.Vector, category int, optFns []LearnOption) (rows int, err error) {
	start := time.Now()
	added := false
	defer func() {
		c.metrics.RecordLearn(time.Since(start), added, err)
		c.logger.LogLearn(context.Background(), category, rows, added, err)
	}()

	lo := learnOptions{partition: prototype.NoPartition}
	for _, fn := range optFns {
		fn(&lo)
	}
	if !lo.hasRowID {
		lo.rowID = c.iteration
	}
	rows = c.store.RowCount()

	if category < 0 {
		return rows, fmt.Errorf("%w: %d", ErrInvalidCategory, category)
	}
	if lo.partition < 0 && lo.partition != prototype.NoPartition {
		return rows, fmt.Errorf("%w: %d", ErrInvalidPartition, lo.partition)
	}
	if err := c.checkInputWidth(v.Width()); err != nil {
		return rows, err
	}

	x := v.Dense()
	if c.specificIndexTraining && len(c.nextTrainingIndices) == 0 {
		return rows, nil
	}

	if c.proj.Active() {
		if x, err = c.proj.Project(x); err != nil {
			return rows, translateError(err)
		}
	}
	if c.store.Sparse() {
		x = c.sparsify(x, true)
		if c.opts.cellsPerCol >= 1 {
			if err := keepFirstActiveCell(x, c.opts.cellsPerCol); err != nil {
				return rows, err
			}
		}
	}

	if c.specificIndexTraining {
		if c.tooSparse(x) {
			return rows, nil
		}
		idx := c.nextTrainingIndices[0]
		c.nextTrainingIndices = c.nextTrainingIndices[1:]
		if err := c.store.PutRow(idx, prototype.Dense(x), category, lo.partition, lo.rowID); err != nil {
			return rows, translateError(err)
		}
		added = true
	} else if c.admit(x, category, lo.rowID) {
		if _, err := c.store.AddRow(prototype.Dense(x), category, lo.partition, lo.rowID); err != nil {
			return rows, translateError(err)
		}
		added = true
		if err := c.evict(); err != nil {
			return c.store.RowCount(), err
		}
	}

	if err := c.maybeComputeSVD(); err != nil {
		return c.store.RowCount(), err
	}
	return c.store.RowCount(), nil
}

// checkInputWidth validates an input width against the width fixed by the
// first learned row.
func (c *Classifier) checkInputWidth(width int) error {
	if width <= 0 {
		return &ErrDimensionMismatch{Expected: max(c.InputWidth(), 1), Actual: width}
	}
	if want := c.InputWidth(); want != 0 && want != width {
		return &ErrDimensionMismatch{Expected: want, Actual: width}
	}
	return nil
}

// admit applies duplicate replacement, the distance threshold and the
// minimum sparsity of the shaped input x. It reports whether x should be
// stored as a new row.
func (c *Classifier) admit(x []float32, category int, rowID int64) bool {
	if c.store.RowCount() == 0 {
		return !c.tooSparse(x)
	}
	add := true
	if c.opts.replaceDuplicates {
		dist := distance.DuplicateDistances(c.store, x, nil)
		if i := argmin(dist); dist[i] == 0 {
			_ = c.store.SetCategory(i, category)
			if c.opts.fixedCapacity() {
				_ = c.store.SetRecency(i, rowID)
			}
			add = false
		}
	}
	if c.opts.distThreshold > 0 {
		dist := c.engine.Distances(c.store, x, nil)
		if i := argmin(dist); dist[i] < c.opts.distThreshold {
			if c.opts.fixedCapacity() {
				_ = c.store.SetRecency(i, rowID)
			}
			add = false
		}
	}
	return add && !c.tooSparse(x)
}

// tooSparse reports whether x has fewer non-zero entries than the
// configured minimum sparsity.
func (c *Classifier) tooSparse(x []float32) bool {
	return c.opts.minSparsity > 0 && sparsity(x) < c.opts.minSparsity
}

// evict removes least recent rows until the store is within capacity.
func (c *Classifier) evict() error {
	if !c.opts.fixedCapacity() {
		return nil
	}
	for c.store.RowCount() > c.opts.maxStoredPatterns {
		row, ok := c.store.LeastRecent()
		if !ok {
			return nil
		}
		recency, _ := c.store.Recency(row)
		if _, err := c.store.RemoveRows([]int{row}); err != nil {
			return translateError(err)
		}
		c.metrics.RecordEviction()
		c.logger.LogEviction(context.Background(), row, recency)
	}
	return nil
}

// sparsify applies the sparse threshold, optionally the winner rule, and
// binarization to x in place.
func (c *Classifier) sparsify(x []float32, doWinners bool) []float32 {
	thr := c.opts.sparseThreshold
	apply := true
	if c.opts.relativeThreshold {
		var hi float64
		for _, v := range x {
			hi = max(hi, math.Abs(float64(v)))
		}
		thr *= hi
		apply = c.opts.sparseThreshold > 0
	}
	if apply {
		for i, v := range x {
			if math.Abs(float64(v)) <= thr {
				x[i] = 0
			}
		}
	}

	if doWinners && c.opts.numWinners > 0 {
		keepWinners(x, c.opts.numWinners)
	}

	if c.opts.doBinarization {
		for i, v := range x {
			if float64(v) > c.opts.binarizationThreshold {
				x[i] = 1
			} else {
				x[i] = 0
			}
		}
	}
	return x
}

// keepWinners zeroes all but the n largest values of x when more than n
// values are positive. Ties keep the lower index.
func keepWinners(x []float32, n int) {
	positive := 0
	for _, v := range x {
		if v > 0 {
			positive++
		}
	}
	if n >= positive {
		return
	}
	order := make([]int, len(x))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case x[a] > x[b]:
			return -1
		case x[a] < x[b]:
			return 1
		default:
			return 0
		}
	})
	for _, i := range order[n:] {
		x[i] = 0
	}
}

// keepFirstActiveCell treats x as columns of cellsPerCol cells and, in
// every column with more than one active cell, keeps only the first one.
func keepFirstActiveCell(x []float32, cellsPerCol int) error {
	if len(x)%cellsPerCol != 0 {
		return fmt.Errorf("%w: width %d is not a multiple of cellsPerCol %d", ErrInvalidOption, len(x), cellsPerCol)
	}
	for col := 0; col < len(x); col += cellsPerCol {
		cells := x[col : col+cellsPerCol]
		first := -1
		active := 0
		for i, v := range cells {
			if v != 0 {
				active++
				if first < 0 {
					first = i
				}
			}
		}
		if active <= 1 {
			continue
		}
		for i := range cells {
			if i != first {
				cells[i] = 0
			}
		}
	}
	return nil
}

func sparsity(x []float32) float64 {
	if len(x) == 0 {
		return 0
	}
	nz := 0
	for _, v := range x {
		if v != 0 {
			nz++
		}
	}
	return float64(nz) / float64(len(x))
}

// argmin returns the index of the smallest value, the first on ties.
func argmin(v []float64) int {
	best := 0
	for i, d := range v {
		if d < v[best] {
			best = i
		}
	}
	return best
}
