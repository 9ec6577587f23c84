package knn

import (
	"context"
	"slices"
	"time"

	"github.com/hupe1980/knn/distance"
	"github.com/hupe1980/knn/prototype"
	"github.com/hupe1980/knn/svd"
)

// Version is the classifier state version written into snapshots.
const Version = 1

// NoWinner is the winner of an inference without votes.
const NoWinner = -1

// svdState tracks the one-way SVD lifecycle.
type svdState uint8

const (
	svdEmpty svdState = iota
	svdPending
	svdFinalized
	svdSkipped
)

func (s svdState) String() string {
	switch s {
	case svdEmpty:
		return "empty"
	case svdPending:
		return "pending"
	case svdFinalized:
		return "finalized"
	case svdSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Classifier is an online k-nearest-neighbor classifier over labelled
// prototype rows.
//
// Writers (Learn, removals, relabelling, SVD control, Clear) must be
// serialized by the caller. Read-only methods, including Infer and
// InferBatch, may run concurrently with each other while no writer runs.
type Classifier struct {
	opts    options
	store   *prototype.Store
	engine  *distance.Engine
	proj    *svd.Projector
	svd     svdState
	svdDims int

	iteration        int64
	finishedLearning bool

	specificIndexTraining bool
	nextTrainingIndices   []int

	logger  *Logger
	metrics MetricsCollector
}

// New creates an empty classifier.
func New(optFns ...Option) (*Classifier, error) {
	o := applyOptions(optFns)
	if err := o.validate(); err != nil {
		return nil, err
	}
	engine, err := distance.NewEngine(o.distanceMethod, o.distanceNorm)
	if err != nil {
		return nil, translateError(err)
	}
	c := &Classifier{
		opts:    o,
		engine:  engine,
		logger:  o.logger.WithK(o.k).WithMethod(o.distanceMethod.String()),
		metrics: o.metricsCollector,
	}
	c.reset()
	return c, nil
}

func (c *Classifier) newStore() *prototype.Store {
	return prototype.New(func(po *prototype.Options) {
		po.Sparse = c.opts.useSparseMemory
		po.InitialCapacity = c.opts.initialCapacity
	})
}

func (c *Classifier) reset() {
	c.store = c.newStore()
	c.proj = svd.New()
	c.svd = svdEmpty
	c.svdDims = 0
	c.iteration = -1
	c.finishedLearning = false
	c.specificIndexTraining = false
	c.nextTrainingIndices = nil
}

// Clear removes all rows and the SVD projection and restores the configured
// row representation.
func (c *Classifier) Clear() {
	c.reset()
}

// DoIteration advances the iteration index used as the default row id.
func (c *Classifier) DoIteration() {
	c.iteration++
}

// Iteration returns the current iteration index, -1 before the first DoIteration.
func (c *Classifier) Iteration() int64 { return c.iteration }

// K returns the configured neighbor count.
func (c *Classifier) K() int { return c.opts.k }

// RowCount returns the number of stored prototypes.
func (c *Classifier) RowCount() int { return c.store.RowCount() }

// Width returns the stored row width, which is the projected width once an
// SVD projection is active.
func (c *Classifier) Width() int { return c.store.Width() }

// InputWidth returns the width expected from Learn and Infer inputs, or 0
// before the first row.
func (c *Classifier) InputWidth() int {
	if c.proj.Active() {
		return c.proj.InputWidth()
	}
	return c.store.Width()
}

// SparseMemory reports whether rows are currently kept sparse.
func (c *Classifier) SparseMemory() bool { return c.store.Sparse() }

// Categories returns the per-row categories.
func (c *Classifier) Categories() []int { return c.store.Categories() }

// Pattern returns a dense copy of stored row i.
func (c *Classifier) Pattern(i int) ([]float32, error) {
	row, err := c.store.Row(i)
	return row, translateError(err)
}

// PatternNonZeros returns the non-zero positions of stored row i.
func (c *Classifier) PatternNonZeros(i int) ([]int, error) {
	nz, err := c.store.RowNonZeros(i)
	return nz, translateError(err)
}

// FirstPatternOfCategory returns the first row labelled category.
func (c *Classifier) FirstPatternOfCategory(category int) (int, bool) {
	i := slices.Index(c.store.Categories(), category)
	return i, i >= 0
}

// PartitionID returns the partition id of row i, prototype.NoPartition when
// the row has none.
func (c *Classifier) PartitionID(i int) (int64, error) {
	pid, err := c.store.PartitionID(i)
	return pid, translateError(err)
}

// PartitionIDs returns the per-row partition ids.
func (c *Classifier) PartitionIDs() []int64 { return c.store.Partitions() }

// PartitionIDKeys returns the distinct partition ids in ascending order.
func (c *Classifier) PartitionIDKeys() []int64 { return c.store.PartitionKeys() }

// NumPartitionIDs returns the number of distinct partition ids.
func (c *Classifier) NumPartitionIDs() int { return c.store.NumPartitions() }

// PatternIndicesWithPartitionID returns the rows tagged with pid.
func (c *Classifier) PatternIndicesWithPartitionID(pid int64) []int {
	return c.store.RowsWithPartition(pid)
}

// SetCategory relabels row i.
func (c *Classifier) SetCategory(i, category int) error {
	return translateError(c.store.SetCategory(i, category))
}

// SetCategoryOfVectors relabels several rows. categories has either one
// entry per index or a single entry applied to all of them. Nothing changes
// when any index is out of range.
func (c *Classifier) SetCategoryOfVectors(indices, categories []int) error {
	if len(categories) != len(indices) && len(categories) != 1 {
		return invalid("categories", len(categories))
	}
	for _, i := range indices {
		if i < 0 || i >= c.store.RowCount() {
			return ErrIndexOutOfRange
		}
	}
	for k, i := range indices {
		cat := categories[0]
		if len(categories) > 1 {
			cat = categories[k]
		}
		if err := c.store.SetCategory(i, cat); err != nil {
			return translateError(err)
		}
	}
	return nil
}

// PrototypeSetCategory relabels the first row whose row id is id and
// reports whether such a row exists.
func (c *Classifier) PrototypeSetCategory(id int64, category int) bool {
	i := slices.Index(c.store.Recencies(), id)
	if i < 0 {
		return false
	}
	_ = c.store.SetCategory(i, category)
	return true
}

// RemapCategories replaces every category c >= 0 with mapping[c].
// Placeholder rows (category -1) are unchanged.
func (c *Classifier) RemapCategories(mapping []int) error {
	cats := c.store.Categories()
	for _, cat := range cats {
		if cat >= len(mapping) {
			return ErrInvalidCategory
		}
	}
	for i, cat := range cats {
		if cat < 0 {
			continue
		}
		_ = c.store.SetCategory(i, mapping[cat])
	}
	return nil
}

// RemoveIDs removes every row whose row id is listed and returns the number
// of rows removed.
func (c *Classifier) RemoveIDs(ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	var rows []int
	for i, r := range c.store.Recencies() {
		if _, ok := set[r]; ok {
			rows = append(rows, i)
		}
	}
	return c.removeRows(rows)
}

// RemoveCategory removes every row labelled category and returns the number
// of rows removed.
func (c *Classifier) RemoveCategory(category int) (int, error) {
	var rows []int
	for i, cat := range c.store.Categories() {
		if cat == category {
			rows = append(rows, i)
		}
	}
	return c.removeRows(rows)
}

// RemoveRows removes the listed rows. Order and duplicates do not matter.
func (c *Classifier) RemoveRows(rows []int) (int, error) {
	return c.removeRows(rows)
}

func (c *Classifier) removeRows(rows []int) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	start := time.Now()
	removed, err := c.store.RemoveRows(rows)
	if err != nil {
		return 0, translateError(err)
	}
	c.metrics.RecordRemove(removed, time.Since(start))
	c.logger.LogRemove(context.Background(), removed, c.store.RowCount())
	return removed, nil
}

// SetNextTrainingIndices switches to specific-index training: each following
// Learn call writes its row at the next listed index, padding skipped rows
// with placeholders of category -1. Once the list is used up Learn ignores
// its input. A nil list switches back to appending. Requires dense memory.
func (c *Classifier) SetNextTrainingIndices(indices []int) error {
	if indices == nil {
		c.specificIndexTraining = false
		c.nextTrainingIndices = nil
		return nil
	}
	if c.store.Sparse() {
		return ErrDenseMemoryRequired
	}
	for _, i := range indices {
		if i < 0 {
			return ErrIndexOutOfRange
		}
	}
	c.specificIndexTraining = true
	c.nextTrainingIndices = slices.Clone(indices)
	return nil
}

// Stats describes the classifier state.
type Stats struct {
	Rows             int
	Width            int
	InputWidth       int
	SparseMemory     bool
	Categories       int
	Partitions       int
	SVD              string
	SVDDims          int
	Iteration        int64
	FinishedLearning bool
}

// Stats returns a summary of the classifier state.
func (c *Classifier) Stats() Stats {
	distinct := make(map[int]struct{})
	for _, cat := range c.store.Categories() {
		if cat >= 0 {
			distinct[cat] = struct{}{}
		}
	}
	return Stats{
		Rows:             c.store.RowCount(),
		Width:            c.store.Width(),
		InputWidth:       c.InputWidth(),
		SparseMemory:     c.store.Sparse(),
		Categories:       len(distinct),
		Partitions:       c.store.NumPartitions(),
		SVD:              c.svd.String(),
		SVDDims:          c.svdDims,
		Iteration:        c.iteration,
		FinishedLearning: c.finishedLearning,
	}
}
