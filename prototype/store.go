package prototype

import (
	"math"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bits-and-blooms/bitset"

	"github.com/hupe1980/knn/distance"
)

// NoPartition marks a row without a partition id.
const NoPartition int64 = -1

// DefaultInitialCapacity is the number of dense rows reserved by the first insert.
const DefaultInitialCapacity = 100

// Options configures a Store.
type Options struct {
	// Sparse selects the sparse row representation.
	Sparse bool

	// InitialCapacity is the dense row reservation made on first insert.
	InitialCapacity int
}

// Store holds prototype rows and their parallel metadata.
type Store struct {
	sparse  bool
	initCap int
	width   int
	n       int

	// dense representation, row-major
	data []float32

	// sparse representation
	indices [][]int32
	values  [][]float32

	categories []int
	partitions []int64
	recency    []int64
	sums       []float64

	partIndex map[int64]*roaring.Bitmap
}

// New creates an empty store.
func New(optFns ...func(o *Options)) *Store {
	opts := Options{
		Sparse:          true,
		InitialCapacity: DefaultInitialCapacity,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.InitialCapacity <= 0 {
		opts.InitialCapacity = DefaultInitialCapacity
	}
	return &Store{
		sparse:    opts.Sparse,
		initCap:   opts.InitialCapacity,
		partIndex: make(map[int64]*roaring.Bitmap),
	}
}

// RowCount returns the number of stored rows.
func (s *Store) RowCount() int { return s.n }

// Width returns the row width, or 0 before the first row is stored.
func (s *Store) Width() int { return s.width }

// Sparse reports whether rows are kept in the sparse representation.
func (s *Store) Sparse() bool { return s.sparse }

func (s *Store) checkWidth(v Vector) error {
	if v.Width() <= 0 {
		return ErrEmptyVector
	}
	if s.width != 0 && v.Width() != s.width {
		return &ErrDimensionMismatch{Expected: s.width, Actual: v.Width()}
	}
	return nil
}

func checkPartition(pid int64) error {
	if pid < 0 && pid != NoPartition {
		return ErrInvalidPartition
	}
	return nil
}

// AddRow appends a row and returns its index.
func (s *Store) AddRow(v Vector, category int, partition int64, recency int64) (int, error) {
	if err := s.checkWidth(v); err != nil {
		return 0, err
	}
	if err := checkPartition(partition); err != nil {
		return 0, err
	}
	s.width = v.Width()

	row := s.n
	if s.sparse {
		idx, val := v.nonZeros()
		s.indices = append(s.indices, idx)
		s.values = append(s.values, val)
		s.sums = append(s.sums, sum(val))
	} else {
		s.grow(1)
		dst := s.data[row*s.width : (row+1)*s.width]
		if v.IsSparse() {
			clear(dst)
			for i, j := range v.indices {
				dst[j] = v.value(i)
			}
		} else {
			copy(dst, v.dense)
		}
		s.sums = append(s.sums, sum(dst))
	}
	s.categories = append(s.categories, category)
	s.partitions = append(s.partitions, partition)
	s.recency = append(s.recency, recency)
	s.n++
	s.indexPartition(row, partition)
	return row, nil
}

// PutRow writes a row at a specific index. Indices beyond the end are
// reached by padding with zero rows of category -1.
func (s *Store) PutRow(index int, v Vector, category int, partition int64, recency int64) error {
	if index < 0 {
		return ErrIndexOutOfRange
	}
	if err := s.checkWidth(v); err != nil {
		return err
	}
	if err := checkPartition(partition); err != nil {
		return err
	}
	s.width = v.Width()

	zero := Dense(make([]float32, s.width))
	for s.n <= index {
		if _, err := s.AddRow(zero, -1, NoPartition, -1); err != nil {
			return err
		}
	}

	if s.sparse {
		idx, val := v.nonZeros()
		s.indices[index] = idx
		s.values[index] = val
		s.sums[index] = sum(val)
	} else {
		dst := s.data[index*s.width : (index+1)*s.width]
		clear(dst)
		if v.IsSparse() {
			for i, j := range v.indices {
				dst[j] = v.value(i)
			}
		} else {
			copy(dst, v.dense)
		}
		s.sums[index] = sum(dst)
	}
	s.categories[index] = category
	s.recency[index] = recency
	if old := s.partitions[index]; old != partition {
		s.unindexPartition(index, old)
		s.partitions[index] = partition
		s.indexPartition(index, partition)
	}
	return nil
}

// grow makes room for extra dense rows, doubling the buffer as needed.
func (s *Store) grow(extra int) {
	need := (s.n + extra) * s.width
	if need <= cap(s.data) {
		s.data = s.data[:need]
		return
	}
	newCap := max(2*cap(s.data), s.initCap*s.width, need)
	buf := make([]float32, need, newCap)
	copy(buf, s.data)
	s.data = buf
}

// Row returns a dense copy of row i.
func (s *Store) Row(i int) ([]float32, error) {
	if i < 0 || i >= s.n {
		return nil, ErrIndexOutOfRange
	}
	out := make([]float32, s.width)
	if s.sparse {
		for k, j := range s.indices[i] {
			out[j] = s.values[i][k]
		}
		return out, nil
	}
	copy(out, s.data[i*s.width:(i+1)*s.width])
	return out, nil
}

// RowNonZeros returns the positions of the non-zero entries of row i.
func (s *Store) RowNonZeros(i int) ([]int, error) {
	if i < 0 || i >= s.n {
		return nil, ErrIndexOutOfRange
	}
	var out []int
	if s.sparse {
		out = make([]int, len(s.indices[i]))
		for k, j := range s.indices[i] {
			out[k] = int(j)
		}
		return out, nil
	}
	for j, x := range s.data[i*s.width : (i+1)*s.width] {
		if x != 0 {
			out = append(out, j)
		}
	}
	return out, nil
}

// DenseRows returns dense copies of all rows.
func (s *Store) DenseRows() [][]float32 {
	rows := make([][]float32, s.n)
	for i := range rows {
		rows[i], _ = s.Row(i)
	}
	return rows
}

// ReplaceRows swaps every row for the given dense rows of a new width and
// switches the store to the dense representation. Metadata is kept.
func (s *Store) ReplaceRows(width int, rows [][]float32) error {
	if width <= 0 {
		return ErrEmptyVector
	}
	if len(rows) != s.n {
		return ErrInvalidState
	}
	data := make([]float32, s.n*width, max(s.n, s.initCap)*width)
	sums := make([]float64, s.n)
	for i, r := range rows {
		if len(r) != width {
			return &ErrDimensionMismatch{Expected: width, Actual: len(r)}
		}
		copy(data[i*width:], r)
		sums[i] = sum(r)
	}
	s.sparse = false
	s.width = width
	s.data = data
	s.indices = nil
	s.values = nil
	s.sums = sums
	return nil
}

// RemoveRows deletes every listed row in one pass and returns the number of
// rows removed. Order and duplicates in indices do not matter. Metadata is
// filtered with the same index set and the partition index is rebuilt.
func (s *Store) RemoveRows(indices []int) (int, error) {
	if len(indices) == 0 {
		return 0, nil
	}
	marks := bitset.New(uint(s.n)) //nolint:gosec // n >= 0
	for _, i := range indices {
		if i < 0 || i >= s.n {
			return 0, ErrIndexOutOfRange
		}
		marks.Set(uint(i))
	}
	removed := int(marks.Count()) //nolint:gosec // bounded by n

	w := 0
	for r := 0; r < s.n; r++ {
		if marks.Test(uint(r)) { //nolint:gosec // r >= 0
			continue
		}
		if w != r {
			if s.sparse {
				s.indices[w] = s.indices[r]
				s.values[w] = s.values[r]
			} else {
				copy(s.data[w*s.width:(w+1)*s.width], s.data[r*s.width:(r+1)*s.width])
			}
			s.categories[w] = s.categories[r]
			s.partitions[w] = s.partitions[r]
			s.recency[w] = s.recency[r]
			s.sums[w] = s.sums[r]
		}
		w++
	}

	if s.sparse {
		clear(s.indices[w:])
		clear(s.values[w:])
		s.indices = s.indices[:w]
		s.values = s.values[:w]
	} else {
		s.data = s.data[:w*s.width]
	}
	s.categories = s.categories[:w]
	s.partitions = s.partitions[:w]
	s.recency = s.recency[:w]
	s.sums = s.sums[:w]
	s.n = w
	s.rebuildPartitionIndex()
	return removed, nil
}

// RowSums returns the per-row value sums. The slice is owned by the store
// and must not be modified.
func (s *Store) RowSums() []float64 { return s.sums }

// SumsAtNonZero writes, for every row, the sum of q at that row's non-zero
// positions into dst and returns it. For binary rows this is the overlap.
func (s *Store) SumsAtNonZero(q []float32, dst []float64) []float64 {
	dst = resize(dst, s.n)
	if s.sparse {
		for i, idx := range s.indices {
			var acc float64
			for _, j := range idx {
				acc += float64(q[j])
			}
			dst[i] = acc
		}
		return dst
	}
	for i := range s.n {
		row := s.data[i*s.width : (i+1)*s.width]
		var acc float64
		for j, x := range row {
			if x != 0 {
				acc += float64(q[j])
			}
		}
		dst[i] = acc
	}
	return dst
}

// LpDistances writes the unnormalized Lp distance from q to every row into
// dst and returns it. Sparse rows are merged against the non-zeros of q, so
// the result is exact and costs O(nnz(q) + nnz(row)) per row.
func (s *Store) LpDistances(q []float32, p float64, dst []float64) []float64 {
	dst = resize(dst, s.n)
	if !s.sparse {
		for i := range s.n {
			dst[i] = distance.Lp(q, s.data[i*s.width:(i+1)*s.width], p)
		}
		return dst
	}

	qIdx, qVal := compress(q)
	for i, rIdx := range s.indices {
		rVal := s.values[i]
		var acc float64
		a, b := 0, 0
		for a < len(qIdx) || b < len(rIdx) {
			switch {
			case b == len(rIdx) || (a < len(qIdx) && qIdx[a] < rIdx[b]):
				acc += distance.PowAbs(float64(qVal[a]), p)
				a++
			case a == len(qIdx) || rIdx[b] < qIdx[a]:
				acc += distance.PowAbs(float64(rVal[b]), p)
				b++
			default:
				acc += distance.PowAbs(float64(qVal[a])-float64(rVal[b]), p)
				a++
				b++
			}
		}
		dst[i] = distance.Root(acc, p)
	}
	return dst
}

// Category returns the category of row i.
func (s *Store) Category(i int) (int, error) {
	if i < 0 || i >= s.n {
		return 0, ErrIndexOutOfRange
	}
	return s.categories[i], nil
}

// SetCategory relabels row i.
func (s *Store) SetCategory(i, category int) error {
	if i < 0 || i >= s.n {
		return ErrIndexOutOfRange
	}
	s.categories[i] = category
	return nil
}

// Categories returns a copy of the per-row categories.
func (s *Store) Categories() []int { return slices.Clone(s.categories) }

// MaxCategory returns the largest stored category, or -1 for an empty store.
func (s *Store) MaxCategory() int {
	m := -1
	for _, c := range s.categories {
		m = max(m, c)
	}
	return m
}

// PartitionID returns the partition id of row i, NoPartition if it has none.
func (s *Store) PartitionID(i int) (int64, error) {
	if i < 0 || i >= s.n {
		return 0, ErrIndexOutOfRange
	}
	return s.partitions[i], nil
}

// Partitions returns a copy of the per-row partition ids.
func (s *Store) Partitions() []int64 { return slices.Clone(s.partitions) }

// RowsWithPartition returns the ascending row indices holding pid.
func (s *Store) RowsWithPartition(pid int64) []int {
	bm, ok := s.partIndex[pid]
	if !ok {
		return nil
	}
	out := make([]int, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}
	return out
}

// PartitionKeys returns the distinct partition ids in ascending order.
func (s *Store) PartitionKeys() []int64 {
	keys := make([]int64, 0, len(s.partIndex))
	for k := range s.partIndex {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// NumPartitions returns the number of distinct partition ids.
func (s *Store) NumPartitions() int { return len(s.partIndex) }

func (s *Store) indexPartition(row int, pid int64) {
	if pid == NoPartition {
		return
	}
	bm, ok := s.partIndex[pid]
	if !ok {
		bm = roaring.New()
		s.partIndex[pid] = bm
	}
	bm.Add(uint32(row)) //nolint:gosec // row count fits uint32
}

func (s *Store) unindexPartition(row int, pid int64) {
	bm, ok := s.partIndex[pid]
	if !ok {
		return
	}
	bm.Remove(uint32(row)) //nolint:gosec // row count fits uint32
	if bm.IsEmpty() {
		delete(s.partIndex, pid)
	}
}

func (s *Store) rebuildPartitionIndex() {
	clear(s.partIndex)
	for i, pid := range s.partitions {
		s.indexPartition(i, pid)
	}
}

// Recency returns the recency value of row i.
func (s *Store) Recency(i int) (int64, error) {
	if i < 0 || i >= s.n {
		return 0, ErrIndexOutOfRange
	}
	return s.recency[i], nil
}

// SetRecency updates the recency value of row i.
func (s *Store) SetRecency(i int, r int64) error {
	if i < 0 || i >= s.n {
		return ErrIndexOutOfRange
	}
	s.recency[i] = r
	return nil
}

// Recencies returns a copy of the per-row recency values.
func (s *Store) Recencies() []int64 { return slices.Clone(s.recency) }

// LeastRecent returns the row with the smallest recency value, the lowest
// index on ties. ok is false for an empty store.
func (s *Store) LeastRecent() (row int, ok bool) {
	if s.n == 0 {
		return 0, false
	}
	best := int64(math.MaxInt64)
	for i, r := range s.recency {
		if r < best {
			best, row = r, i
		}
	}
	return row, true
}

func resize(dst []float64, n int) []float64 {
	if cap(dst) < n {
		return make([]float64, n)
	}
	return dst[:n]
}

func sum(v []float32) float64 {
	var acc float64
	for _, x := range v {
		acc += float64(x)
	}
	return acc
}
