package prototype

// Vector is a row presented to the store, either dense or sparse.
//
// A sparse vector lists the positions of its non-zero entries and the dense
// width it stands for. Sparse entries default to 1 unless values are given.
type Vector struct {
	dense   []float32
	indices []int
	values  []float32
	width   int
	sparse  bool
}

// Dense wraps a dense vector. The slice is not copied.
func Dense(v []float32) Vector {
	return Vector{dense: v, width: len(v)}
}

// NewSparse builds a binary sparse vector of the given width.
// indices must be strictly ascending and below width.
func NewSparse(indices []int, width int) (Vector, error) {
	return NewSparseValues(indices, nil, width)
}

// NewSparseValues builds a sparse vector with explicit values.
// A nil values slice means every listed entry is 1.
func NewSparseValues(indices []int, values []float32, width int) (Vector, error) {
	if width <= 0 {
		return Vector{}, ErrEmptyVector
	}
	if values != nil && len(values) != len(indices) {
		return Vector{}, ErrMalformedSparse
	}
	if err := ValidateSparse(indices, width); err != nil {
		return Vector{}, err
	}
	return Vector{indices: indices, values: values, width: width, sparse: true}, nil
}

// ValidateSparse checks that indices are strictly ascending and lie in [0, width).
func ValidateSparse(indices []int, width int) error {
	prev := -1
	for _, idx := range indices {
		if idx <= prev || idx >= width {
			return ErrMalformedSparse
		}
		prev = idx
	}
	return nil
}

// Width returns the dense width the vector represents.
func (v Vector) Width() int { return v.width }

// IsSparse reports whether v was built from an index list.
func (v Vector) IsSparse() bool { return v.sparse }

// Dense returns v as a freshly allocated dense slice.
func (v Vector) Dense() []float32 {
	out := make([]float32, v.width)
	if !v.sparse {
		copy(out, v.dense)
		return out
	}
	for i, idx := range v.indices {
		out[idx] = v.value(i)
	}
	return out
}

func (v Vector) value(i int) float32 {
	if v.values == nil {
		return 1
	}
	return v.values[i]
}

// nonZeros returns the non-zero positions and values of v.
func (v Vector) nonZeros() ([]int32, []float32) {
	if v.sparse {
		idx := make([]int32, 0, len(v.indices))
		val := make([]float32, 0, len(v.indices))
		for i, j := range v.indices {
			x := v.value(i)
			if x == 0 {
				continue
			}
			idx = append(idx, int32(j)) //nolint:gosec // bounded by width
			val = append(val, x)
		}
		return idx, val
	}
	return compress(v.dense)
}

func compress(row []float32) ([]int32, []float32) {
	n := 0
	for _, x := range row {
		if x != 0 {
			n++
		}
	}
	idx := make([]int32, 0, n)
	val := make([]float32, 0, n)
	for j, x := range row {
		if x != 0 {
			idx = append(idx, int32(j)) //nolint:gosec // bounded by row length
			val = append(val, x)
		}
	}
	return idx, val
}
