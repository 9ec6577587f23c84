package prototype

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// State is a flat, serializable copy of a Store.
//
// Dense stores fill Data (RowCount*Width values, row-major). Sparse stores
// fill the CSR triple RowOffsets (RowCount+1 entries), Indices and Values.
type State struct {
	Sparse bool
	Width  int

	Data []float32

	RowOffsets []int
	Indices    []int32
	Values     []float32

	Categories []int
	Partitions []int64
	Recency    []int64
}

// RowCount returns the number of rows described by st.
func (st *State) RowCount() int { return len(st.Categories) }

// State exports the store contents.
func (s *Store) State() *State {
	st := &State{
		Sparse:     s.sparse,
		Width:      s.width,
		Categories: s.Categories(),
		Partitions: s.Partitions(),
		Recency:    s.Recencies(),
	}
	if !s.sparse {
		st.Data = append([]float32(nil), s.data[:s.n*s.width]...)
		return st
	}
	st.RowOffsets = make([]int, 0, s.n+1)
	st.RowOffsets = append(st.RowOffsets, 0)
	for i := range s.indices {
		st.Indices = append(st.Indices, s.indices[i]...)
		st.Values = append(st.Values, s.values[i]...)
		st.RowOffsets = append(st.RowOffsets, len(st.Indices))
	}
	return st
}

// FromState rebuilds a store from an exported State.
func FromState(st *State, optFns ...func(o *Options)) (*Store, error) {
	n := st.RowCount()
	if len(st.Partitions) != n || len(st.Recency) != n || st.Width < 0 {
		return nil, ErrInvalidState
	}

	s := New(optFns...)
	s.sparse = st.Sparse
	s.width = st.Width
	s.n = n
	s.categories = append([]int(nil), st.Categories...)
	s.partitions = append([]int64(nil), st.Partitions...)
	s.recency = append([]int64(nil), st.Recency...)
	s.sums = make([]float64, n)
	s.partIndex = make(map[int64]*roaring.Bitmap)

	if st.Sparse {
		if len(st.RowOffsets) != n+1 || len(st.Indices) != len(st.Values) ||
			st.RowOffsets[0] != 0 || st.RowOffsets[n] != len(st.Indices) {
			return nil, ErrInvalidState
		}
		s.indices = make([][]int32, n)
		s.values = make([][]float32, n)
		for i := range n {
			lo, hi := st.RowOffsets[i], st.RowOffsets[i+1]
			if lo > hi {
				return nil, ErrInvalidState
			}
			idx := append([]int32(nil), st.Indices[lo:hi]...)
			prev := int32(-1)
			for _, j := range idx {
				if j <= prev || int(j) >= st.Width {
					return nil, ErrMalformedSparse
				}
				prev = j
			}
			s.indices[i] = idx
			s.values[i] = append([]float32(nil), st.Values[lo:hi]...)
			s.sums[i] = sum(s.values[i])
		}
	} else {
		if len(st.Data) != n*st.Width {
			return nil, ErrInvalidState
		}
		s.data = make([]float32, len(st.Data), max(n, s.initCap)*st.Width)
		copy(s.data, st.Data)
		for i := range n {
			s.sums[i] = sum(s.data[i*st.Width : (i+1)*st.Width])
		}
	}

	for i, pid := range s.partitions {
		if err := checkPartition(pid); err != nil {
			return nil, err
		}
		s.indexPartition(i, pid)
	}
	return s, nil
}
