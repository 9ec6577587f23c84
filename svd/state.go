package svd

import (
	"slices"

	"gonum.org/v1/gonum/mat"
)

// State is a serializable copy of a Projector. Projection holds Dims rows
// of InputWidth values each.
type State struct {
	InputWidth     int
	Dims           int
	Mean           []float64
	Projection     []float64
	SingularValues []float64
	Finalized      bool
}

// State exports the projector, or nil when nothing was computed.
func (p *Projector) State() *State {
	if p.vt == nil {
		return nil
	}
	dims := p.Dims()
	proj := make([]float64, 0, dims*p.width)
	for i := range dims {
		proj = append(proj, p.vt.RawRowView(i)...)
	}
	return &State{
		InputWidth:     p.width,
		Dims:           dims,
		Mean:           slices.Clone(p.mean),
		Projection:     proj,
		SingularValues: slices.Clone(p.values),
		Finalized:      p.finalized,
	}
}

// FromState restores a projector. A nil state yields an empty projector.
func FromState(st *State) (*Projector, error) {
	p := New()
	if st == nil {
		return p, nil
	}
	if st.InputWidth <= 0 || st.Dims < 0 || len(st.Mean) != st.InputWidth ||
		len(st.Projection) != st.Dims*st.InputWidth {
		return nil, ErrInvalidState
	}
	p.width = st.InputWidth
	p.mean = slices.Clone(st.Mean)
	p.values = slices.Clone(st.SingularValues)
	p.finalized = st.Finalized
	p.dims = st.Dims
	if st.Dims == 0 {
		// Only a finalized projection can keep zero directions.
		if !st.Finalized {
			return nil, ErrInvalidState
		}
		p.vt = mat.NewDense(1, st.InputWidth, nil)
		return p, nil
	}
	p.vt = mat.NewDense(st.Dims, st.InputWidth, slices.Clone(st.Projection))
	return p, nil
}
