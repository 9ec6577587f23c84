package svd

import (
	"slices"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DefaultFractionOfMax is the singular value cut-off used by AdaptiveDims
// when none is configured.
const DefaultFractionOfMax = 0.001

// Projector holds the mean and right singular directions of a sample set.
type Projector struct {
	width     int
	mean      []float64
	vt        *mat.Dense // directions as rows
	dims      int
	values    []float64
	finalized bool
}

// New creates an empty projector.
func New() *Projector {
	return &Projector{}
}

// Computed reports whether Compute has run.
func (p *Projector) Computed() bool { return p.vt != nil }

// Finalized reports whether Finalize has run.
func (p *Projector) Finalized() bool { return p.finalized }

// Active reports whether inputs must be projected: the projection is
// finalized and keeps at least one direction.
func (p *Projector) Active() bool { return p.finalized && p.Dims() > 0 }

// InputWidth returns the width the decomposition was computed on.
func (p *Projector) InputWidth() int { return p.width }

// Dims returns the number of retained directions.
func (p *Projector) Dims() int { return p.dims }

// SingularValues returns a copy of the singular values in descending order.
func (p *Projector) SingularValues() []float64 { return slices.Clone(p.values) }

// Compute centers the rows on the column mean of all rows, factors the first
// numSamples of them (all rows when numSamples <= 0), and returns the
// singular values in descending order. A later Compute replaces an
// unfinalized result.
func (p *Projector) Compute(rows [][]float32, numSamples int) ([]float64, error) {
	if p.finalized {
		return nil, ErrAlreadyFinalized
	}
	if numSamples <= 0 || numSamples > len(rows) {
		numSamples = len(rows)
	}
	if numSamples == 0 {
		return nil, ErrNoSamples
	}

	width := len(rows[0])
	if width == 0 {
		return nil, ErrNoSamples
	}
	all := mat.NewDense(len(rows), width, nil)
	for i, row := range rows {
		if len(row) != width {
			return nil, &ErrDimensionMismatch{Expected: width, Actual: len(row)}
		}
		for j, x := range row {
			all.Set(i, j, float64(x))
		}
	}

	mean := make([]float64, width)
	for j := range width {
		mean[j] = stat.Mean(mat.Col(nil, j, all), nil)
	}
	data := mat.DenseCopyOf(all.Slice(0, numSamples, 0, width))
	for i := range numSamples {
		for j := range width {
			data.Set(i, j, data.At(i, j)-mean[j])
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(data, mat.SVDThinV); !ok {
		return nil, ErrFactorization
	}

	var v mat.Dense
	svd.VTo(&v)

	p.width = width
	p.mean = mean
	p.vt = mat.DenseCopyOf(v.T())
	p.dims, _ = p.vt.Dims()
	p.values = svd.Values(nil)
	return slices.Clone(p.values), nil
}

// AdaptiveDims returns the index of the first singular value whose ratio to
// the largest is below fractionOfMax, or len(values)-1 when none is.
// A non-positive fractionOfMax selects DefaultFractionOfMax.
func AdaptiveDims(values []float64, fractionOfMax float64) int {
	if len(values) == 0 {
		return 0
	}
	if fractionOfMax <= 0 {
		fractionOfMax = DefaultFractionOfMax
	}
	top := values[0]
	if top <= 0 {
		return len(values) - 1
	}
	for i, s := range values {
		if s/top < fractionOfMax {
			return i
		}
	}
	return len(values) - 1
}

// Finalize keeps the first numDims directions and freezes the projection.
// A request above the number of available directions is clamped; the kept
// count is returned. A result of 0 leaves the projector inactive.
func (p *Projector) Finalize(numDims int) (int, error) {
	if p.finalized {
		return 0, ErrAlreadyFinalized
	}
	if p.vt == nil {
		return 0, ErrNotComputed
	}
	if numDims < 0 {
		return 0, ErrInvalidDims
	}
	numDims = min(numDims, p.dims)
	if numDims > 0 {
		p.vt = mat.DenseCopyOf(p.vt.Slice(0, numDims, 0, p.width))
	}
	p.dims = numDims
	p.finalized = true
	return numDims, nil
}

// Project maps v through the finalized projection.
func (p *Projector) Project(v []float32) ([]float32, error) {
	if !p.finalized {
		return nil, ErrNotFinalized
	}
	if len(v) != p.width {
		return nil, &ErrDimensionMismatch{Expected: p.width, Actual: len(v)}
	}
	centered := make([]float64, p.width)
	for j, x := range v {
		centered[j] = float64(x) - p.mean[j]
	}
	dims := p.Dims()
	out := make([]float32, dims)
	if dims == 0 {
		return out, nil
	}
	var res mat.VecDense
	res.MulVec(p.vt, mat.NewVecDense(p.width, centered))
	for i := range dims {
		out[i] = float32(res.AtVec(i))
	}
	return out, nil
}

// ProjectAll maps every row through the finalized projection.
func (p *Projector) ProjectAll(rows [][]float32) ([][]float32, error) {
	out := make([][]float32, len(rows))
	for i, r := range rows {
		pr, err := p.Project(r)
		if err != nil {
			return nil, err
		}
		out[i] = pr
	}
	return out, nil
}
