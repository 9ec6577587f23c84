package distance

import (
	"errors"
	"math"
)

// ErrInvalidNorm is returned for a non-positive or non-finite Lp exponent.
var ErrInvalidNorm = errors.New("distance: norm must be positive and finite")

// Matrix is the row storage scored by an Engine.
type Matrix interface {
	// RowCount returns the number of rows.
	RowCount() int

	// RowSums returns the per-row value sums.
	RowSums() []float64

	// SumsAtNonZero writes the sum of q at each row's non-zero positions.
	SumsAtNonZero(q []float32, dst []float64) []float64

	// LpDistances writes the unnormalized Lp distance from q to each row.
	LpDistances(q []float32, p float64, dst []float64) []float64
}

// Engine computes distances with a method fixed at construction.
type Engine struct {
	method Method
	norm   float64
}

// NewEngine creates an engine. norm is the Lp exponent used by Norm.
func NewEngine(method Method, norm float64) (*Engine, error) {
	if !method.Valid() {
		return nil, &ErrUnknownMethod{Name: method.String()}
	}
	if norm <= 0 || math.IsInf(norm, 0) || math.IsNaN(norm) {
		return nil, ErrInvalidNorm
	}
	return &Engine{method: method, norm: norm}, nil
}

// Method returns the configured method.
func (e *Engine) Method() Method { return e.method }

// Norm returns the configured Lp exponent.
func (e *Engine) Norm() float64 { return e.norm }

// Overlaps writes the overlap of q with every row into dst and returns it.
func (e *Engine) Overlaps(m Matrix, q []float32, dst []float64) []float64 {
	return m.SumsAtNonZero(q, dst)
}

// Distances writes the distance from q to every row into dst and returns it.
// dst is reused when it has enough capacity.
func (e *Engine) Distances(m Matrix, q []float32, dst []float64) []float64 {
	if e.method == Norm {
		dst = m.LpDistances(q, e.norm, dst)
		var hi float64
		for _, d := range dst {
			hi = max(hi, d)
		}
		if hi > 0 {
			for i := range dst {
				dst[i] /= hi
			}
		}
		return dst
	}

	dst = m.SumsAtNonZero(q, dst)
	qSum := Sum(q)

	switch e.method {
	case RawOverlap:
		for i, ov := range dst {
			dst[i] = qSum - ov
		}
	case PctOverlapOfInput:
		for i, ov := range dst {
			d := qSum - ov
			if qSum > 0 {
				d /= qSum
			}
			dst[i] = d
		}
	case PctOverlapOfProto:
		sums := m.RowSums()
		for i, ov := range dst {
			dst[i] = 1 - fraction(ov, sums[i])
		}
	case PctOverlapOfLarger:
		sums := m.RowSums()
		for i, ov := range dst {
			dst[i] = 1 - fraction(ov, max(sums[i], qSum))
		}
	}
	return dst
}

// fraction returns num/den, or 0 when den is not positive.
func fraction(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return num / den
}

// DuplicateDistances writes the unnormalized L1 distance from q to every row.
// A zero entry marks an exact duplicate of q.
func DuplicateDistances(m Matrix, q []float32, dst []float64) []float64 {
	return m.LpDistances(q, 1, dst)
}
