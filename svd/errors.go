package svd

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyFinalized is returned when computing or finalizing twice.
	ErrAlreadyFinalized = errors.New("svd: projection already finalized")

	// ErrNotComputed is returned when finalizing before Compute.
	ErrNotComputed = errors.New("svd: decomposition not computed")

	// ErrNotFinalized is returned when projecting before Finalize.
	ErrNotFinalized = errors.New("svd: projection not finalized")

	// ErrNoSamples is returned when Compute receives no rows.
	ErrNoSamples = errors.New("svd: no sample rows")

	// ErrFactorization is returned when the decomposition fails to converge.
	ErrFactorization = errors.New("svd: factorization failed")

	// ErrInvalidDims is returned for a non-positive dimension count.
	ErrInvalidDims = errors.New("svd: dimension count must be positive")

	// ErrInvalidState is returned when restoring an inconsistent State.
	ErrInvalidState = errors.New("svd: invalid state")
)

// ErrDimensionMismatch indicates an input whose width is not the width the
// decomposition was computed on.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("svd: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}
