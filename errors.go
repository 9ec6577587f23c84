package knn

import (
	"errors"
	"fmt"

	"github.com/hupe1980/knn/distance"
	"github.com/hupe1980/knn/persistence"
	"github.com/hupe1980/knn/prototype"
	"github.com/hupe1980/knn/svd"
)

var (
	// ErrInvalidK is returned when k is not a positive odd number.
	ErrInvalidK = errors.New("knn: k must be positive and odd")

	// ErrInvalidOption is returned for an out-of-range construction parameter.
	ErrInvalidOption = errors.New("knn: invalid option")

	// ErrUnknownOption is returned for an unrecognized configuration key.
	ErrUnknownOption = errors.New("knn: unknown option")

	// ErrMalformedSparse is returned for sparse input whose indices are not
	// strictly ascending or not below the declared width.
	ErrMalformedSparse = errors.New("knn: malformed sparse input")

	// ErrAlreadyFinalized is returned when the SVD projection is finalized twice.
	ErrAlreadyFinalized = errors.New("knn: svd already finalized")

	// ErrSVDNotComputed is returned when finalizing before an SVD was computed.
	ErrSVDNotComputed = errors.New("knn: svd not computed")

	// ErrVersionMismatch is returned when a snapshot was written by another
	// classifier version.
	ErrVersionMismatch = errors.New("knn: classifier version mismatch")

	// ErrSparseMemoryRequired is returned when fixed capacity is requested
	// without sparse memory.
	ErrSparseMemoryRequired = errors.New("knn: fixed capacity requires sparse memory")

	// ErrDenseMemoryRequired is returned when specific-index training is
	// requested with sparse memory.
	ErrDenseMemoryRequired = errors.New("knn: specific-index training requires dense memory")

	// ErrIndexOutOfRange is returned for a row index that does not exist.
	ErrIndexOutOfRange = errors.New("knn: index out of range")

	// ErrInvalidCategory is returned for a negative training category or a
	// category outside a remapping table.
	ErrInvalidCategory = errors.New("knn: invalid category")

	// ErrInvalidPartition is returned for a negative partition id.
	ErrInvalidPartition = errors.New("knn: invalid partition id")

	// ErrCorruptSnapshot is returned when a snapshot payload is inconsistent.
	ErrCorruptSnapshot = errors.New("knn: corrupt snapshot")
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
//
// The underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("knn: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// translateError maps sub-package errors onto the errors of this package.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var pdm *prototype.ErrDimensionMismatch
	if errors.As(err, &pdm) {
		return &ErrDimensionMismatch{Expected: pdm.Expected, Actual: pdm.Actual, cause: err}
	}
	var sdm *svd.ErrDimensionMismatch
	if errors.As(err, &sdm) {
		return &ErrDimensionMismatch{Expected: sdm.Expected, Actual: sdm.Actual, cause: err}
	}
	if errors.Is(err, prototype.ErrEmptyVector) {
		return &ErrDimensionMismatch{Expected: 1, Actual: 0, cause: err}
	}

	switch {
	case errors.Is(err, prototype.ErrMalformedSparse):
		return fmt.Errorf("%w: %w", ErrMalformedSparse, err)
	case errors.Is(err, prototype.ErrIndexOutOfRange):
		return fmt.Errorf("%w: %w", ErrIndexOutOfRange, err)
	case errors.Is(err, prototype.ErrInvalidPartition):
		return fmt.Errorf("%w: %w", ErrInvalidPartition, err)
	case errors.Is(err, prototype.ErrInvalidState), errors.Is(err, svd.ErrInvalidState):
		return fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	case errors.Is(err, svd.ErrAlreadyFinalized):
		return fmt.Errorf("%w: %w", ErrAlreadyFinalized, err)
	case errors.Is(err, svd.ErrNotComputed):
		return fmt.Errorf("%w: %w", ErrSVDNotComputed, err)
	case errors.Is(err, distance.ErrInvalidNorm):
		return fmt.Errorf("%w: %w", ErrInvalidOption, err)
	case errors.Is(err, persistence.ErrCorruptPayload):
		return fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}

	var um *distance.ErrUnknownMethod
	if errors.As(err, &um) {
		return fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}
	return err
}
