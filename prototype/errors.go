package prototype

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexOutOfRange is returned when a row index does not exist.
	ErrIndexOutOfRange = errors.New("prototype: row index out of range")

	// ErrMalformedSparse is returned for sparse input whose indices are not
	// strictly ascending or not below the declared width.
	ErrMalformedSparse = errors.New("prototype: malformed sparse vector")

	// ErrEmptyVector is returned for zero-width input.
	ErrEmptyVector = errors.New("prototype: empty vector")

	// ErrInvalidPartition is returned for negative partition ids other than NoPartition.
	ErrInvalidPartition = errors.New("prototype: invalid partition id")

	// ErrInvalidState is returned when restoring from an inconsistent State.
	ErrInvalidState = errors.New("prototype: invalid state")
)

// ErrDimensionMismatch indicates that a vector's width differs from the store width.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("prototype: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}
