package lu

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed indicates the input matrix storage is inconsistent.
	ErrMalformed = errors.New("lu: malformed matrix")

	// ErrSingular indicates the matrix cannot be factorized into a usable LU.
	ErrSingular = errors.New("lu: singular matrix")

	// ErrSolver indicates any other failure reported by the sparse solver.
	ErrSolver = errors.New("lu: sparse solver failure")

	// ErrClosed indicates a solve was attempted after Close.
	ErrClosed = errors.New("lu: factorization is closed")

	// ErrDimension indicates a vector length different from the matrix order.
	ErrDimension = errors.New("lu: dimension mismatch")
)

// FactorError carries the location reported by the solver, when known.
// Row and Col are zero based; -1 means the solver did not report one.
type FactorError struct {
	Row, Col int
	Err      error
}

func (e *FactorError) Error() string {
	if e.Row < 0 && e.Col < 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v at row %d, column %d", e.Err, e.Row, e.Col)
}

func (e *FactorError) Unwrap() error {
	return e.Err
}
