package csr

import (
	"errors"
	"fmt"
	"math/cmplx"
)

var (
	// ErrMalformed indicates inconsistent compressed-row storage.
	ErrMalformed = errors.New("csr: malformed compressed-row storage")

	// ErrDimension indicates a vector whose length does not match the matrix order.
	ErrDimension = errors.New("csr: dimension mismatch")
)

// Matrix is a square complex matrix in compressed-row storage.
//
// Row i holds the entries Val[RowPtr[i]:RowPtr[i+1]] at columns
// Col[RowPtr[i]:RowPtr[i+1]]. Column indices are zero based and strictly
// increasing within a row.
type Matrix struct {
	N      int          // Order
	RowPtr []int        // Length N+1, RowPtr[0] == 0
	Col    []int        // Length NNZ
	Val    []complex128 // Length NNZ, parallel to Col
}

// New wraps existing storage after validating it. The arrays are not copied.
func New(n int, rowPtr, col []int, val []complex128) (*Matrix, error) {
	m := &Matrix{N: n, RowPtr: rowPtr, Col: col, Val: val}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Identity returns the n x n identity matrix.
func Identity(n int) *Matrix {
	m := &Matrix{
		N:      n,
		RowPtr: make([]int, n+1),
		Col:    make([]int, n),
		Val:    make([]complex128, n),
	}
	for i := 0; i < n; i++ {
		m.RowPtr[i+1] = i + 1
		m.Col[i] = i
		m.Val[i] = 1
	}
	return m
}

// NNZ returns the number of stored entries.
func (m *Matrix) NNZ() int { return len(m.Val) }

// Validate checks the storage layout.
func (m *Matrix) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: nil matrix", ErrMalformed)
	}
	if m.N <= 0 {
		return fmt.Errorf("%w: order %d must be positive", ErrMalformed, m.N)
	}
	if len(m.RowPtr) != m.N+1 {
		return fmt.Errorf("%w: row pointer length %d does not match order+1 = %d",
			ErrMalformed, len(m.RowPtr), m.N+1)
	}
	if len(m.Col) != len(m.Val) {
		return fmt.Errorf("%w: column index length %d does not match value length %d",
			ErrMalformed, len(m.Col), len(m.Val))
	}
	if m.RowPtr[0] != 0 {
		return fmt.Errorf("%w: row pointer must start at 0, got %d", ErrMalformed, m.RowPtr[0])
	}
	if m.RowPtr[m.N] != len(m.Val) {
		return fmt.Errorf("%w: row pointer ends at %d but %d entries are stored",
			ErrMalformed, m.RowPtr[m.N], len(m.Val))
	}
	for i := 0; i < m.N; i++ {
		if m.RowPtr[i+1] < m.RowPtr[i] {
			return fmt.Errorf("%w: row pointer decreases at row %d", ErrMalformed, i)
		}
	}
	for i := 0; i < m.N; i++ {
		start, end := m.RowPtr[i], m.RowPtr[i+1]
		for p := start; p < end; p++ {
			j := m.Col[p]
			if j < 0 || j >= m.N {
				return fmt.Errorf("%w: row %d has column %d outside [0, %d)", ErrMalformed, i, j, m.N)
			}
			if p > start && m.Col[p-1] >= j {
				return fmt.Errorf("%w: row %d columns are not strictly increasing at %d",
					ErrMalformed, i, j)
			}
			if cmplx.IsNaN(m.Val[p]) || cmplx.IsInf(m.Val[p]) {
				return fmt.Errorf("%w: non-finite value at (%d, %d)", ErrMalformed, i, j)
			}
		}
	}
	return nil
}

// At returns the entry at (i, j), zero when it is not stored.
func (m *Matrix) At(i, j int) complex128 {
	for p := m.RowPtr[i]; p < m.RowPtr[i+1]; p++ {
		switch {
		case m.Col[p] == j:
			return m.Val[p]
		case m.Col[p] > j:
			return 0
		}
	}
	return 0
}

// DoNonZero calls fn for every stored entry in row-major order.
func (m *Matrix) DoNonZero(fn func(i, j int, v complex128)) {
	for i := 0; i < m.N; i++ {
		for p := m.RowPtr[i]; p < m.RowPtr[i+1]; p++ {
			fn(i, m.Col[p], m.Val[p])
		}
	}
}

// MulVec computes y = M x.
func (m *Matrix) MulVec(x, y []complex128) error {
	if len(x) != m.N || len(y) != m.N {
		return fmt.Errorf("%w: x has %d entries, y has %d, order is %d", ErrDimension, len(x), len(y), m.N)
	}
	for i := 0; i < m.N; i++ {
		var sum complex128
		for p := m.RowPtr[i]; p < m.RowPtr[i+1]; p++ {
			sum += m.Val[p] * x[m.Col[p]]
		}
		y[i] = sum
	}
	return nil
}

// Residual computes r = b - M x.
func (m *Matrix) Residual(x, b, r []complex128) error {
	if len(b) != m.N {
		return fmt.Errorf("%w: b has %d entries, order is %d", ErrDimension, len(b), m.N)
	}
	if err := m.MulVec(x, r); err != nil {
		return err
	}
	for i := range r {
		r[i] = b[i] - r[i]
	}
	return nil
}
