package csr

import (
	"fmt"
	"sort"
)

// Triplet accumulates (row, col, value) contributions for a square matrix.
// Repeated coordinates are summed when the matrix is compressed.
type Triplet struct {
	n    int
	rows []int
	cols []int
	vals []complex128
}

// NewTriplet returns an empty accumulator for an n x n matrix.
func NewTriplet(n int) *Triplet {
	return &Triplet{n: n}
}

// Order returns the matrix order.
func (t *Triplet) Order() int { return t.n }

// Len returns the number of accumulated contributions, duplicates included.
func (t *Triplet) Len() int { return len(t.vals) }

// Add accumulates v at (i, j).
func (t *Triplet) Add(i, j int, v complex128) error {
	if i < 0 || i >= t.n || j < 0 || j >= t.n {
		return fmt.Errorf("%w: index (%d, %d) outside %d x %d matrix", ErrDimension, i, j, t.n, t.n)
	}
	t.rows = append(t.rows, i)
	t.cols = append(t.cols, j)
	t.vals = append(t.vals, v)
	return nil
}

// ClearRow drops every contribution accumulated in row i.
func (t *Triplet) ClearRow(i int) {
	k := 0
	for p := range t.vals {
		if t.rows[p] == i {
			continue
		}
		t.rows[k], t.cols[k], t.vals[k] = t.rows[p], t.cols[p], t.vals[p]
		k++
	}
	t.rows, t.cols, t.vals = t.rows[:k], t.cols[:k], t.vals[:k]
}

// ToCSR compresses the contributions into a validated Matrix.
// Duplicates are summed and columns are sorted within each row.
func (t *Triplet) ToCSR() (*Matrix, error) {
	order := make([]int, len(t.vals))
	for p := range order {
		order[p] = p
	}
	sort.SliceStable(order, func(a, b int) bool {
		pa, pb := order[a], order[b]
		if t.rows[pa] != t.rows[pb] {
			return t.rows[pa] < t.rows[pb]
		}
		return t.cols[pa] < t.cols[pb]
	})

	m := &Matrix{
		N:      t.n,
		RowPtr: make([]int, t.n+1),
		Col:    make([]int, 0, len(order)),
		Val:    make([]complex128, 0, len(order)),
	}
	lastRow, lastCol := -1, -1
	for _, p := range order {
		i, j := t.rows[p], t.cols[p]
		if i == lastRow && j == lastCol {
			m.Val[len(m.Val)-1] += t.vals[p]
			continue
		}
		m.Col = append(m.Col, j)
		m.Val = append(m.Val, t.vals[p])
		m.RowPtr[i+1]++
		lastRow, lastCol = i, j
	}
	for i := 0; i < t.n; i++ {
		m.RowPtr[i+1] += m.RowPtr[i]
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
