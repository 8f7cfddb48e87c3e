// Package lu factorizes complex sparse matrices with a direct sparse solver
// and solves against one or many right-hand sides.
package lu

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"
	"sync"

	"github.com/edp1096/sparse"
	"gonum.org/v1/gonum/cmplxs"

	"github.com/notargets/CoastalDD/csr"
)

// Factorization is an immutable LU factorization of a csr.Matrix.
//
// The factorization borrows the input matrix: its arrays must stay alive and
// unmodified for as long as the Factorization is in use. Solves on one
// instance are serialized because the solver keeps scratch vectors in its
// handle; independent instances may be used from different goroutines.
type Factorization struct {
	mu     sync.Mutex
	handle *sparse.Matrix
	closed bool

	a   *csr.Matrix // Borrowed
	n   int
	cfg Config

	rhs, rhsImag []float64

	lastRefinements int
	lastResidual    float64
}

// Status reports solver statistics. It never exposes the solver handle.
type Status struct {
	Order           int
	NonZeros        int
	Elements        int
	Fillins         int
	LastRefinements int     // Refinement steps taken by the most recent solve
	LastResidual    float64 // Relative residual of the most recent refined solve, NaN if not computed
}

// Factorize factorizes m with DefaultConfig.
func Factorize(m *csr.Matrix) (*Factorization, error) {
	return FactorizeWithConfig(m, DefaultConfig())
}

// FactorizeWithConfig validates and factorizes m. On failure the solver
// handle is released and no Factorization is returned.
func FactorizeWithConfig(m *csr.Matrix, cfg Config) (f *Factorization, err error) {
	if err = m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err = cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSolver, err)
	}
	if err = structuralCheck(m); err != nil {
		return nil, err
	}

	handle, err := sparse.Create(int64(m.N), solverConfiguration(cfg))
	if err != nil {
		return nil, fmt.Errorf("%w: create: %v", ErrSolver, err)
	}
	defer func() {
		if err != nil {
			handle.Destroy()
		}
	}()
	handle.RelThreshold = cfg.RelThreshold
	handle.AbsThreshold = cfg.AbsThreshold

	m.DoNonZero(func(i, j int, v complex128) {
		el := handle.GetElement(int64(i+1), int64(j+1))
		el.Real += real(v)
		el.Imag += imag(v)
	})

	if err = handle.Factor(); err != nil {
		return nil, classifyFactorError(handle, err)
	}
	if err = pivotCheck(handle, m.N, pivotTolerance(m, cfg)); err != nil {
		return nil, err
	}

	f = &Factorization{
		handle:       handle,
		a:            m,
		n:            m.N,
		cfg:          cfg,
		rhs:          make([]float64, m.N+1),
		rhsImag:      make([]float64, m.N+1),
		lastResidual: math.NaN(),
	}
	if err = f.probe(); err != nil {
		return nil, err
	}
	return f, nil
}

func solverConfiguration(cfg Config) *sparse.Configuration {
	return &sparse.Configuration{
		Real:                    true,
		Complex:                 true,
		SeparatedComplexVectors: true,
		Expandable:              true,
		Translate:               false,
		ModifiedNodal:           true,
		DiagonalPivoting:        true,
		DiagPivotingAsDefault:   cfg.DiagonalPivoting,
		DefaultThreshold:        cfg.RelThreshold,
		TiesMultiplier:          5,
		PrinterWidth:            140,
		Annotate:                0,
	}
}

// structuralCheck rejects matrices with a row or column holding no non-zero
// entry; no pivot order can factorize them.
func structuralCheck(m *csr.Matrix) error {
	rowHit := make([]bool, m.N)
	colHit := make([]bool, m.N)
	m.DoNonZero(func(i, j int, v complex128) {
		if v != 0 {
			rowHit[i] = true
			colHit[j] = true
		}
	})
	for i := 0; i < m.N; i++ {
		if !rowHit[i] {
			return &FactorError{Row: i, Col: -1, Err: fmt.Errorf("%w: row %d has no non-zero entry", ErrSingular, i)}
		}
		if !colHit[i] {
			return &FactorError{Row: -1, Col: i, Err: fmt.Errorf("%w: column %d has no non-zero entry", ErrSingular, i)}
		}
	}
	return nil
}

func classifyFactorError(handle *sparse.Matrix, err error) error {
	row, col := int(handle.SingularRow)-1, int(handle.SingularCol)-1
	msg := strings.ToLower(err.Error())
	if row >= 0 || col >= 0 || strings.Contains(msg, "singular") || strings.Contains(msg, "zero") {
		return &FactorError{Row: row, Col: col, Err: fmt.Errorf("%w: %v", ErrSingular, err)}
	}
	return &FactorError{Row: -1, Col: -1, Err: fmt.Errorf("%w: factor: %v", ErrSolver, err)}
}

// pivotTolerance is the smallest pivot magnitude accepted for m: the larger
// of cfg.AbsThreshold and n*eps*||m||_inf. Smaller pivots are round-off left
// over from eliminating a numerically singular matrix.
func pivotTolerance(m *csr.Matrix, cfg Config) float64 {
	var norm float64
	for i := 0; i < m.N; i++ {
		var sum float64
		for k := m.RowPtr[i]; k < m.RowPtr[i+1]; k++ {
			sum += cmplx.Abs(m.Val[k])
		}
		norm = math.Max(norm, sum)
	}
	eps := math.Nextafter(1, 2) - 1
	return math.Max(cfg.AbsThreshold, float64(m.N)*eps*norm)
}

// pivotCheck inspects the stored pivot reciprocals. A missing, zero or
// non-finite reciprocal means the elimination hit a zero pivot; a pivot
// below tol means the matrix is singular to working precision.
func pivotCheck(handle *sparse.Matrix, n int, tol float64) error {
	if len(handle.Diags) < n+1 {
		return fmt.Errorf("%w: solver returned %d pivots for order %d", ErrSolver, len(handle.Diags)-1, n)
	}
	for i := 1; i <= n; i++ {
		d := handle.Diags[i]
		if d == nil {
			return &FactorError{Row: i - 1, Col: i - 1, Err: fmt.Errorf("%w: missing pivot", ErrSingular)}
		}
		p := complex(d.Real, d.Imag)
		if p == 0 || cmplx.IsNaN(p) || cmplx.IsInf(p) {
			return &FactorError{Row: i - 1, Col: i - 1, Err: fmt.Errorf("%w: pivot %v", ErrSingular, p)}
		}
		if mag := 1 / cmplx.Abs(p); mag < tol {
			return &FactorError{Row: i - 1, Col: i - 1, Err: fmt.Errorf("%w: pivot magnitude %g below %g", ErrSingular, mag, tol)}
		}
	}
	return nil
}

// probe solves against A*1 once so that a factorization producing
// non-finite solutions is rejected before it is handed out.
func (f *Factorization) probe() error {
	ones := make([]complex128, f.n)
	for i := range ones {
		ones[i] = 1
	}
	b := make([]complex128, f.n)
	if err := f.a.MulVec(ones, b); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	x := make([]complex128, f.n)
	if err := f.solveOnce(b, x); err != nil {
		return err
	}
	for i, v := range x {
		if cmplx.IsNaN(v) || cmplx.IsInf(v) {
			return &FactorError{Row: i, Col: -1, Err: fmt.Errorf("%w: non-finite solution component", ErrSingular)}
		}
	}
	return nil
}

// Order returns the matrix order.
func (f *Factorization) Order() int { return f.n }

// Matrix returns the borrowed input matrix.
func (f *Factorization) Matrix() *csr.Matrix { return f.a }

// Status returns the solver statistics.
func (f *Factorization) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := Status{
		Order:           f.n,
		NonZeros:        f.a.NNZ(),
		LastRefinements: f.lastRefinements,
		LastResidual:    f.lastResidual,
	}
	if f.handle != nil {
		st.Elements = f.handle.Elements
		st.Fillins = f.handle.Fillins
	}
	return st
}

// Solve solves A x = b, writing the solution into x. Both vectors must have
// length Order(). b and x may be the same slice; otherwise b is not modified.
func (f *Factorization) Solve(b, x []complex128) error {
	if len(b) != f.n || len(x) != f.n {
		return fmt.Errorf("%w: b has %d entries, x has %d, order is %d", ErrDimension, len(b), len(x), f.n)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	if f.n > 0 && &b[0] == &x[0] {
		// refine needs the original right-hand side
		b = append([]complex128(nil), b...)
	}
	if err := f.solveOnce(b, x); err != nil {
		return err
	}
	return f.refine(b, x)
}

// SolveInPlace solves A x = b where bx holds b on entry and x on return.
func (f *Factorization) SolveInPlace(bx []complex128) error {
	return f.Solve(bx, bx)
}

// SolveMany solves against every right-hand side in B and returns the
// solutions in the same order.
func (f *Factorization) SolveMany(B [][]complex128) ([][]complex128, error) {
	X := make([][]complex128, len(B))
	for k, b := range B {
		X[k] = make([]complex128, len(b))
		if err := f.Solve(b, X[k]); err != nil {
			return nil, fmt.Errorf("right-hand side %d: %w", k, err)
		}
	}
	return X, nil
}

// Close releases the solver handle. It is safe to call more than once.
func (f *Factorization) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	if f.handle != nil {
		f.handle.Destroy()
		f.handle = nil
	}
	f.rhs, f.rhsImag = nil, nil
	return nil
}

// solveOnce runs one forward/backward substitution. Callers hold f.mu or
// own f exclusively.
func (f *Factorization) solveOnce(b, x []complex128) error {
	for i := 0; i < f.n; i++ {
		f.rhs[i+1] = real(b[i])
		f.rhsImag[i+1] = imag(b[i])
	}
	f.rhs[0], f.rhsImag[0] = 0, 0
	sol, solImag, err := f.handle.SolveComplex(f.rhs, f.rhsImag)
	if err != nil {
		return fmt.Errorf("%w: solve: %v", ErrSolver, err)
	}
	if len(sol) < f.n+1 || len(solImag) < f.n+1 {
		return fmt.Errorf("%w: solver returned %d/%d entries for order %d", ErrSolver, len(sol), len(solImag), f.n)
	}
	for i := 0; i < f.n; i++ {
		x[i] = complex(sol[i+1], solImag[i+1])
	}
	return nil
}

// refine applies iterative refinement against the borrowed matrix.
func (f *Factorization) refine(b, x []complex128) error {
	f.lastRefinements = 0
	f.lastResidual = math.NaN()
	if f.cfg.RefinementSteps == 0 {
		return nil
	}
	bnorm := cmplxs.Norm(b, 2)
	if bnorm == 0 {
		bnorm = 1
	}
	r := make([]complex128, f.n)
	d := make([]complex128, f.n)
	for step := 0; ; step++ {
		if err := f.a.Residual(x, b, r); err != nil {
			return fmt.Errorf("%w: %v", ErrDimension, err)
		}
		f.lastResidual = cmplxs.Norm(r, 2) / bnorm
		if f.lastResidual <= f.cfg.RefinementTol || step == f.cfg.RefinementSteps {
			return nil
		}
		if err := f.solveOnce(r, d); err != nil {
			return err
		}
		cmplxs.Add(x, d)
		f.lastRefinements++
	}
}
