package lu

import (
	"math/cmplx"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/CoastalDD/csr"
)

const tol = 1e-9

// randomDominant builds an n x n complex matrix with a banded and a random
// off-diagonal pattern, made strictly diagonally dominant.
func randomDominant(t *testing.T, n int, seed int64) *csr.Matrix {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	tr := csr.NewTriplet(n)
	rowSum := make([]float64, n)
	add := func(i, j int) {
		v := complex(rng.Float64()-0.5, rng.Float64()-0.5)
		require.NoError(t, tr.Add(i, j, v))
		rowSum[i] += cmplx.Abs(v)
	}
	for i := 0; i < n; i++ {
		if i > 0 {
			add(i, i-1)
		}
		if i < n-1 {
			add(i, i+1)
		}
		add(i, rng.Intn(n))
	}
	for i := 0; i < n; i++ {
		require.NoError(t, tr.Add(i, i, complex(rowSum[i]+1, 0.5)))
	}
	m, err := tr.ToCSR()
	require.NoError(t, err)
	return m
}

func assertClose(t *testing.T, want, got []complex128) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, 0, cmplx.Abs(want[i]-got[i]), tol, "component %d: want %v got %v", i, want[i], got[i])
	}
}

func TestIdentityScenario(t *testing.T) {
	f, err := Factorize(csr.Identity(3))
	require.NoError(t, err)
	defer f.Close()

	b := []complex128{1, 2, 3}
	x := make([]complex128, 3)
	require.NoError(t, f.Solve(b, x))
	assertClose(t, []complex128{1, 2, 3}, x)
	assert.Equal(t, []complex128{1, 2, 3}, b, "Solve must not modify b")
}

func TestRoundTripSolve(t *testing.T) {
	for _, n := range []int{1, 2, 7, 40} {
		m := randomDominant(t, n, int64(n))
		f, err := Factorize(m)
		require.NoError(t, err, "n=%d", n)

		want := make([]complex128, n)
		for i := range want {
			want[i] = complex(float64(i+1), -float64(i)/2)
		}
		b := make([]complex128, n)
		require.NoError(t, m.MulVec(want, b))

		x := make([]complex128, n)
		require.NoError(t, f.Solve(b, x))
		assertClose(t, want, x)
		require.NoError(t, f.Close())
	}
}

func TestSolveAndSolveInPlaceAgree(t *testing.T) {
	m := randomDominant(t, 12, 3)
	f, err := Factorize(m)
	require.NoError(t, err)
	defer f.Close()

	b := make([]complex128, 12)
	for i := range b {
		b[i] = complex(float64(i), 1)
	}
	x := make([]complex128, 12)
	require.NoError(t, f.Solve(b, x))

	bx := append([]complex128(nil), b...)
	require.NoError(t, f.SolveInPlace(bx))
	assert.Equal(t, x, bx)
}

func TestSolveMany(t *testing.T) {
	m := randomDominant(t, 5, 9)
	f, err := Factorize(m)
	require.NoError(t, err)
	defer f.Close()

	B := [][]complex128{
		{1, 0, 0, 0, 0},
		{0, 1i, 0, 0, 2},
	}
	X, err := f.SolveMany(B)
	require.NoError(t, err)
	require.Len(t, X, 2)
	for k := range B {
		got := make([]complex128, 5)
		require.NoError(t, m.MulVec(X[k], got))
		assertClose(t, B[k], got)
	}

	_, err = f.SolveMany([][]complex128{{1, 2}})
	assert.ErrorIs(t, err, ErrDimension)
}

func TestFactorizeRejectsSingular(t *testing.T) {
	t.Run("empty row", func(t *testing.T) {
		m, err := csr.New(3, []int{0, 1, 1, 2}, []int{0, 2}, []complex128{1, 1})
		require.NoError(t, err)
		f, err := Factorize(m)
		assert.Nil(t, f)
		require.ErrorIs(t, err, ErrSingular)
		var fe *FactorError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, 1, fe.Row)
	})
	t.Run("stored zeros only", func(t *testing.T) {
		m, err := csr.New(2, []int{0, 1, 2}, []int{0, 1}, []complex128{1, 0})
		require.NoError(t, err)
		_, err = Factorize(m)
		assert.ErrorIs(t, err, ErrSingular)
	})
	t.Run("rank deficient", func(t *testing.T) {
		m, err := csr.New(2, []int{0, 2, 4}, []int{0, 1, 0, 1}, []complex128{1, 2, 2, 4})
		require.NoError(t, err)
		f, err := Factorize(m)
		assert.Nil(t, f)
		assert.ErrorIs(t, err, ErrSingular)
	})
	t.Run("rank deficient with round-off", func(t *testing.T) {
		// Second row is three times the first; the decimals are inexact
		m, err := csr.New(3, []int{0, 3, 6, 9}, []int{0, 1, 2, 0, 1, 2, 0, 1, 2},
			[]complex128{.1, .2, .3, .3, .6, .9, 1, 1, 1})
		require.NoError(t, err)
		f, err := Factorize(m)
		assert.Nil(t, f)
		assert.ErrorIs(t, err, ErrSingular)
	})
}

func TestSolveAliasedVectors(t *testing.T) {
	m := randomDominant(t, 10, 5)
	cfg := DefaultConfig()
	cfg.RefinementSteps = 3
	f, err := FactorizeWithConfig(m, cfg)
	require.NoError(t, err)
	defer f.Close()

	want := make([]complex128, 10)
	for i := range want {
		want[i] = complex(1, 1)
	}
	b := make([]complex128, 10)
	require.NoError(t, m.MulVec(want, b))
	require.NoError(t, f.Solve(b, b))
	assertClose(t, want, b)
	assert.Less(t, f.Status().LastResidual, 1e-10)
}

func TestFactorizeRejectsMalformed(t *testing.T) {
	bad := &csr.Matrix{N: 2, RowPtr: []int{0, 1, 2}, Col: []int{0, 5}, Val: []complex128{1, 1}}
	_, err := Factorize(bad)
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Factorize(nil)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestFactorizeRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RelThreshold = 2
	_, err := FactorizeWithConfig(csr.Identity(2), cfg)
	assert.ErrorIs(t, err, ErrSolver)
}

func TestCloseIsIdempotent(t *testing.T) {
	f, err := Factorize(csr.Identity(2))
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	x := make([]complex128, 2)
	assert.ErrorIs(t, f.Solve([]complex128{1, 1}, x), ErrClosed)
	assert.ErrorIs(t, f.SolveInPlace(x), ErrClosed)
	assert.Equal(t, 0, f.Status().Fillins)
}

func TestSolveDimensionMismatch(t *testing.T) {
	f, err := Factorize(csr.Identity(3))
	require.NoError(t, err)
	defer f.Close()
	assert.ErrorIs(t, f.Solve([]complex128{1, 2}, make([]complex128, 3)), ErrDimension)
	assert.ErrorIs(t, f.Solve([]complex128{1, 2, 3}, make([]complex128, 2)), ErrDimension)
}

func TestRefinementReportsResidual(t *testing.T) {
	m := randomDominant(t, 20, 11)
	cfg := DefaultConfig()
	cfg.RefinementSteps = 3
	f, err := FactorizeWithConfig(m, cfg)
	require.NoError(t, err)
	defer f.Close()

	want := make([]complex128, 20)
	for i := range want {
		want[i] = complex(1, float64(i))
	}
	b := make([]complex128, 20)
	require.NoError(t, m.MulVec(want, b))
	x := make([]complex128, 20)
	require.NoError(t, f.Solve(b, x))
	assertClose(t, want, x)

	st := f.Status()
	assert.Equal(t, 20, st.Order)
	assert.Equal(t, m.NNZ(), st.NonZeros)
	assert.LessOrEqual(t, st.LastRefinements, 3)
	assert.Less(t, st.LastResidual, 1e-10)
	assert.Same(t, m, f.Matrix())
}

func TestConcurrentSolvesAreSerialized(t *testing.T) {
	m := randomDominant(t, 30, 5)
	f, err := Factorize(m)
	require.NoError(t, err)
	defer f.Close()

	want := make([]complex128, 30)
	for i := range want {
		want[i] = complex(float64(i%4), 1)
	}
	b := make([]complex128, 30)
	require.NoError(t, m.MulVec(want, b))

	var wg sync.WaitGroup
	results := make([][]complex128, 8)
	for k := range results {
		wg.Add(1)
		go func(k int) {
			defer wg.Done()
			x := make([]complex128, 30)
			if err := f.Solve(b, x); err == nil {
				results[k] = x
			}
		}(k)
	}
	wg.Wait()
	for _, x := range results {
		assertClose(t, want, x)
	}
}
