// Package fem assembles the frequency domain linear long wave equation
//
//	-∇·(c ∇η) - ω² η = 0,  c = g h / (1 + iγ/ω)
//
// on one domain mesh with linear triangles. Open boundary vertices carry a
// prescribed elevation, closed boundaries are natural (no normal flux).
package fem

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/CoastalDD/csr"
	"github.com/notargets/CoastalDD/element"
	"github.com/notargets/CoastalDD/mesh"
)

var (
	// ErrParams indicates physical parameters that cannot be used.
	ErrParams = errors.New("fem: invalid parameters")

	// ErrDry indicates a vertex with non-positive depth.
	ErrDry = errors.New("fem: non-positive depth")
)

// Params are the physical parameters of a harmonic run.
type Params struct {
	Omega     float64    // Angular frequency [rad/s]
	Gravity   float64    // [m/s²]
	Friction  float64    // Linear bottom friction γ [1/s]
	Amplitude complex128 // Elevation forced on open boundaries [m]
}

func DefaultParams() Params {
	return Params{
		Omega:     2 * math.Pi / 44712, // M2
		Gravity:   9.81,
		Friction:  1e-4,
		Amplitude: 1,
	}
}

func (p Params) Validate() error {
	switch {
	case p.Omega < 0 || math.IsNaN(p.Omega) || math.IsInf(p.Omega, 0):
		return fmt.Errorf("%w: omega %g", ErrParams, p.Omega)
	case !(p.Gravity > 0) || math.IsInf(p.Gravity, 0):
		return fmt.Errorf("%w: gravity %g", ErrParams, p.Gravity)
	case p.Friction < 0 || math.IsNaN(p.Friction) || math.IsInf(p.Friction, 0):
		return fmt.Errorf("%w: friction %g", ErrParams, p.Friction)
	}
	return nil
}

// Celerity returns the complex coefficient g h / (1 + iγ/ω) for depth h.
// Friction is ignored in the steady case ω = 0.
func (p Params) Celerity(h float64) complex128 {
	c := complex(p.Gravity*h, 0)
	if p.Omega > 0 && p.Friction > 0 {
		c /= complex(1, p.Friction/p.Omega)
	}
	return c
}

// Operators holds the assembled system of one domain.
type Operators struct {
	A         *csr.Matrix
	B         []complex128
	Dirichlet []int // Local vertices with a prescribed elevation
}

// Assemble builds the system matrix and right hand side for mesh m.
func Assemble(m *mesh.Mesh, p Params) (*csr.Matrix, []complex128, error) {
	ops, err := AssembleOperators(m, p)
	if err != nil {
		return nil, nil, err
	}
	return ops.A, ops.B, nil
}

// AssembleOperators is Assemble that also reports the constrained vertices.
func AssembleOperators(m *mesh.Mesh, p Params) (*Operators, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil mesh", ErrParams)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	nv := m.NumVertices()
	for i := 0; i < nv; i++ {
		if h := m.Depth(i); !(h > 0) || math.IsInf(h, 0) {
			return nil, fmt.Errorf("%w: %g at global vertex %d", ErrDry, h, m.LocalToGlobal(i))
		}
	}

	// Element matrices, computed once per triangle
	el := element.NewTri1()
	nt := m.NumTriangles()
	local := make([]*mat.CDense, nt)
	for t := 0; t < nt; t++ {
		Ae, err := elementMatrix(el, m, t, p)
		if err != nil {
			return nil, err
		}
		local[t] = Ae
	}

	// Rows are assembled vertex by vertex from the triangles around each one
	tr := csr.NewTriplet(nv)
	for vi := 0; vi < nv; vi++ {
		for _, t := range m.TrianglesAround(vi) {
			tri := m.Triangle(t)
			si := corner(tri, vi)
			for sj, vj := range tri.V {
				if err := tr.Add(vi, vj, local[t].At(si, sj)); err != nil {
					return nil, err
				}
			}
		}
	}

	b := make([]complex128, nv)
	var dirichlet []int
	for vi := 0; vi < nv; vi++ {
		if m.Vertex(vi).Boundary != mesh.OpenBoundary {
			continue
		}
		tr.ClearRow(vi)
		if err := tr.Add(vi, vi, 1); err != nil {
			return nil, err
		}
		b[vi] = p.Amplitude
		dirichlet = append(dirichlet, vi)
	}

	A, err := tr.ToCSR()
	if err != nil {
		return nil, err
	}
	return &Operators{A: A, B: b, Dirichlet: dirichlet}, nil
}

// elementMatrix returns c K - ω² M for triangle t, with c evaluated at the
// mean depth of its vertices.
func elementMatrix(el *element.Tri1, m *mesh.Mesh, t int, p Params) (*mat.CDense, error) {
	tri := m.Triangle(t)
	x, y := make([]float64, 3), make([]float64, 3)
	var h float64
	for k, v := range tri.V {
		vx := m.Vertex(v)
		x[k], y[k] = vx.X, vx.Y
		h += m.Depth(v) / 3
	}
	K, err := el.StiffnessMatrix(x, y)
	if err != nil {
		return nil, fmt.Errorf("triangle %d: %w", t, err)
	}
	M, err := el.MassMatrix(x, y)
	if err != nil {
		return nil, fmt.Errorf("triangle %d: %w", t, err)
	}
	c := p.Celerity(h)
	w2 := complex(p.Omega*p.Omega, 0)
	Ae := mat.NewCDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			Ae.Set(i, j, c*complex(K.At(i, j), 0)-w2*complex(M.At(i, j), 0))
		}
	}
	return Ae, nil
}

func corner(tri mesh.Triangle, v int) int {
	for k, tv := range tri.V {
		if tv == v {
			return k
		}
	}
	return -1
}
