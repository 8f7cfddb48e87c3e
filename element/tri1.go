package element

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Tri1 is the linear Lagrange triangle. The reference element has vertices
// (-1,-1), (1,-1), (-1,1) and the basis functions are
//
//	φ0 = -(r+s)/2, φ1 = (1+r)/2, φ2 = (1+s)/2
type Tri1 struct {
	props  ElementProperties
	r, s   []float64
	m      *mat.Dense
	dr, ds *mat.Dense
}

const referenceArea = 2.0

var (
	_ ReferenceElement = (*Tri1)(nil)
	_ PhysicalElement  = (*Tri1)(nil)
)

// NewTri1 builds the reference operators of the linear triangle.
func NewTri1() *Tri1 {
	el := &Tri1{
		props: ElementProperties{
			Name:       "Linear Lagrange Triangle",
			ShortName:  "Tri1",
			Type:       Tri,
			Order:      1,
			Np:         3,
			NVp:        3,
			NFaces:     3,
			Dimensions: D2,
		},
		r: []float64{-1, 1, -1},
		s: []float64{-1, -1, 1},
	}
	el.m = mat.NewDense(3, 3, []float64{
		2, 1, 1,
		1, 2, 1,
		1, 1, 2,
	})
	el.m.Scale(1.0/6.0, el.m)

	// Gradients are constant, every row is the same
	el.dr = mat.NewDense(3, 3, nil)
	el.ds = mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		el.dr.SetRow(i, []float64{-0.5, 0.5, 0})
		el.ds.SetRow(i, []float64{-0.5, 0, 0.5})
	}
	return el
}

func (el *Tri1) GetProperties() ElementProperties { return el.props }
func (el *Tri1) R() []float64                     { return append([]float64(nil), el.r...) }
func (el *Tri1) S() []float64                     { return append([]float64(nil), el.s...) }
func (el *Tri1) M() mat.Matrix                    { return el.m }
func (el *Tri1) Reference() ReferenceElement      { return el }

func (el *Tri1) GetReferenceOperators() ReferenceOperators {
	return ReferenceOperators{Dr: el.dr, Ds: el.ds}
}

// Basis evaluates the three basis functions at (r, s).
func (el *Tri1) Basis(r, s float64) [3]float64 {
	return [3]float64{-(r + s) / 2, (1 + r) / 2, (1 + s) / 2}
}

// Geometric returns the affine map factors of the triangle (x, y).
func (el *Tri1) Geometric(x, y []float64) (GeometricFactors, error) {
	if err := checkVertices(3, x, y); err != nil {
		return GeometricFactors{}, err
	}
	xr, xs := (x[1]-x[0])/2, (x[2]-x[0])/2
	yr, ys := (y[1]-y[0])/2, (y[2]-y[0])/2
	J := xr*ys - xs*yr
	scale := xr*xr + xs*xs + yr*yr + ys*ys
	if scale == 0 || math.Abs(J) <= 1e-14*scale || math.IsNaN(J) || math.IsInf(J, 0) {
		return GeometricFactors{}, fmt.Errorf("%w: jacobian %g at (%g,%g) (%g,%g) (%g,%g)",
			ErrDegenerate, J, x[0], y[0], x[1], y[1], x[2], y[2])
	}
	return GeometricFactors{
		J:  J,
		Rx: ys / J, Ry: -xs / J,
		Sx: -yr / J, Sy: xr / J,
	}, nil
}

// MassMatrix returns ∫ φi φj over the physical triangle.
func (el *Tri1) MassMatrix(x, y []float64) (*mat.Dense, error) {
	gf, err := el.Geometric(x, y)
	if err != nil {
		return nil, err
	}
	M := mat.NewDense(3, 3, nil)
	M.Scale(math.Abs(gf.J), el.m)
	return M, nil
}

// Gradients returns the physical basis gradients, one column per basis
// function, and the area of the triangle (x, y).
func (el *Tri1) Gradients(x, y []float64) (*mat.Dense, float64, error) {
	gf, err := el.Geometric(x, y)
	if err != nil {
		return nil, 0, err
	}
	G := mat.NewDense(2, 3, nil)
	for j := 0; j < 3; j++ {
		dr, ds := el.dr.At(0, j), el.ds.At(0, j)
		G.Set(0, j, gf.Rx*dr+gf.Sx*ds)
		G.Set(1, j, gf.Ry*dr+gf.Sy*ds)
	}
	return G, gf.Area(referenceArea), nil
}

// StiffnessMatrix returns ∫ ∇φi·∇φj over the physical triangle.
func (el *Tri1) StiffnessMatrix(x, y []float64) (*mat.Dense, error) {
	G, area, err := el.Gradients(x, y)
	if err != nil {
		return nil, err
	}
	K := mat.NewDense(3, 3, nil)
	K.Mul(G.T(), G)
	K.Scale(area, K)
	return K, nil
}
