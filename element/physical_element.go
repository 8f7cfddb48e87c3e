package element

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrDegenerate indicates a physical element with zero area.
var ErrDegenerate = errors.New("element: degenerate element")

// GeometricFactors maps an affine element between reference space and
// physical space. Metric terms are constant over the element.
type GeometricFactors struct {
	J      float64 // Jacobian determinant |∂(x,y)/∂(r,s)|, signed
	Rx, Ry float64 // ∂r/∂x, ∂r/∂y
	Sx, Sy float64 // ∂s/∂x, ∂s/∂y
}

// Area returns the physical area of the element.
func (g GeometricFactors) Area(referenceArea float64) float64 {
	if g.J < 0 {
		return -g.J * referenceArea
	}
	return g.J * referenceArea
}

// PhysicalElement evaluates physical operators for one affine element.
type PhysicalElement interface {
	Reference() ReferenceElement

	// Geometric factors for the element with the given vertex coordinates
	Geometric(x, y []float64) (GeometricFactors, error)

	// Physical mass matrix ∫ φi φj
	MassMatrix(x, y []float64) (*mat.Dense, error)

	// Physical stiffness matrix ∫ ∇φi·∇φj
	StiffnessMatrix(x, y []float64) (*mat.Dense, error)
}

func checkVertices(np int, x, y []float64) error {
	if len(x) != np || len(y) != np {
		return fmt.Errorf("element: %d x and %d y coordinates for %d vertices", len(x), len(y), np)
	}
	return nil
}
