package element

import "gonum.org/v1/gonum/mat"

// Dimensionality represents the spatial dimension of an element
type Dimensionality uint8

const (
	D1 Dimensionality = iota + 1 // Lines, edges
	D2                           // Triangles
)

// GeometryType identifies the shape of an element
type GeometryType uint8

const (
	Line GeometryType = iota
	Tri
)

// ElementProperties contains metadata describing an element type
type ElementProperties struct {
	Name       string       // Full descriptive name
	ShortName  string       // Abbreviated name, used as a key suffix
	Type       GeometryType // Element shape
	Order      int          // Polynomial order
	Np         int          // Nodes per element
	NVp        int          // Vertex nodes
	NFaces     int          // Faces (edges in 2D) per element
	Dimensions Dimensionality
}

// ReferenceOperators contains differential operators on the reference element
type ReferenceOperators struct {
	Dr mat.Matrix // Derivative with respect to r [Np × Np]
	Ds mat.Matrix // Derivative with respect to s [Np × Np]
}

// ReferenceElement defines element properties and operators in reference
// space. It is implemented once per element type.
type ReferenceElement interface {
	GetProperties() ElementProperties

	// Reference node coordinates, length Np each
	R() []float64
	S() []float64

	// Mass matrix on the reference element [Np × Np]
	M() mat.Matrix

	GetReferenceOperators() ReferenceOperators
}

// GetRefMatrices returns the reference matrices keyed by name and element short name.
func GetRefMatrices(el ReferenceElement) map[string]mat.Matrix {
	sn := el.GetProperties().ShortName
	ro := el.GetReferenceOperators()
	return map[string]mat.Matrix{
		"M_" + sn:  el.M(),
		"Dr_" + sn: ro.Dr,
		"Ds_" + sn: ro.Ds,
	}
}
