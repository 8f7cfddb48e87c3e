// Package mesh holds one domain of a decomposed 2D triangulation: its
// triangles, vertices, boundary edges, depth soundings and the mapping
// between local and global vertex numbering.
//
// A Mesh is immutable once built. Local vertices are numbered with the
// domain's interior vertices first (ascending global id) followed by the
// domain's interface vertices (interface list order), so that local index
// i lies on the interface exactly when i >= NbLocalInterior().
package mesh

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/james-bowman/sparse"

	"github.com/notargets/CoastalDD/mesh/readers"
)

var (
	// ErrMalformed indicates input that cannot be interpreted.
	ErrMalformed = readers.ErrMalformed

	// ErrCountMismatch indicates inputs whose record counts disagree.
	ErrCountMismatch = readers.ErrCountMismatch

	// ErrNoDomain indicates that no triangle carries the requested domain id.
	ErrNoDomain = errors.New("mesh: domain has no triangles")

	// ErrInvariant indicates a built mesh failing a consistency check.
	ErrInvariant = errors.New("mesh: invariant violated")
)

// BoundaryKind classifies a vertex or boundary edge.
type BoundaryKind int

const (
	NoBoundary     BoundaryKind = 0
	ClosedBoundary BoundaryKind = 1 // Coastline, no normal flux
	OpenBoundary   BoundaryKind = 2 // Sea boundary, prescribed elevation
)

func (b BoundaryKind) String() string {
	switch b {
	case NoBoundary:
		return "none"
	case ClosedBoundary:
		return "closed"
	case OpenBoundary:
		return "open"
	default:
		return fmt.Sprintf("BoundaryKind(%d)", int(b))
	}
}

func boundaryKind(id int) (BoundaryKind, error) {
	switch b := BoundaryKind(id); b {
	case NoBoundary, ClosedBoundary, OpenBoundary:
		return b, nil
	default:
		return 0, fmt.Errorf("%w: unknown boundary id %d", ErrMalformed, id)
	}
}

// Triangle references three local vertices.
type Triangle struct {
	V      [3]int
	Domain int
}

// Vertex is a 2D point with its boundary classification.
type Vertex struct {
	X, Y     float64
	Boundary BoundaryKind
}

// Edge is a boundary segment between two local vertices.
type Edge struct {
	V        [2]int
	Boundary BoundaryKind
}

// Mesh is one domain of a decomposed triangulation.
type Mesh struct {
	domainID int

	triangles []Triangle
	vertices  []Vertex
	boundary  []Edge
	depth     []float64

	localToGlobal []int
	globalToLocal map[int]int

	nbInterfaceVertices int
	nbTotalVertices     int
	nbGlobalInterface   int

	// Vertex x triangle incidence, value = corner index + 1
	vertexTriangles *sparse.CSR
}

// DomainID returns the domain this mesh was extracted for.
func (m *Mesh) DomainID() int { return m.domainID }

// NumVertices returns the number of local vertices.
func (m *Mesh) NumVertices() int { return len(m.vertices) }

// NumTriangles returns the number of local triangles.
func (m *Mesh) NumTriangles() int { return len(m.triangles) }

// Vertex returns local vertex i.
func (m *Mesh) Vertex(i int) Vertex { return m.vertices[i] }

// Triangle returns local triangle t.
func (m *Mesh) Triangle(t int) Triangle { return m.triangles[t] }

// Vertices returns a copy of the local vertices.
func (m *Mesh) Vertices() []Vertex { return append([]Vertex(nil), m.vertices...) }

// Triangles returns a copy of the local triangles.
func (m *Mesh) Triangles() []Triangle { return append([]Triangle(nil), m.triangles...) }

// Boundary returns a copy of the domain's boundary edges.
func (m *Mesh) Boundary() []Edge { return append([]Edge(nil), m.boundary...) }

// Depth returns the depth at local vertex i.
func (m *Mesh) Depth(i int) float64 { return m.depth[i] }

// Depths returns a copy of the per-vertex depths.
func (m *Mesh) Depths() []float64 { return append([]float64(nil), m.depth...) }

// LocalToGlobal returns the global id of local vertex i.
func (m *Mesh) LocalToGlobal(i int) int { return m.localToGlobal[i] }

// LocalToGlobalMap returns a copy of the local to global ordering.
func (m *Mesh) LocalToGlobalMap() []int { return append([]int(nil), m.localToGlobal...) }

// GlobalToLocal returns the local index of global vertex g, if present.
func (m *Mesh) GlobalToLocal(g int) (int, bool) {
	l, ok := m.globalToLocal[g]
	return l, ok
}

// NbInterfaceVertices returns the number of local vertices on the
// decomposition interface.
func (m *Mesh) NbInterfaceVertices() int { return m.nbInterfaceVertices }

// NbTotalVertices returns the vertex count of the undecomposed mesh.
func (m *Mesh) NbTotalVertices() int { return m.nbTotalVertices }

// NbLocalInterior returns the number of local vertices off the interface.
func (m *Mesh) NbLocalInterior() int { return len(m.vertices) - m.nbInterfaceVertices }

// NbGlobalInterior returns NbTotalVertices less this domain's interface
// vertices. Interface vertices the domain does not touch are counted, so with
// more than two domains the value differs between domains; use
// NbGlobalInterface for the count over the whole interface.
func (m *Mesh) NbGlobalInterior() int { return m.nbTotalVertices - m.nbInterfaceVertices }

// NbGlobalInterface returns the length of the global interface list.
func (m *Mesh) NbGlobalInterface() int { return m.nbGlobalInterface }

// IsInterface reports whether local vertex i is on the interface.
func (m *Mesh) IsInterface(i int) bool { return i >= m.NbLocalInterior() }

// InterfaceGlobals returns the global ids of the interface vertices in local order.
func (m *Mesh) InterfaceGlobals() []int {
	return append([]int(nil), m.localToGlobal[m.NbLocalInterior():]...)
}

// TrianglesAround returns the local triangles containing local vertex i, in
// ascending order.
func (m *Mesh) TrianglesAround(i int) []int {
	tris := make([]int, 0, m.vertexTriangles.RowNNZ(i))
	m.vertexTriangles.DoRowNonZero(i, func(_, t int, _ float64) {
		tris = append(tris, t)
	})
	sort.Ints(tris)
	return tris
}

// TriangleArea returns the unsigned area of local triangle t.
func (m *Mesh) TriangleArea(t int) float64 {
	v := m.triangles[t].V
	a, b, c := m.vertices[v[0]], m.vertices[v[1]], m.vertices[v[2]]
	return 0.5 * math.Abs((b.X-a.X)*(c.Y-a.Y)-(c.X-a.X)*(b.Y-a.Y))
}

// String returns a short summary of the mesh.
func (m *Mesh) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("=== Domain %d ===\n", m.domainID))
	sb.WriteString(fmt.Sprintf("  Triangles: %d\n", len(m.triangles)))
	sb.WriteString(fmt.Sprintf("  Vertices: %d (%d interior, %d interface)\n",
		len(m.vertices), m.NbLocalInterior(), m.nbInterfaceVertices))
	sb.WriteString(fmt.Sprintf("  Boundary edges: %d\n", len(m.boundary)))
	sb.WriteString(fmt.Sprintf("  Global vertices: %d (%d interior)\n", m.nbTotalVertices, m.NbGlobalInterior()))
	if len(m.depth) > 0 {
		lo, hi := m.depth[0], m.depth[0]
		for _, d := range m.depth {
			lo, hi = math.Min(lo, d), math.Max(hi, d)
		}
		sb.WriteString(fmt.Sprintf("  Depth range: [%.4g, %.4g]\n", lo, hi))
	}
	return sb.String()
}
