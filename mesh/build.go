package mesh

import (
	"fmt"

	"github.com/james-bowman/sparse"

	"github.com/notargets/CoastalDD/mesh/readers"
)

// Source is the global data a domain mesh is extracted from.
type Source struct {
	Geometry  *readers.Geometry
	Interface []int     // Zero-based global ids on the decomposition interface
	Depth     []float64 // One per global vertex
	DomainID  int
}

// Read loads the domain tagged domainID from text formatted files.
func Read(meshFile, interfaceFile, depthFile string, domainID int) (*Mesh, error) {
	return ReadWith(readers.DefaultFormats(), meshFile, interfaceFile, depthFile, domainID)
}

// ReadWith loads the domain tagged domainID using the given formats.
func ReadWith(formats readers.Formats, meshFile, interfaceFile, depthFile string, domainID int) (*Mesh, error) {
	in, err := formats.ReadFiles(meshFile, interfaceFile, depthFile)
	if err != nil {
		return nil, err
	}
	m, err := NewMesh(Source{
		Geometry:  in.Geometry,
		Interface: in.Interface,
		Depth:     in.Depth,
		DomainID:  domainID,
	})
	if err != nil {
		return nil, fmt.Errorf("domain %d of %s: %w", domainID, meshFile, err)
	}
	return m, nil
}

// NewMesh extracts and validates one domain from global data.
func NewMesh(src Source) (*Mesh, error) {
	g := src.Geometry
	if g == nil {
		return nil, fmt.Errorf("%w: no geometry", ErrMalformed)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	nTotal := g.NumVertices()
	if len(src.Depth) != nTotal {
		return nil, fmt.Errorf("%w: %d depths for %d vertices", ErrCountMismatch, len(src.Depth), nTotal)
	}
	if len(src.Interface) > nTotal {
		return nil, fmt.Errorf("%w: %d interface vertices for %d vertices", ErrCountMismatch, len(src.Interface), nTotal)
	}
	onInterface := make([]bool, nTotal)
	for _, v := range src.Interface {
		if v < 0 || v >= nTotal {
			return nil, fmt.Errorf("%w: interface vertex %d outside [0, %d)", ErrMalformed, v, nTotal)
		}
		if onInterface[v] {
			return nil, fmt.Errorf("%w: interface vertex %d listed twice", ErrMalformed, v)
		}
		onInterface[v] = true
	}

	// Vertices touched by the domain's triangles
	touched := make([]bool, nTotal)
	var domainTris []int
	for t, d := range g.TriangleDomain {
		if d != src.DomainID {
			continue
		}
		domainTris = append(domainTris, t)
		for _, v := range g.Triangles[t] {
			touched[v] = true
		}
	}
	if len(domainTris) == 0 {
		return nil, fmt.Errorf("%w: domain %d", ErrNoDomain, src.DomainID)
	}

	m := &Mesh{
		domainID:        src.DomainID,
		globalToLocal:     make(map[int]int),
		nbTotalVertices:   nTotal,
		nbGlobalInterface: len(src.Interface),
	}
	addVertex := func(gv int) error {
		kind, err := boundaryKind(g.VertexBoundary[gv])
		if err != nil {
			return fmt.Errorf("vertex %d: %w", gv, err)
		}
		m.globalToLocal[gv] = len(m.localToGlobal)
		m.localToGlobal = append(m.localToGlobal, gv)
		m.vertices = append(m.vertices, Vertex{X: g.X[gv], Y: g.Y[gv], Boundary: kind})
		m.depth = append(m.depth, src.Depth[gv])
		return nil
	}
	for gv := 0; gv < nTotal; gv++ {
		if touched[gv] && !onInterface[gv] {
			if err := addVertex(gv); err != nil {
				return nil, err
			}
		}
	}
	for _, gv := range src.Interface {
		if touched[gv] {
			if err := addVertex(gv); err != nil {
				return nil, err
			}
			m.nbInterfaceVertices++
		}
	}

	type edgeKey struct{ a, b int }
	key := func(a, b int) edgeKey {
		if a > b {
			a, b = b, a
		}
		return edgeKey{a, b}
	}
	triEdges := make(map[edgeKey]bool, 3*len(domainTris))
	m.triangles = make([]Triangle, len(domainTris))
	for lt, t := range domainTris {
		tri := Triangle{Domain: src.DomainID}
		for k, gv := range g.Triangles[t] {
			tri.V[k] = m.globalToLocal[gv]
		}
		m.triangles[lt] = tri
		for k := 0; k < 3; k++ {
			triEdges[key(tri.V[k], tri.V[(k+1)%3])] = true
		}
	}

	for e, edge := range g.Edges {
		a, okA := m.globalToLocal[edge[0]]
		b, okB := m.globalToLocal[edge[1]]
		if !okA || !okB || !triEdges[key(a, b)] {
			continue
		}
		kind, err := boundaryKind(g.EdgeBoundary[e])
		if err != nil {
			return nil, fmt.Errorf("edge %d: %w", e, err)
		}
		m.boundary = append(m.boundary, Edge{V: [2]int{a, b}, Boundary: kind})
	}

	m.vertexTriangles = buildVertexTriangles(len(m.vertices), m.triangles)

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// buildVertexTriangles assembles the vertex x triangle incidence matrix.
func buildVertexTriangles(nv int, tris []Triangle) *sparse.CSR {
	dok := sparse.NewDOK(nv, len(tris))
	for t, tri := range tris {
		for k, v := range tri.V {
			dok.Set(v, t, float64(k+1))
		}
	}
	return dok.ToCSR()
}

// Validate checks the count, index and mapping invariants of the mesh.
func (m *Mesh) Validate() error {
	nv := len(m.vertices)
	switch {
	case m.nbInterfaceVertices < 0 || nv < m.nbInterfaceVertices:
		return fmt.Errorf("%w: %d vertices but %d interface vertices", ErrInvariant, nv, m.nbInterfaceVertices)
	case m.nbTotalVertices < m.nbInterfaceVertices:
		return fmt.Errorf("%w: %d total vertices but %d interface vertices", ErrInvariant, m.nbTotalVertices, m.nbInterfaceVertices)
	case m.nbTotalVertices < nv:
		return fmt.Errorf("%w: %d local vertices exceed %d total", ErrInvariant, nv, m.nbTotalVertices)
	case len(m.depth) != nv:
		return fmt.Errorf("%w: %d depths for %d vertices", ErrInvariant, len(m.depth), nv)
	case len(m.localToGlobal) != nv || len(m.globalToLocal) != nv:
		return fmt.Errorf("%w: mapping sizes %d/%d for %d vertices", ErrInvariant, len(m.localToGlobal), len(m.globalToLocal), nv)
	}
	for t, tri := range m.triangles {
		for _, v := range tri.V {
			if v < 0 || v >= nv {
				return fmt.Errorf("%w: triangle %d references local vertex %d outside [0, %d)", ErrInvariant, t, v, nv)
			}
		}
	}
	for e, edge := range m.boundary {
		for _, v := range edge.V {
			if v < 0 || v >= nv {
				return fmt.Errorf("%w: edge %d references local vertex %d outside [0, %d)", ErrInvariant, e, v, nv)
			}
		}
	}
	for gv, l := range m.globalToLocal {
		if l < 0 || l >= nv || m.localToGlobal[l] != gv {
			return fmt.Errorf("%w: global vertex %d maps to local %d which does not map back", ErrInvariant, gv, l)
		}
	}
	return nil
}
