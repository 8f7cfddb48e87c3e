package mesh

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/CoastalDD/mesh/readers"
	"github.com/notargets/CoastalDD/utils"
)

// grid3x3 is a 2x2-cell channel split into two strips:
//
//	6 - 7 - 8
//	| 1 | 2 |
//	3 - 4 - 5
//	| 1 | 2 |
//	0 - 1 - 2
//
// Interface vertices are 1, 4, 7.
func grid3x3(t *testing.T) (*readers.Geometry, []int, []float64) {
	t.Helper()
	g, iface, err := utils.Channel(2, 2, 2, 2, 2)
	require.NoError(t, err)
	depth := make([]float64, g.NumVertices())
	for i := range depth {
		depth[i] = 10 + float64(i)
	}
	return g, iface, depth
}

func writeInputs(t *testing.T, g *readers.Geometry, iface []int, depth []float64) (string, string, string) {
	t.Helper()
	meshFile, ifaceFile, depthFile, err := utils.WriteFiles(t.TempDir(), g, iface, depth)
	require.NoError(t, err)
	return meshFile, ifaceFile, depthFile
}

func checkInvariants(t *testing.T, m *Mesh) {
	t.Helper()
	assert.Equal(t, m.NumVertices(), m.NbLocalInterior()+m.NbInterfaceVertices())
	assert.Equal(t, m.NbTotalVertices(), m.NbGlobalInterior()+m.NbInterfaceVertices())
	for i := 0; i < m.NumVertices(); i++ {
		l, ok := m.GlobalToLocal(m.LocalToGlobal(i))
		require.True(t, ok)
		assert.Equal(t, i, l)
	}
	for _, tri := range m.Triangles() {
		for _, v := range tri.V {
			assert.GreaterOrEqual(t, v, 0)
			assert.Less(t, v, m.NumVertices())
		}
	}
	assert.Len(t, m.Depths(), m.NumVertices())
	require.NoError(t, m.Validate())
}

func TestReadDomain(t *testing.T) {
	g, iface, depth := grid3x3(t)
	meshFile, ifaceFile, depthFile := writeInputs(t, g, iface, depth)

	m, err := Read(meshFile, ifaceFile, depthFile, 1)
	require.NoError(t, err)
	checkInvariants(t, m)

	assert.Equal(t, 1, m.DomainID())
	assert.Equal(t, 4, m.NumTriangles())
	assert.Equal(t, 6, m.NumVertices())
	assert.Equal(t, 3, m.NbInterfaceVertices())
	assert.Equal(t, 9, m.NbTotalVertices())
	assert.Equal(t, 3, m.NbLocalInterior())
	assert.Equal(t, 6, m.NbGlobalInterior())
	assert.Equal(t, []int{0, 3, 6, 1, 4, 7}, m.LocalToGlobalMap())
	assert.Equal(t, []int{1, 4, 7}, m.InterfaceGlobals())
	assert.False(t, m.IsInterface(2))
	assert.True(t, m.IsInterface(3))

	_, ok := m.GlobalToLocal(2)
	assert.False(t, ok, "vertex 2 belongs to the other domain only")

	// Depth follows the vertex by global id
	for i := 0; i < m.NumVertices(); i++ {
		assert.Equal(t, 10+float64(m.LocalToGlobal(i)), m.Depth(i))
	}

	v0 := m.Vertex(0)
	assert.Equal(t, Vertex{X: 0, Y: 0, Boundary: OpenBoundary}, v0)
	center, _ := m.GlobalToLocal(4)
	assert.Equal(t, NoBoundary, m.Vertex(center).Boundary)

	// Left side open, bottom and top closed; the interface is not a boundary
	var open, closed int
	for _, e := range m.Boundary() {
		switch e.Boundary {
		case OpenBoundary:
			open++
		case ClosedBoundary:
			closed++
		}
	}
	assert.Equal(t, 2, open)
	assert.Equal(t, 2, closed)
	assert.Contains(t, m.String(), "Domain 1")
}

func TestSecondDomainSharesInterface(t *testing.T) {
	g, iface, depth := grid3x3(t)
	m, err := NewMesh(Source{Geometry: g, Interface: iface, Depth: depth, DomainID: 2})
	require.NoError(t, err)
	checkInvariants(t, m)
	assert.Equal(t, []int{2, 5, 8, 1, 4, 7}, m.LocalToGlobalMap())
	assert.Len(t, m.Boundary(), 4, "bottom, right and top edges of the right strip")
}

func TestCountScenario(t *testing.T) {
	// 20 global vertices; domain 7 uses vertices 0..4 of which 3 and 4 are
	// on the interface.
	g := &readers.Geometry{
		X:              make([]float64, 20),
		Y:              make([]float64, 20),
		VertexBoundary: make([]int, 20),
		Triangles:      [][3]int{{0, 1, 2}, {1, 3, 2}, {2, 3, 4}, {3, 5, 4}},
		TriangleDomain: []int{7, 7, 7, 8},
	}
	for i := range g.X {
		g.X[i] = float64(i % 5)
		g.Y[i] = float64(i / 5)
	}
	g.X[1], g.Y[1] = 1, 0
	g.X[2], g.Y[2] = 0, 1
	g.X[3], g.Y[3] = 1, 1
	g.X[4], g.Y[4] = 0, 2

	m, err := NewMesh(Source{Geometry: g, Interface: []int{3, 4}, Depth: make([]float64, 20), DomainID: 7})
	require.NoError(t, err)
	checkInvariants(t, m)
	assert.Equal(t, 5, m.NumVertices())
	assert.Equal(t, 2, m.NbInterfaceVertices())
	assert.Equal(t, 20, m.NbTotalVertices())
	assert.Equal(t, 3, m.NbLocalInterior())
	assert.Equal(t, 18, m.NbGlobalInterior())
}

func TestGlobalCountsWithThreeDomains(t *testing.T) {
	g, iface, err := utils.Channel(3, 2, 3, 2, 3)
	require.NoError(t, err)
	depth := utils.SlopingDepth(g, 1, 2)

	// 12 vertices, interface columns x = 1 and x = 2
	wantLocalIface := map[int]int{1: 3, 2: 6, 3: 3}
	for d, nIface := range wantLocalIface {
		m, err := NewMesh(Source{Geometry: g, Interface: iface, Depth: depth, DomainID: d})
		require.NoError(t, err)
		checkInvariants(t, m)
		assert.Equal(t, nIface, m.NbInterfaceVertices(), "domain %d", d)
		assert.Equal(t, 12-nIface, m.NbGlobalInterior(), "domain %d", d)
		assert.Equal(t, 6, m.NbGlobalInterface(), "domain %d", d)
		assert.Equal(t, 6, m.NbTotalVertices()-m.NbGlobalInterface(), "domain %d", d)
	}
}

func TestTrianglesAround(t *testing.T) {
	g, iface, depth := grid3x3(t)
	m, err := NewMesh(Source{Geometry: g, Interface: iface, Depth: depth, DomainID: 1})
	require.NoError(t, err)

	for v := 0; v < m.NumVertices(); v++ {
		var want []int
		for ti, tri := range m.Triangles() {
			for _, tv := range tri.V {
				if tv == v {
					want = append(want, ti)
				}
			}
		}
		assert.Equal(t, want, m.TrianglesAround(v), "vertex %d", v)
	}

	var area float64
	for ti := 0; ti < m.NumTriangles(); ti++ {
		area += m.TriangleArea(ti)
	}
	assert.InDelta(t, 2.0, area, 1e-12)
}

func TestAccessorsReturnCopies(t *testing.T) {
	g, iface, depth := grid3x3(t)
	m, err := NewMesh(Source{Geometry: g, Interface: iface, Depth: depth, DomainID: 1})
	require.NoError(t, err)

	tris := m.Triangles()
	tris[0].V[0] = 99
	verts := m.Vertices()
	verts[0].X = 99
	d := m.Depths()
	d[0] = -1
	l2g := m.LocalToGlobalMap()
	l2g[0] = 99

	checkInvariants(t, m)
	assert.NotEqual(t, 99, m.Triangle(0).V[0])
	assert.NotEqual(t, 99.0, m.Vertex(0).X)
	assert.NotEqual(t, -1.0, m.Depth(0))
	assert.NotEqual(t, 99, m.LocalToGlobal(0))
}

func TestNewMeshRejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(g *readers.Geometry, iface *[]int, depth *[]float64, domain *int)
		want   error
	}{
		{"short depth", func(g *readers.Geometry, iface *[]int, depth *[]float64, domain *int) {
			*depth = (*depth)[:8]
		}, ErrCountMismatch},
		{"long depth", func(g *readers.Geometry, iface *[]int, depth *[]float64, domain *int) {
			*depth = append(*depth, 1)
		}, ErrCountMismatch},
		{"interface out of range", func(g *readers.Geometry, iface *[]int, depth *[]float64, domain *int) {
			*iface = append(*iface, 9)
		}, ErrMalformed},
		{"duplicate interface vertex", func(g *readers.Geometry, iface *[]int, depth *[]float64, domain *int) {
			*iface = append(*iface, 4)
		}, ErrMalformed},
		{"triangle index out of range", func(g *readers.Geometry, iface *[]int, depth *[]float64, domain *int) {
			g.Triangles[0][2] = 42
		}, ErrMalformed},
		{"unknown boundary id", func(g *readers.Geometry, iface *[]int, depth *[]float64, domain *int) {
			g.VertexBoundary[0] = 7
		}, ErrMalformed},
		{"missing domain", func(g *readers.Geometry, iface *[]int, depth *[]float64, domain *int) {
			*domain = 5
		}, ErrNoDomain},
		{"triangle domain count", func(g *readers.Geometry, iface *[]int, depth *[]float64, domain *int) {
			g.TriangleDomain = g.TriangleDomain[:3]
		}, ErrCountMismatch},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g, iface, depth := grid3x3(t)
			domain := 1
			tc.mutate(g, &iface, &depth, &domain)
			m, err := NewMesh(Source{Geometry: g, Interface: iface, Depth: depth, DomainID: domain})
			assert.Nil(t, m)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := NewMesh(Source{})
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestReadRejectsMismatchedFiles(t *testing.T) {
	g, iface, depth := grid3x3(t)
	meshFile, ifaceFile, _ := writeInputs(t, g, iface, depth)

	dir := t.TempDir()
	shortDepth := filepath.Join(dir, "short.txt")
	require.NoError(t, os.WriteFile(shortDepth, []byte("8\n1\n2\n3\n4\n5\n6\n7\n8\n"), 0o644))
	m, err := Read(meshFile, ifaceFile, shortDepth, 1)
	assert.Nil(t, m)
	assert.ErrorIs(t, err, ErrCountMismatch)

	truncated := filepath.Join(dir, "truncated.txt")
	require.NoError(t, os.WriteFile(truncated, []byte("9\n1\n2\n3\n"), 0o644))
	_, err = Read(meshFile, ifaceFile, truncated, 1)
	assert.ErrorIs(t, err, ErrCountMismatch)

	_, err = Read(meshFile, filepath.Join(dir, "missing.txt"), truncated, 1)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
