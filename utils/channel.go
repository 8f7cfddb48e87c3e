package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/notargets/CoastalDD/mesh/readers"
)

// Boundary ids used by the text formats
const (
	interiorID = 0
	closedID   = 1
	openID     = 2
)

// Channel builds a structured triangulation of the rectangle [0,lx]x[0,ly]
// with nx by ny cells, each cut into two triangles. The cells are split into
// nDomains vertical strips tagged 1..nDomains; the returned interface lists
// the vertices on the strip boundaries. The left side (x = 0) is an open
// boundary, the other sides are closed.
func Channel(nx, ny int, lx, ly float64, nDomains int) (*readers.Geometry, []int, error) {
	if nx <= 0 || ny <= 0 || nDomains <= 0 {
		return nil, nil, fmt.Errorf("invalid channel dimensions: nx=%d, ny=%d, domains=%d", nx, ny, nDomains)
	}
	if nx%nDomains != 0 {
		return nil, nil, fmt.Errorf("nx=%d is not divisible into %d strips", nx, nDomains)
	}
	stride := nx + 1
	id := func(i, j int) int { return j*stride + i }
	nv := stride * (ny + 1)

	g := &readers.Geometry{
		X:              make([]float64, nv),
		Y:              make([]float64, nv),
		VertexBoundary: make([]int, nv),
	}
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			v := id(i, j)
			g.X[v] = lx * float64(i) / float64(nx)
			g.Y[v] = ly * float64(j) / float64(ny)
			switch {
			case i == 0:
				g.VertexBoundary[v] = openID
			case i == nx || j == 0 || j == ny:
				g.VertexBoundary[v] = closedID
			default:
				g.VertexBoundary[v] = interiorID
			}
		}
	}

	cellsPerStrip := nx / nDomains
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			v00, v10, v01, v11 := id(i, j), id(i+1, j), id(i, j+1), id(i+1, j+1)
			domain := 1 + i/cellsPerStrip
			g.Triangles = append(g.Triangles, [3]int{v00, v10, v11}, [3]int{v00, v11, v01})
			g.TriangleDomain = append(g.TriangleDomain, domain, domain)
		}
	}

	addEdge := func(a, b, kind int) {
		g.Edges = append(g.Edges, [2]int{a, b})
		g.EdgeBoundary = append(g.EdgeBoundary, kind)
	}
	for i := 0; i < nx; i++ {
		addEdge(id(i, 0), id(i+1, 0), closedID)
	}
	for j := 0; j < ny; j++ {
		addEdge(id(nx, j), id(nx, j+1), closedID)
	}
	for i := nx; i > 0; i-- {
		addEdge(id(i, ny), id(i-1, ny), closedID)
	}
	for j := ny; j > 0; j-- {
		addEdge(id(0, j), id(0, j-1), openID)
	}

	var iface []int
	for k := 1; k < nDomains; k++ {
		i := k * cellsPerStrip
		for j := 0; j <= ny; j++ {
			iface = append(iface, id(i, j))
		}
	}
	return g, iface, nil
}

// SlopingDepth returns a depth per vertex that grows linearly from shallow
// at x = lx to deep at x = 0.
func SlopingDepth(g *readers.Geometry, shallow, deep float64) []float64 {
	xmax := 0.0
	for _, x := range g.X {
		xmax = max(xmax, x)
	}
	depth := make([]float64, len(g.X))
	for i, x := range g.X {
		frac := 0.0
		if xmax > 0 {
			frac = x / xmax
		}
		depth[i] = deep + (shallow-deep)*frac
	}
	return depth
}

// WriteFiles writes the three inputs of a domain mesh into dir in the text
// format and returns their paths.
func WriteFiles(dir string, g *readers.Geometry, iface []int, depth []float64) (meshFile, ifaceFile, depthFile string, err error) {
	meshFile = filepath.Join(dir, "mesh.txt")
	ifaceFile = filepath.Join(dir, "interface.txt")
	depthFile = filepath.Join(dir, "depth.txt")
	text := readers.Text{}
	writers := []struct {
		path  string
		write func(*os.File) error
	}{
		{meshFile, func(f *os.File) error { return text.WriteGeometry(f, g) }},
		{ifaceFile, func(f *os.File) error { return text.WriteInterface(f, iface) }},
		{depthFile, func(f *os.File) error { return text.WriteDepth(f, depth) }},
	}
	for _, w := range writers {
		f, err := os.Create(w.path)
		if err != nil {
			return "", "", "", err
		}
		if err = w.write(f); err != nil {
			f.Close()
			return "", "", "", fmt.Errorf("write %s: %w", w.path, err)
		}
		if err = f.Close(); err != nil {
			return "", "", "", err
		}
	}
	return meshFile, ifaceFile, depthFile, nil
}
