// Package readers parses the on-disk inputs of a domain mesh: the global
// triangulation, the decomposition interface list and the depth soundings.
//
// Every format is pluggable through the GeometryReader, InterfaceReader and
// DepthReader interfaces; Text is the default implementation of all three.
package readers

import (
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrMalformed indicates a record that cannot be parsed.
	ErrMalformed = errors.New("readers: malformed record")

	// ErrCountMismatch indicates a file whose record count disagrees with its
	// header or with another input.
	ErrCountMismatch = errors.New("readers: record count mismatch")
)

// Geometry is a global triangulation as stored on disk, zero based.
type Geometry struct {
	X, Y           []float64 // Vertex coordinates
	VertexBoundary []int     // Boundary id per vertex, 0 for none
	Triangles      [][3]int  // Vertex ids per triangle
	TriangleDomain []int     // Domain id per triangle
	Edges          [][2]int  // Boundary edge vertex ids
	EdgeBoundary   []int     // Boundary id per edge
}

// NumVertices returns the number of vertices in the global triangulation.
func (g *Geometry) NumVertices() int { return len(g.X) }

// Validate checks that the parallel arrays agree and every index is in range.
func (g *Geometry) Validate() error {
	nv := len(g.X)
	if len(g.Y) != nv || len(g.VertexBoundary) != nv {
		return fmt.Errorf("%w: %d x, %d y and %d vertex boundary ids", ErrCountMismatch, nv, len(g.Y), len(g.VertexBoundary))
	}
	if len(g.TriangleDomain) != len(g.Triangles) {
		return fmt.Errorf("%w: %d triangles but %d domain ids", ErrCountMismatch, len(g.Triangles), len(g.TriangleDomain))
	}
	if len(g.EdgeBoundary) != len(g.Edges) {
		return fmt.Errorf("%w: %d edges but %d boundary ids", ErrCountMismatch, len(g.Edges), len(g.EdgeBoundary))
	}
	for t, tri := range g.Triangles {
		for _, v := range tri {
			if v < 0 || v >= nv {
				return fmt.Errorf("%w: triangle %d references vertex %d outside [0, %d)", ErrMalformed, t, v, nv)
			}
		}
		if tri[0] == tri[1] || tri[1] == tri[2] || tri[0] == tri[2] {
			return fmt.Errorf("%w: triangle %d repeats a vertex %v", ErrMalformed, t, tri)
		}
	}
	for e, edge := range g.Edges {
		for _, v := range edge {
			if v < 0 || v >= nv {
				return fmt.Errorf("%w: edge %d references vertex %d outside [0, %d)", ErrMalformed, e, v, nv)
			}
		}
	}
	return nil
}

// GeometryReader parses a global triangulation.
type GeometryReader interface {
	ReadGeometry(r io.Reader) (*Geometry, error)
}

// InterfaceReader parses the zero-based global ids of the vertices shared
// between decomposition domains.
type InterfaceReader interface {
	ReadInterface(r io.Reader) ([]int, error)
}

// DepthReader parses one depth per global vertex, in geometry vertex order.
type DepthReader interface {
	ReadDepth(r io.Reader) ([]float64, error)
}

// Formats bundles the readers for the three inputs of a domain mesh.
type Formats struct {
	Geometry  GeometryReader
	Interface InterfaceReader
	Depth     DepthReader
}

// DefaultFormats returns the text format for every input.
func DefaultFormats() Formats {
	t := Text{}
	return Formats{Geometry: t, Interface: t, Depth: t}
}

// Inputs holds the parsed contents of the three files.
type Inputs struct {
	Geometry  *Geometry
	Interface []int
	Depth     []float64
}

// ReadFiles opens and parses the three files with the given formats.
func (f Formats) ReadFiles(meshFile, interfaceFile, depthFile string) (*Inputs, error) {
	if f.Geometry == nil || f.Interface == nil || f.Depth == nil {
		return nil, fmt.Errorf("readers: incomplete format set")
	}
	in := &Inputs{}
	var err error
	if err = withFile(meshFile, func(r io.Reader) (err error) {
		in.Geometry, err = f.Geometry.ReadGeometry(r)
		if err == nil {
			err = in.Geometry.Validate()
		}
		return err
	}); err != nil {
		return nil, err
	}
	if err = withFile(interfaceFile, func(r io.Reader) (err error) {
		in.Interface, err = f.Interface.ReadInterface(r)
		return err
	}); err != nil {
		return nil, err
	}
	if err = withFile(depthFile, func(r io.Reader) (err error) {
		in.Depth, err = f.Depth.ReadDepth(r)
		return err
	}); err != nil {
		return nil, err
	}
	return in, nil
}

// ReadGeometryFile parses a single triangulation file.
func (f Formats) ReadGeometryFile(meshFile string) (g *Geometry, err error) {
	err = withFile(meshFile, func(r io.Reader) (err error) {
		g, err = f.Geometry.ReadGeometry(r)
		if err == nil {
			err = g.Validate()
		}
		return err
	})
	return g, err
}

func withFile(path string, fn func(io.Reader) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	if err = fn(file); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
