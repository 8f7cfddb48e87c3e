package readers

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Text reads the whitespace separated format.
//
// Geometry:
//
//	nverts ntris nedges
//	x y boundary          (nverts lines)
//	i j k domain          (ntris lines, 1-based vertex ids)
//	i j boundary          (nedges lines, 1-based vertex ids)
//
// Interface:
//
//	count
//	vertex                (count lines, 1-based vertex ids)
//
// Depth:
//
//	count
//	depth                 (count lines, geometry vertex order)
//
// Blank lines and lines starting with '#' are ignored. Trailing records past
// the header counts are rejected.
type Text struct{}

type lineScanner struct {
	sc   *bufio.Scanner
	line int
}

func newLineScanner(r io.Reader) *lineScanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	return &lineScanner{sc: sc}
}

// next returns the fields of the next non-empty, non-comment line.
func (s *lineScanner) next() ([]string, error) {
	for s.sc.Scan() {
		s.line++
		text := strings.TrimSpace(s.sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		return strings.Fields(text), nil
	}
	if err := s.sc.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// record reads the next line and requires exactly n fields.
func (s *lineScanner) record(n int, what string) ([]string, error) {
	fields, err := s.next()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: file ends before %s", ErrCountMismatch, what)
	}
	if err != nil {
		return nil, err
	}
	if len(fields) != n {
		return nil, fmt.Errorf("%w: line %d: %s has %d fields, expected %d", ErrMalformed, s.line, what, len(fields), n)
	}
	return fields, nil
}

// end requires that no records remain.
func (s *lineScanner) end() error {
	_, err := s.next()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: line %d: unexpected record past the declared count", ErrCountMismatch, s.line)
}

func (s *lineScanner) atoi(field, what string) (int, error) {
	v, err := strconv.Atoi(field)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d: %s %q is not an integer", ErrMalformed, s.line, what, field)
	}
	return v, nil
}

func (s *lineScanner) atof(field, what string) (float64, error) {
	v, err := strconv.ParseFloat(field, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: line %d: %s %q is not a finite number", ErrMalformed, s.line, what, field)
	}
	return v, nil
}

// Header counts only size the initial capacity up to this bound; larger
// inputs grow as records arrive.
const maxPrealloc = 1 << 16

func capHint(n int) int {
	return min(n, maxPrealloc)
}

func (s *lineScanner) count(what string) (int, error) {
	fields, err := s.record(1, what+" header")
	if err != nil {
		return 0, err
	}
	n, err := s.atoi(fields[0], what+" count")
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: line %d: negative %s count %d", ErrMalformed, s.line, what, n)
	}
	return n, nil
}

// ReadGeometry implements GeometryReader.
func (Text) ReadGeometry(r io.Reader) (*Geometry, error) {
	s := newLineScanner(r)
	header, err := s.record(3, "geometry header")
	if err != nil {
		return nil, err
	}
	var counts [3]int
	for i, f := range header {
		if counts[i], err = s.atoi(f, "geometry count"); err != nil {
			return nil, err
		}
		if counts[i] < 0 {
			return nil, fmt.Errorf("%w: negative geometry count %d", ErrMalformed, counts[i])
		}
	}
	nv, nt, ne := counts[0], counts[1], counts[2]

	g := &Geometry{
		X:              make([]float64, 0, capHint(nv)),
		Y:              make([]float64, 0, capHint(nv)),
		VertexBoundary: make([]int, 0, capHint(nv)),
		Triangles:      make([][3]int, 0, capHint(nt)),
		TriangleDomain: make([]int, 0, capHint(nt)),
		Edges:          make([][2]int, 0, capHint(ne)),
		EdgeBoundary:   make([]int, 0, capHint(ne)),
	}
	for i := 0; i < nv; i++ {
		f, err := s.record(3, "vertex")
		if err != nil {
			return nil, err
		}
		x, err := s.atof(f[0], "x")
		if err != nil {
			return nil, err
		}
		y, err := s.atof(f[1], "y")
		if err != nil {
			return nil, err
		}
		b, err := s.atoi(f[2], "vertex boundary")
		if err != nil {
			return nil, err
		}
		g.X = append(g.X, x)
		g.Y = append(g.Y, y)
		g.VertexBoundary = append(g.VertexBoundary, b)
	}
	for t := 0; t < nt; t++ {
		f, err := s.record(4, "triangle")
		if err != nil {
			return nil, err
		}
		var tri [3]int
		for k := 0; k < 3; k++ {
			v, err := s.atoi(f[k], "triangle vertex")
			if err != nil {
				return nil, err
			}
			tri[k] = v - 1
		}
		d, err := s.atoi(f[3], "triangle domain")
		if err != nil {
			return nil, err
		}
		g.Triangles = append(g.Triangles, tri)
		g.TriangleDomain = append(g.TriangleDomain, d)
	}
	for e := 0; e < ne; e++ {
		f, err := s.record(3, "edge")
		if err != nil {
			return nil, err
		}
		var edge [2]int
		for k := 0; k < 2; k++ {
			v, err := s.atoi(f[k], "edge vertex")
			if err != nil {
				return nil, err
			}
			edge[k] = v - 1
		}
		b, err := s.atoi(f[2], "edge boundary")
		if err != nil {
			return nil, err
		}
		g.Edges = append(g.Edges, edge)
		g.EdgeBoundary = append(g.EdgeBoundary, b)
	}
	if err = s.end(); err != nil {
		return nil, err
	}
	return g, nil
}

// ReadInterface implements InterfaceReader.
func (Text) ReadInterface(r io.Reader) ([]int, error) {
	s := newLineScanner(r)
	n, err := s.count("interface")
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, capHint(n))
	for i := 0; i < n; i++ {
		f, err := s.record(1, "interface vertex")
		if err != nil {
			return nil, err
		}
		v, err := s.atoi(f[0], "interface vertex")
		if err != nil {
			return nil, err
		}
		ids = append(ids, v-1)
	}
	if err = s.end(); err != nil {
		return nil, err
	}
	return ids, nil
}

// ReadDepth implements DepthReader.
func (Text) ReadDepth(r io.Reader) ([]float64, error) {
	s := newLineScanner(r)
	n, err := s.count("depth")
	if err != nil {
		return nil, err
	}
	depth := make([]float64, 0, capHint(n))
	for i := 0; i < n; i++ {
		f, err := s.record(1, "depth")
		if err != nil {
			return nil, err
		}
		d, err := s.atof(f[0], "depth")
		if err != nil {
			return nil, err
		}
		depth = append(depth, d)
	}
	if err = s.end(); err != nil {
		return nil, err
	}
	return depth, nil
}

// WriteGeometry writes g in the Text format.
func (Text) WriteGeometry(w io.Writer, g *Geometry) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d %d %d\n", len(g.X), len(g.Triangles), len(g.Edges))
	for i := range g.X {
		fmt.Fprintf(bw, "%s %s %d\n", formatFloat(g.X[i]), formatFloat(g.Y[i]), g.VertexBoundary[i])
	}
	for t, tri := range g.Triangles {
		fmt.Fprintf(bw, "%d %d %d %d\n", tri[0]+1, tri[1]+1, tri[2]+1, g.TriangleDomain[t])
	}
	for e, edge := range g.Edges {
		fmt.Fprintf(bw, "%d %d %d\n", edge[0]+1, edge[1]+1, g.EdgeBoundary[e])
	}
	return bw.Flush()
}

// WriteInterface writes zero-based ids in the Text format.
func (Text) WriteInterface(w io.Writer, ids []int) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\n", len(ids))
	for _, v := range ids {
		fmt.Fprintf(bw, "%d\n", v+1)
	}
	return bw.Flush()
}

// WriteDepth writes depths in the Text format.
func (Text) WriteDepth(w io.Writer, depth []float64) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\n", len(depth))
	for _, d := range depth {
		fmt.Fprintf(bw, "%s\n", formatFloat(d))
	}
	return bw.Flush()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
