// Package geometry packs per-face-corner attributes into a shared, indexed
// vertex buffer and partitions the resulting triangles into submeshes.
package geometry

import (
	"errors"
	"fmt"

	"github.com/Faultbox/ogrexport/pkg/math"
)

// ErrUVSetMismatch is returned when corners of one mesh carry different
// numbers of UV sets.
var ErrUVSetMismatch = errors.New("inconsistent UV set count")

// Attribute comparison tolerances. Normals coming out of upstream
// smoothing drift in the last few bits, so exact equality would split
// vertices that should be shared.
const (
	RelTolerance float32 = 1e-6
	AbsTolerance float32 = 1e-6
)

// Corner is the attribute tuple of one face corner.
type Corner struct {
	Source int // index into the shared position array
	Normal math.Vec3
	Color  *math.Vec4
	UVs    []math.Vec2
}

// Triangle is three face corners.
type Triangle [3]Corner

// Vertex is one entry of the compact buffer. Position is implied by
// Source and never takes part in equality.
type Vertex struct {
	Source  int
	Normal  math.Vec3
	Color   *math.Vec4
	UVs     []math.Vec2
	Tangent math.Vec4
}

// Equal compares the shading attributes of two vertices within tolerance.
func (v *Vertex) Equal(o *Vertex) bool {
	if !closeVec3(v.Normal, o.Normal) {
		return false
	}
	if (v.Color == nil) != (o.Color == nil) {
		return false
	}
	if v.Color != nil && !closeVec4(*v.Color, *o.Color) {
		return false
	}
	if len(v.UVs) != len(o.UVs) {
		return false
	}
	for i := range v.UVs {
		if !closeF(v.UVs[i].X, o.UVs[i].X) || !closeF(v.UVs[i].Y, o.UVs[i].Y) {
			return false
		}
	}
	return true
}

func closeF(a, b float32) bool {
	return math.Close(a, b, RelTolerance, AbsTolerance)
}

func closeVec3(a, b math.Vec3) bool {
	return closeF(a.X, b.X) && closeF(a.Y, b.Y) && closeF(a.Z, b.Z)
}

func closeVec4(a, b math.Vec4) bool {
	return closeF(a.X, b.X) && closeF(a.Y, b.Y) && closeF(a.Z, b.Z) && closeF(a.W, b.W)
}

// Buffer is the compact vertex buffer shared by all submeshes of a mesh.
type Buffer struct {
	Vertices []Vertex
	UVSets   int
	HasColor bool
}

// Len returns the number of compact vertices.
func (b *Buffer) Len() int {
	return len(b.Vertices)
}

// Sources returns, for each compact vertex, the source position index.
func (b *Buffer) Sources() []int {
	out := make([]int, len(b.Vertices))
	for i := range b.Vertices {
		out[i] = b.Vertices[i].Source
	}
	return out
}

// Deduplicator assigns compact indices to face corners. Corners sharing a
// source position and matching attributes map to the same vertex; the
// first corner seen decides the vertex order.
type Deduplicator struct {
	buf    Buffer
	shared map[int][]int
}

// NewDeduplicator returns an empty deduplicator.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{shared: make(map[int][]int)}
}

// Add returns the compact index for a corner, creating a vertex if no
// existing vertex at the same source position matches.
func (d *Deduplicator) Add(c Corner) int {
	cand := Vertex{Source: c.Source, Normal: c.Normal, Color: c.Color, UVs: c.UVs}
	for _, idx := range d.shared[c.Source] {
		if d.buf.Vertices[idx].Equal(&cand) {
			return idx
		}
	}
	idx := len(d.buf.Vertices)
	d.buf.Vertices = append(d.buf.Vertices, cand)
	d.shared[c.Source] = append(d.shared[c.Source], idx)
	if len(c.UVs) > d.buf.UVSets {
		d.buf.UVSets = len(c.UVs)
	}
	if c.Color != nil {
		d.buf.HasColor = true
	}
	return idx
}

// Buffer returns the compact buffer built so far.
func (d *Deduplicator) Buffer() *Buffer {
	return &d.buf
}

// Deduplicate runs a deduplicator over tris and returns the compact buffer
// and the remapped triangles, in input order.
func Deduplicate(tris []Triangle) (*Buffer, [][3]int, error) {
	if err := checkUVSets(tris); err != nil {
		return nil, nil, err
	}
	d := NewDeduplicator()
	out := make([][3]int, len(tris))
	for i, tri := range tris {
		for c := 0; c < 3; c++ {
			out[i][c] = d.Add(tri[c])
		}
	}
	return d.Buffer(), out, nil
}

func checkUVSets(tris []Triangle) error {
	if len(tris) == 0 {
		return nil
	}
	want := len(tris[0][0].UVs)
	for i, tri := range tris {
		for c := range tri {
			if n := len(tri[c].UVs); n != want {
				return fmt.Errorf("%w: triangle %d corner %d has %d, expected %d", ErrUVSetMismatch, i, c, n, want)
			}
		}
	}
	return nil
}
