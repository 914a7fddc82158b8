// Package ogre serialises meshes and skeletons as OGRE XML documents.
package ogre

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/Faultbox/ogrexport/pkg/geometry"
	"github.com/Faultbox/ogrexport/pkg/markup"
	"github.com/Faultbox/ogrexport/pkg/math"
	"github.com/Faultbox/ogrexport/pkg/morph"
)

// ErrIndexOutOfRange is returned when a submesh references a vertex past
// the end of the shared buffer.
var ErrIndexOutOfRange = errors.New("triangle index out of range")

// BoneAssignment binds one compact vertex to one bone.
type BoneAssignment struct {
	Vertex int
	Bone   int
	Weight float32
}

// Mesh is everything written to a mesh document.
type Mesh struct {
	Buffer *geometry.Buffer
	// Positions holds engine-space positions indexed by Vertex.Source.
	Positions []math.Vec3
	Submeshes []geometry.Submesh

	Tangents     bool
	SubmeshNames bool
	// Skeleton is the linked skeleton file name, empty for none.
	Skeleton        string
	BoneAssignments []BoneAssignment

	Poses          []morph.Pose
	PoseAnimations []*morph.Animation
}

// WriteMesh writes m as a mesh document. The vertex count in the header
// is filled in once the vertex buffer has been written.
func WriteMesh(out io.Writer, m *Mesh) error {
	n := m.Buffer.Len()
	for _, sm := range m.Submeshes {
		for _, tri := range sm.Triangles {
			for _, idx := range tri {
				if idx < 0 || idx >= n {
					return fmt.Errorf("submesh %q: %w: %d >= %d", sm.Name, ErrIndexOutOfRange, idx, n)
				}
			}
		}
	}

	w := markup.NewWriter(out)
	w.Declaration()
	w.StartTag("mesh")

	written := writeSharedGeometry(w, m)
	w.Resolve("vertexcount", strconv.Itoa(written))

	w.StartTag("submeshes")
	for _, sm := range m.Submeshes {
		w.StartTag("submesh",
			markup.A("material", sm.Material),
			markup.B("usesharedvertices", true),
			markup.B("use32bitindexes", sm.Use32BitIndices),
			markup.A("operationtype", "triangle_list"))
		w.StartTag("faces", markup.I("count", len(sm.Triangles)))
		for _, tri := range sm.Triangles {
			w.LeafTag("face", markup.I("v1", tri[0]), markup.I("v2", tri[1]), markup.I("v3", tri[2]))
		}
		w.EndTag("faces")
		w.EndTag("submesh")
	}
	w.EndTag("submeshes")

	if m.Skeleton != "" {
		w.LeafTag("skeletonlink", markup.A("name", m.Skeleton))
	}

	if len(m.BoneAssignments) > 0 {
		w.StartTag("boneassignments")
		for _, ba := range m.BoneAssignments {
			w.LeafTag("vertexboneassignment",
				markup.I("vertexindex", ba.Vertex),
				markup.I("boneindex", ba.Bone),
				markup.F("weight", ba.Weight))
		}
		w.EndTag("boneassignments")
	}

	if m.SubmeshNames && len(m.Submeshes) > 0 {
		w.StartTag("submeshnames")
		for i, sm := range m.Submeshes {
			w.LeafTag("submeshname", markup.A("name", sm.Name), markup.I("index", i))
		}
		w.EndTag("submeshnames")
	}

	if len(m.Poses) > 0 {
		writePoses(w, m.Poses)
		if len(m.PoseAnimations) > 0 {
			writePoseAnimations(w, m.PoseAnimations)
		}
	}

	w.EndTag("mesh")
	return w.Flush()
}

func writeSharedGeometry(w *markup.Writer, m *Mesh) int {
	buf := m.Buffer
	w.StartTag("sharedgeometry", markup.A("vertexcount", w.Placeholder("vertexcount")))

	attrs := []markup.Attr{markup.B("positions", true), markup.B("normals", true)}
	if m.Tangents {
		attrs = append(attrs, markup.B("tangents", true), markup.I("tangent_dimensions", 4))
	}
	if buf.HasColor {
		attrs = append(attrs, markup.B("colours_diffuse", true))
	}
	if buf.UVSets > 0 {
		attrs = append(attrs, markup.I("texture_coords", buf.UVSets))
		for i := 0; i < buf.UVSets; i++ {
			attrs = append(attrs, markup.I(fmt.Sprintf("texture_coord_dimensions_%d", i), 2))
		}
	}
	w.StartTag("vertexbuffer", attrs...)

	count := 0
	for i := range buf.Vertices {
		v := &buf.Vertices[i]
		w.StartTag("vertex")
		p := m.Positions[v.Source]
		w.LeafTag("position", xyz(p)...)
		w.LeafTag("normal", xyz(v.Normal)...)
		if m.Tangents {
			t := v.Tangent
			w.LeafTag("tangent", markup.F("x", t.X), markup.F("y", t.Y), markup.F("z", t.Z), markup.F("w", t.W))
		}
		if buf.HasColor {
			c := math.Vec4{X: 1, Y: 1, Z: 1, W: 1}
			if v.Color != nil {
				c = *v.Color
			}
			value := markup.Float(c.X) + " " + markup.Float(c.Y) + " " + markup.Float(c.Z) + " " + markup.Float(c.W)
			w.LeafTag("colour_diffuse", markup.A("value", value))
		}
		for _, uv := range v.UVs {
			w.LeafTag("texcoord", markup.F("u", uv.X), markup.F("v", 1-uv.Y))
		}
		w.EndTag("vertex")
		count++
	}

	w.EndTag("vertexbuffer")
	w.EndTag("sharedgeometry")
	return count
}

func writePoses(w *markup.Writer, poses []morph.Pose) {
	w.StartTag("poses")
	for _, p := range poses {
		w.StartTag("pose", markup.A("target", "mesh"), markup.I("index", p.Index), markup.A("name", p.Name))
		for _, off := range p.Offsets {
			attrs := append([]markup.Attr{markup.I("index", off.Index)}, xyz(off.Position)...)
			if p.HasNormals {
				attrs = append(attrs,
					markup.F("nx", off.Normal.X), markup.F("ny", off.Normal.Y), markup.F("nz", off.Normal.Z))
			}
			w.LeafTag("poseoffset", attrs...)
		}
		w.EndTag("pose")
	}
	w.EndTag("poses")
}

func writePoseAnimations(w *markup.Writer, anims []*morph.Animation) {
	w.StartTag("animations")
	for _, a := range anims {
		w.StartTag("animation", markup.A("name", a.Name), markup.F("length", a.Length))
		w.StartTag("tracks")
		w.StartTag("track", markup.A("target", "mesh"), markup.I("index", 0), markup.A("type", "pose"))
		w.StartTag("keyframes")
		for _, kf := range a.Keyframes {
			w.StartTag("keyframe", markup.F("time", kf.Time))
			for _, ref := range kf.Refs {
				w.LeafTag("poseref", markup.I("poseindex", ref.Index), markup.F("influence", ref.Influence))
			}
			w.EndTag("keyframe")
		}
		w.EndTag("keyframes")
		w.EndTag("track")
		w.EndTag("tracks")
		w.EndTag("animation")
	}
	w.EndTag("animations")
}

func xyz(v math.Vec3) []markup.Attr {
	return []markup.Attr{markup.F("x", v.X), markup.F("y", v.Y), markup.F("z", v.Z)}
}
