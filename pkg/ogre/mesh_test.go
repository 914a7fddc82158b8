package ogre

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/Faultbox/ogrexport/pkg/geometry"
	"github.com/Faultbox/ogrexport/pkg/math"
	"github.com/Faultbox/ogrexport/pkg/morph"
)

func quadMesh(t *testing.T) *Mesh {
	t.Helper()
	up := math.Vec3{Y: 1}
	uv := func(u, v float32) []math.Vec2 { return []math.Vec2{{X: u, Y: v}} }
	tris := []geometry.Triangle{
		{{Source: 0, Normal: up, UVs: uv(0, 0)}, {Source: 1, Normal: up, UVs: uv(1, 0)}, {Source: 2, Normal: up, UVs: uv(1, 1)}},
		{{Source: 0, Normal: up, UVs: uv(0, 0)}, {Source: 2, Normal: up, UVs: uv(1, 1)}, {Source: 3, Normal: up, UVs: uv(0, 1)}},
	}
	buf, out, err := geometry.Deduplicate(tris)
	if err != nil {
		t.Fatalf("Deduplicate: %v", err)
	}
	p := geometry.Split(buf.Len(), out, []int{0, 0}, []string{"Floor"}, nil)
	return &Mesh{
		Buffer:    buf,
		Positions: []math.Vec3{{}, {X: 1}, {X: 1, Z: -1}, {Z: -1}},
		Submeshes: p.Submeshes,
	}
}

func TestWriteMesh(t *testing.T) {
	m := quadMesh(t)
	var out bytes.Buffer
	if err := WriteMesh(&out, m); err != nil {
		t.Fatalf("WriteMesh: %v", err)
	}
	s := out.String()

	for _, want := range []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<sharedgeometry vertexcount="4">`,
		`<vertexbuffer positions="true" normals="true" texture_coords="1" texture_coord_dimensions_0="2">`,
		`<position x="1.000000" y="0.000000" z="-1.000000" />`,
		`<texcoord u="1.000000" v="1.000000" />`,
		`<texcoord u="1.000000" v="0.000000" />`,
		`<submesh material="Floor" usesharedvertices="true" use32bitindexes="false" operationtype="triangle_list">`,
		`<faces count="2">`,
		`<face v1="0" v2="2" v3="3" />`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("missing %s in:\n%s", want, s)
		}
	}
	for _, absent := range []string{"___", "skeletonlink", "boneassignments", "poses", "submeshnames", "colours_diffuse"} {
		if strings.Contains(s, absent) {
			t.Errorf("unexpected %q in:\n%s", absent, s)
		}
	}
	if got := strings.Count(s, "<vertex>"); got != 4 {
		t.Errorf("vertex elements: got %d, want 4", got)
	}
}

func TestWriteMeshOptionalBlocks(t *testing.T) {
	m := quadMesh(t)
	m.Tangents = true
	m.SubmeshNames = true
	m.Skeleton = "Rig.skeleton"
	m.BoneAssignments = []BoneAssignment{{Vertex: 0, Bone: 1, Weight: 0.75}}
	m.Buffer.HasColor = true
	red := math.Vec4{X: 1, W: 1}
	m.Buffer.Vertices[0].Color = &red
	m.Poses = []morph.Pose{{
		Name:       "Bulge",
		HasNormals: true,
		Offsets:    []morph.Offset{{Index: 2, Position: math.Vec3{Y: 0.5}, Normal: math.Vec3{X: 0.1}}},
	}}
	m.PoseAnimations = []*morph.Animation{{
		Name:      "Pulse",
		Length:    1,
		Keyframes: []morph.Keyframe{{Time: 0, Refs: []morph.PoseRef{{Index: 0, Influence: 0.25}}}},
	}}

	var out bytes.Buffer
	if err := WriteMesh(&out, m); err != nil {
		t.Fatalf("WriteMesh: %v", err)
	}
	s := out.String()

	for _, want := range []string{
		`tangents="true" tangent_dimensions="4"`,
		`colours_diffuse="true"`,
		`<colour_diffuse value="1.000000 0.000000 0.000000 1.000000" />`,
		`<colour_diffuse value="1.000000 1.000000 1.000000 1.000000" />`,
		`<tangent x=`,
		`<skeletonlink name="Rig.skeleton" />`,
		`<vertexboneassignment vertexindex="0" boneindex="1" weight="0.750000" />`,
		`<submeshname name="Floor" index="0" />`,
		`<pose target="mesh" index="0" name="Bulge">`,
		`<poseoffset index="2" x="0.000000" y="0.500000" z="0.000000" nx="0.100000" ny="0.000000" nz="0.000000" />`,
		`<animation name="Pulse" length="1.000000">`,
		`<track target="mesh" index="0" type="pose">`,
		`<poseref poseindex="0" influence="0.250000" />`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("missing %s in:\n%s", want, s)
		}
	}

	order := []string{"<sharedgeometry", "<submeshes>", "<skeletonlink", "<boneassignments>", "<submeshnames>", "<poses>", "<animations>"}
	last := -1
	for _, tag := range order {
		i := strings.Index(s, tag)
		if i < last {
			t.Errorf("%s written out of order", tag)
		}
		last = i
	}
}

func TestWriteMeshIndexOutOfRange(t *testing.T) {
	m := quadMesh(t)
	m.Submeshes[0].Triangles = append(m.Submeshes[0].Triangles, [3]int{0, 1, 9})

	var out bytes.Buffer
	if err := WriteMesh(&out, m); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
	if out.Len() != 0 {
		t.Error("nothing should be written for an invalid mesh")
	}
}
