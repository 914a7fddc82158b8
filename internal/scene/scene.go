// Package scene holds the read-only scene snapshot handed to the exporter
// and the pose evaluation context used to sample it.
package scene

import (
	"github.com/Faultbox/ogrexport/pkg/material"
	"github.com/Faultbox/ogrexport/pkg/math"
	"github.com/Faultbox/ogrexport/pkg/morph"
)

// Snapshot is a read-only view of a scene. The exporter never queries the
// source again once a snapshot is built.
type Snapshot struct {
	Name      string
	Meshes    []*MeshObject
	Armatures []*Armature
	Materials []*material.Material
	Clips     []*Clip
	// FPS is the frame rate clip frame numbers refer to.
	FPS float32
}

// Material looks up a material by name.
func (s *Snapshot) Material(name string) *material.Material {
	for _, m := range s.Materials {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Armature looks up an armature by name.
func (s *Snapshot) Armature(name string) *Armature {
	for _, a := range s.Armatures {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Clip looks up a clip by name.
func (s *Snapshot) Clip(name string) *Clip {
	for _, c := range s.Clips {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// MeshObject places mesh data in the scene.
type MeshObject struct {
	Name string
	Data *MeshData
	// Armature names the armature deforming this mesh, if any.
	Armature string
	Matrix   math.Mat4
}

// MeshData is polygon geometry with per-corner attributes.
type MeshData struct {
	Name      string
	Positions []math.Vec3
	// Normals are smooth per-vertex normals.
	Normals []math.Vec3
	Faces   []Face
	// UVLayers names the UV layers. Every face carries one UV per layer
	// per corner.
	UVLayers []string
	HasColor bool
	// Materials holds the material name of each slot.
	Materials []string

	VertexGroups []string
	// Weights lists the group weights of each vertex.
	Weights [][]Weight

	// ShapeKeys are the non-basis shape keys; the basis is Positions.
	ShapeKeys []morph.ShapeKey
	// ShapeWeights are the static influences used when no clip animates a
	// key.
	ShapeWeights []float32
}

// Face is one polygon.
type Face struct {
	Verts    []int
	Material int
	Smooth   bool
	Normal   math.Vec3
	// CornerNormals are custom split normals, nil when absent.
	CornerNormals []math.Vec3
	// UVs is indexed by corner then layer.
	UVs [][]math.Vec2
	// Colors is indexed by corner, nil when the mesh has no colors.
	Colors []math.Vec4
}

// Weight is one vertex group membership.
type Weight struct {
	Group int
	Value float32
}

// Armature is a bone tree. Bones are listed parents first.
type Armature struct {
	Name   string
	Matrix math.Mat4
	Bones  []Bone
}

// Bone is one armature bone.
type Bone struct {
	Name   string
	Parent string
	// Rest is the bind matrix in armature space.
	Rest         math.Mat4
	Deform       bool
	InheritScale bool
}

// Clip is a named animation. Frame numbers are in the snapshot's frame
// rate.
type Clip struct {
	Name       string
	Start, End int
	// Bones maps bone names to their channels. Channels are relative to
	// the bone's rest pose.
	Bones map[string]*Channel
	// Shapes maps mesh object names to per-key weight curves.
	Shapes map[string]map[string][]ScalarKey
}

// Animates reports whether the clip has channels for any of the bones.
func (c *Clip) Animates(bones []Bone) bool {
	for _, b := range bones {
		if _, ok := c.Bones[b.Name]; ok {
			return true
		}
	}
	return false
}

// KeyedBones returns the names of bones with channels in this clip, in
// armature order.
func (c *Clip) KeyedBones(a *Armature) []string {
	var out []string
	for _, b := range a.Bones {
		if _, ok := c.Bones[b.Name]; ok {
			out = append(out, b.Name)
		}
	}
	return out
}
