// Package morph turns shape keys into mesh poses and samples their
// influence weights into pose animations.
package morph

import (
	"errors"
	"fmt"

	"github.com/Faultbox/ogrexport/pkg/axis"
	"github.com/Faultbox/ogrexport/pkg/geometry"
	"github.com/Faultbox/ogrexport/pkg/math"
	"github.com/Faultbox/ogrexport/pkg/skeleton"
)

// ErrVertexCountMismatch is returned when a shape key does not have one
// position per base vertex, usually because a modifier changed topology.
var ErrVertexCountMismatch = errors.New("shape key vertex count does not match mesh")

// ShapeKey is an alternate position set for the base mesh vertices.
// Normals is optional and, when present, parallel to Positions.
type ShapeKey struct {
	Name      string
	Positions []math.Vec3
	Normals   []math.Vec3
}

// Options controls pose generation.
type Options struct {
	Normals bool
}

// Offset is the displacement of one compact vertex.
type Offset struct {
	Index    int
	Position math.Vec3
	Normal   math.Vec3
}

// Pose is one shape key expressed against the compact vertex buffer.
// Index is the shared-geometry target index, always 0.
type Pose struct {
	Name       string
	Index      int
	HasNormals bool
	Offsets    []Offset
}

// BuildPoses creates one pose per shape key. base holds the authored
// positions of the mesh vertices, buf the compact buffer whose normals are
// already converted with mode. Offsets are emitted for every compact
// vertex so pose index order matches keys.
func BuildPoses(base []math.Vec3, keys []ShapeKey, buf *geometry.Buffer, mode axis.Mode, opts Options) ([]Pose, error) {
	for _, k := range keys {
		if len(k.Positions) != len(base) {
			return nil, fmt.Errorf("%w: key %q has %d vertices, mesh has %d",
				ErrVertexCountMismatch, k.Name, len(k.Positions), len(base))
		}
	}

	poses := make([]Pose, 0, len(keys))
	for _, k := range keys {
		withNormals := opts.Normals && len(k.Normals) == len(base)
		p := Pose{
			Name:       k.Name,
			HasNormals: withNormals,
			Offsets:    make([]Offset, buf.Len()),
		}
		for i := range buf.Vertices {
			v := &buf.Vertices[i]
			off := Offset{
				Index:    i,
				Position: mode.Vec3(k.Positions[v.Source].Sub(base[v.Source])),
			}
			if withNormals {
				off.Normal = mode.Vec3(k.Normals[v.Source]).Sub(v.Normal)
			}
			p.Offsets[i] = off
		}
		poses = append(poses, p)
	}
	return poses, nil
}

// WeightSource evaluates shape-key influences. It shares the scene's
// evaluation state with skeleton.PoseSource.
type WeightSource interface {
	Activate(clip string) (restore func(), err error)
	SetFrame(frame int)
	ShapeWeight(key string) float32
}

// PoseRef is the influence of one pose in a keyframe.
type PoseRef struct {
	Index     int
	Influence float32
}

// Keyframe holds one reference per pose.
type Keyframe struct {
	Time float32
	Refs []PoseRef
}

// Animation is a sampled shape-key clip.
type Animation struct {
	Name      string
	Length    float32
	Keyframes []Keyframe
}

// SampleAnimation records the influence of every key at each frame of
// clip. Zero influences are kept so curves reload exactly. The source is
// restored on return.
func SampleAnimation(src WeightSource, clip skeleton.Clip, keys []string) (*Animation, error) {
	if err := clip.Validate(); err != nil {
		return nil, err
	}
	restore, err := src.Activate(clip.Name)
	if err != nil {
		return nil, fmt.Errorf("activating clip %q: %w", clip.Name, err)
	}
	defer restore()

	anim := &Animation{Name: clip.Name, Length: clip.Length()}
	for _, frame := range clip.Frames() {
		src.SetFrame(frame)
		kf := Keyframe{
			Time: float32(frame-clip.Start) / clip.FPS,
			Refs: make([]PoseRef, len(keys)),
		}
		for i, key := range keys {
			kf.Refs[i] = PoseRef{Index: i, Influence: src.ShapeWeight(key)}
		}
		anim.Keyframes = append(anim.Keyframes, kf)
	}
	return anim, nil
}
