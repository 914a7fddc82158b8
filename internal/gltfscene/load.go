// Package gltfscene builds a scene snapshot from a glTF 2.0 document.
package gltfscene

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/Faultbox/ogrexport/internal/scene"
	"github.com/Faultbox/ogrexport/pkg/axis"
	"github.com/Faultbox/ogrexport/pkg/math"
)

// Options controls snapshot construction.
type Options struct {
	// FPS converts animation times to frame numbers.
	FPS float32
	// KeepYUp skips the Y-up to Z-up conversion. By default the document
	// is turned Z-up so the exporter's axis modes apply unchanged.
	KeepYUp bool
	Log     *zap.Logger
}

// Load opens a .gltf or .glb file and builds a snapshot from it.
func Load(path string, opts Options) (*scene.Snapshot, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	snap, err := FromDocument(doc, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return snap, nil
}

// builder carries the document and derived node data while converting.
type builder struct {
	doc  *gltf.Document
	opts Options
	log  *zap.Logger

	up     axis.Mode
	parent []int
	local  []math.Mat4
	world  []math.Mat4

	snap *scene.Snapshot
	// armatureOfSkin maps a skin index to its armature.
	armatureOfSkin map[int]*scene.Armature
	// joints maps joint node indices to their rest data. A node shared
	// by several skins keeps the first skin's.
	joints map[int]*joint
}

// FromDocument builds a snapshot from a decoded document.
func FromDocument(doc *gltf.Document, opts Options) (*scene.Snapshot, error) {
	if opts.FPS <= 0 {
		return nil, errors.New("fps must be positive")
	}
	b := &builder{
		doc:            doc,
		opts:           opts,
		log:            opts.Log,
		up:             axis.MustParse(axis.Aldeb),
		snap:           &scene.Snapshot{FPS: opts.FPS},
		armatureOfSkin: make(map[int]*scene.Armature),
		joints:         make(map[int]*joint),
	}
	if b.log == nil {
		b.log = zap.NewNop()
	}
	if opts.KeepYUp {
		b.up = axis.MustParse(axis.XYZ)
	}
	if doc.Scene != nil && int(*doc.Scene) < len(doc.Scenes) {
		b.snap.Name = doc.Scenes[*doc.Scene].Name
	}

	b.linkNodes()

	for i := range doc.Materials {
		b.snap.Materials = append(b.snap.Materials, b.convertMaterial(i))
	}
	for i := range doc.Skins {
		arm, err := b.convertSkin(i)
		if err != nil {
			return nil, errors.Wrapf(err, "skin %d", i)
		}
		b.armatureOfSkin[i] = arm
		b.snap.Armatures = append(b.snap.Armatures, arm)
	}
	for i, node := range doc.Nodes {
		if node.Mesh == nil {
			continue
		}
		obj, err := b.convertMeshNode(i)
		if err != nil {
			return nil, errors.Wrapf(err, "node %q", nodeName(doc, i))
		}
		b.snap.Meshes = append(b.snap.Meshes, obj)
	}
	for i := range doc.Animations {
		clip, err := b.convertAnimation(i)
		if err != nil {
			return nil, errors.Wrapf(err, "animation %d", i)
		}
		if clip != nil {
			b.snap.Clips = append(b.snap.Clips, clip)
		}
	}

	b.log.Debug("built snapshot",
		zap.Int("meshes", len(b.snap.Meshes)),
		zap.Int("armatures", len(b.snap.Armatures)),
		zap.Int("materials", len(b.snap.Materials)),
		zap.Int("clips", len(b.snap.Clips)))
	return b.snap, nil
}

// linkNodes records each node's parent and computes rest world matrices.
func (b *builder) linkNodes() {
	n := len(b.doc.Nodes)
	b.parent = make([]int, n)
	b.local = make([]math.Mat4, n)
	b.world = make([]math.Mat4, n)
	for i := range b.parent {
		b.parent[i] = -1
	}
	for i, node := range b.doc.Nodes {
		b.local[i] = nodeMatrix(node)
		for _, c := range node.Children {
			if int(c) < n {
				b.parent[c] = i
			}
		}
	}
	done := make([]bool, n)
	var resolve func(i int) math.Mat4
	resolve = func(i int) math.Mat4 {
		if done[i] {
			return b.world[i]
		}
		done[i] = true
		b.world[i] = b.local[i]
		if p := b.parent[i]; p >= 0 {
			b.world[i] = resolve(p).Mul(b.local[i])
		}
		return b.world[i]
	}
	for i := range b.doc.Nodes {
		resolve(i)
	}
}

// toScene converts a document-space matrix to the snapshot's space.
func (b *builder) toScene(m math.Mat4) math.Mat4 {
	flip := b.up.FlipMatrix()
	return flip.Mul(m).Mul(flip.Inverse())
}

func nodeMatrix(n *gltf.Node) math.Mat4 {
	if m := n.MatrixOrDefault(); m != identity16 {
		return math.Mat4(m)
	}
	t := n.Translation
	r := n.RotationOrDefault()
	s := n.ScaleOrDefault()
	return math.Compose(
		math.Vec3{X: t[0], Y: t[1], Z: t[2]},
		math.Quat{X: r[0], Y: r[1], Z: r[2], W: r[3]},
		math.Vec3{X: s[0], Y: s[1], Z: s[2]},
	)
}

var identity16 = [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

func nodeName(doc *gltf.Document, i int) string {
	if name := doc.Nodes[i].Name; name != "" {
		return name
	}
	return fmt.Sprintf("node%d", i)
}

// index normalises an optional glTF index, which the library exposes as
// a pointer or a plain value depending on the field.
func index[T uint32 | *uint32](v T) (int, bool) {
	switch x := any(v).(type) {
	case uint32:
		return int(x), true
	case *uint32:
		if x == nil {
			return 0, false
		}
		return int(*x), true
	}
	return 0, false
}
