// Package skeleton builds an engine-space rest pose from an authored bone
// tree and samples pose animation into keyframe tracks.
package skeleton

import (
	"errors"
	"fmt"

	"github.com/Faultbox/ogrexport/pkg/axis"
	"github.com/Faultbox/ogrexport/pkg/math"
)

// Skeleton errors.
var (
	ErrNoBones       = errors.New("skeleton has no bones")
	ErrDuplicateBone = errors.New("duplicate bone name")
	ErrBoneCycle     = errors.New("bone hierarchy contains a cycle")
)

// Thresholds used to decide whether a transform differs from identity.
const (
	TranslationEpsilon float32 = 1e-4
	RotationEpsilon    float32 = 1e-3
	ScaleEpsilon       float32 = 1e-3
)

// BoneSpec describes one authored bone.
type BoneSpec struct {
	Name   string
	Parent string // empty for roots
	// Bind is the bone's bind matrix in armature space.
	Bind math.Mat4
	// Output marks the bone for export. Ancestors of an output bone are
	// always exported.
	Output       bool
	InheritScale bool
}

// BuildOptions carries the armature context of a skeleton build.
type BuildOptions struct {
	// ObjectMatrix is the armature object's transform. Nil means identity.
	ObjectMatrix *math.Mat4
}

// Bone is a linked bone with its computed rest pose.
type Bone struct {
	Name         string
	ID           int // -1 when the bone is not exported
	Parent       *Bone
	Children     []*Bone
	Output       bool
	InheritScale bool
	Bind         math.Mat4

	OgreRest        math.Mat4
	InverseOgreRest math.Mat4
	// InverseTotal is Bind inverted, before composing with the parent.
	// Children use it as their inverse parent matrix.
	InverseTotal math.Mat4

	derived math.Mat4
}

// RestPosition returns the parent-relative rest translation.
func (b *Bone) RestPosition() math.Vec3 { return b.OgreRest.Translation() }

// RestRotation returns the parent-relative rest rotation.
func (b *Bone) RestRotation() math.Quat { return b.OgreRest.Rotation() }

// RestScale returns the parent-relative rest scale.
func (b *Bone) RestScale() math.Vec3 { return b.OgreRest.ScaleFactors() }

// DerivedRest returns the bone's rest matrix in engine world space.
func (b *Bone) DerivedRest() math.Mat4 { return b.derived }

// Skeleton is a linked bone tree with rest poses computed.
type Skeleton struct {
	Name     string
	Bones    []*Bone // input order
	Roots    []*Bone
	Warnings []string

	flip   math.Mat4
	byName map[string]*Bone
	output []*Bone
}

// Bone looks up a bone by name.
func (s *Skeleton) Bone(name string) *Bone {
	return s.byName[name]
}

// OutputBones returns the exported bones ordered by ID. Parents always
// precede their children.
func (s *Skeleton) OutputBones() []*Bone {
	return s.output
}

// Flip returns the axis flip matrix applied to root bones.
func (s *Skeleton) Flip() math.Mat4 {
	return s.flip
}

func (s *Skeleton) warnf(format string, args ...any) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

// Build links the bones, propagates the output flag to ancestors and
// computes each bone's rest pose relative to its parent.
func Build(name string, specs []BoneSpec, mode axis.Mode, opts BuildOptions) (*Skeleton, error) {
	if len(specs) == 0 {
		return nil, ErrNoBones
	}

	sk := &Skeleton{
		Name:   name,
		flip:   mode.FlipMatrix(),
		byName: make(map[string]*Bone, len(specs)),
	}
	for _, spec := range specs {
		if _, dup := sk.byName[spec.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateBone, spec.Name)
		}
		b := &Bone{
			Name:         spec.Name,
			ID:           -1,
			Output:       spec.Output,
			InheritScale: spec.InheritScale,
			Bind:         spec.Bind,
		}
		sk.byName[spec.Name] = b
		sk.Bones = append(sk.Bones, b)
	}

	// Tree-link pass.
	for i, spec := range specs {
		b := sk.Bones[i]
		if spec.Parent == "" {
			sk.Roots = append(sk.Roots, b)
			continue
		}
		parent, ok := sk.byName[spec.Parent]
		if !ok || parent == b {
			sk.warnf("bone %q: parent %q not found, treating as root", b.Name, spec.Parent)
			sk.Roots = append(sk.Roots, b)
			continue
		}
		b.Parent = parent
		parent.Children = append(parent.Children, b)
	}

	// Output propagation pass. Children are only known once every bone is
	// linked, so this cannot be folded into the link pass.
	for _, b := range sk.Bones {
		if !b.Output {
			continue
		}
		for p := b.Parent; p != nil && !p.Output; p = p.Parent {
			p.Output = true
		}
	}

	// Rest-compute pass, root to leaf.
	visited := 0
	for _, root := range sk.Roots {
		visited += sk.computeRest(root, sk.flip, sk.flip)
	}
	if visited != len(sk.Bones) {
		return nil, fmt.Errorf("%w: %d of %d bones unreachable from a root", ErrBoneCycle, len(sk.Bones)-visited, len(sk.Bones))
	}

	for _, root := range sk.Roots {
		t, r, _ := root.Bind.Decompose()
		if t.Length() > TranslationEpsilon || r.MinAngle() > RotationEpsilon {
			sk.warnf("root bone %q has a non-zero rest transform", root.Name)
		}
	}
	if opts.ObjectMatrix != nil && !opts.ObjectMatrix.IsIdentity(1e-5) {
		sk.warnf("armature %q has a non-identity object transform", name)
	}

	sk.assignIDs()
	return sk, nil
}

func (s *Skeleton) computeRest(b *Bone, inverseParent, parentDerived math.Mat4) int {
	b.InverseTotal = b.Bind.Inverse()
	b.OgreRest = inverseParent.Mul(b.Bind)
	b.InverseOgreRest = b.OgreRest.Inverse()
	if b.Parent == nil {
		b.derived = b.OgreRest
	} else {
		b.derived = parentDerived.Mul(b.OgreRest)
	}

	n := 1
	for _, c := range b.Children {
		n += s.computeRest(c, b.InverseTotal, b.derived)
	}
	return n
}

func (s *Skeleton) assignIDs() {
	var walk func(b *Bone)
	walk = func(b *Bone) {
		if b.Output {
			b.ID = len(s.output)
			s.output = append(s.output, b)
		}
		for _, c := range b.Children {
			walk(c)
		}
	}
	for _, root := range s.Roots {
		walk(root)
	}
}
