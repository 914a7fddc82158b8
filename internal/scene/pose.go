package scene

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Faultbox/ogrexport/pkg/math"
)

// Pose context errors.
var (
	ErrUnknownClip     = errors.New("unknown clip")
	ErrUnknownArmature = errors.New("unknown armature")
	ErrUnknownMesh     = errors.New("unknown mesh")
	ErrContextBusy     = errors.New("pose context is already sampling")
)

// PoseContext is the single evaluation state of a snapshot: the active
// clip and the current frame. Only one sampling pass may hold it at a
// time; Activate fails with ErrContextBusy otherwise.
type PoseContext struct {
	snap  *Snapshot
	busy  sync.Mutex
	clip  *Clip
	frame int
	// gen changes whenever the clip or frame does and invalidates the
	// cached bone poses of every view.
	gen uint64
}

// NewPoseContext returns a context at frame 0 with no active clip, which
// evaluates every bone at rest.
func NewPoseContext(snap *Snapshot) *PoseContext {
	return &PoseContext{snap: snap}
}

// Frame returns the current frame.
func (p *PoseContext) Frame() int { return p.frame }

// ActiveClip returns the active clip name, empty at rest.
func (p *PoseContext) ActiveClip() string {
	if p.clip == nil {
		return ""
	}
	return p.clip.Name
}

// Activate makes the named clip active and returns a func restoring the
// previous clip and frame and releasing the context.
func (p *PoseContext) Activate(name string) (func(), error) {
	clip := p.snap.Clip(name)
	if clip == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownClip, name)
	}
	if !p.busy.TryLock() {
		return nil, ErrContextBusy
	}

	prevClip, prevFrame := p.clip, p.frame
	p.clip = clip
	p.gen++

	var once sync.Once
	return func() {
		once.Do(func() {
			p.clip, p.frame = prevClip, prevFrame
			p.gen++
			p.busy.Unlock()
		})
	}, nil
}

// SetFrame moves the context to frame.
func (p *PoseContext) SetFrame(frame int) {
	if frame != p.frame {
		p.frame = frame
		p.gen++
	}
}

// Armature returns a pose view of the named armature.
func (p *PoseContext) Armature(name string) (*ArmaturePose, error) {
	a := p.snap.Armature(name)
	if a == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownArmature, name)
	}
	v := &ArmaturePose{ctx: p, arm: a, index: make(map[string]int, len(a.Bones))}
	for i, b := range a.Bones {
		v.index[b.Name] = i
	}
	return v, nil
}

// Mesh returns a shape-weight view of the named mesh object.
func (p *PoseContext) Mesh(name string) (*MeshWeights, error) {
	for _, m := range p.snap.Meshes {
		if m.Name == name {
			return &MeshWeights{ctx: p, obj: m}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMesh, name)
}

// ArmaturePose evaluates bone poses of one armature in the shared context.
type ArmaturePose struct {
	ctx   *PoseContext
	arm   *Armature
	index map[string]int

	gen   uint64
	cache map[string]math.Mat4
}

// Activate activates a clip on the shared context.
func (a *ArmaturePose) Activate(clip string) (func(), error) { return a.ctx.Activate(clip) }

// SetFrame moves the shared context.
func (a *ArmaturePose) SetFrame(frame int) { a.ctx.SetFrame(frame) }

// BoneMatrix returns the bone's pose in armature space: the parent's
// pose, the rest offset from the parent and the animated basis. Unknown
// bones evaluate to identity.
func (a *ArmaturePose) BoneMatrix(name string) math.Mat4 {
	if a.cache == nil || a.gen != a.ctx.gen {
		a.cache = make(map[string]math.Mat4, len(a.arm.Bones))
		a.gen = a.ctx.gen
	}
	if m, ok := a.cache[name]; ok {
		return m
	}

	i, ok := a.index[name]
	if !ok {
		return math.Identity()
	}
	b := &a.arm.Bones[i]

	local := b.Rest
	parent := math.Identity()
	if b.Parent != "" {
		if j, ok := a.index[b.Parent]; ok {
			local = a.arm.Bones[j].Rest.Inverse().Mul(b.Rest)
			parent = a.BoneMatrix(b.Parent)
		}
	}

	m := parent.Mul(local).Mul(a.basis(name))
	a.cache[name] = m
	return m
}

// BoneScale returns the animated local scale of the bone.
func (a *ArmaturePose) BoneScale(name string) math.Vec3 {
	if ch := a.channel(name); ch != nil {
		return ch.ScaleAt(float32(a.ctx.frame))
	}
	return math.Vec3{X: 1, Y: 1, Z: 1}
}

func (a *ArmaturePose) basis(name string) math.Mat4 {
	if ch := a.channel(name); ch != nil {
		return ch.Basis(float32(a.ctx.frame))
	}
	return math.Identity()
}

func (a *ArmaturePose) channel(name string) *Channel {
	if a.ctx.clip == nil {
		return nil
	}
	return a.ctx.clip.Bones[name]
}

// MeshWeights evaluates shape-key influences of one mesh object.
type MeshWeights struct {
	ctx *PoseContext
	obj *MeshObject
}

// Activate activates a clip on the shared context.
func (m *MeshWeights) Activate(clip string) (func(), error) { return m.ctx.Activate(clip) }

// SetFrame moves the shared context.
func (m *MeshWeights) SetFrame(frame int) { m.ctx.SetFrame(frame) }

// ShapeWeight returns the key's influence at the current frame, falling
// back to its static weight.
func (m *MeshWeights) ShapeWeight(key string) float32 {
	if clip := m.ctx.clip; clip != nil {
		if v, ok := ScalarAt(clip.Shapes[m.obj.Name][key], float32(m.ctx.frame)); ok {
			return v
		}
	}
	d := m.obj.Data
	for i, k := range d.ShapeKeys {
		if k.Name == key && i < len(d.ShapeWeights) {
			return d.ShapeWeights[i]
		}
	}
	return 0
}
