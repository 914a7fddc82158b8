package skeleton

import (
	"errors"
	"fmt"

	"github.com/Faultbox/ogrexport/pkg/math"
)

// Sampling errors.
var (
	ErrInvalidStep  = errors.New("frame step must be at least 1")
	ErrInvalidRange = errors.New("clip end frame precedes start frame")
	ErrInvalidFPS   = errors.New("frames per second must be positive")
)

// PoseSource evaluates an armature's pose. Implementations share one
// evaluation state, so a source must not be sampled concurrently.
type PoseSource interface {
	// Activate makes clip the active animation. The returned func restores
	// the previous clip and frame.
	Activate(clip string) (restore func(), err error)
	SetFrame(frame int)
	// BoneMatrix returns the bone's current pose matrix in armature space.
	BoneMatrix(name string) math.Mat4
	// BoneScale returns the bone's current local pose scale.
	BoneScale(name string) math.Vec3
}

// Clip is a named frame range.
type Clip struct {
	Name       string
	Start, End int
	Step       int
	FPS        float32
	// Bones lists the bones keyframed in this clip. It is only consulted
	// when SampleOptions.OnlyKeyframed is set.
	Bones []string
}

// Frames returns the sampled frame numbers, end inclusive.
func (c Clip) Frames() []int {
	var out []int
	for f := c.Start; f <= c.End; f += c.Step {
		out = append(out, f)
	}
	if len(out) > 0 && out[len(out)-1] != c.End {
		out = append(out, c.End)
	}
	return out
}

// Length returns the clip duration in seconds.
func (c Clip) Length() float32 {
	return float32(c.End-c.Start) / c.FPS
}

// Validate checks the frame range, step and rate.
func (c Clip) Validate() error {
	switch {
	case c.Step < 1:
		return fmt.Errorf("clip %q: %w (got %d)", c.Name, ErrInvalidStep, c.Step)
	case c.End < c.Start:
		return fmt.Errorf("clip %q: %w (%d..%d)", c.Name, ErrInvalidRange, c.Start, c.End)
	case c.FPS <= 0:
		return fmt.Errorf("clip %q: %w", c.Name, ErrInvalidFPS)
	}
	return nil
}

// SampleOptions selects the sampling policies.
type SampleOptions struct {
	// InheritScale selects the policy for engines that propagate scale
	// from parent to child bones.
	InheritScale bool
	// OnlyKeyframed narrows the tracks to Clip.Bones.
	OnlyKeyframed bool
}

// Keyframe is one sampled transform relative to the rest pose.
type Keyframe struct {
	Time      float32
	Translate math.Vec3
	Rotate    math.Quat
	Scale     math.Vec3
}

// Track is the keyframe list of one bone.
type Track struct {
	Bone      string
	Keyframes []Keyframe
}

// Animation is a sampled clip.
type Animation struct {
	Name   string
	Length float32
	Tracks []Track
}

// poseState is the per-bone evaluation state of one frame.
type poseState struct {
	invTotalPose math.Mat4
	scale        math.Vec3
	derivedScale math.Vec3
}

// Sample steps src through clip and records a keyframe per frame for every
// exported bone. Tracks that never leave the rest pose are dropped. The
// previous state of src is restored on return.
func Sample(sk *Skeleton, src PoseSource, clip Clip, opts SampleOptions) (*Animation, error) {
	if err := clip.Validate(); err != nil {
		return nil, err
	}

	restore, err := src.Activate(clip.Name)
	if err != nil {
		return nil, fmt.Errorf("activating clip %q: %w", clip.Name, err)
	}
	defer restore()

	bones := sk.OutputBones()
	if opts.OnlyKeyframed {
		keyed := make(map[string]bool, len(clip.Bones))
		for _, name := range clip.Bones {
			keyed[name] = true
		}
		filtered := bones[:0:0]
		for _, b := range bones {
			if keyed[b.Name] {
				filtered = append(filtered, b)
			}
		}
		bones = filtered
	}

	tracks := make(map[*Bone]*Track, len(bones))
	for _, b := range bones {
		tracks[b] = &Track{Bone: b.Name}
	}

	state := make(map[*Bone]*poseState, len(sk.Bones))
	for _, frame := range clip.Frames() {
		src.SetFrame(frame)
		t := float32(frame-clip.Start) / clip.FPS

		var visit func(b *Bone)
		visit = func(b *Bone) {
			kf := evaluate(sk, src, b, state, opts)
			if tr, ok := tracks[b]; ok {
				kf.Time = t
				if n := len(tr.Keyframes); n > 0 && tr.Keyframes[n-1].Rotate.Dot(kf.Rotate) < 0 {
					kf.Rotate = kf.Rotate.Negate()
				}
				tr.Keyframes = append(tr.Keyframes, kf)
			}
			for _, c := range b.Children {
				visit(c)
			}
		}
		for _, root := range sk.Roots {
			visit(root)
		}
	}

	anim := &Animation{Name: clip.Name, Length: clip.Length()}
	for _, b := range bones {
		if tr := tracks[b]; tr.animated() {
			anim.Tracks = append(anim.Tracks, *tr)
		}
	}
	return anim, nil
}

// evaluate computes the bone's keyframe for the current frame and stores
// the state its children need. Parents must be evaluated first.
func evaluate(sk *Skeleton, src PoseSource, b *Bone, state map[*Bone]*poseState, opts SampleOptions) Keyframe {
	pose := src.BoneMatrix(b.Name)
	st := &poseState{invTotalPose: pose.Inverse()}

	var parent *poseState
	if b.Parent != nil {
		parent = state[b.Parent]
	}

	var rel math.Mat4
	if parent != nil {
		rel = parent.invTotalPose.Mul(pose)
	} else {
		rel = sk.flip.Mul(pose)
	}

	local := b.InverseOgreRest.Mul(rel)
	kf := Keyframe{
		Translate: rel.Translation().Sub(b.OgreRest.Translation()),
		Rotate:    local.Rotation(),
	}

	if opts.InheritScale {
		st.scale = local.ScaleFactors()
		st.derivedScale = st.scale
		if parent != nil {
			st.derivedScale = st.scale.MulComponents(parent.derivedScale)
			if !b.InheritScale {
				ps := parent.derivedScale
				st.scale = math.Vec3{X: 1 / ps.X, Y: 1 / ps.Y, Z: 1 / ps.Z}
				st.derivedScale = math.Vec3{X: 1, Y: 1, Z: 1}
			}
		}
	} else {
		st.scale = src.BoneScale(b.Name)
		if parent != nil && b.InheritScale {
			st.scale = st.scale.MulComponents(parent.scale)
		}
	}
	kf.Scale = st.scale

	state[b] = st
	return kf
}

func (t *Track) animated() bool {
	for _, kf := range t.Keyframes {
		if kf.Translate.Length() > TranslationEpsilon || kf.Rotate.MinAngle() > RotationEpsilon {
			return true
		}
		s := kf.Scale
		if abs(s.X-1) > ScaleEpsilon || abs(s.Y-1) > ScaleEpsilon || abs(s.Z-1) > ScaleEpsilon {
			return true
		}
	}
	return false
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
