package scene

import "github.com/Faultbox/ogrexport/pkg/math"

// Interpolation selects how values between keyframes are computed.
type Interpolation int

const (
	Linear Interpolation = iota
	Step
)

// VecKey is a vector keyframe.
type VecKey struct {
	Frame float32
	Value math.Vec3
}

// QuatKey is a rotation keyframe.
type QuatKey struct {
	Frame float32
	Value math.Quat
}

// ScalarKey is a scalar keyframe.
type ScalarKey struct {
	Frame float32
	Value float32
}

// Channel animates one bone relative to its rest pose. Missing curves
// leave their component at rest.
type Channel struct {
	Interp      Interpolation
	Translation []VecKey
	Rotation    []QuatKey
	Scale       []VecKey
}

// Basis returns the channel transform at frame.
func (c *Channel) Basis(frame float32) math.Mat4 {
	return math.Compose(c.TranslationAt(frame), c.RotationAt(frame), c.ScaleAt(frame))
}

// TranslationAt interpolates the translation curve.
func (c *Channel) TranslationAt(frame float32) math.Vec3 {
	if len(c.Translation) == 0 {
		return math.Vec3{}
	}
	prev, next, t := bracket(len(c.Translation), func(i int) float32 { return c.Translation[i].Frame }, frame, c.Interp)
	return c.Translation[prev].Value.Lerp(c.Translation[next].Value, t)
}

// RotationAt interpolates the rotation curve.
func (c *Channel) RotationAt(frame float32) math.Quat {
	if len(c.Rotation) == 0 {
		return math.QuatIdentity()
	}
	prev, next, t := bracket(len(c.Rotation), func(i int) float32 { return c.Rotation[i].Frame }, frame, c.Interp)
	if prev == next {
		return c.Rotation[prev].Value
	}
	return c.Rotation[prev].Value.Slerp(c.Rotation[next].Value, t)
}

// ScaleAt interpolates the scale curve.
func (c *Channel) ScaleAt(frame float32) math.Vec3 {
	if len(c.Scale) == 0 {
		return math.Vec3{X: 1, Y: 1, Z: 1}
	}
	prev, next, t := bracket(len(c.Scale), func(i int) float32 { return c.Scale[i].Frame }, frame, c.Interp)
	return c.Scale[prev].Value.Lerp(c.Scale[next].Value, t)
}

// ScalarAt interpolates a scalar curve linearly. ok is false for an empty
// curve.
func ScalarAt(keys []ScalarKey, frame float32) (v float32, ok bool) {
	if len(keys) == 0 {
		return 0, false
	}
	prev, next, t := bracket(len(keys), func(i int) float32 { return keys[i].Frame }, frame, Linear)
	a, b := keys[prev].Value, keys[next].Value
	return a + t*(b-a), true
}

// bracket finds the keyframes surrounding frame, assuming keys sorted by
// frame, and the blend factor between them. Before the first and after the
// last key it clamps to that key.
func bracket(n int, frameOf func(int) float32, frame float32, interp Interpolation) (prev, next int, t float32) {
	for i := 0; i < n; i++ {
		if frameOf(i) > frame {
			next = i
			break
		}
		prev = i
		next = i
	}
	if prev == next || interp == Step {
		return prev, prev, 0
	}
	f0, f1 := frameOf(prev), frameOf(next)
	if f1 != f0 {
		t = (frame - f0) / (f1 - f0)
	}
	return prev, next, t
}
