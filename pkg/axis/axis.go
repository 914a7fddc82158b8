// Package axis converts vectors and rotations from the authoring tool's
// up-axis convention to the engine's.
package axis

import (
	"errors"
	"fmt"

	"github.com/Faultbox/ogrexport/pkg/math"
)

// ErrUnknownMode is returned for an unrecognized axis-swap mode.
var ErrUnknownMode = errors.New("unknown axis swap mode")

// Mode is an axis-swap/handedness convention. The zero value is not a
// valid mode; obtain one through Parse.
type Mode struct {
	name string
	// perm[i] is the source component feeding output component i,
	// sign[i] its sign.
	perm [3]int
	sign [3]float32
}

// Recognized modes. Default is the Z-up to Y-up conversion.
const (
	XYZ     = "xyz"
	XZY     = "xzy"
	XZNegY  = "xz-y"
	NegXZY  = "-xzy"
	Aldeb   = "aldeb"
	Default = XZNegY
)

var modes = map[string]Mode{
	XYZ:    {name: XYZ, perm: [3]int{0, 1, 2}, sign: [3]float32{1, 1, 1}},
	XZY:    {name: XZY, perm: [3]int{0, 2, 1}, sign: [3]float32{1, 1, 1}},
	XZNegY: {name: XZNegY, perm: [3]int{0, 2, 1}, sign: [3]float32{1, 1, -1}},
	NegXZY: {name: NegXZY, perm: [3]int{0, 2, 1}, sign: [3]float32{-1, 1, 1}},
	Aldeb:  {name: Aldeb, perm: [3]int{0, 2, 1}, sign: [3]float32{1, -1, 1}},
}

// Modes returns the recognized mode names.
func Modes() []string {
	return []string{XYZ, XZY, XZNegY, NegXZY, Aldeb}
}

// Parse resolves a mode name.
func Parse(name string) (Mode, error) {
	m, ok := modes[name]
	if !ok {
		return Mode{}, fmt.Errorf("%w: %q", ErrUnknownMode, name)
	}
	return m, nil
}

// MustParse is like Parse but panics on an unknown mode.
func MustParse(name string) Mode {
	m, err := Parse(name)
	if err != nil {
		panic(err)
	}
	return m
}

// String returns the mode name.
func (m Mode) String() string {
	return m.name
}

// Swaps reports whether the mode changes anything.
func (m Mode) Swaps() bool {
	return m.name != XYZ
}

// Vec3 converts a vector.
func (m Mode) Vec3(v math.Vec3) math.Vec3 {
	in := [3]float32{v.X, v.Y, v.Z}
	return math.Vec3{
		X: m.sign[0] * in[m.perm[0]],
		Y: m.sign[1] * in[m.perm[1]],
		Z: m.sign[2] * in[m.perm[2]],
	}
}

// Quat converts a quaternion. W passes through unchanged; the vector part
// follows the same rule as Vec3.
func (m Mode) Quat(q math.Quat) math.Quat {
	v := m.Vec3(math.Vec3{X: q.X, Y: q.Y, Z: q.Z})
	return math.Quat{X: v.X, Y: v.Y, Z: v.Z, W: q.W}
}

// FlipMatrix returns the matrix M with M*v == m.Vec3(v). It is the
// identity for XYZ.
func (m Mode) FlipMatrix() math.Mat4 {
	if !m.Swaps() {
		return math.Identity()
	}
	return math.FromColumns(
		m.Vec3(math.Vec3{X: 1}),
		m.Vec3(math.Vec3{Y: 1}),
		m.Vec3(math.Vec3{Z: 1}),
	)
}
