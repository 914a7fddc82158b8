package math

import (
	"math"
	"testing"
)

func TestQuatIdentity(t *testing.T) {
	q := QuatIdentity()
	if q.X != 0 || q.Y != 0 || q.Z != 0 || q.W != 1 {
		t.Errorf("Identity quaternion should be (0,0,0,1), got (%v,%v,%v,%v)", q.X, q.Y, q.Z, q.W)
	}
}

func TestQuatNormalize(t *testing.T) {
	n := Quat{X: 1, Y: 2, Z: 3, W: 4}.Normalize()

	length := float32(math.Sqrt(float64(n.Dot(n))))
	if math.Abs(float64(length-1.0)) > 0.0001 {
		t.Errorf("Normalized quaternion length should be 1, got %v", length)
	}
}

func TestQuatSlerp(t *testing.T) {
	q1 := QuatIdentity()
	q2 := QuatFromAxisAngle(Vec3{X: 0, Y: 1, Z: 0}, float32(math.Pi/2))

	if r := q1.Slerp(q2, 0); math.Abs(float64(r.W-q1.W)) > 0.001 {
		t.Errorf("Slerp at t=0 should equal q1, got %v", r)
	}
	if r := q1.Slerp(q2, 1); math.Abs(float64(r.W-q2.W)) > 0.001 {
		t.Errorf("Slerp at t=1 should equal q2, got %v", r)
	}

	half := q1.Slerp(q2, 0.5)
	expectedW := float32(math.Cos(math.Pi / 8))
	if math.Abs(float64(half.W-expectedW)) > 0.01 {
		t.Errorf("Slerp at t=0.5: expected W ~%v, got %v", expectedW, half.W)
	}
}

func TestQuatToMat4Identity(t *testing.T) {
	if m := QuatIdentity().ToMat4(); !m.IsIdentity(0.0001) {
		t.Errorf("identity quat should produce identity matrix, got %v", m)
	}
}

func TestQuatFromBasisRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		axis  Vec3
		angle float64
	}{
		{"x 30", Vec3{1, 0, 0}, math.Pi / 6},
		{"y 90", Vec3{0, 1, 0}, math.Pi / 2},
		{"z 170", Vec3{0, 0, 1}, math.Pi * 170 / 180},
		{"diagonal 200", Vec3{1, 1, 1}.Normalize(), math.Pi * 200 / 180},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := QuatFromAxisAngle(tt.axis, float32(tt.angle))
			m := want.ToMat4()
			got := QuatFromBasis(m.Column(0), m.Column(1), m.Column(2))
			if d := math.Abs(float64(got.Dot(want))); d < 0.9999 {
				t.Errorf("got %v, want +/-%v (|dot|=%v)", got, want, d)
			}
		})
	}
}

func TestQuatAxisAngle(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{0, 0, 1}, float32(math.Pi/3))
	axis, angle := q.AxisAngle()
	if math.Abs(float64(angle)-math.Pi/3) > 1e-4 {
		t.Errorf("angle: got %v, want %v", angle, math.Pi/3)
	}
	if axis.Sub(Vec3{0, 0, 1}).Length() > 1e-4 {
		t.Errorf("axis: got %v", axis)
	}

	axis, angle = QuatIdentity().AxisAngle()
	if angle != 0 || axis != (Vec3{1, 0, 0}) {
		t.Errorf("identity should report X axis and zero angle, got %v %v", axis, angle)
	}
}

func TestQuatMinAngleIgnoresSign(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{1, 0, 0}, 0.5)
	if a, b := q.MinAngle(), q.Negate().MinAngle(); math.Abs(float64(a-b)) > 1e-6 {
		t.Errorf("MinAngle differs for q and -q: %v vs %v", a, b)
	}
	if a := QuatIdentity().Negate().MinAngle(); a > 1e-6 {
		t.Errorf("-identity should have zero min angle, got %v", a)
	}
}

func TestQuatMulConjugate(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{0, 1, 0}, 1.2)
	r := q.Mul(q.Conjugate())
	if maxDiff(r, QuatIdentity()) > 1e-5 {
		t.Errorf("q * q^-1 should be identity, got %v", r)
	}
}

func maxDiff(q, other Quat) float32 {
	d := []float32{q.X - other.X, q.Y - other.Y, q.Z - other.Z, q.W - other.W}
	var m float32
	for _, v := range d {
		if abs(v) > m {
			m = abs(v)
		}
	}
	return m
}
