package geometry

import "github.com/Faultbox/ogrexport/pkg/math"

// ComputeTangents fills Vertex.Tangent for every vertex of buf from UV set
// 0. positions is the source position array indexed by Vertex.Source. The
// W component holds the bitangent sign. It returns false, leaving buf
// untouched, when the buffer has no UVs.
func ComputeTangents(buf *Buffer, positions []math.Vec3, tris [][3]int) bool {
	if buf.UVSets == 0 {
		return false
	}
	n := buf.Len()
	tan := make([]math.Vec3, n)
	bitan := make([]math.Vec3, n)

	for _, tri := range tris {
		v0, v1, v2 := &buf.Vertices[tri[0]], &buf.Vertices[tri[1]], &buf.Vertices[tri[2]]
		p0, p1, p2 := positions[v0.Source], positions[v1.Source], positions[v2.Source]
		uv0, uv1, uv2 := v0.UVs[0], v1.UVs[0], v2.UVs[0]

		e1, e2 := p1.Sub(p0), p2.Sub(p0)
		du1, dv1 := uv1.X-uv0.X, uv1.Y-uv0.Y
		du2, dv2 := uv2.X-uv0.X, uv2.Y-uv0.Y

		det := du1*dv2 - du2*dv1
		if det == 0 {
			continue
		}
		r := 1 / det
		t := e1.Scale(dv2).Sub(e2.Scale(dv1)).Scale(r)
		b := e2.Scale(du1).Sub(e1.Scale(du2)).Scale(r)
		for _, idx := range tri {
			tan[idx] = tan[idx].Add(t)
			bitan[idx] = bitan[idx].Add(b)
		}
	}

	for i := range buf.Vertices {
		nrm := buf.Vertices[i].Normal
		// Gram-Schmidt against the normal.
		t := tan[i].Sub(nrm.Scale(nrm.Dot(tan[i]))).Normalize()
		if t == (math.Vec3{}) {
			t = fallbackTangent(nrm)
		}
		w := float32(1)
		if nrm.Cross(t).Dot(bitan[i]) < 0 {
			w = -1
		}
		buf.Vertices[i].Tangent = math.Vec4{X: t.X, Y: t.Y, Z: t.Z, W: w}
	}
	return true
}

// fallbackTangent returns any unit vector perpendicular to n.
func fallbackTangent(n math.Vec3) math.Vec3 {
	ref := math.Vec3{X: 1}
	if n.X > 0.9 || n.X < -0.9 {
		ref = math.Vec3{Y: 1}
	}
	return ref.Sub(n.Scale(n.Dot(ref))).Normalize()
}
