package geometry

import (
	"testing"

	"github.com/Faultbox/ogrexport/pkg/math"
)

func TestUse32BitIndices(t *testing.T) {
	tests := []struct {
		n    int
		want bool
	}{
		{0, false},
		{65535, false},
		{65536, true},
		{100000, true},
	}
	for _, tt := range tests {
		if got := Use32BitIndices(tt.n); got != tt.want {
			t.Errorf("Use32BitIndices(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestSplitByMaterial(t *testing.T) {
	tris := [][3]int{{0, 1, 2}, {2, 3, 0}, {1, 2, 3}}
	slotOf := []int{1, 0, 1}
	mats := []string{"Stone", "Wood", "Unused"}

	p := Split(4, tris, slotOf, mats, nil)

	if len(p.Submeshes) != 2 {
		t.Fatalf("submeshes: got %d, want 2", len(p.Submeshes))
	}
	if p.Submeshes[0].Material != "Stone" || len(p.Submeshes[0].Triangles) != 1 {
		t.Errorf("first submesh: %+v", p.Submeshes[0])
	}
	if p.Submeshes[1].Material != "Wood" || len(p.Submeshes[1].Triangles) != 2 {
		t.Errorf("second submesh: %+v", p.Submeshes[1])
	}
	if len(p.EmptySlots) != 1 || p.EmptySlots[0] != 2 {
		t.Errorf("empty slots: got %v, want [2]", p.EmptySlots)
	}
	if p.TriangleCount() != 3 {
		t.Errorf("triangle count: got %d, want 3", p.TriangleCount())
	}
}

func TestSplitOutOfRangeSlot(t *testing.T) {
	p := Split(3, [][3]int{{0, 1, 2}}, []int{7}, []string{"Only"}, nil)
	if p.Reassigned != 1 {
		t.Errorf("reassigned: got %d, want 1", p.Reassigned)
	}
	if len(p.Submeshes) != 1 || p.Submeshes[0].Material != "Only" {
		t.Errorf("submeshes: %+v", p.Submeshes)
	}
}

func TestSplitNoMaterials(t *testing.T) {
	p := Split(3, [][3]int{{0, 1, 2}}, nil, nil, nil)
	if len(p.Submeshes) != 1 {
		t.Fatalf("submeshes: got %d, want 1", len(p.Submeshes))
	}
	if p.Submeshes[0].Material != "" || p.Submeshes[0].Name != "submesh0" {
		t.Errorf("submesh: %+v", p.Submeshes[0])
	}
}

func TestSplitVertexGroups(t *testing.T) {
	tris := [][3]int{{0, 1, 2}, {2, 3, 0}, {3, 4, 5}}
	groups := []Group{
		{Name: "Head", Members: []bool{true, true, true, true}},
		{Name: "Empty", Members: []bool{false, false, false, false, false, true}},
	}

	p := Split(6, tris, []int{0, 0, 0}, []string{"Skin"}, groups)

	if len(p.Submeshes) != 2 {
		t.Fatalf("submeshes: got %d, want 2 (material + Head)", len(p.Submeshes))
	}
	head := p.Submeshes[1]
	if !head.Group || head.Name != "Head" || head.Material != "Skin" {
		t.Errorf("group submesh: %+v", head)
	}
	if len(head.Triangles) != 2 {
		t.Errorf("group triangles: got %d, want 2", len(head.Triangles))
	}
	// Group submeshes duplicate geometry, they do not take it away.
	if len(p.Submeshes[0].Triangles) != 3 {
		t.Errorf("material submesh lost triangles: %d", len(p.Submeshes[0].Triangles))
	}
}

func TestSplitUniqueNames(t *testing.T) {
	tris := [][3]int{{0, 1, 2}, {2, 3, 0}}
	groups := []Group{{Name: "Skin", Members: []bool{true, true, true, true}}}

	p := Split(4, tris, []int{0, 1}, []string{"Skin", "Skin"}, groups)

	var got []string
	for _, sm := range p.Submeshes {
		got = append(got, sm.Name)
	}
	want := []string{"Skin", "Skin.1", "Skin.2"}
	if len(got) != len(want) {
		t.Fatalf("names: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("name %d: got %q, want %q", i, got[i], want[i])
		}
	}
	if p.Submeshes[0].Material != "Skin" || p.Submeshes[1].Material != "Skin" {
		t.Errorf("materials must keep their names: %+v", p.Submeshes)
	}
}

func TestSplitIndexValidity(t *testing.T) {
	tris := [][3]int{{0, 1, 2}, {1, 2, 3}}
	const n = 70000
	p := Split(n, tris, []int{0, 0}, []string{"M"}, nil)
	for _, sm := range p.Submeshes {
		if !sm.Use32BitIndices {
			t.Errorf("submesh %s should use 32-bit indices for %d vertices", sm.Name, n)
		}
		for _, tri := range sm.Triangles {
			for _, idx := range tri {
				if idx >= n {
					t.Errorf("index %d out of range", idx)
				}
			}
		}
	}
}

func TestComputeTangents(t *testing.T) {
	positions := []math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}}
	tris := []Triangle{{
		corner(0, up, math.Vec2{X: 0, Y: 0}),
		corner(1, up, math.Vec2{X: 1, Y: 0}),
		corner(2, up, math.Vec2{X: 0, Y: 1}),
	}}
	buf, out, err := Deduplicate(tris)
	if err != nil {
		t.Fatalf("Deduplicate: %v", err)
	}
	if !ComputeTangents(buf, positions, out) {
		t.Fatal("ComputeTangents reported no UVs")
	}
	for i, v := range buf.Vertices {
		got := math.Vec3{X: v.Tangent.X, Y: v.Tangent.Y, Z: v.Tangent.Z}
		if got.Sub(right).Length() > 1e-5 {
			t.Errorf("vertex %d tangent: got %v, want +X", i, got)
		}
		if v.Tangent.W != 1 {
			t.Errorf("vertex %d handedness: got %v, want 1", i, v.Tangent.W)
		}
	}
}

func TestComputeTangentsNoUVs(t *testing.T) {
	buf, out, _ := Deduplicate([]Triangle{{corner(0, up), corner(1, up), corner(2, up)}})
	if ComputeTangents(buf, []math.Vec3{{}, {X: 1}, {Y: 1}}, out) {
		t.Error("expected false without UVs")
	}
}
