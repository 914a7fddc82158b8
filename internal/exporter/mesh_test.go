package exporter

import (
	"testing"

	"github.com/Faultbox/ogrexport/internal/scene"
	"github.com/Faultbox/ogrexport/pkg/math"
)

func TestBuildMeshTriangulatesAndConverts(t *testing.T) {
	snap := testScene()
	r := newRun(t, testConfig(t), snap)

	m, err := r.buildMesh(snap.Meshes[0])
	if err != nil {
		t.Fatalf("buildMesh: %v", err)
	}
	if m.Buffer.Len() != 4 {
		t.Errorf("got %d vertices, want 4", m.Buffer.Len())
	}
	if len(m.Submeshes) != 1 || len(m.Submeshes[0].Triangles) != 2 {
		t.Fatalf("submeshes: %+v", m.Submeshes)
	}
	// Fan triangulation from the first corner.
	if tri := m.Submeshes[0].Triangles[1]; tri != [3]int{0, 2, 3} {
		t.Errorf("second triangle: got %v", tri)
	}
	// The default mode maps Z-up (x, y, z) to (x, z, -y).
	if n := m.Buffer.Vertices[0].Normal; n != (math.Vec3{Y: 1}) {
		t.Errorf("normal: got %v, want +Y", n)
	}
	if p := m.Positions[3]; p != (math.Vec3{Z: -1}) {
		t.Errorf("position 3: got %v", p)
	}
}

func TestBuildMeshBoneAssignments(t *testing.T) {
	snap := testScene()
	cfg := testConfig(t)
	cfg.Mesh.MaxInfluences = 1
	r := newRun(t, cfg, snap)

	m, err := r.buildMesh(snap.Meshes[0])
	if err != nil {
		t.Fatalf("buildMesh: %v", err)
	}
	if m.Skeleton != "Rig.skeleton" {
		t.Errorf("skeleton link: got %q", m.Skeleton)
	}

	type key struct{ vertex, bone int }
	got := make(map[key]float32)
	for _, ba := range m.BoneAssignments {
		got[key{ba.Vertex, ba.Bone}] = ba.Weight
	}
	want := map[key]float32{
		{0, 0}: 1,
		{1, 0}: 0.5,
		{1, 1}: 0.5,
		{2, 1}: 1,
	}
	if len(got) != len(want) {
		t.Errorf("assignments: got %v, want %v", got, want)
	}
	for k, w := range want {
		if got[k] != w {
			t.Errorf("assignment %v: got %v, want %v", k, got[k], w)
		}
	}
	if !hasWarning(r.rep, "1 vertices have more than 1 bone influences") {
		t.Errorf("expected an influence warning, got %v", r.rep.Warnings)
	}
}

func TestBuildMeshWarnsOnMovedSkinnedMesh(t *testing.T) {
	snap := testScene()
	r := newRun(t, testConfig(t), snap)
	if _, err := r.buildMesh(snap.Meshes[0]); err != nil {
		t.Fatalf("buildMesh: %v", err)
	}
	if hasWarning(r.rep, "non-identity object transform") {
		t.Errorf("identity mesh should not warn, got %v", r.rep.Warnings)
	}

	snap = testScene()
	snap.Meshes[0].Matrix = math.Translate(5, 0, 0)
	r = newRun(t, testConfig(t), snap)
	if _, err := r.buildMesh(snap.Meshes[0]); err != nil {
		t.Fatalf("buildMesh: %v", err)
	}
	if !hasWarning(r.rep, "non-identity object transform") {
		t.Errorf("expected a transform warning, got %v", r.rep.Warnings)
	}
}

func TestBuildMeshWithoutSkeletons(t *testing.T) {
	snap := testScene()
	cfg := testConfig(t)
	cfg.Export.Skeletons = false
	r := newRun(t, cfg, snap)

	m, err := r.buildMesh(snap.Meshes[0])
	if err != nil {
		t.Fatalf("buildMesh: %v", err)
	}
	if m.Skeleton != "" || len(m.BoneAssignments) != 0 {
		t.Errorf("skeleton data written with skeletons disabled: %q %d", m.Skeleton, len(m.BoneAssignments))
	}
}

func TestBuildMeshPoses(t *testing.T) {
	snap := testScene()
	r := newRun(t, testConfig(t), snap)

	m, err := r.buildMesh(snap.Meshes[0])
	if err != nil {
		t.Fatalf("buildMesh: %v", err)
	}
	if len(m.Poses) != 1 {
		t.Fatalf("got %d poses, want 1", len(m.Poses))
	}
	// Vertex 2 rises one unit along Z, which is +Y in engine space.
	if off := m.Poses[0].Offsets[2].Position; off != (math.Vec3{Y: 1}) {
		t.Errorf("pose offset 2: got %v", off)
	}
	if len(m.PoseAnimations) != 1 {
		t.Fatalf("got %d pose animations, want 1", len(m.PoseAnimations))
	}
	anim := m.PoseAnimations[0]
	if len(anim.Keyframes) != 5 {
		t.Errorf("got %d keyframes, want 5", len(anim.Keyframes))
	}
	if last := anim.Keyframes[len(anim.Keyframes)-1]; last.Refs[0].Influence != 1 {
		t.Errorf("last influence: got %v", last.Refs[0].Influence)
	}
	if r.pose.ActiveClip() != "" {
		t.Errorf("pose context left on clip %q", r.pose.ActiveClip())
	}
}

func TestBuildMeshShapeKeyMismatch(t *testing.T) {
	snap := testScene()
	data := snap.Meshes[0].Data
	data.ShapeKeys[0].Positions = data.ShapeKeys[0].Positions[:3]
	r := newRun(t, testConfig(t), snap)

	m, err := r.buildMesh(snap.Meshes[0])
	if err != nil {
		t.Fatalf("buildMesh: %v", err)
	}
	if len(m.Poses) != 0 || len(m.PoseAnimations) != 0 {
		t.Error("pose data should be dropped on a vertex count mismatch")
	}
	if !hasWarning(r.rep, "skipping shape keys") {
		t.Errorf("expected a shape key warning, got %v", r.rep.Warnings)
	}
}

func TestBuildMeshWarnings(t *testing.T) {
	snap := testScene()
	data := snap.Meshes[0].Data
	data.Materials = []string{"Red", "Unused"}
	data.Faces[0].Material = 5
	data.Faces = append(data.Faces, scene.Face{Verts: []int{0, 1}})
	data.Faces[0].UVs = nil
	data.UVLayers = nil

	cfg := testConfig(t)
	cfg.Mesh.Tangents = true
	r := newRun(t, cfg, snap)

	m, err := r.buildMesh(snap.Meshes[0])
	if err != nil {
		t.Fatalf("buildMesh: %v", err)
	}
	if m.Tangents {
		t.Error("tangents need UVs")
	}
	for _, want := range []string{
		"moved to slot 0",
		"material slot 1 (Unused) has no faces",
		"fewer than 3 vertices",
		"tangents need a UV layer",
	} {
		if !hasWarning(r.rep, want) {
			t.Errorf("missing warning %q in %v", want, r.rep.Warnings)
		}
	}
}

func TestBuildMeshTangents(t *testing.T) {
	snap := testScene()
	cfg := testConfig(t)
	cfg.Mesh.Tangents = true
	r := newRun(t, cfg, snap)

	m, err := r.buildMesh(snap.Meshes[0])
	if err != nil {
		t.Fatalf("buildMesh: %v", err)
	}
	if !m.Tangents {
		t.Fatal("tangents should be written")
	}
	tan := m.Buffer.Vertices[0].Tangent
	if (math.Vec3{X: tan.X, Y: tan.Y, Z: tan.Z}).Sub(math.Vec3{X: 1}).Length() > 1e-5 {
		t.Errorf("tangent along U should be +X, got %v", tan)
	}
}

func TestBuildMeshGroupSubmeshes(t *testing.T) {
	snap := testScene()
	data := snap.Meshes[0].Data
	data.Weights[0] = append(data.Weights[0], scene.Weight{Group: 1, Value: 0.2})

	cfg := testConfig(t)
	cfg.Mesh.GroupSubmeshes = []string{"tip", "nosuchgroup"}
	r := newRun(t, cfg, snap)

	m, err := r.buildMesh(snap.Meshes[0])
	if err != nil {
		t.Fatalf("buildMesh: %v", err)
	}
	if len(m.Submeshes) != 2 {
		t.Fatalf("got %d submeshes, want material + group", len(m.Submeshes))
	}
	g := m.Submeshes[1]
	if !g.Group || g.Name != "tip" || len(g.Triangles) != 2 || g.Material != "Red" {
		t.Errorf("group submesh: %+v", g)
	}
}

func TestBuildMeshFlatAndSplitNormals(t *testing.T) {
	snap := testScene()
	face := &snap.Meshes[0].Data.Faces[0]
	face.Smooth = false
	face.Normal = math.Vec3{X: 1}
	face.CornerNormals = []math.Vec3{{Z: -1}}
	r := newRun(t, testConfig(t), snap)

	m, err := r.buildMesh(snap.Meshes[0])
	if err != nil {
		t.Fatalf("buildMesh: %v", err)
	}
	// Corner 0 uses its split normal, the others the face normal.
	if n := m.Buffer.Vertices[0].Normal; n != (math.Vec3{Y: -1}) {
		t.Errorf("split normal: got %v", n)
	}
	if n := m.Buffer.Vertices[1].Normal; n != (math.Vec3{X: 1}) {
		t.Errorf("flat normal: got %v", n)
	}
}
