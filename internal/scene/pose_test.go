package scene

import (
	"errors"
	"testing"

	"github.com/Faultbox/ogrexport/pkg/math"
	"github.com/Faultbox/ogrexport/pkg/morph"
	"github.com/Faultbox/ogrexport/pkg/skeleton"
)

var (
	_ skeleton.PoseSource = (*ArmaturePose)(nil)
	_ morph.WeightSource  = (*MeshWeights)(nil)
)

func testSnapshot() *Snapshot {
	arm := &Armature{
		Name:   "Rig",
		Matrix: math.Identity(),
		Bones: []Bone{
			{Name: "root", Rest: math.Identity(), Deform: true, InheritScale: true},
			{Name: "tip", Parent: "root", Rest: math.Translate(0, 2, 0), Deform: true, InheritScale: true},
		},
	}
	mesh := &MeshObject{
		Name: "Blob",
		Data: &MeshData{
			ShapeKeys:    []morph.ShapeKey{{Name: "Puff"}, {Name: "Squash"}},
			ShapeWeights: []float32{0.3, 0},
		},
	}
	clip := &Clip{
		Name:  "Bend",
		Start: 0,
		End:   10,
		Bones: map[string]*Channel{
			"root": {Translation: []VecKey{{Frame: 0}, {Frame: 10, Value: math.Vec3{X: 1}}}},
		},
		Shapes: map[string]map[string][]ScalarKey{
			"Blob": {"Squash": {{Frame: 0, Value: 0}, {Frame: 10, Value: 1}}},
		},
	}
	return &Snapshot{
		Armatures: []*Armature{arm},
		Meshes:    []*MeshObject{mesh},
		Clips:     []*Clip{clip, {Name: "Idle", End: 5}},
		FPS:       24,
	}
}

func TestActivateRestores(t *testing.T) {
	ctx := NewPoseContext(testSnapshot())
	ctx.SetFrame(7)

	restore, err := ctx.Activate("Bend")
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	ctx.SetFrame(3)
	if ctx.ActiveClip() != "Bend" || ctx.Frame() != 3 {
		t.Fatalf("context not moved: %q %d", ctx.ActiveClip(), ctx.Frame())
	}

	restore()
	restore() // second call is a no-op
	if ctx.ActiveClip() != "" || ctx.Frame() != 7 {
		t.Errorf("context not restored: %q %d", ctx.ActiveClip(), ctx.Frame())
	}

	// Released: a new pass can start.
	restore, err = ctx.Activate("Idle")
	if err != nil {
		t.Fatalf("Activate after restore: %v", err)
	}
	restore()
}

func TestActivateErrors(t *testing.T) {
	ctx := NewPoseContext(testSnapshot())

	if _, err := ctx.Activate("Missing"); !errors.Is(err, ErrUnknownClip) {
		t.Errorf("expected ErrUnknownClip, got %v", err)
	}

	restore, err := ctx.Activate("Bend")
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	defer restore()
	if _, err := ctx.Activate("Idle"); !errors.Is(err, ErrContextBusy) {
		t.Errorf("expected ErrContextBusy, got %v", err)
	}
}

func TestArmaturePose(t *testing.T) {
	ctx := NewPoseContext(testSnapshot())
	pose, err := ctx.Armature("Rig")
	if err != nil {
		t.Fatalf("Armature: %v", err)
	}

	if m := pose.BoneMatrix("tip"); m.Translation() != (math.Vec3{Y: 2}) {
		t.Errorf("rest pose of tip: got %v", m.Translation())
	}

	restore, err := pose.Activate("Bend")
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	defer restore()

	pose.SetFrame(5)
	if got := pose.BoneMatrix("tip").Translation(); got.Sub(math.Vec3{X: 0.5, Y: 2}).Length() > 1e-6 {
		t.Errorf("child should follow parent: got %v", got)
	}
	pose.SetFrame(10)
	if got := pose.BoneMatrix("root").Translation(); got.Sub(math.Vec3{X: 1}).Length() > 1e-6 {
		t.Errorf("cached pose not invalidated: got %v", got)
	}
	if s := pose.BoneScale("tip"); s != (math.Vec3{X: 1, Y: 1, Z: 1}) {
		t.Errorf("unanimated scale: got %v", s)
	}
	if m := pose.BoneMatrix("nobody"); !m.IsIdentity(0) {
		t.Errorf("unknown bone should be identity")
	}

	if _, err := ctx.Armature("Nope"); !errors.Is(err, ErrUnknownArmature) {
		t.Errorf("expected ErrUnknownArmature, got %v", err)
	}
}

func TestMeshWeights(t *testing.T) {
	ctx := NewPoseContext(testSnapshot())
	w, err := ctx.Mesh("Blob")
	if err != nil {
		t.Fatalf("Mesh: %v", err)
	}

	if got := w.ShapeWeight("Puff"); got != 0.3 {
		t.Errorf("static weight: got %v, want 0.3", got)
	}

	restore, err := w.Activate("Bend")
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	defer restore()
	w.SetFrame(5)
	if got := w.ShapeWeight("Squash"); got != 0.5 {
		t.Errorf("animated weight: got %v, want 0.5", got)
	}
	if got := w.ShapeWeight("Puff"); got != 0.3 {
		t.Errorf("unanimated key should keep its static weight, got %v", got)
	}

	if _, err := ctx.Mesh("Nope"); !errors.Is(err, ErrUnknownMesh) {
		t.Errorf("expected ErrUnknownMesh, got %v", err)
	}
}

func TestClipHelpers(t *testing.T) {
	snap := testSnapshot()
	arm := snap.Armature("Rig")
	bend, idle := snap.Clip("Bend"), snap.Clip("Idle")

	if !bend.Animates(arm.Bones) || idle.Animates(arm.Bones) {
		t.Error("Animates disagrees with channels")
	}
	if keyed := bend.KeyedBones(arm); len(keyed) != 1 || keyed[0] != "root" {
		t.Errorf("keyed bones: %v", keyed)
	}
}
