package exporter

import (
	"testing"

	"github.com/Faultbox/ogrexport/internal/scene"
	"github.com/Faultbox/ogrexport/pkg/math"
)

func TestBuildSkeletonOnlyDeform(t *testing.T) {
	snap := testScene()
	rig := snap.Armatures[0]
	rig.Bones = append(rig.Bones, scene.Bone{Name: "ik", Parent: "root", Rest: math.Translate(1, 0, 0)})

	cfg := testConfig(t)
	cfg.Skeleton.OnlyDeformBones = true
	r := newRun(t, cfg, snap)

	sk, err := r.buildSkeleton(rig)
	if err != nil {
		t.Fatalf("buildSkeleton: %v", err)
	}
	if b := sk.Bone("ik"); b == nil || b.ID != -1 {
		t.Errorf("non-deform bone should not be exported: %+v", b)
	}
	if len(sk.OutputBones()) != 2 {
		t.Errorf("got %d output bones, want 2", len(sk.OutputBones()))
	}
}

func TestSampleClips(t *testing.T) {
	snap := testScene()
	snap.Clips = append(snap.Clips,
		&scene.Clip{Name: "Still", End: 3, Bones: map[string]*scene.Channel{"tip": {}}},
		&scene.Clip{Name: "Faces", End: 3, Shapes: map[string]map[string][]scene.ScalarKey{"Plane": nil}},
	)
	r := newRun(t, testConfig(t), snap)
	rig := snap.Armatures[0]

	sk, err := r.buildSkeleton(rig)
	if err != nil {
		t.Fatalf("buildSkeleton: %v", err)
	}
	anims := r.sampleClips(rig, sk)
	if len(anims) != 1 || anims[0].Name != "Wave" {
		t.Fatalf("animations: got %d", len(anims))
	}
	wave := anims[0]
	if len(wave.Tracks) != 1 || wave.Tracks[0].Bone != "tip" {
		t.Errorf("tracks: %+v", wave.Tracks)
	}
	if len(wave.Tracks[0].Keyframes) != 5 {
		t.Errorf("got %d keyframes, want 5", len(wave.Tracks[0].Keyframes))
	}
	if want := float32(4) / 24; wave.Length != want {
		t.Errorf("length: got %v, want %v", wave.Length, want)
	}
	if !hasWarning(r.rep, `"Still" moves no bones`) {
		t.Errorf("expected a warning for the still clip, got %v", r.rep.Warnings)
	}
}

func TestSampleClipsFrameStep(t *testing.T) {
	snap := testScene()
	cfg := testConfig(t)
	cfg.Skeleton.FrameStep = 3
	r := newRun(t, cfg, snap)
	rig := snap.Armatures[0]

	sk, err := r.buildSkeleton(rig)
	if err != nil {
		t.Fatalf("buildSkeleton: %v", err)
	}
	anims := r.sampleClips(rig, sk)
	if len(anims) != 1 {
		t.Fatalf("got %d animations", len(anims))
	}
	// Frames 0 and 3, then the end frame 4.
	if n := len(anims[0].Tracks[0].Keyframes); n != 3 {
		t.Errorf("got %d keyframes, want 3", n)
	}
}

func TestTextureName(t *testing.T) {
	r := newRun(t, testConfig(t), testScene())
	if got := r.textureName(`C:\art\wood.png`); got != "wood.png" {
		t.Errorf("got %q", got)
	}
	r.cfg.Material.TextureExtension = ".dds"
	if got := r.textureName("tex/wood.png"); got != "wood.dds" {
		t.Errorf("got %q", got)
	}
}
