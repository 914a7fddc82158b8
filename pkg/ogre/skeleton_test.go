package ogre

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Faultbox/ogrexport/pkg/axis"
	"github.com/Faultbox/ogrexport/pkg/math"
	"github.com/Faultbox/ogrexport/pkg/skeleton"
)

func TestWriteSkeleton(t *testing.T) {
	specs := []skeleton.BoneSpec{
		{Name: "root", Bind: math.Identity(), Output: true},
		{Name: "arm", Parent: "root", Bind: math.Translate(0, 0, 2), Output: true},
		{Name: "helper", Parent: "root", Bind: math.Identity()},
	}
	sk, err := skeleton.Build("Rig", specs, axis.MustParse(axis.XYZ), skeleton.BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	anims := []*skeleton.Animation{
		{Name: "Empty", Length: 1},
		{Name: "Wave", Length: 0.5, Tracks: []skeleton.Track{{
			Bone: "arm",
			Keyframes: []skeleton.Keyframe{{
				Time:      0.5,
				Translate: math.Vec3{X: 1},
				Rotate:    math.QuatFromAxisAngle(math.Vec3{Y: 1}, 0.5),
				Scale:     math.Vec3{X: 1, Y: 1, Z: 1},
			}},
		}}},
	}

	var out bytes.Buffer
	if err := WriteSkeleton(&out, sk, anims); err != nil {
		t.Fatalf("WriteSkeleton: %v", err)
	}
	s := out.String()

	for _, want := range []string{
		`<bone id="0" name="root">`,
		`<bone id="1" name="arm">`,
		`<position x="0.000000" y="0.000000" z="2.000000" />`,
		`<rotation angle="0.000000">`,
		`<axis x="1.000000" y="0.000000" z="0.000000" />`,
		`<boneparent bone="arm" parent="root" />`,
		`<animation name="Wave" length="0.500000">`,
		`<track bone="arm">`,
		`<keyframe time="0.500000">`,
		`<translate x="1.000000" y="0.000000" z="0.000000" />`,
		`<rotate angle="0.500000">`,
		`<axis x="0.000000" y="1.000000" z="0.000000" />`,
		`<scale x="1.000000" y="1.000000" z="1.000000" />`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("missing %s in:\n%s", want, s)
		}
	}
	for _, absent := range []string{"helper", "Empty"} {
		if strings.Contains(s, absent) {
			t.Errorf("unexpected %q in:\n%s", absent, s)
		}
	}
}

func TestWriteSkeletonNoAnimations(t *testing.T) {
	sk, err := skeleton.Build("Rig", []skeleton.BoneSpec{{Name: "only", Bind: math.Identity(), Output: true}},
		axis.MustParse(axis.Default), skeleton.BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	var out bytes.Buffer
	if err := WriteSkeleton(&out, sk, nil); err != nil {
		t.Fatalf("WriteSkeleton: %v", err)
	}
	if strings.Contains(out.String(), "<animations>") {
		t.Errorf("no animations element expected:\n%s", out.String())
	}
	// A root under the default swap carries the flip rotation.
	if !strings.Contains(out.String(), `<rotation angle="1.570796">`) {
		t.Errorf("root rotation should be the axis flip:\n%s", out.String())
	}
}
