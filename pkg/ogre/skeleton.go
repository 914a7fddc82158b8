package ogre

import (
	"io"

	"github.com/Faultbox/ogrexport/pkg/markup"
	"github.com/Faultbox/ogrexport/pkg/math"
	"github.com/Faultbox/ogrexport/pkg/skeleton"
)

// WriteSkeleton writes the exported bones of sk and the given animations
// as a skeleton document. Animations without tracks are skipped.
func WriteSkeleton(out io.Writer, sk *skeleton.Skeleton, anims []*skeleton.Animation) error {
	w := markup.NewWriter(out)
	w.Declaration()
	w.StartTag("skeleton")

	bones := sk.OutputBones()
	w.StartTag("bones")
	for _, b := range bones {
		w.StartTag("bone", markup.I("id", b.ID), markup.A("name", b.Name))
		w.LeafTag("position", xyz(b.RestPosition())...)
		writeRotation(w, "rotation", b.RestRotation())
		if s := b.RestScale(); !unitScale(s) {
			w.LeafTag("scale", xyz(s)...)
		}
		w.EndTag("bone")
	}
	w.EndTag("bones")

	w.StartTag("bonehierarchy")
	for _, b := range bones {
		if b.Parent != nil {
			w.LeafTag("boneparent", markup.A("bone", b.Name), markup.A("parent", b.Parent.Name))
		}
	}
	w.EndTag("bonehierarchy")

	var kept []*skeleton.Animation
	for _, a := range anims {
		if len(a.Tracks) > 0 {
			kept = append(kept, a)
		}
	}
	if len(kept) > 0 {
		w.StartTag("animations")
		for _, a := range kept {
			writeAnimation(w, a)
		}
		w.EndTag("animations")
	}

	w.EndTag("skeleton")
	return w.Flush()
}

func writeAnimation(w *markup.Writer, a *skeleton.Animation) {
	w.StartTag("animation", markup.A("name", a.Name), markup.F("length", a.Length))
	w.StartTag("tracks")
	for _, tr := range a.Tracks {
		w.StartTag("track", markup.A("bone", tr.Bone))
		w.StartTag("keyframes")
		for _, kf := range tr.Keyframes {
			w.StartTag("keyframe", markup.F("time", kf.Time))
			w.LeafTag("translate", xyz(kf.Translate)...)
			writeRotation(w, "rotate", kf.Rotate)
			w.LeafTag("scale", xyz(kf.Scale)...)
			w.EndTag("keyframe")
		}
		w.EndTag("keyframes")
		w.EndTag("track")
	}
	w.EndTag("tracks")
	w.EndTag("animation")
}

func writeRotation(w *markup.Writer, tag string, q math.Quat) {
	axis, angle := q.AxisAngle()
	w.StartTag(tag, markup.F("angle", angle))
	w.LeafTag("axis", xyz(axis)...)
	w.EndTag(tag)
}

func unitScale(s math.Vec3) bool {
	return math.Close(s.X, 1, 1e-5, 1e-5) && math.Close(s.Y, 1, 1e-5, 1e-5) && math.Close(s.Z, 1, 1e-5, 1e-5)
}
