package exporter

import (
	"bytes"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/ogrexport/internal/scene"
	"github.com/Faultbox/ogrexport/pkg/ogre"
	"github.com/Faultbox/ogrexport/pkg/skeleton"
)

func (r *run) exportSkeleton(arm *scene.Armature) error {
	sk, err := r.buildSkeleton(arm)
	if err != nil {
		return err
	}
	for _, w := range sk.Warnings {
		r.rep.Warn(arm.Name, w)
	}

	var anims []*skeleton.Animation
	if r.cfg.Skeleton.Animations {
		anims = r.sampleClips(arm, sk)
	}

	var buf bytes.Buffer
	if err := ogre.WriteSkeleton(&buf, sk, anims); err != nil {
		return fmt.Errorf("writing skeleton document: %w", err)
	}
	if err := r.writeFile(fileName(arm.Name)+".skeleton.xml", &buf, true); err != nil {
		return err
	}
	r.rep.Skeletons = append(r.rep.Skeletons, arm.Name)
	r.rep.Animations += len(anims)
	return nil
}

// buildSkeleton computes the engine rest pose of an armature.
func (r *run) buildSkeleton(arm *scene.Armature) (*skeleton.Skeleton, error) {
	specs := make([]skeleton.BoneSpec, len(arm.Bones))
	for i, b := range arm.Bones {
		specs[i] = skeleton.BoneSpec{
			Name:         b.Name,
			Parent:       b.Parent,
			Bind:         b.Rest,
			Output:       b.Deform || !r.cfg.Skeleton.OnlyDeformBones,
			InheritScale: b.InheritScale,
		}
	}
	matrix := arm.Matrix
	return skeleton.Build(arm.Name, specs, r.mode, skeleton.BuildOptions{ObjectMatrix: &matrix})
}

// sampleClips samples every clip that keys at least one bone of arm.
// Clips that leave every bone at rest are dropped with a warning.
func (r *run) sampleClips(arm *scene.Armature, sk *skeleton.Skeleton) []*skeleton.Animation {
	pose, err := r.pose.Armature(arm.Name)
	if err != nil {
		r.rep.Fail(arm.Name, err)
		return nil
	}
	opts := skeleton.SampleOptions{
		InheritScale:  r.cfg.Skeleton.InheritScale,
		OnlyKeyframed: r.cfg.Skeleton.OnlyKeyframedBones,
	}

	var anims []*skeleton.Animation
	for _, c := range r.snap.Clips {
		if !c.Animates(arm.Bones) {
			continue
		}
		anim, err := skeleton.Sample(sk, pose, r.clip(c, arm), opts)
		if err != nil {
			r.rep.Fail(arm.Name+"/"+c.Name, err)
			continue
		}
		if len(anim.Tracks) == 0 {
			r.rep.Warnf(arm.Name, "animation %q moves no bones, skipped", c.Name)
			continue
		}
		r.log.Debug("sampled animation",
			zap.String("skeleton", arm.Name),
			zap.String("animation", c.Name),
			zap.Int("tracks", len(anim.Tracks)))
		anims = append(anims, anim)
	}
	return anims
}
