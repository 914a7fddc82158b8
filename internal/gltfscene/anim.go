package gltfscene

import (
	"fmt"
	gomath "math"
	"sort"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/Faultbox/ogrexport/internal/scene"
	"github.com/Faultbox/ogrexport/pkg/math"
)

// nodeTrack gathers the curves animating one node. Each component keeps
// the interpolation of its own sampler.
type nodeTrack struct {
	translation *scene.Channel
	rotation    *scene.Channel
	scale       *scene.Channel
	weights     [][]scene.ScalarKey
}

// convertAnimation turns a glTF animation into a clip. Joint channels are
// baked to one key per frame, expressed relative to the joint's rest.
func (b *builder) convertAnimation(ai int) (*scene.Clip, error) {
	anim := b.doc.Animations[ai]
	name := anim.Name
	if name == "" {
		name = fmt.Sprintf("animation%d", ai)
	}

	tracks := make(map[int]*nodeTrack)
	first, last := float32(gomath.MaxFloat32), float32(-gomath.MaxFloat32)
	for ci, ch := range anim.Channels {
		node, ok := index(ch.Target.Node)
		if !ok || node >= len(b.doc.Nodes) {
			continue
		}
		si, ok := index(ch.Sampler)
		if !ok || si >= len(anim.Samplers) {
			return nil, errors.Errorf("channel %d: sampler out of range", ci)
		}
		frames, values, interp, err := b.readSampler(anim.Samplers[si])
		if err != nil {
			return nil, errors.Wrapf(err, "channel %d", ci)
		}
		if len(frames) == 0 {
			continue
		}
		first = min(first, frames[0])
		last = max(last, frames[len(frames)-1])

		tr := tracks[node]
		if tr == nil {
			tr = &nodeTrack{}
			tracks[node] = tr
		}
		if err := tr.add(ch.Target.Path, frames, values, interp); err != nil {
			return nil, errors.Wrapf(err, "channel %d", ci)
		}
	}
	if len(tracks) == 0 {
		return nil, nil
	}

	clip := &scene.Clip{
		Name:   name,
		Start:  int(gomath.Floor(float64(first))),
		End:    int(gomath.Ceil(float64(last))),
		Bones:  make(map[string]*scene.Channel),
		Shapes: make(map[string]map[string][]scene.ScalarKey),
	}

	nodes := make([]int, 0, len(tracks))
	for n := range tracks {
		nodes = append(nodes, n)
	}
	sort.Ints(nodes)
	for _, n := range nodes {
		tr := tracks[n]
		if tr.weights != nil {
			b.addShapeCurves(clip, n, tr.weights)
		}
		if tr.translation == nil && tr.rotation == nil && tr.scale == nil {
			continue
		}
		j, ok := b.joints[n]
		if !ok {
			b.log.Debug("skipping animated node that is not a joint",
				zap.String("clip", name), zap.String("node", nodeName(b.doc, n)))
			continue
		}
		clip.Bones[nodeName(b.doc, n)] = b.bake(n, j, tr, clip.Start, clip.End)
	}
	if len(clip.Bones) == 0 && len(clip.Shapes) == 0 {
		return nil, nil
	}
	return clip, nil
}

// bake samples a node's curves at every frame and expresses each sample
// relative to the joint's rest transform.
func (b *builder) bake(n int, j *joint, tr *nodeTrack, start, end int) *scene.Channel {
	node := b.doc.Nodes[n]
	restT, restR, restS := b.local[n].Decompose()
	if node.MatrixOrDefault() == identity16 {
		t, r, s := node.Translation, node.RotationOrDefault(), node.ScaleOrDefault()
		restT = math.Vec3{X: t[0], Y: t[1], Z: t[2]}
		restR = math.Quat{X: r[0], Y: r[1], Z: r[2], W: r[3]}
		restS = math.Vec3{X: s[0], Y: s[1], Z: s[2]}
	}
	var parentWorld *math.Mat4
	if p := b.parent[n]; j.root && p >= 0 {
		parentWorld = &b.world[p]
	}
	inverseRest := j.localRest.Inverse()

	out := &scene.Channel{Interp: scene.Linear}
	for f := start; f <= end; f++ {
		frame := float32(f)
		t, r, s := restT, restR, restS
		if tr.translation != nil {
			t = tr.translation.TranslationAt(frame)
		}
		if tr.rotation != nil {
			r = tr.rotation.RotationAt(frame)
		}
		if tr.scale != nil {
			s = tr.scale.ScaleAt(frame)
		}
		local := math.Compose(t, r, s)
		if parentWorld != nil {
			local = parentWorld.Mul(local)
		}
		bt, br, bs := inverseRest.Mul(b.toScene(local)).Decompose()
		out.Translation = append(out.Translation, scene.VecKey{Frame: frame, Value: bt})
		out.Rotation = append(out.Rotation, scene.QuatKey{Frame: frame, Value: br})
		out.Scale = append(out.Scale, scene.VecKey{Frame: frame, Value: bs})
	}
	return out
}

// addShapeCurves attaches morph weight curves to every mesh object
// instanced by the node.
func (b *builder) addShapeCurves(clip *scene.Clip, n int, weights [][]scene.ScalarKey) {
	node := b.doc.Nodes[n]
	mi, ok := index(node.Mesh)
	if !ok || mi >= len(b.doc.Meshes) {
		return
	}
	names := targetNames(b.doc.Meshes[mi])
	curves := make(map[string][]scene.ScalarKey, len(weights))
	for k, keys := range weights {
		name := fmt.Sprintf("Key %d", k+1)
		if k < len(names) {
			name = names[k]
		}
		curves[name] = keys
	}
	clip.Shapes[nodeName(b.doc, n)] = curves
}

// readSampler returns key frames (input times converted to frames), the
// output values and the interpolation. Cubic spline outputs are reduced
// to their value elements and interpolated linearly.
func (b *builder) readSampler(s *gltf.AnimationSampler) ([]float32, any, scene.Interpolation, error) {
	in, ok := index(s.Input)
	if !ok {
		return nil, nil, 0, errors.New("sampler has no input")
	}
	out, ok := index(s.Output)
	if !ok {
		return nil, nil, 0, errors.New("sampler has no output")
	}
	data, err := b.readAccessor(in)
	if err != nil {
		return nil, nil, 0, err
	}
	times, ok := data.([]float32)
	if !ok {
		return nil, nil, 0, errors.Errorf("sampler input has type %T", data)
	}
	values, err := b.readAccessor(out)
	if err != nil {
		return nil, nil, 0, err
	}

	frames := make([]float32, len(times))
	for i, t := range times {
		frames[i] = t * b.opts.FPS
	}
	interp := scene.Linear
	switch s.Interpolation {
	case gltf.InterpolationStep:
		interp = scene.Step
	case gltf.InterpolationCubicSpline:
		values = cubicValues(values, len(times))
	}
	return frames, values, interp, nil
}

func (tr *nodeTrack) add(path gltf.TRSProperty, frames []float32, values any, interp scene.Interpolation) error {
	switch path {
	case gltf.TRSTranslation, gltf.TRSScale:
		vs, ok := values.([][3]float32)
		if !ok {
			return errors.Errorf("%v output has type %T", path, values)
		}
		if len(vs) < len(frames) {
			return errors.Errorf("%d outputs for %d inputs", len(vs), len(frames))
		}
		keys := make([]scene.VecKey, len(frames))
		for i, f := range frames {
			keys[i] = scene.VecKey{Frame: f, Value: vec3(vs[i])}
		}
		if path == gltf.TRSTranslation {
			tr.translation = &scene.Channel{Interp: interp, Translation: keys}
		} else {
			tr.scale = &scene.Channel{Interp: interp, Scale: keys}
		}
	case gltf.TRSRotation:
		qs, err := quats(values)
		if err != nil {
			return err
		}
		if len(qs) < len(frames) {
			return errors.Errorf("%d outputs for %d inputs", len(qs), len(frames))
		}
		keys := make([]scene.QuatKey, len(frames))
		for i, f := range frames {
			keys[i] = scene.QuatKey{Frame: f, Value: qs[i]}
		}
		tr.rotation = &scene.Channel{Interp: interp, Rotation: keys}
	case gltf.TRSWeights:
		ws, ok := values.([]float32)
		if !ok {
			return errors.Errorf("weights output has type %T", values)
		}
		if len(frames) == 0 || len(ws)%len(frames) != 0 {
			return errors.Errorf("%d weights for %d inputs", len(ws), len(frames))
		}
		targets := len(ws) / len(frames)
		tr.weights = make([][]scene.ScalarKey, targets)
		for i, f := range frames {
			for k := 0; k < targets; k++ {
				tr.weights[k] = append(tr.weights[k], scene.ScalarKey{Frame: f, Value: ws[i*targets+k]})
			}
		}
	}
	return nil
}

// quats converts rotation outputs, which may be normalized integers, to
// quaternions.
func quats(values any) ([]math.Quat, error) {
	var out []math.Quat
	add := func(x, y, z, w float32) {
		out = append(out, math.Quat{X: x, Y: y, Z: z, W: w}.Normalize())
	}
	switch vs := values.(type) {
	case [][4]float32:
		for _, v := range vs {
			add(v[0], v[1], v[2], v[3])
		}
	case [][4]int8:
		for _, v := range vs {
			add(snorm(float32(v[0]), 127), snorm(float32(v[1]), 127), snorm(float32(v[2]), 127), snorm(float32(v[3]), 127))
		}
	case [][4]uint8:
		for _, v := range vs {
			add(float32(v[0])/255, float32(v[1])/255, float32(v[2])/255, float32(v[3])/255)
		}
	case [][4]int16:
		for _, v := range vs {
			add(snorm(float32(v[0]), 32767), snorm(float32(v[1]), 32767), snorm(float32(v[2]), 32767), snorm(float32(v[3]), 32767))
		}
	case [][4]uint16:
		for _, v := range vs {
			add(float32(v[0])/65535, float32(v[1])/65535, float32(v[2])/65535, float32(v[3])/65535)
		}
	default:
		return nil, errors.Errorf("rotation output has type %T", values)
	}
	return out, nil
}

func snorm(v, scale float32) float32 {
	return max(v/scale, -1)
}

// cubicValues keeps the value element of each in-tangent, value,
// out-tangent triple. Weight outputs hold one triple of target-sized
// groups per key.
func cubicValues(values any, keys int) any {
	switch vs := values.(type) {
	case [][3]float32:
		return middles(vs, 1)
	case [][4]float32:
		return middles(vs, 1)
	case []float32:
		if keys == 0 || len(vs)%(3*keys) != 0 {
			return values
		}
		return middles(vs, len(vs)/(3*keys))
	}
	return values
}

func middles[T any](vs []T, group int) []T {
	out := make([]T, 0, len(vs)/3)
	for i := group; i+group <= len(vs); i += 3 * group {
		out = append(out, vs[i:i+group]...)
	}
	return out
}
