package exporter

import (
	"bytes"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/ogrexport/internal/scene"
	"github.com/Faultbox/ogrexport/pkg/geometry"
	"github.com/Faultbox/ogrexport/pkg/math"
	"github.com/Faultbox/ogrexport/pkg/morph"
	"github.com/Faultbox/ogrexport/pkg/ogre"
	"github.com/Faultbox/ogrexport/pkg/skeleton"
)

func (r *run) exportMesh(obj *scene.MeshObject) error {
	m, err := r.buildMesh(obj)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := ogre.WriteMesh(&buf, m); err != nil {
		return fmt.Errorf("writing mesh document: %w", err)
	}
	if err := r.writeFile(fileName(obj.Name)+".mesh.xml", &buf, true); err != nil {
		return err
	}

	r.rep.Meshes = append(r.rep.Meshes, obj.Name)
	r.rep.Vertices += m.Buffer.Len()
	for _, sm := range m.Submeshes {
		if !sm.Group {
			r.rep.Triangles += len(sm.Triangles)
		}
	}
	r.rep.Animations += len(m.PoseAnimations)
	return nil
}

// buildMesh runs the geometry pipeline for one mesh object: triangulate,
// deduplicate, partition, then attach skinning and morph data.
func (r *run) buildMesh(obj *scene.MeshObject) (*ogre.Mesh, error) {
	data := obj.Data
	if data == nil || len(data.Positions) == 0 {
		return nil, ErrNoGeometry
	}

	tris, slotOf, err := r.triangulate(obj)
	if err != nil {
		return nil, err
	}
	buf, compact, err := geometry.Deduplicate(tris)
	if err != nil {
		return nil, err
	}

	positions := make([]math.Vec3, len(data.Positions))
	for i, p := range data.Positions {
		positions[i] = r.mode.Vec3(p)
	}

	part := geometry.Split(buf.Len(), compact, slotOf, data.Materials, r.groupSubmeshes(obj, buf))
	if part.Reassigned > 0 {
		r.rep.Warnf(obj.Name, "%d faces use a missing material slot and were moved to slot 0", part.Reassigned)
	}
	for _, slot := range part.EmptySlots {
		name := "(none)"
		if slot < len(data.Materials) && data.Materials[slot] != "" {
			name = data.Materials[slot]
		}
		r.rep.Warnf(obj.Name, "material slot %d (%s) has no faces", slot, name)
	}

	m := &ogre.Mesh{
		Buffer:       buf,
		Positions:    positions,
		Submeshes:    part.Submeshes,
		SubmeshNames: r.cfg.Mesh.SubmeshNames,
	}
	if r.cfg.Mesh.Tangents {
		if geometry.ComputeTangents(buf, positions, compact) {
			m.Tangents = true
		} else {
			r.rep.Warn(obj.Name, "tangents need a UV layer, skipped")
		}
	}

	if obj.Armature != "" && r.cfg.Export.Skeletons {
		if err := r.attachSkeleton(obj, m); err != nil {
			r.rep.Warnf(obj.Name, "skipping bone assignments: %v", err)
		}
	}
	if r.cfg.Mesh.ShapeKeys && len(data.ShapeKeys) > 0 {
		r.attachPoses(obj, m)
	}

	r.log.Debug("built mesh",
		zap.String("mesh", obj.Name),
		zap.Int("vertices", buf.Len()),
		zap.Int("submeshes", len(m.Submeshes)),
		zap.Int("bone_assignments", len(m.BoneAssignments)),
		zap.Int("poses", len(m.Poses)))
	return m, nil
}

// triangulate fans every polygon into triangles and picks each corner's
// normal: split normals first, then the vertex normal for smooth faces,
// else the face normal. Normals are converted to engine space here so the
// deduplicated buffer is final.
func (r *run) triangulate(obj *scene.MeshObject) ([]geometry.Triangle, []int, error) {
	data := obj.Data
	var (
		tris       []geometry.Triangle
		slotOf     []int
		degenerate int
	)
	for fi := range data.Faces {
		f := &data.Faces[fi]
		if len(f.Verts) < 3 {
			degenerate++
			continue
		}
		corner := func(k int) (geometry.Corner, error) {
			v := f.Verts[k]
			if v < 0 || v >= len(data.Positions) {
				return geometry.Corner{}, fmt.Errorf("%w: face %d vertex %d", ErrInvalidFace, fi, v)
			}
			n := f.Normal
			switch {
			case k < len(f.CornerNormals):
				n = f.CornerNormals[k]
			case f.Smooth && v < len(data.Normals):
				n = data.Normals[v]
			}
			c := geometry.Corner{Source: v, Normal: r.mode.Vec3(n)}
			if k < len(f.UVs) {
				c.UVs = append([]math.Vec2(nil), f.UVs[k]...)
			}
			if data.HasColor {
				col := math.Vec4{X: 1, Y: 1, Z: 1, W: 1}
				if k < len(f.Colors) {
					col = f.Colors[k]
				}
				c.Color = &col
			}
			return c, nil
		}
		first, err := corner(0)
		if err != nil {
			return nil, nil, err
		}
		for k := 1; k+1 < len(f.Verts); k++ {
			b, err := corner(k)
			if err != nil {
				return nil, nil, err
			}
			c, err := corner(k + 1)
			if err != nil {
				return nil, nil, err
			}
			tris = append(tris, geometry.Triangle{first, b, c})
			slotOf = append(slotOf, f.Material)
		}
	}
	if degenerate > 0 {
		r.rep.Warnf(obj.Name, "%d faces with fewer than 3 vertices ignored", degenerate)
	}
	if len(tris) == 0 {
		return nil, nil, ErrNoGeometry
	}
	return tris, slotOf, nil
}

// groupSubmeshes builds the configured vertex-group submeshes over the
// compact buffer.
func (r *run) groupSubmeshes(obj *scene.MeshObject, buf *geometry.Buffer) []geometry.Group {
	data := obj.Data
	var groups []geometry.Group
	for _, name := range r.cfg.Mesh.GroupSubmeshes {
		gi := -1
		for i, g := range data.VertexGroups {
			if g == name {
				gi = i
				break
			}
		}
		if gi < 0 {
			continue
		}
		g := geometry.Group{Name: name, Members: make([]bool, buf.Len())}
		for v := range buf.Vertices {
			src := buf.Vertices[v].Source
			if src >= len(data.Weights) {
				continue
			}
			for _, w := range data.Weights[src] {
				if w.Group == gi && w.Value > 0 {
					g.Members[v] = true
					break
				}
			}
		}
		groups = append(groups, g)
	}
	return groups
}

// attachSkeleton links the armature's skeleton and writes one assignment
// per vertex influence above the trim threshold.
func (r *run) attachSkeleton(obj *scene.MeshObject, m *ogre.Mesh) error {
	arm := r.snap.Armature(obj.Armature)
	if arm == nil {
		return fmt.Errorf("armature %q not in scene", obj.Armature)
	}
	sk, err := r.buildSkeleton(arm)
	if err != nil {
		return err
	}
	m.Skeleton = fileName(arm.Name) + ".skeleton"
	if !obj.Matrix.IsIdentity(1e-5) {
		r.rep.Warnf(obj.Name, "skinned mesh has a non-identity object transform, skeleton %q may not line up", arm.Name)
	}

	data := obj.Data
	unknown := make(map[string]bool)
	over := 0
	for v := range m.Buffer.Vertices {
		src := m.Buffer.Vertices[v].Source
		if src >= len(data.Weights) {
			continue
		}
		count := 0
		for _, w := range data.Weights[src] {
			if w.Value <= r.cfg.Mesh.TrimBoneWeights {
				continue
			}
			if w.Group < 0 || w.Group >= len(data.VertexGroups) {
				continue
			}
			name := data.VertexGroups[w.Group]
			bone := sk.Bone(name)
			if bone == nil || bone.ID < 0 {
				unknown[name] = true
				continue
			}
			m.BoneAssignments = append(m.BoneAssignments, ogre.BoneAssignment{
				Vertex: v,
				Bone:   bone.ID,
				Weight: w.Value,
			})
			count++
		}
		if count > r.cfg.Mesh.MaxInfluences {
			over++
		}
	}
	for _, g := range data.VertexGroups {
		if unknown[g] {
			r.rep.Warnf(obj.Name, "vertex group %q has no matching exported bone, weights skipped", g)
		}
	}
	if over > 0 {
		r.rep.Warnf(obj.Name, "%d vertices have more than %d bone influences", over, r.cfg.Mesh.MaxInfluences)
	}
	return nil
}

// attachPoses adds one pose per shape key and samples every clip that
// animates this mesh's keys. A vertex count mismatch drops all pose data.
func (r *run) attachPoses(obj *scene.MeshObject, m *ogre.Mesh) {
	data := obj.Data
	poses, err := morph.BuildPoses(data.Positions, data.ShapeKeys, m.Buffer, r.mode,
		morph.Options{Normals: r.cfg.Mesh.ShapeNormals})
	if err != nil {
		r.rep.Warnf(obj.Name, "skipping shape keys: %v", err)
		return
	}
	m.Poses = poses
	if !r.cfg.Mesh.ShapeAnimations {
		return
	}

	keys := make([]string, len(data.ShapeKeys))
	for i, k := range data.ShapeKeys {
		keys[i] = k.Name
	}
	weights, err := r.pose.Mesh(obj.Name)
	if err != nil {
		r.rep.Warnf(obj.Name, "skipping shape animations: %v", err)
		return
	}
	for _, c := range r.snap.Clips {
		if _, ok := c.Shapes[obj.Name]; !ok {
			continue
		}
		anim, err := morph.SampleAnimation(weights, r.clip(c, nil), keys)
		if err != nil {
			r.rep.Warnf(obj.Name, "shape animation %q: %v", c.Name, err)
			continue
		}
		m.PoseAnimations = append(m.PoseAnimations, anim)
	}
}

// clip converts a scene clip to a sampling range at the configured step.
func (r *run) clip(c *scene.Clip, arm *scene.Armature) skeleton.Clip {
	sc := skeleton.Clip{
		Name:  c.Name,
		Start: c.Start,
		End:   c.End,
		Step:  r.cfg.Skeleton.FrameStep,
		FPS:   r.snap.FPS,
	}
	if arm != nil {
		sc.Bones = c.KeyedBones(arm)
	}
	return sc
}
