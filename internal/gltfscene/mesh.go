package gltfscene

import (
	"encoding/binary"
	"fmt"
	gomath "math"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/ogrexport/internal/scene"
	"github.com/Faultbox/ogrexport/pkg/math"
	"github.com/Faultbox/ogrexport/pkg/morph"
)

// primitive holds the attributes of one triangle primitive.
type primitive struct {
	positions [][3]float32
	normals   [][3]float32
	uvs       [][][2]float32
	colors    [][4]uint8
	joints    [][4]uint16
	weights   [][4]float32
	targets   []target
	indices   []uint32
	slot      int
}

type target struct {
	positions [][3]float32
	normals   [][3]float32
}

// meshBuild accumulates welded vertices across primitives.
type meshBuild struct {
	data    *scene.MeshData
	weld    map[string]int
	normals []math.Vec3
	keyPos  [][]math.Vec3
	keyNrm  [][]math.Vec3
	slots   map[int]int
}

func (b *builder) convertMeshNode(ni int) (*scene.MeshObject, error) {
	node := b.doc.Nodes[ni]
	mi, _ := index(node.Mesh)
	if mi >= len(b.doc.Meshes) {
		return nil, errors.Errorf("mesh %d out of range", mi)
	}
	gm := b.doc.Meshes[mi]

	name := gm.Name
	if name == "" {
		name = fmt.Sprintf("mesh%d", mi)
	}
	mb := &meshBuild{
		data:  &scene.MeshData{Name: name},
		weld:  make(map[string]int),
		slots: make(map[int]int),
	}
	obj := &scene.MeshObject{
		Name:   nodeName(b.doc, ni),
		Data:   mb.data,
		Matrix: b.toScene(b.world[ni]),
	}

	var jointNames []string
	if si, ok := index(node.Skin); ok && si < len(b.doc.Skins) {
		for _, j := range b.doc.Skins[si].Joints {
			jointNames = append(jointNames, nodeName(b.doc, int(j)))
		}
		mb.data.VertexGroups = jointNames
		if arm := b.armatureOfSkin[si]; arm != nil {
			obj.Armature = arm.Name
		}
	}

	layers := 0
	for _, p := range gm.Primitives {
		for n := layers; ; n++ {
			if _, ok := p.Attributes[fmt.Sprintf("TEXCOORD_%d", n)]; !ok {
				break
			}
			layers = n + 1
		}
	}
	for n := 0; n < layers; n++ {
		mb.data.UVLayers = append(mb.data.UVLayers, fmt.Sprintf("TEXCOORD_%d", n))
	}

	keyNames := targetNames(gm)
	for pi, p := range gm.Primitives {
		if p.Mode != gltf.PrimitiveTriangles {
			b.log.Warn("skipping non-triangle primitive",
				zap.String("mesh", name), zap.Int("primitive", pi))
			continue
		}
		prim, err := b.readPrimitive(p, layers, mb)
		if err != nil {
			return nil, errors.Wrapf(err, "mesh %q primitive %d", name, pi)
		}
		if len(keyNames) < len(prim.targets) {
			for k := len(keyNames); k < len(prim.targets); k++ {
				keyNames = append(keyNames, fmt.Sprintf("Key %d", k+1))
			}
		}
		if mb.keyPos == nil && len(prim.targets) > 0 {
			mb.keyPos = make([][]math.Vec3, len(prim.targets))
			mb.keyNrm = make([][]math.Vec3, len(prim.targets))
		}
		if len(prim.targets) != len(mb.keyPos) {
			return nil, errors.Errorf("mesh %q primitive %d: %d morph targets, want %d",
				name, pi, len(prim.targets), len(mb.keyPos))
		}
		if err := b.addPrimitive(mb, prim, len(jointNames)); err != nil {
			return nil, errors.Wrapf(err, "mesh %q primitive %d", name, pi)
		}
	}

	mb.data.Normals = make([]math.Vec3, len(mb.normals))
	for i, n := range mb.normals {
		mb.data.Normals[i] = n.Normalize()
	}
	for k := range mb.keyPos {
		key := morph.ShapeKey{Name: keyNames[k], Positions: mb.keyPos[k]}
		if hasAny(mb.keyNrm[k]) {
			key.Normals = make([]math.Vec3, len(mb.keyNrm[k]))
			for i, n := range mb.keyNrm[k] {
				key.Normals[i] = n.Normalize()
			}
		}
		mb.data.ShapeKeys = append(mb.data.ShapeKeys, key)
	}
	weights := node.Weights
	if len(weights) == 0 {
		weights = gm.Weights
	}
	if len(mb.data.ShapeKeys) > 0 {
		mb.data.ShapeWeights = make([]float32, len(mb.data.ShapeKeys))
		copy(mb.data.ShapeWeights, weights)
	}
	return obj, nil
}

func (b *builder) readPrimitive(p *gltf.Primitive, layers int, mb *meshBuild) (*primitive, error) {
	prim := &primitive{}
	acr := func(i uint32) (*gltf.Accessor, error) {
		if int(i) >= len(b.doc.Accessors) {
			return nil, errors.Errorf("accessor %d out of range", i)
		}
		return b.doc.Accessors[i], nil
	}

	pos, ok := p.Attributes["POSITION"]
	if !ok {
		return nil, errors.New("primitive has no POSITION attribute")
	}
	a, err := acr(pos)
	if err != nil {
		return nil, err
	}
	if prim.positions, err = modeler.ReadPosition(b.doc, a, nil); err != nil {
		return nil, errors.Wrap(err, "reading positions")
	}
	if i, ok := p.Attributes["NORMAL"]; ok {
		if a, err = acr(i); err != nil {
			return nil, err
		}
		if prim.normals, err = modeler.ReadNormal(b.doc, a, nil); err != nil {
			return nil, errors.Wrap(err, "reading normals")
		}
	}
	prim.uvs = make([][][2]float32, layers)
	for n := 0; n < layers; n++ {
		i, ok := p.Attributes[fmt.Sprintf("TEXCOORD_%d", n)]
		if !ok {
			continue
		}
		if a, err = acr(i); err != nil {
			return nil, err
		}
		if prim.uvs[n], err = modeler.ReadTextureCoord(b.doc, a, nil); err != nil {
			return nil, errors.Wrapf(err, "reading TEXCOORD_%d", n)
		}
	}
	if i, ok := p.Attributes["COLOR_0"]; ok {
		if a, err = acr(i); err != nil {
			return nil, err
		}
		if prim.colors, err = modeler.ReadColor(b.doc, a, nil); err != nil {
			return nil, errors.Wrap(err, "reading colors")
		}
		mb.data.HasColor = true
	}
	if i, ok := p.Attributes["JOINTS_0"]; ok {
		if a, err = acr(i); err != nil {
			return nil, err
		}
		if prim.joints, err = modeler.ReadJoints(b.doc, a, nil); err != nil {
			return nil, errors.Wrap(err, "reading joints")
		}
	}
	if i, ok := p.Attributes["WEIGHTS_0"]; ok {
		if a, err = acr(i); err != nil {
			return nil, err
		}
		if prim.weights, err = modeler.ReadWeights(b.doc, a, nil); err != nil {
			return nil, errors.Wrap(err, "reading weights")
		}
	}
	for ti, t := range p.Targets {
		var tg target
		if i, ok := t["POSITION"]; ok {
			if a, err = acr(i); err != nil {
				return nil, err
			}
			if tg.positions, err = modeler.ReadPosition(b.doc, a, nil); err != nil {
				return nil, errors.Wrapf(err, "reading target %d positions", ti)
			}
		}
		if i, ok := t["NORMAL"]; ok {
			if a, err = acr(i); err != nil {
				return nil, err
			}
			if tg.normals, err = modeler.ReadNormal(b.doc, a, nil); err != nil {
				return nil, errors.Wrapf(err, "reading target %d normals", ti)
			}
		}
		prim.targets = append(prim.targets, tg)
	}

	if i, ok := index(p.Indices); ok {
		a, err := acr(uint32(i))
		if err != nil {
			return nil, err
		}
		if prim.indices, err = modeler.ReadIndices(b.doc, a, nil); err != nil {
			return nil, errors.Wrap(err, "reading indices")
		}
	} else {
		prim.indices = make([]uint32, len(prim.positions))
		for i := range prim.indices {
			prim.indices[i] = uint32(i)
		}
	}

	mat := -1
	if i, ok := index(p.Material); ok && i < len(b.doc.Materials) {
		mat = i
	}
	prim.slot = mb.slotFor(b.doc, mat)
	return prim, nil
}

// slotFor returns the mesh material slot for a document material, -1
// meaning none.
func (mb *meshBuild) slotFor(doc *gltf.Document, key int) int {
	if slot, ok := mb.slots[key]; ok {
		return slot
	}
	slot := len(mb.data.Materials)
	mb.slots[key] = slot
	name := ""
	if key >= 0 {
		name = materialName(doc, key)
	}
	mb.data.Materials = append(mb.data.Materials, name)
	return slot
}

// addPrimitive welds the primitive's vertices into the mesh and appends
// its triangles as faces.
func (b *builder) addPrimitive(mb *meshBuild, prim *primitive, groups int) error {
	remap := make([]int, len(prim.positions))
	for i := range prim.positions {
		key := weldKey(prim, i)
		if v, ok := mb.weld[key]; ok {
			remap[i] = v
			continue
		}
		v := len(mb.data.Positions)
		mb.weld[key] = v
		remap[i] = v

		base := vec3(prim.positions[i])
		mb.data.Positions = append(mb.data.Positions, b.up.Vec3(base))
		mb.normals = append(mb.normals, math.Vec3{})
		for k, t := range prim.targets {
			p := base
			if i < len(t.positions) {
				p = p.Add(vec3(t.positions[i]))
			}
			mb.keyPos[k] = append(mb.keyPos[k], b.up.Vec3(p))
			var n math.Vec3
			if i < len(t.normals) && i < len(prim.normals) {
				n = b.up.Vec3(vec3(prim.normals[i]).Add(vec3(t.normals[i])))
			}
			mb.keyNrm[k] = append(mb.keyNrm[k], n)
		}
		var ws []scene.Weight
		if i < len(prim.joints) && i < len(prim.weights) {
			for c := 0; c < 4; c++ {
				g, w := int(prim.joints[i][c]), prim.weights[i][c]
				if w <= 0 {
					continue
				}
				if g >= groups {
					return errors.Errorf("vertex %d references joint %d of %d", i, g, groups)
				}
				ws = append(ws, scene.Weight{Group: g, Value: w})
			}
		}
		mb.data.Weights = append(mb.data.Weights, ws)
	}

	if len(prim.indices)%3 != 0 {
		b.log.Warn("index count is not a multiple of 3, dropping the tail",
			zap.String("mesh", mb.data.Name), zap.Int("indices", len(prim.indices)))
	}
	for t := 0; t+2 < len(prim.indices); t += 3 {
		corners := prim.indices[t : t+3]
		face := scene.Face{Material: prim.slot, Smooth: prim.normals != nil}
		for _, c := range corners {
			if int(c) >= len(prim.positions) {
				return errors.Errorf("index %d out of range (%d vertices)", c, len(prim.positions))
			}
			face.Verts = append(face.Verts, remap[c])
		}
		p0 := mb.data.Positions[face.Verts[0]]
		p1 := mb.data.Positions[face.Verts[1]]
		p2 := mb.data.Positions[face.Verts[2]]
		face.Normal = p1.Sub(p0).Cross(p2.Sub(p0)).Normalize()

		for ci, c := range corners {
			v := face.Verts[ci]
			if prim.normals != nil {
				n := b.up.Vec3(vec3(prim.normals[c])).Normalize()
				face.CornerNormals = append(face.CornerNormals, n)
				mb.normals[v] = mb.normals[v].Add(n)
			} else {
				mb.normals[v] = mb.normals[v].Add(face.Normal)
			}
			uvs := make([]math.Vec2, len(prim.uvs))
			for n, layer := range prim.uvs {
				if int(c) < len(layer) {
					uvs[n] = math.Vec2{X: layer[c][0], Y: 1 - layer[c][1]}
				}
			}
			face.UVs = append(face.UVs, uvs)
			if mb.data.HasColor {
				col := math.Vec4{X: 1, Y: 1, Z: 1, W: 1}
				if int(c) < len(prim.colors) {
					rgba := prim.colors[c]
					col = math.Vec4{
						X: float32(rgba[0]) / 255,
						Y: float32(rgba[1]) / 255,
						Z: float32(rgba[2]) / 255,
						W: float32(rgba[3]) / 255,
					}
				}
				face.Colors = append(face.Colors, col)
			}
		}
		mb.data.Faces = append(mb.data.Faces, face)
	}
	return nil
}

// weldKey identifies vertices that are the same source vertex: equal
// position, skinning and morph offsets. glTF splits vertices at every
// attribute seam, so this recovers the shared vertex the seam came from.
func weldKey(prim *primitive, i int) string {
	buf := make([]byte, 0, 64)
	put := func(vs ...float32) {
		for _, v := range vs {
			buf = binary.LittleEndian.AppendUint32(buf, gomath.Float32bits(v))
		}
	}
	put(prim.positions[i][:]...)
	if i < len(prim.joints) && i < len(prim.weights) {
		for c := 0; c < 4; c++ {
			put(float32(prim.joints[i][c]), prim.weights[i][c])
		}
	}
	for _, t := range prim.targets {
		if i < len(t.positions) {
			put(t.positions[i][:]...)
		}
	}
	return string(buf)
}

// targetNames reads morph target names from the mesh extras, the
// convention most exporters follow.
func targetNames(m *gltf.Mesh) []string {
	extras, ok := m.Extras.(map[string]any)
	if !ok {
		return nil
	}
	list, ok := extras["targetNames"].([]any)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(list))
	for i, v := range list {
		s, ok := v.(string)
		if !ok || s == "" {
			s = fmt.Sprintf("Key %d", i+1)
		}
		names = append(names, s)
	}
	return names
}

func vec3(v [3]float32) math.Vec3 {
	return math.Vec3{X: v[0], Y: v[1], Z: v[2]}
}

func hasAny(vs []math.Vec3) bool {
	for _, v := range vs {
		if v != (math.Vec3{}) {
			return true
		}
	}
	return false
}
