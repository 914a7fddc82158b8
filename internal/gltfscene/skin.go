package gltfscene

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/ogrexport/internal/scene"
	"github.com/Faultbox/ogrexport/pkg/math"
)

// joint records what animation baking needs about a skin joint.
type joint struct {
	// localRest is the rest transform relative to the parent joint, or
	// to armature space for a root joint.
	localRest math.Mat4
	root      bool
}

func (b *builder) convertSkin(si int) (*scene.Armature, error) {
	skin := b.doc.Skins[si]
	name := skin.Name
	if name == "" {
		name = fmt.Sprintf("skin%d", si)
	}

	inSkin := make(map[int]bool, len(skin.Joints))
	for _, j := range skin.Joints {
		if int(j) >= len(b.doc.Nodes) {
			return nil, errors.Errorf("joint node %d out of range", j)
		}
		inSkin[int(j)] = true
	}

	ibm, err := b.inverseBinds(skin.InverseBindMatrices, len(skin.Joints))
	if err != nil {
		return nil, err
	}
	rest := make(map[int]math.Mat4, len(skin.Joints))
	for k, j := range skin.Joints {
		if ibm != nil {
			rest[int(j)] = b.toScene(ibm[k].Inverse())
		} else {
			rest[int(j)] = b.toScene(b.world[j])
		}
	}

	parentJoint := func(n int) int {
		for p := b.parent[n]; p >= 0; p = b.parent[p] {
			if inSkin[p] {
				return p
			}
		}
		return -1
	}

	children := make(map[int][]int)
	var roots []int
	for _, j := range skin.Joints {
		if p := parentJoint(int(j)); p >= 0 {
			children[p] = append(children[p], int(j))
		} else {
			roots = append(roots, int(j))
		}
	}

	arm := &scene.Armature{Name: name, Matrix: math.Identity()}
	var visit func(n, parent int)
	visit = func(n, parent int) {
		bone := scene.Bone{
			Name:         nodeName(b.doc, n),
			Rest:         rest[n],
			Deform:       true,
			InheritScale: true,
		}
		info := &joint{localRest: rest[n], root: parent < 0}
		if parent >= 0 {
			bone.Parent = nodeName(b.doc, parent)
			info.localRest = rest[parent].Inverse().Mul(rest[n])
		}
		if _, seen := b.joints[n]; !seen {
			b.joints[n] = info
		}
		arm.Bones = append(arm.Bones, bone)
		for _, c := range children[n] {
			visit(c, n)
		}
	}
	for _, r := range roots {
		visit(r, -1)
	}
	return arm, nil
}

// inverseBinds reads a skin's inverse bind matrices. A nil result means
// the skin has none and joints bind at their rest world transform.
func (b *builder) inverseBinds(acr *uint32, joints int) ([]math.Mat4, error) {
	i, ok := index(acr)
	if !ok {
		return nil, nil
	}
	data, err := b.readAccessor(i)
	if err != nil {
		return nil, errors.Wrap(err, "reading inverse bind matrices")
	}
	mats, ok := data.([][4][4]float32)
	if !ok {
		return nil, errors.Errorf("inverse bind matrices have type %T", data)
	}
	if len(mats) < joints {
		return nil, errors.Errorf("%d inverse bind matrices for %d joints", len(mats), joints)
	}
	out := make([]math.Mat4, joints)
	for k := range out {
		for c := 0; c < 4; c++ {
			for r := 0; r < 4; r++ {
				out[k][c*4+r] = mats[k][c][r]
			}
		}
	}
	return out, nil
}

func (b *builder) readAccessor(i int) (any, error) {
	if i < 0 || i >= len(b.doc.Accessors) {
		return nil, errors.Errorf("accessor %d out of range", i)
	}
	data, err := modeler.ReadAccessor(b.doc, b.doc.Accessors[i], nil)
	return data, errors.Wrapf(err, "accessor %d", i)
}
