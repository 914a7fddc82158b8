package gltfscene

import (
	"fmt"
	"path"

	"github.com/qmuntal/gltf"

	"github.com/Faultbox/ogrexport/pkg/material"
	"github.com/Faultbox/ogrexport/pkg/math"
)

const unlitExtension = "KHR_materials_unlit"

func materialName(doc *gltf.Document, i int) string {
	if name := doc.Materials[i].Name; name != "" {
		return name
	}
	return fmt.Sprintf("material%d", i)
}

// convertMaterial maps a metallic-roughness material onto a single
// fixed-function pass.
func (b *builder) convertMaterial(i int) *material.Material {
	m := b.doc.Materials[i]
	pass := material.DefaultPass()

	if pbr := m.PBRMetallicRoughness; pbr != nil {
		c := pbr.BaseColorFactorOrDefault()
		pass.Diffuse = math.Vec3{X: c[0], Y: c[1], Z: c[2]}
		pass.Alpha = c[3]
		rough := pbr.RoughnessFactorOrDefault()
		metal := pbr.MetallicFactorOrDefault()
		pass.SpecularIntensity = (1 - rough) * (1 - 0.5*metal)
		pass.Hardness = 1 + (1-rough)*510
		if tex := pbr.BaseColorTexture; tex != nil {
			if slot, ok := b.textureSlot(int(tex.Index), int(tex.TexCoord)); ok {
				pass.Textures = append(pass.Textures, slot)
			}
		}
	}

	e := m.EmissiveFactor
	pass.Emit = max(e[0], e[1], e[2])
	if _, ok := m.Extensions[unlitExtension]; ok {
		pass.Shadeless = true
	}

	switch m.AlphaMode {
	case gltf.AlphaBlend:
		pass.Options.SceneBlend = "alpha_blend"
		pass.Options.DisableDepthWrite = true
	case gltf.AlphaMask:
		cutoff := float32(0.5)
		if m.AlphaCutoff != nil {
			cutoff = *m.AlphaCutoff
		}
		pass.Options.AlphaRejection = int(cutoff*255 + 0.5)
	}
	if m.DoubleSided {
		pass.Options.CullHardware = "none"
		pass.Options.CullSoftware = "none"
	}

	return &material.Material{
		Name:   materialName(b.doc, i),
		Passes: []material.Pass{pass},
	}
}

func (b *builder) textureSlot(ti, uvSet int) (material.TextureSlot, bool) {
	if ti >= len(b.doc.Textures) {
		return material.TextureSlot{}, false
	}
	tex := b.doc.Textures[ti]
	src, ok := index(tex.Source)
	if !ok || src >= len(b.doc.Images) {
		return material.TextureSlot{}, false
	}
	img := b.doc.Images[src]
	image := img.Name
	if img.URI != "" && !img.IsEmbeddedResource() {
		image = path.Base(img.URI)
	}
	if image == "" {
		image = fmt.Sprintf("image%d", src)
	}

	slot := material.TextureSlot{
		Image:  image,
		Blend:  material.BlendMix,
		Factor: 1,
		UVSet:  uvSet,
		Extend: material.ExtendRepeat,
		Scale:  math.Vec2{X: 1, Y: 1},
	}
	if si, ok := index(tex.Sampler); ok && si < len(b.doc.Samplers) {
		switch b.doc.Samplers[si].WrapS {
		case gltf.WrapClampToEdge:
			slot.Extend = material.ExtendExtend
		case gltf.WrapMirroredRepeat:
			slot.Extend = material.ExtendChecker
		}
	}
	return slot, true
}
